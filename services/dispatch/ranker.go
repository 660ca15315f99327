package dispatch

import (
	"context"
	"math"
	"sort"

	bookingRepo "homezy/database/repository/booking"
	catalogRepo "homezy/database/repository/catalog"
	partnerRepo "homezy/database/repository/partner"
	"homezy/models"
)

// RankStrategy produces scored candidates for a booking's service. Selected
// by configuration at construction; "fullpool" is the open testing pool,
// "smart" the production ranking.
type RankStrategy interface {
	Candidates(ctx context.Context, booking *models.Booking, service *models.Service) ([]models.PartnerCandidate, error)
}

// Ranker resolves the booking's service and delegates scoring to its
// strategy, then defensively deduplicates and orders the result: descending
// rank score, ties broken by ascending distance, then by fetch order.
type Ranker struct {
	Catalog  catalogRepo.ServiceCatalog
	Strategy RankStrategy
}

// Rank returns the ordered candidate list for a booking, together with the
// resolved service. An unknown service yields an empty list, not an error;
// a data-source failure yields a RankingFailedError.
func (r *Ranker) Rank(ctx context.Context, booking *models.Booking) ([]models.PartnerCandidate, *models.Service, error) {
	service, err := r.Catalog.GetByID(ctx, booking.ServiceID)
	if err != nil {
		if err == catalogRepo.ErrServiceNotFound {
			return nil, nil, nil
		}
		return nil, nil, &RankingFailedError{BookingID: booking.ID, Err: err}
	}

	candidates, err := r.Strategy.Candidates(ctx, booking, service)
	if err != nil {
		return nil, service, &RankingFailedError{BookingID: booking.ID, Err: err}
	}

	// Each eligible partner at most once; first occurrence wins.
	seen := make(map[string]bool, len(candidates))
	deduped := candidates[:0]
	for _, c := range candidates {
		if seen[c.PartnerID] {
			continue
		}
		seen[c.PartnerID] = true
		deduped = append(deduped, c)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].RankScore != deduped[j].RankScore {
			return deduped[i].RankScore > deduped[j].RankScore
		}
		return lessDistance(deduped[i].DistanceKm, deduped[j].DistanceKm)
	})

	return deduped, service, nil
}

// lessDistance orders known distances ascending; unknown distances sort last.
func lessDistance(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// FullPoolStrategy offers to every partner regardless of verification or
// category match, with a simple descending index score. Used when smart
// ranking is disabled.
type FullPoolStrategy struct {
	Directory partnerRepo.PartnerDirectory
}

func (s *FullPoolStrategy) Candidates(ctx context.Context, booking *models.Booking, service *models.Service) ([]models.PartnerCandidate, error) {
	partners, err := s.Directory.ListEligible(ctx, partnerRepo.EligibilityFilters{})
	if err != nil {
		return nil, err
	}

	candidates := make([]models.PartnerCandidate, 0, len(partners))
	for i, p := range partners {
		candidates = append(candidates, models.PartnerCandidate{
			PartnerID:   p.UserID,
			PartnerName: p.FullName,
			RankScore:   float64(100 - i),
			DistanceKm:  distanceKm(booking, p),
			IsOnline:    p.IsOnline,
		})
	}
	return candidates, nil
}

// Smart ranking weights.
const (
	smartVerifiedBonus  = 20.0
	smartOnlineBonus    = 10.0
	smartHistoryBonus   = 15.0
	smartMaxRatingPts   = 15.0
	smartMaxLocationPts = 40.0
	smartMaxDistanceKm  = 25.0
)

// SmartScoreFunc combines ranking signals into one score. Exposed as a
// field so the scoring capability stays swappable.
type SmartScoreFunc func(p models.PartnerProfile, distanceKm *float64, workedWithCustomer bool) float64

// SmartStrategy ranks verified partners in the booking's category by
// rating, proximity, prior-customer history and availability.
type SmartStrategy struct {
	Directory partnerRepo.PartnerDirectory
	Bookings  bookingRepo.BookingRepository
	Score     SmartScoreFunc // nil means DefaultSmartScore
}

func (s *SmartStrategy) Candidates(ctx context.Context, booking *models.Booking, service *models.Service) ([]models.PartnerCandidate, error) {
	partners, err := s.Directory.ListEligible(ctx, partnerRepo.EligibilityFilters{
		Category:     service.Category,
		VerifiedOnly: true,
	})
	if err != nil {
		return nil, err
	}

	score := s.Score
	if score == nil {
		score = DefaultSmartScore
	}

	candidates := make([]models.PartnerCandidate, 0, len(partners))
	for _, p := range partners {
		worked := false
		if s.Bookings != nil {
			n, err := s.Bookings.CountCompletedWith(ctx, p.UserID, booking.CustomerID)
			if err != nil {
				return nil, err
			}
			worked = n > 0
		}
		dist := distanceKm(booking, p)
		candidates = append(candidates, models.PartnerCandidate{
			PartnerID:             p.UserID,
			PartnerName:           p.FullName,
			RankScore:             score(p, dist, worked),
			HasWorkedWithCustomer: worked,
			DistanceKm:            dist,
			IsOnline:              p.IsOnline,
		})
	}
	return candidates, nil
}

// DefaultSmartScore is the stock scoring function.
func DefaultSmartScore(p models.PartnerProfile, distanceKm *float64, workedWithCustomer bool) float64 {
	rating := p.Rating
	if rating > 5 {
		rating = 5
	}
	score := (rating / 5) * smartMaxRatingPts

	if p.VerificationStatus == models.VerificationVerified {
		score += smartVerifiedBonus
	}
	if p.IsOnline {
		score += smartOnlineBonus
	}
	if workedWithCustomer {
		score += smartHistoryBonus
	}
	if distanceKm != nil && *distanceKm < smartMaxDistanceKm {
		score += smartMaxLocationPts * (1 - *distanceKm/smartMaxDistanceKm)
	}
	return score
}

// distanceKm returns the great-circle distance between the booking address
// and the partner, or nil when either side has no coordinates.
func distanceKm(booking *models.Booking, p models.PartnerProfile) *float64 {
	bc := booking.Address.Geo.Coordinates
	pc := p.LocationGeo.Coordinates
	if len(bc) < 2 || len(pc) < 2 {
		return nil
	}
	d := haversine(bc[1], bc[0], pc[1], pc[0])
	return &d
}

// haversine calculates the great-circle distance (in km) between two
// lat/lon points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
