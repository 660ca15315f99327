package partnerRepo

import (
	"context"
	"errors"

	"homezy/models"
)

// ErrPartnerNotFound is returned when no partner matches the given ID.
var ErrPartnerNotFound = errors.New("partner not found")

// EligibilityFilters narrows the candidate pool the ranker works from.
// The zero value matches every partner (full-pool mode).
type EligibilityFilters struct {
	Category     string // require the category among the partner's services
	VerifiedOnly bool
	OnlineOnly   bool
}

// PartnerDirectory defines read access to partner records.
type PartnerDirectory interface {
	GetByID(ctx context.Context, userID string) (*models.PartnerProfile, error)
	// ListEligible returns raw partner records for a service category in
	// insertion order; scoring and ordering belong to the ranker.
	ListEligible(ctx context.Context, filters EligibilityFilters) ([]models.PartnerProfile, error)
}
