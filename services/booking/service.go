package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "homezy/database/repository/booking"
	catalogRepo "homezy/database/repository/catalog"
	offerRepo "homezy/database/repository/offer"
	partnerRepo "homezy/database/repository/partner"
	"homezy/models"
	"homezy/services/dispatch"
	"homezy/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Bookings  bookingRepo.BookingRepository
	Ledger    offerRepo.OfferLedger
	Catalog   catalogRepo.ServiceCatalog
	Directory partnerRepo.PartnerDirectory
	Notifier  notification.NotificationService
	Enqueuer  DispatchEnqueuer
	Clock     dispatch.Clock
	Logger    *zap.Logger
}

// CreateBooking records a pending booking and hands it to the dispatch
// engine. The partner search runs off the request path; the customer polls
// the booking status or waits for the confirmation notification.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, customerID string, input CreateBookingInput) (*models.Booking, error) {
	service, err := s.Catalog.GetByID(ctx, input.ServiceID)
	if err != nil {
		if err == catalogRepo.ErrServiceNotFound {
			return nil, ErrServiceUnavailable
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if !service.Active {
		return nil, ErrServiceUnavailable
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		ID:                 uuid.New().String(),
		ServiceID:          service.ID,
		CustomerID:         customerID,
		PreferredPartnerID: input.PreferredPartnerID,
		Status:             models.BookingStatusPending,
		ScheduledDate:      input.ScheduledDate,
		TotalAmount:        input.TotalAmount,
		Address:            input.Address,
		Instructions:       input.Instructions,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.Enqueuer.EnqueueDispatchTrigger(ctx, booking.ID); err != nil {
		// The booking exists either way; ops can re-trigger the search.
		s.Logger.Error("failed to enqueue dispatch trigger",
			zap.String("bookingID", booking.ID), zap.Error(err))
	}
	return booking, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *DefaultBookingService) ListCustomerBookings(ctx context.Context, customerID string, statuses []string) ([]models.Booking, error) {
	return s.Bookings.ListByCustomer(ctx, customerID, statuses)
}

func (s *DefaultBookingService) CancelBooking(ctx context.Context, id, customerID string) error {
	cancelled, err := s.Bookings.CancelByCustomer(ctx, id, customerID)
	if err != nil {
		return err
	}
	if !cancelled {
		return ErrCannotCancel
	}
	return nil
}

// ListOpenOffers returns a partner's live job offers joined with their
// bookings. Offers whose booking already left the pending state are
// superseded and filtered out.
func (s *DefaultBookingService) ListOpenOffers(ctx context.Context, partnerID string) ([]OpenOffer, error) {
	offers, err := s.Ledger.ListPendingForPartner(ctx, partnerID, s.Clock.Now())
	if err != nil {
		return nil, err
	}

	open := make([]OpenOffer, 0, len(offers))
	for _, offer := range offers {
		booking, err := s.Bookings.GetByID(ctx, offer.BookingID)
		if err != nil {
			s.Logger.Warn("offer references missing booking",
				zap.String("bookingID", offer.BookingID), zap.Error(err))
			continue
		}
		if booking.Status != models.BookingStatusPending {
			continue
		}
		entry := OpenOffer{Offer: offer, Booking: *booking}
		if service, err := s.Catalog.GetByID(ctx, booking.ServiceID); err == nil {
			entry.Service = service
		}
		open = append(open, entry)
	}
	return open, nil
}

func (s *DefaultBookingService) ListPartnerJobs(ctx context.Context, partnerID string, statuses []string) ([]models.Booking, error) {
	return s.Bookings.ListByPartner(ctx, partnerID, statuses)
}

// AcceptJob is the single acceptance point: the conditional assignment on
// the booking row guarantees at most one partner ever wins it, no matter
// how many offers are pending.
func (s *DefaultBookingService) AcceptJob(ctx context.Context, bookingID, partnerID string) (*models.Booking, error) {
	claimed, err := s.Bookings.AssignPartner(ctx, bookingID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("accept job: %w", err)
	}
	if !claimed {
		return nil, ErrJobUnavailable
	}

	if err := s.Ledger.MarkAccepted(ctx, bookingID, partnerID); err != nil {
		// The booking assignment is the source of truth; a stale offer
		// row only affects the audit view.
		s.Logger.Warn("failed to mark offer accepted",
			zap.String("bookingID", bookingID), zap.Error(err))
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("accept job: %w", err)
	}

	partner, err := s.Directory.GetByID(ctx, partnerID)
	if err != nil {
		s.Logger.Warn("accepting partner has no profile",
			zap.String("partnerID", partnerID), zap.Error(err))
		partner = nil
	}
	if err := s.Notifier.SendBookingConfirmed(ctx, booking, partner); err != nil {
		s.Logger.Error("failed to send confirmation notice",
			zap.String("bookingID", bookingID), zap.Error(err))
	}

	s.Logger.Info("job accepted",
		zap.String("bookingID", bookingID),
		zap.String("partnerID", partnerID))
	return booking, nil
}

func (s *DefaultBookingService) RejectJob(ctx context.Context, bookingID, partnerID string) error {
	rejected, err := s.Ledger.MarkRejected(ctx, bookingID, partnerID)
	if err != nil {
		return fmt.Errorf("reject job: %w", err)
	}
	if !rejected {
		return ErrJobUnavailable
	}
	return nil
}

// partnerStatusUpdates are the transitions a partner may apply to a job
// they own.
var partnerStatusUpdates = map[string]bool{
	models.BookingStatusInProgress: true,
	models.BookingStatusCompleted:  true,
	models.BookingStatusNoShow:     true,
}

func (s *DefaultBookingService) UpdateJobStatus(ctx context.Context, bookingID, partnerID, status string) error {
	if !partnerStatusUpdates[status] {
		return ErrInvalidStatus
	}
	updated, err := s.Bookings.UpdateStatusOwned(ctx, bookingID, partnerID, status)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if !updated {
		return ErrNotJobOwner
	}
	return nil
}
