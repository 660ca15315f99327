package bookingRepo

import (
	"context"
	"errors"

	"homezy/models"
)

// ErrBookingNotFound is returned when no booking matches the given ID.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepository defines data access for bookings, including the two
// conditional writes the dispatch engine relies on: partner acceptance and
// batch-escalation claims.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// GetStatus is the cheap status probe used for cooperative cancellation.
	GetStatus(ctx context.Context, id string) (string, error)
	ListByCustomer(ctx context.Context, customerID string, statuses []string) ([]models.Booking, error)
	ListByPartner(ctx context.Context, partnerID string, statuses []string) ([]models.Booking, error)

	// AssignPartner atomically confirms the booking for the given partner.
	// It succeeds only while the booking is still pending and unassigned,
	// so at most one partner can ever win a booking.
	AssignPartner(ctx context.Context, id, partnerID string) (bool, error)

	// ClaimNextBatch advances the escalation counter from fromBatch to
	// fromBatch+1, but only if the stored counter still equals fromBatch
	// and the booking is still pending. A false return means another
	// sweep (or the creation trigger) already claimed it.
	ClaimNextBatch(ctx context.Context, id string, fromBatch int) (bool, error)

	// MarkExhausted records that all batches were sent without acceptance.
	// Returns false if the booking was already marked, so only one sweep
	// reports the exhaustion.
	MarkExhausted(ctx context.Context, id string) (bool, error)

	// UpdateStatusOwned transitions a booking's status on behalf of the
	// partner who owns it.
	UpdateStatusOwned(ctx context.Context, id, partnerID, status string) (bool, error)

	// CancelByCustomer cancels a booking that has not progressed past
	// confirmation.
	CancelByCustomer(ctx context.Context, id, customerID string) (bool, error)

	// CountCompletedWith reports how many completed jobs the partner has
	// done for the customer (prior-history ranking signal).
	CountCompletedWith(ctx context.Context, partnerID, customerID string) (int, error)
}
