package offerRepo

import (
	"context"
	"errors"
	"time"

	"homezy/models"
)

// ErrDuplicateOffer is returned when an offer for the same
// (booking, partner, batch) triple already exists. Dispatchers treat it as
// "already sent" and move on.
var ErrDuplicateOffer = errors.New("offer already exists")

// OfferLedger is the durable record of every job offer. It exclusively owns
// offer rows; all other components read and write offers through it.
type OfferLedger interface {
	// CreateOffer inserts the offer if absent. The unique index on
	// (booking_id, partner_id, batch_number) turns duplicate dispatch
	// attempts into ErrDuplicateOffer.
	CreateOffer(ctx context.Context, offer *models.Offer) error

	// MarkExpired flips every pending offer past its deadline to expired
	// and reports the affected bookings with the highest batch number that
	// just expired. Running it again with the same clock finds nothing.
	MarkExpired(ctx context.Context, now time.Time) ([]models.ExpiredBatch, error)

	// AttachNotification records the notification ID delivered for an
	// offer (best effort, after the fact).
	AttachNotification(ctx context.Context, bookingID, partnerID string, batchNumber int, notificationID string) error

	// MarkAccepted records the winning offer for a booking.
	MarkAccepted(ctx context.Context, bookingID, partnerID string) error

	// MarkRejected records a partner's explicit rejection of their
	// pending offer.
	MarkRejected(ctx context.Context, bookingID, partnerID string) (bool, error)

	// CurrentBatch returns the highest batch number issued for a booking,
	// or 0 when no offers exist yet.
	CurrentBatch(ctx context.Context, bookingID string) (int, error)

	// ListByBooking returns every offer for a booking (audit/debug).
	ListByBooking(ctx context.Context, bookingID string) ([]models.Offer, error)

	// ListPendingForPartner returns a partner's open, unexpired offers.
	ListPendingForPartner(ctx context.Context, partnerID string, now time.Time) ([]models.Offer, error)

	// BatchSummaries aggregates offers per batch for the dispatch
	// state view.
	BatchSummaries(ctx context.Context, bookingID string) ([]models.BatchSummary, error)
}
