package dispatch

import (
	"context"
	"time"

	bookingRepo "homezy/database/repository/booking"
	offerRepo "homezy/database/repository/offer"
	"homezy/models"

	"go.uber.org/zap"
)

// BatchDispatcher sends one batch of offers: it slices the ranked candidate
// list into the requested batch window, records each offer in the ledger and
// notifies the partner.
type BatchDispatcher struct {
	Ledger   offerRepo.OfferLedger
	Bookings bookingRepo.BookingRepository
	Sink     NotificationSink
	Clock    Clock
	Logger   *zap.Logger
}

// DispatchBatch creates pending offers for batch batchNumber and returns how
// many were persisted. An empty batch window returns ErrNoCandidatesLeft.
//
// Re-dispatching the same (booking, batch) is harmless: offers that already
// exist are skipped via the ledger's uniqueness constraint. A notification
// failure after the offer row exists leaves the offer standing; it simply
// expires unanswered.
func (d *BatchDispatcher) DispatchBatch(ctx context.Context, booking *models.Booking, service *models.Service, ranked []models.PartnerCandidate, batchNumber, batchSize int, ttl time.Duration) (int, error) {
	start := (batchNumber - 1) * batchSize
	if start >= len(ranked) {
		return 0, ErrNoCandidatesLeft
	}
	end := start + batchSize
	if end > len(ranked) {
		end = len(ranked)
	}
	batch := ranked[start:end]

	// Cooperative cancellation: if the booking left "pending" while this
	// dispatch was in flight, write nothing.
	status, err := d.Bookings.GetStatus(ctx, booking.ID)
	if err != nil {
		return 0, err
	}
	if status != models.BookingStatusPending {
		d.Logger.Debug("skipping dispatch for non-pending booking",
			zap.String("bookingID", booking.ID),
			zap.String("status", status))
		return 0, nil
	}

	now := d.Clock.Now()
	expiresAt := now.Add(ttl)
	sent := 0

	for _, candidate := range batch {
		offer := &models.Offer{
			BookingID:   booking.ID,
			PartnerID:   candidate.PartnerID,
			BatchNumber: batchNumber,
			RankScore:   candidate.RankScore,
			Status:      models.OfferStatusPending,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
		}
		if err := d.Ledger.CreateOffer(ctx, offer); err != nil {
			if err == offerRepo.ErrDuplicateOffer {
				d.Logger.Debug("offer already sent, skipping",
					zap.String("bookingID", booking.ID),
					zap.String("partnerID", candidate.PartnerID),
					zap.Int("batch", batchNumber))
				continue
			}
			d.Logger.Warn("failed to persist offer",
				zap.String("bookingID", booking.ID),
				zap.String("partnerID", candidate.PartnerID),
				zap.Error(err))
			continue
		}
		sent++

		notificationID, err := d.Sink.SendJobOffer(ctx, candidate.PartnerID, booking, service, batchNumber, candidate.RankScore)
		if err != nil {
			// The offer row stands and will expire naturally; the
			// partner just never heard about it.
			d.Logger.Error("offer recorded but notification failed",
				zap.String("bookingID", booking.ID),
				zap.String("partnerID", candidate.PartnerID),
				zap.Int("batch", batchNumber),
				zap.Error(err))
			continue
		}
		if err := d.Ledger.AttachNotification(ctx, booking.ID, candidate.PartnerID, batchNumber, notificationID); err != nil {
			d.Logger.Warn("failed to attach notification id to offer",
				zap.String("bookingID", booking.ID),
				zap.String("partnerID", candidate.PartnerID),
				zap.Error(err))
		}
	}

	d.Logger.Info("dispatched offer batch",
		zap.String("bookingID", booking.ID),
		zap.Int("batch", batchNumber),
		zap.Int("candidates", len(batch)),
		zap.Int("sent", sent),
		zap.Time("expiresAt", expiresAt))
	return sent, nil
}
