package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "homezy/database/repository/booking"
	offerRepo "homezy/database/repository/offer"
	"homezy/models"

	"go.uber.org/zap"
)

// Defaults are the dispatch knobs used when no runtime setting overrides
// them.
type Defaults struct {
	BatchSize    int
	OfferTTLSecs int
	MaxBatches   int
}

// DefaultEngine is the production dispatch engine.
type DefaultEngine struct {
	Bookings   bookingRepo.BookingRepository
	Ledger     offerRepo.OfferLedger
	Ranker     *Ranker
	Dispatcher *BatchDispatcher
	Sink       NotificationSink
	Settings   SettingsSource
	Defaults   Defaults
	Logger     *zap.Logger
}

type dispatchConfig struct {
	batchSize  int
	offerTTL   time.Duration
	maxBatches int
}

func (e *DefaultEngine) config(ctx context.Context) dispatchConfig {
	cfg := dispatchConfig{
		batchSize:  e.Defaults.BatchSize,
		offerTTL:   time.Duration(e.Defaults.OfferTTLSecs) * time.Second,
		maxBatches: e.Defaults.MaxBatches,
	}
	if e.Settings != nil {
		cfg.batchSize = e.Settings.GetInt(ctx, SettingBatchSize, e.Defaults.BatchSize)
		cfg.offerTTL = time.Duration(e.Settings.GetInt(ctx, SettingExpirySeconds, e.Defaults.OfferTTLSecs)) * time.Second
		cfg.maxBatches = e.Settings.GetInt(ctx, SettingMaxBatches, e.Defaults.MaxBatches)
	}
	return cfg
}

// TriggerDispatch ranks partners for the booking and sends the next unsent
// batch (batch 1 right after creation; later batches when ops manually
// resume an exhausted search).
func (e *DefaultEngine) TriggerDispatch(ctx context.Context, bookingID string) error {
	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("trigger dispatch: %w", err)
	}
	if booking.Status != models.BookingStatusPending {
		e.Logger.Debug("booking no longer pending, dispatch skipped",
			zap.String("bookingID", bookingID),
			zap.String("status", booking.Status))
		return nil
	}

	cfg := e.config(ctx)
	next := booking.CurrentBatch + 1
	if next > cfg.maxBatches {
		e.exhaust(ctx, booking)
		return nil
	}

	ranked, service, err := e.Ranker.Rank(ctx, booking)
	if err != nil {
		// The customer sees "searching"; the booking is not failed.
		e.Logger.Warn("partner ranking failed", zap.String("bookingID", bookingID), zap.Error(err))
		e.notifyPending(ctx, booking)
		return nil
	}
	if len(ranked) == 0 {
		e.Logger.Warn("no available partners found", zap.String("bookingID", bookingID))
		if next == 1 {
			// Nothing sent yet: keep the customer informed and wait
			// for a manual re-trigger.
			e.notifyPending(ctx, booking)
		} else {
			e.exhaust(ctx, booking)
		}
		return nil
	}

	claimed, err := e.Bookings.ClaimNextBatch(ctx, booking.ID, booking.CurrentBatch)
	if err != nil {
		return fmt.Errorf("trigger dispatch: %w", err)
	}
	if !claimed {
		// A concurrent trigger or sweep got there first.
		return nil
	}

	if _, err := e.Dispatcher.DispatchBatch(ctx, booking, service, ranked, next, cfg.batchSize, cfg.offerTTL); err != nil {
		if errors.Is(err, ErrNoCandidatesLeft) {
			e.exhaust(ctx, booking)
			return nil
		}
		return fmt.Errorf("trigger dispatch: %w", err)
	}
	return nil
}

// RunExpirySweep expires overdue offers, then escalates each affected
// booking to its next batch or reports it exhausted.
func (e *DefaultEngine) RunExpirySweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := e.Dispatcher.Clock.Now()
	expired, err := e.Ledger.MarkExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}
	for _, batch := range expired {
		result.ExpiredOffers += batch.Offers
	}
	if len(expired) == 0 {
		e.Logger.Debug("expiry sweep found nothing to expire")
		return result, nil
	}

	cfg := e.config(ctx)
	for _, entry := range expired {
		escalated, exhausted := e.processExpiredBooking(ctx, entry.BookingID, cfg)
		if escalated {
			result.BookingsEscalated++
		}
		if exhausted {
			result.BookingsExhausted++
		}
	}

	e.Logger.Info("expiry sweep finished",
		zap.Int("expiredOffers", result.ExpiredOffers),
		zap.Int("escalated", result.BookingsEscalated),
		zap.Int("exhausted", result.BookingsExhausted))
	return result, nil
}

// processExpiredBooking decides, for one booking with freshly expired
// offers, whether to send the next batch or end the search. Failures are
// logged and left for the next sweep cycle; they never fail the whole sweep.
func (e *DefaultEngine) processExpiredBooking(ctx context.Context, bookingID string, cfg dispatchConfig) (escalated, exhausted bool) {
	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		e.Logger.Warn("sweep: failed to load booking", zap.String("bookingID", bookingID), zap.Error(err))
		return false, false
	}
	// Acceptance or cancellation at any point short-circuits the search.
	if booking.Status != models.BookingStatusPending {
		return false, false
	}

	next := booking.CurrentBatch + 1
	if next > cfg.maxBatches {
		return false, e.exhaust(ctx, booking)
	}

	ranked, service, err := e.Ranker.Rank(ctx, booking)
	if err != nil {
		e.Logger.Warn("sweep: ranking failed, will retry next cycle",
			zap.String("bookingID", bookingID), zap.Error(err))
		return false, false
	}
	if len(ranked) == 0 {
		// Candidates ran out before the batch limit did.
		return false, e.exhaust(ctx, booking)
	}

	claimed, err := e.Bookings.ClaimNextBatch(ctx, booking.ID, booking.CurrentBatch)
	if err != nil {
		e.Logger.Warn("sweep: batch claim failed", zap.String("bookingID", bookingID), zap.Error(err))
		return false, false
	}
	if !claimed {
		// Lost the race against an overlapping sweep; the winner's
		// dispatch stands.
		e.Logger.Debug("sweep: lost batch claim", zap.String("bookingID", bookingID), zap.Int("batch", next))
		return false, false
	}

	if _, err := e.Dispatcher.DispatchBatch(ctx, booking, service, ranked, next, cfg.batchSize, cfg.offerTTL); err != nil {
		if errors.Is(err, ErrNoCandidatesLeft) {
			return false, e.exhaust(ctx, booking)
		}
		e.Logger.Warn("sweep: batch dispatch failed", zap.String("bookingID", bookingID), zap.Error(err))
		return false, false
	}
	return true, false
}

// exhaust marks the booking's search as exhausted and tells the customer
// once. Reports true when this call did the marking.
func (e *DefaultEngine) exhaust(ctx context.Context, booking *models.Booking) bool {
	flipped, err := e.Bookings.MarkExhausted(ctx, booking.ID)
	if err != nil {
		e.Logger.Warn("failed to mark booking exhausted", zap.String("bookingID", booking.ID), zap.Error(err))
		return false
	}
	if !flipped {
		return false
	}
	e.Logger.Warn("dispatch exhausted, manual intervention required",
		zap.String("bookingID", booking.ID),
		zap.Int("batchesSent", booking.CurrentBatch))
	if err := e.Sink.SendBookingDelayed(ctx, booking); err != nil {
		e.Logger.Error("failed to send delay notice", zap.String("bookingID", booking.ID), zap.Error(err))
	}
	return true
}

func (e *DefaultEngine) notifyPending(ctx context.Context, booking *models.Booking) {
	if err := e.Sink.SendBookingPending(ctx, booking); err != nil {
		e.Logger.Error("failed to send pending notice", zap.String("bookingID", booking.ID), zap.Error(err))
	}
}

// State assembles the derived dispatch view for a booking from its offer
// rows and the escalation counter.
func (e *DefaultEngine) State(ctx context.Context, bookingID string) (*models.DispatchState, error) {
	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	batches, err := e.Ledger.BatchSummaries(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &models.DispatchState{
		BookingID:    bookingID,
		CurrentBatch: booking.CurrentBatch,
		Exhausted:    booking.DispatchExhausted,
		Batches:      batches,
	}, nil
}
