package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingRepo "homezy/database/repository/booking"
	"homezy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttlPlus = 31 * time.Second // one tick past the default offer TTL

func TestTriggerDispatchSendsFirstBatch(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	require.NoError(t, env.bookings.Create(context.Background(), testBooking("b1")))

	require.NoError(t, env.engine.TriggerDispatch(context.Background(), "b1"))

	assert.Equal(t, []string{"p01", "p02", "p03", "p04", "p05"}, env.sink.offeredPartners(1))
	b, err := env.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.CurrentBatch)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, map[string]int{models.OfferStatusPending: 5}, env.ledger.statusCounts("b1"))
}

func TestTriggerDispatchUnknownBooking(t *testing.T) {
	env := newTestEngine(partnerPool(3), nil)
	err := env.engine.TriggerDispatch(context.Background(), "missing")
	assert.ErrorIs(t, err, bookingRepo.ErrBookingNotFound)
}

func TestTriggerDispatchSkipsNonPendingBooking(t *testing.T) {
	env := newTestEngine(partnerPool(3), nil)
	booking := testBooking("b1")
	booking.Status = models.BookingStatusCancelled
	require.NoError(t, env.bookings.Create(context.Background(), booking))

	require.NoError(t, env.engine.TriggerDispatch(context.Background(), "b1"))
	assert.Empty(t, env.ledger.offers)
	assert.Empty(t, env.sink.jobOffers)
}

func TestTriggerDispatchEmptyPoolKeepsCustomerPosted(t *testing.T) {
	env := newTestEngine(nil, nil)
	require.NoError(t, env.bookings.Create(context.Background(), testBooking("b1")))

	require.NoError(t, env.engine.TriggerDispatch(context.Background(), "b1"))

	assert.Equal(t, 1, env.sink.pendingNotices)
	assert.Zero(t, env.sink.delayedNotices)
	b, _ := env.bookings.GetByID(context.Background(), "b1")
	assert.Zero(t, b.CurrentBatch, "no batch is consumed when nothing was sent")
	assert.False(t, b.DispatchExhausted)
}

func TestTriggerDispatchRankFailureKeepsCustomerPosted(t *testing.T) {
	env := newTestEngine(partnerPool(3), nil)
	require.NoError(t, env.bookings.Create(context.Background(), testBooking("b1")))
	env.directory.listErr = errors.New("directory down")

	require.NoError(t, env.engine.TriggerDispatch(context.Background(), "b1"))

	assert.Equal(t, 1, env.sink.pendingNotices)
	assert.Empty(t, env.ledger.offers)
	b, _ := env.bookings.GetByID(context.Background(), "b1")
	assert.Equal(t, models.BookingStatusPending, b.Status, "a ranking outage never fails the booking")
}

func TestTriggerDispatchLosesClaimRace(t *testing.T) {
	env := newTestEngine(partnerPool(6), nil)
	require.NoError(t, env.bookings.Create(context.Background(), testBooking("b1")))

	// A concurrent sweep claims batch 1 between this trigger's read and its
	// conditional update.
	env.bookings.claimHook = func(id string) {
		env.bookings.claimHook = nil
		env.bookings.byID[id].CurrentBatch = 1
	}

	require.NoError(t, env.engine.TriggerDispatch(context.Background(), "b1"))
	assert.Empty(t, env.ledger.offers, "the race loser writes nothing")
	assert.Empty(t, env.sink.jobOffers)
}

func TestSweepEscalatesThroughEveryBatch(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	// Batch 1 expires unanswered; batch 2 goes to the next five.
	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 5, BookingsEscalated: 1}, result)
	assert.Equal(t, []string{"p06", "p07", "p08", "p09", "p10"}, env.sink.offeredPartners(2))

	// Batch 3 is short: only two candidates remain.
	env.clock.Advance(ttlPlus)
	result, err = env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 5, BookingsEscalated: 1}, result)
	assert.Equal(t, []string{"p11", "p12"}, env.sink.offeredPartners(3))

	// Past the last batch the search is declared exhausted, once.
	env.clock.Advance(ttlPlus)
	result, err = env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 2, BookingsExhausted: 1}, result)
	assert.Equal(t, 1, env.sink.delayedNotices)

	b, _ := env.bookings.GetByID(ctx, "b1")
	assert.True(t, b.DispatchExhausted)
	assert.Equal(t, models.BookingStatusPending, b.Status, "exhaustion flags the booking, it does not cancel it")
	assert.Equal(t, map[string]int{models.OfferStatusExpired: 12}, env.ledger.statusCounts("b1"))

	// Nothing left to do.
	result, err = env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
	assert.Equal(t, 1, env.sink.delayedNotices)
}

func TestSweepExhaustsWhenCandidatesRunOutEarly(t *testing.T) {
	env := newTestEngine(partnerPool(3), mapSettings{SettingBatchSize: 2})
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))
	assert.Equal(t, []string{"p01", "p02"}, env.sink.offeredPartners(1))

	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 2, BookingsEscalated: 1}, result)
	assert.Equal(t, []string{"p03"}, env.sink.offeredPartners(2))

	// Batch 3 is allowed by the limit but the pool is spent.
	env.clock.Advance(ttlPlus)
	result, err = env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 1, BookingsExhausted: 1}, result)
	assert.Equal(t, 1, env.sink.delayedNotices)
}

func TestSweepRespectsMaxBatchesOverride(t *testing.T) {
	env := newTestEngine(partnerPool(12), mapSettings{SettingMaxBatches: 1})
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 5, BookingsExhausted: 1}, result)
	assert.Empty(t, env.sink.offeredPartners(2))
}

func TestSweepStopsAfterAcceptance(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	// p02 accepts before the batch expires.
	claimed, err := env.bookings.AssignPartner(ctx, "b1", "p02")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, env.ledger.MarkAccepted(ctx, "b1", "p02"))

	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 4}, result, "the siblings expire but nothing escalates")
	assert.Empty(t, env.sink.offeredPartners(2))
	assert.Zero(t, env.sink.delayedNotices)

	counts := env.ledger.statusCounts("b1")
	assert.Equal(t, 1, counts[models.OfferStatusAccepted])
	assert.Equal(t, 4, counts[models.OfferStatusExpired])
}

func TestAcceptanceAllowsOnlyOneWinner(t *testing.T) {
	env := newTestEngine(partnerPool(5), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	first, err := env.bookings.AssignPartner(ctx, "b1", "p03")
	require.NoError(t, err)
	second, err := env.bookings.AssignPartner(ctx, "b1", "p01")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	b, _ := env.bookings.GetByID(ctx, "b1")
	assert.Equal(t, "p03", b.PartnerID)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
}

func TestSweepIsIdempotentWithoutClockMovement(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	env.clock.Advance(ttlPlus)
	first, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, first.ExpiredOffers)

	second, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, second)
	assert.Equal(t, 5, len(env.sink.offeredPartners(2)), "batch 2 is not re-sent")
}

func TestSweepCountsOnlyTheRowsItClaimed(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	// An overlapping sweep already flipped one of the batch's offers.
	env.clock.Advance(ttlPlus)
	claimed := env.ledger.find("b1", "p01", 1)
	require.NotNil(t, claimed)
	claimed.Status = models.OfferStatusExpired
	claimed.ExpiredSweep = "sweep-other"

	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.ExpiredOffers, "rows claimed elsewhere are not recounted")
}

func TestSweepRankFailureLeavesBookingForManualRetry(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	env.directory.listErr = errors.New("directory down")
	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 5}, result)

	b, _ := env.bookings.GetByID(ctx, "b1")
	assert.Equal(t, 1, b.CurrentBatch)
	assert.False(t, b.DispatchExhausted)

	// Ops re-triggers once the outage clears; the search resumes at batch 2.
	env.directory.listErr = nil
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))
	assert.Equal(t, []string{"p06", "p07", "p08", "p09", "p10"}, env.sink.offeredPartners(2))
}

func TestSweepHandlesMultipleBookings(t *testing.T) {
	env := newTestEngine(partnerPool(12), mapSettings{SettingBatchSize: 3})
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.bookings.Create(ctx, testBooking("b2")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b2"))

	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{ExpiredOffers: 6, BookingsEscalated: 2}, result)

	for _, id := range []string{"b1", "b2"} {
		b, err := env.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, b.CurrentBatch)
	}
}

func TestExhaustionIsReportedOnce(t *testing.T) {
	env := newTestEngine(nil, nil)
	ctx := context.Background()
	booking := testBooking("b1")
	require.NoError(t, env.bookings.Create(ctx, booking))

	assert.True(t, env.engine.exhaust(ctx, booking))
	assert.False(t, env.engine.exhaust(ctx, booking))
	assert.Equal(t, 1, env.sink.delayedNotices)
}

func TestStateReflectsOfferHistory(t *testing.T) {
	env := newTestEngine(partnerPool(12), nil)
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	env.clock.Advance(ttlPlus)
	_, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)

	state, err := env.engine.State(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", state.BookingID)
	assert.Equal(t, 2, state.CurrentBatch)
	assert.False(t, state.Exhausted)
	require.Len(t, state.Batches, 2)
	assert.Equal(t, map[string]int{models.OfferStatusExpired: 5}, state.Batches[0].Counts)
	assert.Equal(t, map[string]int{models.OfferStatusPending: 5}, state.Batches[1].Counts)
}

func TestSettingsOverrideDefaults(t *testing.T) {
	env := newTestEngine(partnerPool(12), mapSettings{
		SettingBatchSize:     2,
		SettingExpirySeconds: 120,
	})
	ctx := context.Background()
	require.NoError(t, env.bookings.Create(ctx, testBooking("b1")))
	require.NoError(t, env.engine.TriggerDispatch(ctx, "b1"))

	assert.Len(t, env.sink.offeredPartners(1), 2)
	offer := env.ledger.find("b1", "p01", 1)
	require.NotNil(t, offer)
	assert.Equal(t, env.clock.Now().Add(120*time.Second), offer.ExpiresAt)

	// The default TTL has not elapsed against the longer override.
	env.clock.Advance(ttlPlus)
	result, err := env.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
}
