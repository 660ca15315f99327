package dispatch

import (
	"context"

	"homezy/models"
)

// Settings keys for the dispatch knobs, overridable at runtime.
const (
	SettingBatchSize     = "notifications.batch_size"
	SettingExpirySeconds = "notifications.expiry_seconds"
	SettingMaxBatches    = "notifications.max_batches"
)

// SweepResult reports what one expiry sweep did.
type SweepResult struct {
	ExpiredOffers     int `json:"expiredOffers"`
	BookingsEscalated int `json:"bookingsEscalated"`
	BookingsExhausted int `json:"bookingsExhausted"`
}

// Engine is the job-offer dispatch engine: it ranks candidate partners for a
// booking, sends time-boxed offers in batches and escalates to the next
// batch when a batch expires without acceptance.
type Engine interface {
	// TriggerDispatch starts (or manually resumes) the partner search for
	// a booking. Called once after booking creation via the task queue.
	TriggerDispatch(ctx context.Context, bookingID string) error

	// RunExpirySweep expires overdue offers and escalates or exhausts the
	// affected bookings. Invoked on a fixed interval by the scheduler.
	RunExpirySweep(ctx context.Context) (SweepResult, error)

	// State returns the derived per-booking dispatch state (audit view).
	State(ctx context.Context, bookingID string) (*models.DispatchState, error)
}

// SettingsSource supplies runtime-overridable configuration values.
type SettingsSource interface {
	GetInt(ctx context.Context, key string, def int) int
}

// NotificationSink delivers dispatch notifications. Delivery is fire and
// forget; confirmation is out of scope.
type NotificationSink interface {
	// SendJobOffer notifies a partner of a new job opportunity and returns
	// the notification ID.
	SendJobOffer(ctx context.Context, partnerID string, booking *models.Booking, service *models.Service, batchNumber int, rankScore float64) (string, error)

	// SendBookingPending tells the customer the search is in progress.
	SendBookingPending(ctx context.Context, booking *models.Booking) error

	// SendBookingDelayed tells the customer all batches went unanswered.
	SendBookingDelayed(ctx context.Context, booking *models.Booking) error
}
