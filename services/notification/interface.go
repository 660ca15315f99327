package notification

import (
	"context"

	"homezy/models"
)

// NotificationService persists notification rows (the apps pick them up via
// the realtime layer) and sends best-effort FCM pushes on top. It is the
// dispatch engine's NotificationSink.
type NotificationService interface {
	SendJobOffer(ctx context.Context, partnerID string, booking *models.Booking, service *models.Service, batchNumber int, rankScore float64) (string, error)
	SendBookingPending(ctx context.Context, booking *models.Booking) error
	SendBookingDelayed(ctx context.Context, booking *models.Booking) error
	SendBookingConfirmed(ctx context.Context, booking *models.Booking, partner *models.PartnerProfile) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}
