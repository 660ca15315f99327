package booking

import (
	"context"
	"time"

	"homezy/models"
)

// CreateBookingInput is the payload for a new booking request.
type CreateBookingInput struct {
	ServiceID          string         `json:"serviceId" binding:"required"`
	ScheduledDate      time.Time      `json:"scheduledDate" binding:"required"`
	TotalAmount        float64        `json:"totalAmount" binding:"required"`
	Address            models.Address `json:"address" binding:"required"`
	Instructions       string         `json:"specialInstructions"`
	PreferredPartnerID string         `json:"preferredPartnerId"`
}

// OpenOffer pairs a partner's pending offer with the booking it is for.
type OpenOffer struct {
	Offer   models.Offer    `json:"offer"`
	Booking models.Booking  `json:"booking"`
	Service *models.Service `json:"service,omitempty"`
}

// DispatchEnqueuer hands a freshly created booking to the dispatch engine
// without blocking the request (implemented by the cron package's task
// queue).
type DispatchEnqueuer interface {
	EnqueueDispatchTrigger(ctx context.Context, bookingID string) error
}

// BookingService is the booking lifecycle for both sides of the
// marketplace: customers create and cancel bookings, partners accept,
// reject and progress the jobs offered to them.
type BookingService interface {
	CreateBooking(ctx context.Context, customerID string, input CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID string, statuses []string) ([]models.Booking, error)
	CancelBooking(ctx context.Context, id, customerID string) error

	ListOpenOffers(ctx context.Context, partnerID string) ([]OpenOffer, error)
	ListPartnerJobs(ctx context.Context, partnerID string, statuses []string) ([]models.Booking, error)
	AcceptJob(ctx context.Context, bookingID, partnerID string) (*models.Booking, error)
	RejectJob(ctx context.Context, bookingID, partnerID string) error
	UpdateJobStatus(ctx context.Context, bookingID, partnerID, status string) error
}
