package models

import "time"

// Booking status values. A booking stays "pending" while the job-offer
// dispatch engine is searching for a partner.
const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
	BookingStatusNoShow     = "no_show"
	BookingStatusDisputed   = "disputed"
)

// Address is the service location attached to a booking.
type Address struct {
	Line1 string   `bson:"line1" json:"line1"`
	Area  string   `bson:"area" json:"area"`
	City  string   `bson:"city" json:"city"`
	Geo   GeoPoint `bson:"geo" json:"geo"`
}

// GeoPoint is a GeoJSON point: [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// Booking represents a customer's service request.
//
// PartnerID is set exactly once, by the acceptance transaction; at most one
// partner ever holds confirmed ownership. CurrentBatch is the dispatch
// escalation counter: batch n+1 may only be claimed by a conditional update
// against the stored value (see repository ClaimNextBatch).
type Booking struct {
	ID                 string    `bson:"id" json:"id"`
	ServiceID          string    `bson:"service_id" json:"serviceId"`
	CustomerID         string    `bson:"customer_id" json:"customerId"`
	PartnerID          string    `bson:"partner_id,omitempty" json:"partnerId,omitempty"`
	PreferredPartnerID string    `bson:"preferred_partner_id,omitempty" json:"preferredPartnerId,omitempty"`
	Status             string    `bson:"status" json:"status"`
	ScheduledDate      time.Time `bson:"scheduled_date" json:"scheduledDate"`
	TotalAmount        float64   `bson:"total_amount" json:"totalAmount"`
	Address            Address   `bson:"address" json:"address"`
	Instructions       string    `bson:"special_instructions,omitempty" json:"specialInstructions,omitempty"`
	CurrentBatch       int       `bson:"current_batch" json:"currentBatch"`
	DispatchExhausted  bool      `bson:"dispatch_exhausted" json:"dispatchExhausted"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}
