package models

import "time"

// Offer status values. An offer is append-only except for this field.
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
	OfferStatusExpired  = "expired"
)

// Offer is one partner's time-boxed opportunity to take a booking.
// Identity is the (BookingID, PartnerID, BatchNumber) triple, enforced by a
// unique index; duplicate dispatch attempts collide there and are skipped.
type Offer struct {
	BookingID      string    `bson:"booking_id" json:"bookingId"`
	PartnerID      string    `bson:"partner_id" json:"partnerId"`
	BatchNumber    int       `bson:"batch_number" json:"batchNumber"`
	RankScore      float64   `bson:"rank_score" json:"rankScore"`
	NotificationID string    `bson:"notification_id,omitempty" json:"notificationId,omitempty"`
	Status         string    `bson:"status" json:"status"`
	ExpiredSweep   string    `bson:"expired_sweep,omitempty" json:"-"` // which sweep claimed the expiry

	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expiresAt"`
}

// BatchSummary aggregates one batch's offers for the dispatch audit view.
type BatchSummary struct {
	BatchNumber int            `bson:"batch_number" json:"batchNumber"`
	Counts      map[string]int `bson:"counts" json:"counts"` // status -> count
	SentAt      time.Time      `bson:"sent_at" json:"sentAt"`
}

// DispatchState is the per-booking view derived from offer rows.
type DispatchState struct {
	BookingID    string         `json:"bookingId"`
	CurrentBatch int            `json:"currentBatch"`
	Exhausted    bool           `json:"exhausted"`
	Batches      []BatchSummary `json:"batches"`
}

// ExpiredBatch reports, for one booking touched by an expiry sweep, the
// highest batch number among its newly expired offers.
type ExpiredBatch struct {
	BookingID   string `bson:"_id"`
	BatchNumber int    `bson:"batch_number"`
	Offers      int    `bson:"offers"`
}
