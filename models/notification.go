package models

import "time"

// Notification types emitted by the dispatch engine and booking lifecycle.
const (
	NotificationNewJobOffer      = "new_job_offer"
	NotificationBookingPending   = "booking_pending"
	NotificationBookingDelayed   = "booking_delayed"
	NotificationBookingConfirmed = "booking_confirmed"
)

// Notification is the durable notification row. The mobile apps receive
// these through the realtime layer; the FCM push on top is best effort.
type Notification struct {
	ID        string         `bson:"id" json:"id"`
	UserID    string         `bson:"user_id" json:"userId"`
	Type      string         `bson:"type" json:"type"`
	Title     string         `bson:"title" json:"title"`
	Body      string         `bson:"body" json:"body"`
	Data      map[string]any `bson:"data" json:"data"`
	Read      bool           `bson:"read" json:"read"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}
