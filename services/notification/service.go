package notification

import (
	"context"
	"fmt"
	"time"

	"homezy/database"
	partnerRepo "homezy/database/repository/partner"
	"homezy/models"
	"homezy/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Coll      *mongo.Collection
	Directory partnerRepo.PartnerDirectory
	Logger    *zap.Logger
}

// NewDefaultNotificationService wires the service against the shared
// database.
func NewDefaultNotificationService(directory partnerRepo.PartnerDirectory, logger *zap.Logger) *DefaultNotificationService {
	return &DefaultNotificationService{
		Coll:      database.DB().Collection("notifications"),
		Directory: directory,
		Logger:    logger,
	}
}

// insert persists the durable notification row and returns its ID.
func (s *DefaultNotificationService) insert(ctx context.Context, userID, kind, title, body string, data map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n := models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.Coll.InsertOne(ctx, n); err != nil {
		return "", fmt.Errorf("failed to insert notification: %w", err)
	}
	return n.ID, nil
}

// pushToPartner sends a high-priority FCM push if the partner has a token.
// Push failure is logged, never surfaced: the durable row is the delivery.
func (s *DefaultNotificationService) pushToPartner(ctx context.Context, partnerID, title, body string, data map[string]string) {
	if utils.FCMClient == nil {
		return
	}
	partner, err := s.Directory.GetByID(ctx, partnerID)
	if err != nil || partner.FCMToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: partner.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		s.Logger.Warn("FCM push failed", zap.String("partnerID", partnerID), zap.Error(err))
	}
}

func (s *DefaultNotificationService) SendJobOffer(ctx context.Context, partnerID string, booking *models.Booking, service *models.Service, batchNumber int, rankScore float64) (string, error) {
	serviceName := "Service"
	serviceCategory := ""
	if service != nil {
		serviceName = service.Name
		serviceCategory = service.Category
	}
	area := booking.Address.Area
	if area == "" {
		area = booking.Address.City
	}

	title := "New Job Opportunity!"
	body := fmt.Sprintf("%s - ₹%.0f", serviceName, booking.TotalAmount)
	data := map[string]any{
		"booking_id":       booking.ID,
		"service_name":     serviceName,
		"service_category": serviceCategory,
		"amount":           booking.TotalAmount,
		"address":          area,
		"scheduled_date":   booking.ScheduledDate,
		"customer_id":      booking.CustomerID,
		"instructions":     booking.Instructions,
		"action":           "SHOW_JOB_OFFER",
		"batch_number":     batchNumber,
		"rank_score":       rankScore,
	}

	id, err := s.insert(ctx, partnerID, models.NotificationNewJobOffer, title, body, data)
	if err != nil {
		return "", err
	}

	s.pushToPartner(ctx, partnerID, title, body, map[string]string{
		"type":       models.NotificationNewJobOffer,
		"booking_id": booking.ID,
		"action":     "SHOW_JOB_OFFER",
		"role":       "partner",
	})
	return id, nil
}

func (s *DefaultNotificationService) SendBookingPending(ctx context.Context, booking *models.Booking) error {
	_, err := s.insert(ctx, booking.CustomerID, models.NotificationBookingPending,
		"Finding Service Provider",
		"We are finding the best service provider for your booking. You will be notified soon.",
		map[string]any{"booking_id": booking.ID})
	return err
}

func (s *DefaultNotificationService) SendBookingDelayed(ctx context.Context, booking *models.Booking) error {
	_, err := s.insert(ctx, booking.CustomerID, models.NotificationBookingDelayed,
		"Finding Service Provider",
		"We are still working on finding the best service provider for you. We will update you shortly.",
		map[string]any{"booking_id": booking.ID})
	return err
}

func (s *DefaultNotificationService) SendBookingConfirmed(ctx context.Context, booking *models.Booking, partner *models.PartnerProfile) error {
	body := "A service provider has accepted your booking."
	data := map[string]any{"booking_id": booking.ID}
	if partner != nil {
		body = fmt.Sprintf("%s has accepted your booking.", partner.FullName)
		data["partner_id"] = partner.UserID
		data["partner_name"] = partner.FullName
	}
	_, err := s.insert(ctx, booking.CustomerID, models.NotificationBookingConfirmed,
		"Booking Confirmed", body, data)
	return err
}

func (s *DefaultNotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cursor, err := s.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *DefaultNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": notificationID, "user_id": userID}
	update := bson.M{"$set": bson.M{"read": true}}
	if _, err := s.Coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
