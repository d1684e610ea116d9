// Package notification delivers push alerts to providers over FCM.
// Delivery is best effort: failures are logged, never propagated into the
// booking flow.
package notification

import (
	"context"
	"fmt"

	providerRepo "lokals/database/repository/provider"
	"lokals/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService pushes booking alerts to providers.
type NotificationService interface {
	NotifyNewRequests(ctx context.Context, b *models.Booking, providerIDs []string)
}

// DefaultNotificationService implements NotificationService using Firebase
// Cloud Messaging.
type DefaultNotificationService struct {
	Providers providerRepo.ProviderRepository
	Messenger *messaging.Client
	Logger    *zap.Logger
}

// NotifyNewRequests pushes a "new booking request" alert to each candidate
// provider that has a registered device token.
func (s *DefaultNotificationService) NotifyNewRequests(ctx context.Context, b *models.Booking, providerIDs []string) {
	if s.Messenger == nil {
		s.Logger.Debug("messaging client not configured, skipping push",
			zap.String("bookingID", b.ID))
		return
	}

	for _, pid := range providerIDs {
		p, err := s.Providers.GetByID(ctx, pid)
		if err != nil {
			s.Logger.Warn("failed to load provider for push",
				zap.String("providerID", pid), zap.Error(err))
			continue
		}
		if p.FCMToken == "" {
			continue
		}

		msg := &messaging.Message{
			Token: p.FCMToken,
			Notification: &messaging.Notification{
				Title: "New booking request",
				Body:  fmt.Sprintf("A %s booking near you is waiting for a provider.", b.ServiceCategory),
			},
			Data: map[string]string{
				"booking_id":       b.ID,
				"service_category": b.ServiceCategory,
				"type":             "booking_request",
			},
		}
		if _, err := s.Messenger.Send(ctx, msg); err != nil {
			s.Logger.Warn("failed to send push",
				zap.String("providerID", pid),
				zap.String("bookingID", b.ID),
				zap.Error(err))
		}
	}
}
