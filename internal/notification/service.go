// File: internal/notification/service.go
package notification

import (
	"context"
	"fmt"

	"marketplace_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for notification operations.
type Service interface {
	CreateNotification(ctx context.Context, userID string, notifType NotificationType, message string, relatedListingID *uuid.UUID) (*Notification, error)
	NotifyListing(ctx context.Context, userID string, listingID uuid.UUID, notifType NotificationType, title, detail string) error
	GetNotificationsForUser(ctx context.Context, userID string, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID string) (int64, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new notification service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger}
}

func (s *ServiceImplementation) CreateNotification(ctx context.Context, userID string, notifType NotificationType, message string, relatedListingID *uuid.UUID) (*Notification, error) {
	n := &Notification{
		UserID:           userID,
		Type:             notifType,
		Message:          message,
		RelatedListingID: relatedListingID,
		IsRead:           false,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.String("userID", userID), zap.String("type", string(notifType)), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}
	return n, nil
}

// NotifyListing sends the standard message for a listing lifecycle event.
func (s *ServiceImplementation) NotifyListing(ctx context.Context, userID string, listingID uuid.UUID, notifType NotificationType, title, detail string) error {
	_, err := s.CreateNotification(ctx, userID, notifType, MessageFor(notifType, title, detail), &listingID)
	return err
}

// MessageFor renders the seller-facing text for a listing event. detail is
// the rejection reason for rejected listings and ignored otherwise.
func MessageFor(notifType NotificationType, title, detail string) string {
	if title == "" {
		title = "Your listing"
	} else {
		title = fmt.Sprintf("Your listing %q", title)
	}
	switch notifType {
	case ListingSubmitted:
		return title + " was submitted and is waiting for review."
	case ListingApproved:
		return title + " was approved and is now live."
	case ListingRejected:
		if detail != "" {
			return fmt.Sprintf("%s was not approved: %s", title, detail)
		}
		return title + " was not approved."
	case ListingSold:
		return title + " was marked as sold."
	}
	return title + " was updated."
}

func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID string, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error) {
	notifications, pagination, err := s.repo.ListForUser(ctx, userID, filter, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to get notifications", zap.String("userID", userID), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *ServiceImplementation) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.String("userID", userID), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not count notifications.")
	}
	return count, nil
}

func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return apiErr
		}
		s.logger.Error("Failed to mark notification as read", zap.String("notificationID", notificationID.String()), zap.Error(err))
		return common.ErrInternalServer.WithDetails("Could not mark notification as read.")
	}
	return nil
}

func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.String("userID", userID), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not mark all notifications as read.")
	}
	return count, nil
}
