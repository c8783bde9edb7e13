// File: internal/notification/repository.go
package notification

import (
	"context"
	"fmt"

	"marketplace_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows a seller's notification feed.
type ListFilter struct {
	UnreadOnly bool
	ListingID  *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	ListForUser(ctx context.Context, userID string, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error)
	MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// owned scopes a query to one recipient.
func (r *GORMRepository) owned(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
}

func (r *GORMRepository) Create(ctx context.Context, notification *Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create %s notification: %w", notification.Type, err)
	}
	return nil
}

// ListForUser returns the newest notifications first.
func (r *GORMRepository) ListForUser(ctx context.Context, userID string, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.UnreadOnly {
			db = db.Where("is_read = ?", false)
		}
		if filter.ListingID != nil {
			db = db.Where("related_listing_id = ?", *filter.ListingID)
		}
		return db
	}

	var total int64
	if err := r.owned(ctx, userID).Scopes(scope).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting notifications for user %s failed: %w", userID, err)
	}

	notifications := make([]Notification, 0, pageSize)
	err := r.owned(ctx, userID).Scopes(scope).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, common.NewPagination(total, page, pageSize), nil
}

// MarkAsRead is idempotent for the owner. Notifications of other users are
// reported as not found.
func (r *GORMRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	res := r.owned(ctx, userID).
		Where("id = ? AND is_read = ?", notificationID, false).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification %s as read: %w", notificationID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := r.owned(ctx, userID).Where("id = ?", notificationID).Count(&exists).Error; err != nil {
		return fmt.Errorf("failed to look up notification %s: %w", notificationID, err)
	}
	if exists == 0 {
		return common.ErrNotFound.WithDetails("Notification not found.")
	}
	return nil
}

// MarkAllAsRead returns how many notifications changed.
func (r *GORMRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	res := r.owned(ctx, userID).Where("is_read = ?", false).Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GORMRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.owned(ctx, userID).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting unread notifications for user %s failed: %w", userID, err)
	}
	return count, nil
}
