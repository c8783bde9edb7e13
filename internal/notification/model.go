// File: internal/notification/model.go
package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	ListingSubmitted NotificationType = "listing_submitted"
	ListingApproved  NotificationType = "listing_approved"
	ListingRejected  NotificationType = "listing_rejected"
	ListingSold      NotificationType = "listing_sold"
)

// Notification represents a seller notification.
type Notification struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string           `gorm:"type:varchar(128);not null;index:idx_notification_user_status" json:"user_id"` // identity UID of the recipient
	Type             NotificationType `gorm:"type:varchar(100);not null" json:"type"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	RelatedListingID *uuid.UUID       `gorm:"type:uuid" json:"related_listing_id,omitempty"`
	IsRead           bool             `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	CreatedAt        time.Time        `gorm:"not null;index:idx_notification_user_status" json:"created_at"`
	// Notifications are immutable once created, so there is no UpdatedAt.
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns the ID in the application so every driver behaves the same.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
