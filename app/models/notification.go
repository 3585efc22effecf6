package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types emitted by the payment engine.
const (
	NotificationPaymentSuccess      = "payment_success"
	NotificationPaymentFailed       = "payment_failed"
	NotificationPaymentCancelled    = "payment_cancelled"
	NotificationMembershipActivated = "membership_activated"
	NotificationAddonGranted        = "addon_granted"
	NotificationQuotaWarning        = "quota_warning"
)

type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:char(36);not null;index" json:"user_id"`
	Type        string    `gorm:"type:varchar(50);not null" json:"type"`
	Content     string    `gorm:"type:text" json:"content"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	ReferenceID string    `gorm:"type:varchar(191);default:''" json:"reference_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarkAsRead marks a notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification stores a new notification for a user.
func CreateNotification(db *gorm.DB, userID, notificationType, content, referenceID string) error {
	notification := Notification{
		UserID:      userID,
		Type:        notificationType,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}
