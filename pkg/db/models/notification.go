package models

import (
	"time"
)

// CachedNotification is one slot of a user's locally cached notification list.
// Position keeps the in-memory ordering; the same notification id may repeat.
type CachedNotification struct {
	UserID         int64      `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Position       int        `gorm:"column:position;primaryKey;autoIncrement:false"`
	NotificationID int64      `gorm:"column:notification_id;not null;index:cached_notifications_notification_id_idx"`
	Type           string     `gorm:"column:type;type:text"`
	Title          string     `gorm:"column:title;type:text;not null"`
	Message        string     `gorm:"column:message;type:text;not null"`
	IsRead         bool       `gorm:"column:is_read;not null;default:false"`
	PropertyID     *int64     `gorm:"column:property_id"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	ReceivedAt     *time.Time `gorm:"column:received_at"`
	SavedAt        time.Time  `gorm:"column:saved_at;autoCreateTime"`
}

// TableName pins the cache table name.
func (CachedNotification) TableName() string {
	return "cached_notifications"
}
