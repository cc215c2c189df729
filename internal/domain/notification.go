package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification kinds produced by the listing service.
const (
	NotificationStatusChange = "status_change"
	NotificationPriceDrop    = "price_drop"
)

// Notification is a message owned by a user, read or unread.
type Notification struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Message   string     `gorm:"column:message;not null" json:"message"`
	Type      string     `gorm:"column:type;type:varchar(32)" json:"type"`
	ListingID *uuid.UUID `gorm:"column:listing_id;type:uuid" json:"propertyId,omitempty"`
	Read      bool       `gorm:"column:is_read;not null;default:false;index" json:"read"`
	CreatedAt time.Time  `gorm:"column:created_at;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
