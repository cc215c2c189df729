package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Favorite links one user to one listing. (user_id, listing_id) is unique.
type Favorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_favorites_user_listing,priority:1" json:"userId"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_favorites_user_listing,priority:2;index" json:"propertyId"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"createdAt"`
}

func (Favorite) TableName() string {
	return "Favorites"
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
