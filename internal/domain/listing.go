package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category is the kind of offer a listing represents (json/db field "type").
type Category string

const (
	CategorySale  Category = "sale"
	CategoryRent  Category = "rent"
	CategoryHotel Category = "hotel"
)

// ParseCategory returns the category for s and whether it is one of sale/rent/hotel.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategorySale, CategoryRent, CategoryHotel:
		return Category(s), true
	}
	return "", false
}

// Location is embedded into the Listings table with a location_ column prefix.
type Location struct {
	Address string   `gorm:"column:address" json:"address"`
	City    string   `gorm:"column:city;index" json:"city"`
	State   string   `gorm:"column:state" json:"state"`
	Country string   `gorm:"column:country" json:"country"`
	Lat     *float64 `gorm:"column:lat" json:"lat,omitempty"`
	Lng     *float64 `gorm:"column:lng" json:"lng,omitempty"`
}

// Listing is a property offered for sale, rent or as a hotel stay.
type Listing struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title          string                      `gorm:"column:title;not null" json:"title"`
	Description    string                      `gorm:"column:description" json:"description"`
	Price          float64                     `gorm:"column:price;type:decimal(14,2);not null;index" json:"price"`
	Type           Category                    `gorm:"column:type;type:varchar(10);not null;index" json:"type"`
	Status         ListingStatus               `gorm:"column:status;type:varchar(10);not null;default:'active';index" json:"status"`
	Location       Location                    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Bedrooms       int                         `gorm:"column:bedrooms;not null;default:0" json:"bedrooms"`
	Bathrooms      int                         `gorm:"column:bathrooms;not null;default:0" json:"bathrooms"`
	Area           float64                     `gorm:"column:area;not null;default:0" json:"area"`
	Images         datatypes.JSONSlice[string] `gorm:"column:images" json:"images"`
	Features       datatypes.JSONSlice[string] `gorm:"column:features" json:"features"`
	Featured       bool                        `gorm:"column:featured;not null;default:false" json:"featured"`
	UserID         uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Views          int64                       `gorm:"column:views;not null;default:0" json:"views"`
	FavoritesCount int64                       `gorm:"column:favorites_count;not null;default:0" json:"favoritesCount"`
	CreatedAt      time.Time                   `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate sets the id and normalizes nil slices so the API never returns null lists.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Images == nil {
		l.Images = datatypes.JSONSlice[string]{}
	}
	if l.Features == nil {
		l.Features = datatypes.JSONSlice[string]{}
	}
	if l.Status == "" {
		l.Status = StatusActive
	}
	return nil
}

// CoverImage returns the first image reference, or "" when the listing has none.
func (l *Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}
