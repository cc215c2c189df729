package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate-backend/internal/application/listings"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/events"
	"estate-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB       *gorm.DB
	Listings *listings.Repository
	// Cache holds listing reads; entries are dropped when favorites_count moves.
	Cache  listings.Cache
	Events events.Publisher
}

// Snapshot is the denormalized listing projection returned with a favorite.
type Snapshot struct {
	ID       uuid.UUID       `json:"id"`
	Title    string          `json:"title"`
	Price    float64         `json:"price"`
	Type     domain.Category `json:"type"`
	Status   string          `json:"status"`
	Location domain.Location `json:"location"`
	Image    string          `json:"image"`
}

// Item is one favorite joined to its listing. Property is nil and Available
// false when the listing no longer exists.
type Item struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"propertyId"`
	CreatedAt  time.Time `json:"createdAt"`
	Available  bool      `json:"available"`
	Property   *Snapshot `json:"property"`
}

type ListResult struct {
	Favorites []Item `json:"favorites"`
	pagination.Page
}

// Add favorites a listing for user. The listing must exist; a second add of
// the same pair returns ErrConflict.
func (s *Service) Add(ctx context.Context, user, listingID uuid.UUID) (*domain.Favorite, error) {
	if user == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if _, err := s.Listings.FindByID(ctx, listingID); err != nil {
		return nil, err
	}
	exists, err := s.exists(ctx, user, listingID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrConflict
	}

	fav := &domain.Favorite{UserID: user, ListingID: listingID, CreatedAt: time.Now().UTC()}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fav).Error; err != nil {
			return err
		}
		return s.Listings.WithTx(tx).AdjustFavoritesCount(ctx, listingID, 1)
	})
	if err != nil {
		// The unique index on (user_id, listing_id) rejects a concurrent duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrConflict
		}
		if again, checkErr := s.exists(ctx, user, listingID); checkErr == nil && again {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	s.invalidate(ctx, listingID)
	log.Info().Str("user_id", user.String()).Str("listing_id", listingID.String()).Msg("favorite added")
	events.Emit(ctx, s.Events, events.SubjectFavoriteAdded, map[string]string{"user_id": user.String(), "listing_id": listingID.String()})
	return fav, nil
}

// Remove deletes the (user, listing) favorite; ErrNotFound if there is none.
func (s *Service) Remove(ctx context.Context, user, listingID uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND listing_id = ?", user, listingID).Delete(&domain.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return s.Listings.WithTx(tx).AdjustFavoritesCount(ctx, listingID, -1)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, listingID)
	log.Info().Str("user_id", user.String()).Str("listing_id", listingID.String()).Msg("favorite removed")
	events.Emit(ctx, s.Events, events.SubjectFavoriteRemoved, map[string]string{"user_id": user.String(), "listing_id": listingID.String()})
	return nil
}

// List pages the user's favorites newest first and joins listing snapshots.
func (s *Service) List(ctx context.Context, user uuid.UUID, w pagination.Window) (*ListResult, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", user).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	favs := []domain.Favorite{}
	if total > 0 {
		if err := s.DB.WithContext(ctx).Where("user_id = ?", user).
			Order("created_at DESC").Order("id ASC").
			Offset(w.Skip).Limit(w.Limit).Find(&favs).Error; err != nil {
			return nil, fmt.Errorf("find favorites: %w", err)
		}
	}

	ids := make([]uuid.UUID, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.ListingID)
	}
	byID, err := s.Listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(favs))
	for _, f := range favs {
		item := Item{ID: f.ID, PropertyID: f.ListingID, CreatedAt: f.CreatedAt}
		if l, ok := byID[f.ListingID]; ok {
			item.Available = true
			item.Property = snapshot(&l)
		}
		items = append(items, item)
	}
	return &ListResult{Favorites: items, Page: w.Meta(len(items), total)}, nil
}

// IDs returns every listing id the user has favorited.
func (s *Service) IDs(ctx context.Context, user uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := s.DB.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", user).
		Order("created_at DESC").Pluck("listing_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) invalidate(ctx context.Context, listingID uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, listingID); err != nil {
		log.Warn().Err(err).Str("listing_id", listingID.String()).Msg("listing cache invalidation failed")
	}
}

func (s *Service) exists(ctx context.Context, user, listingID uuid.UUID) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND listing_id = ?", user, listingID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func snapshot(l *domain.Listing) *Snapshot {
	return &Snapshot{
		ID:       l.ID,
		Title:    l.Title,
		Price:    l.Price,
		Type:     l.Type,
		Status:   string(l.Status),
		Location: l.Location,
		Image:    l.CoverImage(),
	}
}
