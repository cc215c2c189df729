package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type ListResult struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	pagination.Page
}

// List pages a user's notifications newest first, with the unread total.
func (s *Service) List(ctx context.Context, user uuid.UUID, w pagination.Window) (*ListResult, error) {
	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", user)
	}
	var total, unread int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	if err := base().Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}
	rows := []domain.Notification{}
	if total > 0 {
		if err := base().Order("created_at DESC").Order("id ASC").
			Offset(w.Skip).Limit(w.Limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find notifications: %w", err)
		}
	}
	return &ListResult{Notifications: rows, UnreadCount: unread, Page: w.Meta(len(rows), total)}, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, user, id uuid.UUID) (*domain.Notification, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, user).
		Update("is_read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	var n domain.Notification
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, user uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", user, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Create stores a single notification for a user.
func (s *Service) Create(ctx context.Context, n *domain.Notification) error {
	if n.UserID == uuid.Nil {
		return domain.Invalid("Notification requires a user")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Create(n).Error
}

// NotifyFavoriters writes one notification for every user that favorited l,
// except its owner, and returns how many were written.
func (s *Service) NotifyFavoriters(ctx context.Context, l *domain.Listing, kind, title, message string) (int, error) {
	var users []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&domain.Favorite{}).
		Where("listing_id = ? AND user_id <> ?", l.ID, l.UserID).
		Pluck("user_id", &users).Error; err != nil {
		return 0, fmt.Errorf("load favoriters: %w", err)
	}
	if len(users) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	listingID := l.ID
	rows := make([]domain.Notification, 0, len(users))
	for _, u := range users {
		rows = append(rows, domain.Notification{
			UserID:    u,
			Title:     title,
			Message:   message,
			Type:      kind,
			ListingID: &listingID,
			CreatedAt: now,
		})
	}
	if err := s.DB.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return 0, fmt.Errorf("create notifications: %w", err)
	}
	return len(rows), nil
}
