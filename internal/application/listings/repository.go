package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository executes listing predicates and owner-scoped writes against GORM.
type Repository struct {
	DB *gorm.DB
}

// WithTx returns a Repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{DB: tx}
}

// Search returns one window of listings matching p in order o, plus the total
// number of matches. Count and page are two independent reads.
func (r *Repository) Search(ctx context.Context, p Predicate, o Ordering, w pagination.Window) ([]domain.Listing, int64, error) {
	var total int64
	if err := applyPredicate(r.DB.WithContext(ctx).Model(&domain.Listing{}), p).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	rows := []domain.Listing{}
	if total == 0 {
		return rows, 0, nil
	}
	q := applyOrdering(applyPredicate(r.DB.WithContext(ctx).Model(&domain.Listing{}), p), o)
	if err := q.Offset(w.Skip).Limit(w.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("find listings: %w", err)
	}
	return rows, total, nil
}

func (r *Repository) Create(ctx context.Context, l *domain.Listing) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	if err := r.DB.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// FindOwned loads a listing only if owner owns it; otherwise ErrNotFound.
func (r *Repository) FindOwned(ctx context.Context, id, owner uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// FindByIDs loads listings keyed by id. Missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Listing, error) {
	out := make(map[uuid.UUID]domain.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Listing
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find listings by id: %w", err)
	}
	for _, l := range rows {
		out[l.ID] = l
	}
	return out, nil
}

// ListByOwner returns the owner's listings in any status, newest first.
func (r *Repository) ListByOwner(ctx context.Context, owner uuid.UUID, w pagination.Window) ([]domain.Listing, int64, error) {
	p := Predicate{}.And(Condition{Column: ColUserID, Op: OpEq, Value: owner})
	return r.Search(ctx, p, SelectOrdering(SortNewest), w)
}

// UpdateOwned applies column updates to a listing matched by id and owner.
// A listing that does not exist or belongs to someone else yields ErrNotFound.
// When expectStatus is set, the row must still be in that status.
func (r *Repository) UpdateOwned(ctx context.Context, id, owner uuid.UUID, expectStatus domain.ListingStatus, updates map[string]interface{}) (*domain.Listing, error) {
	updates["updated_at"] = time.Now().UTC()
	q := r.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ? AND user_id = ?", id, owner)
	if expectStatus != "" {
		q = q.Where("status = ?", string(expectStatus))
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteOwned removes a listing matched by id and owner together with its favorites.
func (r *Repository) DeleteOwned(ctx context.Context, id, owner uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, owner).Delete(&domain.Listing{})
		if res.Error != nil {
			return fmt.Errorf("delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("listing_id = ?", id).Delete(&domain.Favorite{}).Error; err != nil {
			return fmt.Errorf("delete listing favorites: %w", err)
		}
		return nil
	})
}

func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// AdjustFavoritesCount adds delta to the denormalized favorite counter, never below zero.
func (r *Repository) AdjustFavoritesCount(ctx context.Context, id uuid.UUID, delta int) error {
	q := r.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("favorites_count >= ?", -delta)
	}
	return q.UpdateColumn("favorites_count", gorm.Expr("favorites_count + ?", delta)).Error
}

func applyPredicate(db *gorm.DB, p Predicate) *gorm.DB {
	for _, c := range p.Conditions {
		switch c.Op {
		case OpEq:
			db = db.Where(clause.Eq{Column: clause.Column{Name: c.Column}, Value: c.Value})
		case OpGte:
			db = db.Where(clause.Gte{Column: clause.Column{Name: c.Column}, Value: c.Value})
		case OpLte:
			db = db.Where(clause.Lte{Column: clause.Column{Name: c.Column}, Value: c.Value})
		case OpContains:
			db = db.Where(likeExpr(c.Column), likePattern(c.Value))
		case OpAnyOf:
			parts := make([]string, 0, len(c.Columns))
			args := make([]interface{}, 0, len(c.Columns))
			pattern := likePattern(c.Value)
			for _, col := range c.Columns {
				parts = append(parts, likeExpr(col))
				args = append(args, pattern)
			}
			db = db.Where("("+strings.Join(parts, " OR ")+")", args...)
		}
	}
	return db
}

func applyOrdering(db *gorm.DB, o Ordering) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: ColID}})
}

// likeExpr only ever receives column constants from this package.
func likeExpr(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func likePattern(v interface{}) string {
	s, _ := v.(string)
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
