package listings

import (
	"context"
	"fmt"
	"math"
	"strings"

	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/events"
	"estate-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Cache is the read-through store for listing details.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	Set(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Notifier fans a message out to the users who favorited a listing.
type Notifier interface {
	NotifyFavoriters(ctx context.Context, l *domain.Listing, kind, title, message string) (int, error)
}

type Service struct {
	Repo     *Repository
	Cache    Cache
	Events   events.Publisher
	Notifier Notifier
}

// SearchResult is one page of listings plus pagination metadata.
type SearchResult struct {
	Properties []domain.Listing `json:"properties"`
	pagination.Page
}

// Search runs the predicate/sort/pagination pipeline for raw query parameters.
func (s *Service) Search(ctx context.Context, params map[string]string, w pagination.Window) (*SearchResult, error) {
	p := BuildPredicate(params)
	o := SelectOrdering(first(params, "sortBy", "sort"))
	rows, total, err := s.Repo.Search(ctx, p, o, w)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Properties: rows, Page: w.Meta(len(rows), total)}, nil
}

// SearchCategory is Search with the category pinned, whatever type the caller passed.
func (s *Service) SearchCategory(ctx context.Context, category domain.Category, params map[string]string, w pagination.Window) (*SearchResult, error) {
	pinned := make(map[string]string, len(params)+1)
	for k, v := range params {
		pinned[k] = v
	}
	delete(pinned, "propertyType")
	pinned["type"] = string(category)
	return s.Search(ctx, pinned, w)
}

// ListMine returns the owner's own listings in every status.
func (s *Service) ListMine(ctx context.Context, owner uuid.UUID, w pagination.Window) (*SearchResult, error) {
	rows, total, err := s.Repo.ListByOwner(ctx, owner, w)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Properties: rows, Page: w.Meta(len(rows), total)}, nil
}

type CreateInput struct {
	Title       string
	Description string
	Price       *float64
	Type        string
	Status      string
	Location    *domain.Location
	Bedrooms    int
	Bathrooms   int
	Area        float64
	Images      []string
	Features    []string
	Featured    bool
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (*domain.Listing, error) {
	if owner == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Invalid("Missing required field: title")
	}
	if in.Price == nil {
		return nil, domain.Invalid("Missing required field: price")
	}
	if err := validatePrice(*in.Price); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, domain.Invalid("Missing required field: type")
	}
	category, ok := domain.ParseCategory(in.Type)
	if !ok {
		return nil, domain.Invalid("Invalid type: must be one of sale, rent, hotel")
	}
	if in.Location == nil || (strings.TrimSpace(in.Location.City) == "" && strings.TrimSpace(in.Location.Address) == "") {
		return nil, domain.Invalid("Missing required field: location")
	}
	status := domain.StatusActive
	if in.Status != "" {
		st, ok := domain.ParseStatus(in.Status)
		if !ok || (st != domain.StatusActive && st != domain.StatusPending) {
			return nil, domain.Invalid("Invalid status: new listings must be active or pending")
		}
		status = st
	}
	if err := validateCounts(in.Bedrooms, in.Bathrooms, in.Area); err != nil {
		return nil, err
	}

	l := &domain.Listing{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       *in.Price,
		Type:        category,
		Status:      status,
		Location:    trimLocation(*in.Location),
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		Area:        in.Area,
		Images:      datatypes.NewJSONSlice(nonNil(in.Images)),
		Features:    datatypes.NewJSONSlice(nonNil(in.Features)),
		Featured:    in.Featured,
		UserID:      owner,
	}
	if err := s.Repo.Create(ctx, l); err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", l.ID.String()).Str("user_id", owner.String()).Str("type", string(l.Type)).Msg("listing created")
	events.Emit(ctx, s.Events, events.SubjectListingCreated, listingEvent(l))
	return l, nil
}

// Get returns a listing by id and counts the view.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	if err := s.Repo.IncrementViews(ctx, id); err != nil {
		log.Error().Err(err).Str("listing_id", id.String()).Msg("increment views failed")
	}
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("listing_id", id.String()).Msg("listing cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}
	l, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, l); err != nil {
			log.Warn().Err(err).Str("listing_id", id.String()).Msg("listing cache write failed")
		}
	}
	return l, nil
}

type UpdateInput struct {
	Title       *string
	Description *string
	Price       *float64
	Type        *string
	Status      *string
	Location    *domain.Location
	Bedrooms    *int
	Bathrooms   *int
	Area        *float64
	Images      *[]string
	Features    *[]string
	Featured    *bool
}

// Update edits an owned listing. Missing and foreign listings both yield ErrNotFound.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, in UpdateInput) (*domain.Listing, error) {
	current, err := s.Repo.FindOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, domain.Invalid("Title cannot be empty")
		}
		updates["title"] = t
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = *in.Price
	}
	if in.Type != nil {
		category, ok := domain.ParseCategory(*in.Type)
		if !ok {
			return nil, domain.Invalid("Invalid type: must be one of sale, rent, hotel")
		}
		updates["type"] = string(category)
	}
	var nextStatus domain.ListingStatus
	if in.Status != nil {
		st, err := checkTransition(current.Status, *in.Status)
		if err != nil {
			return nil, err
		}
		if st != current.Status {
			nextStatus = st
			updates["status"] = string(st)
		}
	}
	if in.Location != nil {
		loc := trimLocation(*in.Location)
		if loc.City == "" && loc.Address == "" {
			return nil, domain.Invalid("Location requires a city or an address")
		}
		updates["location_address"] = loc.Address
		updates["location_city"] = loc.City
		updates["location_state"] = loc.State
		updates["location_country"] = loc.Country
		updates["location_lat"] = loc.Lat
		updates["location_lng"] = loc.Lng
	}
	bedrooms, bathrooms, area := current.Bedrooms, current.Bathrooms, current.Area
	if in.Bedrooms != nil {
		bedrooms = *in.Bedrooms
		updates["bedrooms"] = bedrooms
	}
	if in.Bathrooms != nil {
		bathrooms = *in.Bathrooms
		updates["bathrooms"] = bathrooms
	}
	if in.Area != nil {
		area = *in.Area
		updates["area"] = area
	}
	if err := validateCounts(bedrooms, bathrooms, area); err != nil {
		return nil, err
	}
	if in.Images != nil {
		updates["images"] = datatypes.NewJSONSlice(nonNil(*in.Images))
	}
	if in.Features != nil {
		updates["features"] = datatypes.NewJSONSlice(nonNil(*in.Features))
	}
	if in.Featured != nil {
		updates["featured"] = *in.Featured
	}
	if len(updates) == 0 {
		// A status equal to the current one is accepted as a no-op, as ChangeStatus does.
		if in.Status != nil {
			return current, nil
		}
		return nil, domain.Invalid("No valid changes provided")
	}

	var expect domain.ListingStatus
	if nextStatus != "" {
		expect = current.Status
	}
	updated, err := s.Repo.UpdateOwned(ctx, id, owner, expect, updates)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	log.Info().Str("listing_id", id.String()).Int("fields", len(updates)-1).Msg("listing updated")
	events.Emit(ctx, s.Events, events.SubjectListingUpdated, listingEvent(updated))

	if nextStatus != "" {
		s.statusChanged(ctx, updated, current.Status)
	}
	if in.Price != nil && *in.Price < current.Price {
		s.notify(ctx, updated, domain.NotificationPriceDrop, "Price drop",
			fmt.Sprintf("%q is now %.2f (was %.2f)", updated.Title, updated.Price, current.Price))
	}
	return updated, nil
}

// ChangeStatus moves an owned listing to status, enforcing the transition rules.
func (s *Service) ChangeStatus(ctx context.Context, owner, id uuid.UUID, status string) (*domain.Listing, error) {
	current, err := s.Repo.FindOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	next, err := checkTransition(current.Status, status)
	if err != nil {
		return nil, err
	}
	if next == current.Status {
		return current, nil
	}
	updated, err := s.Repo.UpdateOwned(ctx, id, owner, current.Status, map[string]interface{}{"status": string(next)})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.statusChanged(ctx, updated, current.Status)
	return updated, nil
}

// Delete removes an owned listing and its favorites.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.Repo.DeleteOwned(ctx, id, owner); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	log.Info().Str("listing_id", id.String()).Str("user_id", owner.String()).Msg("listing deleted")
	events.Emit(ctx, s.Events, events.SubjectListingDeleted, map[string]string{"id": id.String(), "user_id": owner.String()})
	return nil
}

func (s *Service) statusChanged(ctx context.Context, l *domain.Listing, from domain.ListingStatus) {
	log.Info().Str("listing_id", l.ID.String()).Str("from", string(from)).Str("to", string(l.Status)).Msg("listing status changed")
	events.Emit(ctx, s.Events, events.SubjectListingStatusChanged, map[string]string{
		"id":   l.ID.String(),
		"from": string(from),
		"to":   string(l.Status),
	})
	s.notify(ctx, l, domain.NotificationStatusChange, "Listing status changed",
		fmt.Sprintf("%q is now %s", l.Title, l.Status))
}

func (s *Service) notify(ctx context.Context, l *domain.Listing, kind, title, message string) {
	if s.Notifier == nil {
		return
	}
	n, err := s.Notifier.NotifyFavoriters(ctx, l, kind, title, message)
	if err != nil {
		log.Error().Err(err).Str("listing_id", l.ID.String()).Str("kind", kind).Msg("notify favoriters failed")
		return
	}
	log.Info().Str("listing_id", l.ID.String()).Str("kind", kind).Int("recipients", n).Msg("favoriters notified")
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("listing_id", id.String()).Msg("listing cache invalidation failed")
	}
}

func checkTransition(from domain.ListingStatus, raw string) (domain.ListingStatus, error) {
	next, ok := domain.ParseStatus(strings.TrimSpace(raw))
	if !ok {
		return "", domain.Invalid("Invalid status: must be one of active, pending, sold, rented")
	}
	if !from.CanTransition(next) {
		return "", fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, next)
	}
	return next, nil
}

func validatePrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return domain.Invalid("Invalid price: must be a non-negative number")
	}
	return nil
}

func validateCounts(bedrooms, bathrooms int, area float64) error {
	if bedrooms < 0 || bathrooms < 0 {
		return domain.Invalid("Bedrooms and bathrooms cannot be negative")
	}
	if math.IsNaN(area) || area < 0 {
		return domain.Invalid("Invalid area")
	}
	return nil
}

func trimLocation(loc domain.Location) domain.Location {
	loc.Address = strings.TrimSpace(loc.Address)
	loc.City = strings.TrimSpace(loc.City)
	loc.State = strings.TrimSpace(loc.State)
	loc.Country = strings.TrimSpace(loc.Country)
	return loc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func listingEvent(l *domain.Listing) map[string]interface{} {
	return map[string]interface{}{
		"id":      l.ID.String(),
		"user_id": l.UserID.String(),
		"title":   l.Title,
		"type":    l.Type,
		"status":  l.Status,
		"price":   l.Price,
	}
}
