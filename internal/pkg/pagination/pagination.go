package pagination

import (
	"errors"
	"math"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within int for any limit up to MaxLimit.
	MaxPage = math.MaxInt / MaxLimit
)

// Window is a resolved page request: 1-based Page, Limit rows, Skip rows before it.
type Window struct {
	Page  int
	Limit int
	Skip  int
}

// New clamps page to [1, MaxPage] and limit to [1, MaxLimit] and computes Skip.
func New(page, limit int) Window {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Window{Page: page, Limit: limit, Skip: (page - 1) * limit}
}

// FromQuery parses raw page/limit query values. Absent or unparseable values
// fall back to page 1 and DefaultLimit; out-of-range numbers saturate and
// every value is then clamped like New.
func FromQuery(rawPage, rawLimit string) Window {
	return New(parseOr(rawPage, 1), parseOr(rawLimit, DefaultLimit))
}

func parseOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	if err != nil {
		return fallback
	}
	return n
}

// HasMore reports whether rows exist past this window given returned rows out of total.
func (w Window) HasMore(returned int, total int64) bool {
	return int64(w.Skip+returned) < total
}

// TotalPages is ceil(total/limit).
func (w Window) TotalPages(total int64) int {
	if total <= 0 || w.Limit <= 0 {
		return 0
	}
	return int((total + int64(w.Limit) - 1) / int64(w.Limit))
}

// Page is the paged payload returned to clients.
type Page struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// Meta builds the pagination metadata for a window that returned `returned` rows.
func (w Window) Meta(returned int, total int64) Page {
	return Page{
		Total:      total,
		Page:       w.Page,
		Limit:      w.Limit,
		TotalPages: w.TotalPages(total),
		HasMore:    w.HasMore(returned, total),
	}
}
