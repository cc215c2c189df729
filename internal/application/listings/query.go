package listings

import (
	"strconv"
	"strings"

	"estate-backend/internal/domain"
)

// Op is the comparison a Condition applies to its column.
type Op string

const (
	OpEq       Op = "eq"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains" // case-insensitive substring
	OpAnyOf    Op = "any_of"   // OR of Contains over Columns
)

// Column names on the Listings table that predicates may reference.
const (
	ColTitle       = "title"
	ColDescription = "description"
	ColCity        = "location_city"
	ColState       = "location_state"
	ColPrice       = "price"
	ColBedrooms    = "bedrooms"
	ColBathrooms   = "bathrooms"
	ColArea        = "area"
	ColType        = "type"
	ColStatus      = "status"
	ColFeatured    = "featured"
	ColUserID      = "user_id"
	ColCreatedAt   = "created_at"
	ColID          = "id"
)

// Condition is one predicate term. For OpAnyOf, Columns lists the fields and
// Value is the search text; for every other op, Column is used.
type Condition struct {
	Column  string
	Columns []string
	Op      Op
	Value   interface{}
}

// Predicate is an AND of conditions, consumed by the Repository.
type Predicate struct {
	Conditions []Condition
}

// And returns a copy of p with c appended.
func (p Predicate) And(c Condition) Predicate {
	conds := make([]Condition, len(p.Conditions), len(p.Conditions)+1)
	copy(conds, p.Conditions)
	return Predicate{Conditions: append(conds, c)}
}

// Find returns the first condition on column with op, if any.
func (p Predicate) Find(column string, op Op) (Condition, bool) {
	for _, c := range p.Conditions {
		if c.Column == column && c.Op == op {
			return c, true
		}
	}
	return Condition{}, false
}

var textSearchColumns = []string{ColTitle, ColDescription, ColCity, ColState}

// BuildPredicate translates flat query parameters into a Predicate.
// Empty, unknown and unparseable parameters never constrain the result.
// When no known status is requested, only active listings are eligible.
func BuildPredicate(params map[string]string) Predicate {
	var p Predicate

	if q := first(params, "q", "search"); q != "" {
		p = p.And(Condition{Columns: textSearchColumns, Op: OpAnyOf, Value: q})
	}
	if city := first(params, "city", "location"); city != "" {
		p = p.And(Condition{Column: ColCity, Op: OpContains, Value: city})
	}

	p = rangeOn(p, ColPrice, first(params, "minPrice", "priceMin"), first(params, "maxPrice", "priceMax"))
	p = rangeOn(p, ColArea, first(params, "minArea", "areaMin"), first(params, "maxArea", "areaMax"))

	if n, ok := parseInt(first(params, "bedrooms", "rooms")); ok {
		p = p.And(Condition{Column: ColBedrooms, Op: OpEq, Value: n})
	}
	if n, ok := parseInt(params["bathrooms"]); ok {
		p = p.And(Condition{Column: ColBathrooms, Op: OpEq, Value: n})
	}
	if t := first(params, "type", "propertyType"); t != "" {
		p = p.And(Condition{Column: ColType, Op: OpEq, Value: t})
	}
	if params["featured"] == "true" {
		p = p.And(Condition{Column: ColFeatured, Op: OpEq, Value: true})
	}

	status := domain.StatusActive
	if st, ok := domain.ParseStatus(strings.TrimSpace(params["status"])); ok {
		status = st
	}
	p = p.And(Condition{Column: ColStatus, Op: OpEq, Value: string(status)})

	return p
}

func rangeOn(p Predicate, column, rawMin, rawMax string) Predicate {
	if v, ok := parseFloat(rawMin); ok {
		p = p.And(Condition{Column: column, Op: OpGte, Value: v})
	}
	if v, ok := parseFloat(rawMax); ok {
		p = p.And(Condition{Column: column, Op: OpLte, Value: v})
	}
	return p
}

// first returns the first non-empty trimmed value among keys.
func first(params map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(params[k]); v != "" {
			return v
		}
	}
	return ""
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
