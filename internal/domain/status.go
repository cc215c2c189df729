package domain

// ListingStatus is the single lifecycle field of a listing.
type ListingStatus string

const (
	StatusActive  ListingStatus = "active"
	StatusPending ListingStatus = "pending"
	StatusSold    ListingStatus = "sold"
	StatusRented  ListingStatus = "rented"
)

var statusTransitions = map[ListingStatus][]ListingStatus{
	StatusActive:  {StatusPending, StatusSold, StatusRented},
	StatusPending: {StatusActive, StatusSold, StatusRented},
	StatusRented:  {StatusActive},
	StatusSold:    {},
}

// ParseStatus returns the status for s and whether it is a known status.
func ParseStatus(s string) (ListingStatus, bool) {
	st := ListingStatus(s)
	if _, ok := statusTransitions[st]; ok {
		return st, true
	}
	return "", false
}

// CanTransition reports whether a listing in status s may move to next.
// Staying in the same status is always allowed.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	if s == next {
		_, ok := statusTransitions[s]
		return ok
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
