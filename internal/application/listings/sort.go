package listings

// Sort keys accepted in ?sortBy=.
const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

// Ordering is a column plus direction. The repository always appends id ASC
// so equal keys keep a stable order across pages.
type Ordering struct {
	Column string
	Desc   bool
}

// SelectOrdering maps a sort key to an Ordering; absent or unknown keys mean newest first.
func SelectOrdering(key string) Ordering {
	switch key {
	case SortPriceLow:
		return Ordering{Column: ColPrice}
	case SortPriceHigh:
		return Ordering{Column: ColPrice, Desc: true}
	case SortOldest:
		return Ordering{Column: ColCreatedAt}
	default:
		return Ordering{Column: ColCreatedAt, Desc: true}
	}
}
