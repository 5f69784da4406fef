package enums

import "fmt"

// PropertySort orders the property listing.
type PropertySort string

const (
	PropertySortNewest    PropertySort = "newest"
	PropertySortPriceAsc  PropertySort = "price_asc"
	PropertySortPriceDesc PropertySort = "price_desc"
	PropertySortRating    PropertySort = "rating"
)

var validPropertySorts = []PropertySort{
	PropertySortNewest,
	PropertySortPriceAsc,
	PropertySortPriceDesc,
	PropertySortRating,
}

// String implements fmt.Stringer.
func (p PropertySort) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PropertySort.
func (p PropertySort) IsValid() bool {
	for _, candidate := range validPropertySorts {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePropertySort converts raw input into a PropertySort.
func ParsePropertySort(value string) (PropertySort, error) {
	for _, candidate := range validPropertySorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid property sort %q", value)
}
