package properties

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propnest/propnest-client/pkg/enums"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/pagination"
)

// Property is one listing card.
type Property struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	City        string          `json:"city"`
	Address     string          `json:"address,omitempty"`
	Type        string          `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	Area        float64         `json:"area,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	IsFavorite  bool            `json:"is_favorite,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filters is the query descriptor for the property listing.
type Filters struct {
	Search   string             `json:"search" validate:"max=120"`
	City     string             `json:"city"`
	Type     string             `json:"type"`
	MinPrice *decimal.Decimal   `json:"min_price"`
	MaxPrice *decimal.Decimal   `json:"max_price"`
	Bedrooms *int               `json:"bedrooms" validate:"omitempty,gte=0"`
	Sort     enums.PropertySort `json:"sort" validate:"omitempty,oneof=newest price_asc price_desc rating"`
	Page     int                `json:"page" validate:"gte=0"`
	PerPage  int                `json:"per_page" validate:"gte=0,lte=100"`
}

// Validate checks the price range.
func (f Filters) Validate() error {
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_price must be at least 0.")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price.")
	}
	return nil
}

// Values encodes the filters as the listing endpoint's query string.
// Empty filters are omitted; page and per_page are always sent.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if f.City != "" {
		v.Set("city", f.City)
	}
	if f.Type != "" {
		v.Set("type", f.Type)
	}
	if f.MinPrice != nil {
		v.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("max_price", f.MaxPrice.String())
	}
	if f.Bedrooms != nil {
		v.Set("bedrooms", strconv.Itoa(*f.Bedrooms))
	}
	if f.Sort != "" {
		v.Set("sort", f.Sort.String())
	}
	p := pagination.Params{Page: f.Page, PerPage: f.PerPage}.Normalize()
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("per_page", strconv.Itoa(p.PerPage))
	return v
}

// PriceRange bounds the prices present in the catalog.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// FilterOptions lists the values the filter panel offers.
type FilterOptions struct {
	Cities     []string   `json:"cities"`
	Types      []string   `json:"types"`
	Bedrooms   []int      `json:"bedrooms"`
	PriceRange PriceRange `json:"price_range"`
}
