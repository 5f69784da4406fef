package reviews

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/propnest/propnest-client/internal/listing"
	"github.com/propnest/propnest-client/pkg/pagination"
)

// Review is one guest review of a property.
type Review struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	UserName   string    `json:"user_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query selects a page of reviews for one property.
type Query struct {
	PropertyID int64 `json:"property_id" validate:"required,gt=0"`
	Page       int   `json:"page" validate:"gte=0"`
	PerPage    int   `json:"per_page" validate:"gte=0,lte=100"`
}

// Values encodes the pagination part of the query.
func (q Query) Values() url.Values {
	p := pagination.Params{Page: q.Page, PerPage: q.PerPage}.Normalize()
	return url.Values{
		"page":     {strconv.Itoa(p.Page)},
		"per_page": {strconv.Itoa(p.PerPage)},
	}
}

type API interface {
	ListReviews(ctx context.Context, q Query) (*listing.Page[Review], error)
}

// NewLoader returns a loader for a property's reviews.
func NewLoader(api API, opts ...listing.Option) *listing.Loader[Query, Review] {
	opts = append([]listing.Option{listing.WithResource("reviews")}, opts...)
	return listing.New(func(ctx context.Context, q Query) (*listing.Page[Review], error) {
		return api.ListReviews(ctx, q)
	}, opts...)
}

// Average returns the mean rating of items, or 0 for none.
func Average(items []Review) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, r := range items {
		sum += r.Rating
	}
	return float64(sum) / float64(len(items))
}
