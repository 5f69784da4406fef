package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/propnest/propnest-client/internal/listing"
	"github.com/propnest/propnest-client/internal/properties"
	"github.com/propnest/propnest-client/internal/reviews"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

var (
	_ properties.API = (*Client)(nil)
	_ reviews.API    = (*Client)(nil)
)

// ListProperties runs the property search.
func (c *Client) ListProperties(ctx context.Context, f properties.Filters) (*listing.Page[properties.Property], error) {
	var env paginated[properties.Property]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/propertiesList",
		endpoint: "GET /propertiesList",
		query:    f.Values(),
	}, &env); err != nil {
		return nil, err
	}
	return env.page(), nil
}

// PropertyFilterOptions loads the values offered by the filter panel.
func (c *Client) PropertyFilterOptions(ctx context.Context) (*properties.FilterOptions, error) {
	var out single[properties.FilterOptions]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/propertiesList/filtersOptions",
		endpoint: "GET /propertiesList/filtersOptions",
	}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// ListReviews loads a page of reviews for one property.
func (c *Client) ListReviews(ctx context.Context, q reviews.Query) (*listing.Page[reviews.Review], error) {
	if q.PropertyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property id is required")
	}
	var env paginated[reviews.Review]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/properties/" + strconv.FormatInt(q.PropertyID, 10) + "/reviews",
		endpoint: "GET /properties/{id}/reviews",
		query:    q.Values(),
	}, &env); err != nil {
		return nil, err
	}
	return env.page(), nil
}
