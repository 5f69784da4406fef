package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/propnest/propnest-client/internal/properties"
	"github.com/propnest/propnest-client/internal/wishlist"
)

var _ wishlist.API = (*Client)(nil)

// ListWishlist returns the user's saved properties.
func (c *Client) ListWishlist(ctx context.Context) ([]properties.Property, error) {
	var out single[[]properties.Property]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/wishlist",
		endpoint: "GET /wishlist",
		auth:     true,
	}, &out); err != nil {
		return nil, err
	}
	if out.Value == nil {
		return []properties.Property{}, nil
	}
	return out.Value, nil
}

// AddToWishlist saves a property.
func (c *Client) AddToWishlist(ctx context.Context, propertyID int64) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/wishlist/" + strconv.FormatInt(propertyID, 10),
		endpoint: "POST /wishlist/{id}",
		auth:     true,
	}, nil)
}

// RemoveFromWishlist drops a saved property.
func (c *Client) RemoveFromWishlist(ctx context.Context, propertyID int64) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/wishlist/" + strconv.FormatInt(propertyID, 10),
		endpoint: "DELETE /wishlist/{id}",
		auth:     true,
	}, nil)
}
