package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/propnest/propnest-client/internal/checkout"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

var _ checkout.API = (*Client)(nil)

// PurchaseProperty books a property.
func (c *Client) PurchaseProperty(ctx context.Context, propertyID int64, req checkout.PurchaseRequest, idempotencyKey string) (*checkout.Booking, error) {
	if idempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	var out single[checkout.Booking]
	if err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/properties/" + strconv.FormatInt(propertyID, 10) + "/purchase",
		endpoint:       "POST /properties/{id}/purchase",
		body:           req,
		auth:           true,
		idempotencyKey: idempotencyKey,
	}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// CompleteCheckout pays for a booking.
func (c *Client) CompleteCheckout(ctx context.Context, bookingID int64, req checkout.CheckoutRequest, idempotencyKey string) (*checkout.Receipt, error) {
	if idempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	var out single[checkout.Receipt]
	if err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/checkout/" + strconv.FormatInt(bookingID, 10),
		endpoint:       "POST /checkout/{id}",
		body:           req,
		auth:           true,
		idempotencyKey: idempotencyKey,
	}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}
