package backend

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/propnest/propnest-client/internal/listing"
	"github.com/propnest/propnest-client/internal/withdrawals"
)

var _ withdrawals.API = (*Client)(nil)

// WithdrawalInfo loads the withdrawable balance.
func (c *Client) WithdrawalInfo(ctx context.Context) (*withdrawals.Info, error) {
	var out single[withdrawals.Info]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/withdrawals/info",
		endpoint: "GET /withdrawals/info",
		auth:     true,
	}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// WithdrawalHistory pages through past withdrawals.
func (c *Client) WithdrawalHistory(ctx context.Context, q withdrawals.HistoryQuery) (*listing.Page[withdrawals.Withdrawal], error) {
	var env paginated[withdrawals.Withdrawal]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/withdrawals/history",
		endpoint: "GET /withdrawals/history",
		query:    q.Values(),
		auth:     true,
	}, &env); err != nil {
		return nil, err
	}
	return env.page(), nil
}

// RequestWithdrawal submits a payout. Retries reuse one idempotency key so the
// backend never books the payout twice.
func (c *Client) RequestWithdrawal(ctx context.Context, req withdrawals.Request) (*withdrawals.Withdrawal, error) {
	var out single[withdrawals.Withdrawal]
	if err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/withdrawals/request",
		endpoint:       "POST /withdrawals/request",
		body:           req,
		auth:           true,
		idempotencyKey: uuid.NewString(),
	}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}
