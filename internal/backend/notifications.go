package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/propnest/propnest-client/internal/notifications"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/pagination"
)

var _ notifications.API = (*Client)(nil)

// ListNotifications fetches one page of the user's notifications.
func (c *Client) ListNotifications(ctx context.Context, params pagination.Params) (*notifications.Page, error) {
	p := params.Normalize()
	var env paginated[notifications.Record]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/notifications",
		endpoint: "GET /notifications",
		query:    url.Values{"page": {strconv.Itoa(p.Page)}, "per_page": {strconv.Itoa(p.PerPage)}},
		auth:     true,
	}, &env)
	if err != nil {
		return nil, err
	}
	meta := env.meta()
	items := env.Data
	if items == nil {
		items = []notifications.Record{}
	}
	return &notifications.Page{
		Items:       items,
		CurrentPage: meta.CurrentPage,
		LastPage:    meta.LastPage,
		PerPage:     meta.PerPage,
		Total:       meta.Total,
	}, nil
}

// MarkNotificationRead marks one notification read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/notifications/" + strconv.FormatInt(id, 10) + "/read",
		endpoint: "POST /notifications/{id}/read",
		auth:     true,
	}, nil)
}

// MarkAllNotificationsRead marks every notification of the user read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/notifications/read-all",
		endpoint: "POST /notifications/read-all",
		auth:     true,
	}, nil)
}
