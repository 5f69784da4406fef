package controllers

import (
	"context"
	"net/http"

	"github.com/propnest/propnest-client/api/responses"
	"github.com/propnest/propnest-client/api/validators"
	"github.com/propnest/propnest-client/internal/notifications"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
)

const maxListLimit = 200

// NotificationService is the slice of the runtime the notification routes drive.
type NotificationService interface {
	Notifications() []notifications.Record
	Refresh(ctx context.Context) error
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

type listResponse struct {
	Items  []notifications.Record `json:"items"`
	Total  int                    `json:"total"`
	Unread int                    `json:"unread"`
}

// ListNotifications returns the local collection, most recent first.
// Query: limit (1..200), unread (bool), refresh (bool, refetch first).
func ListNotifications(svc NotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refresh, err := validators.ParseQueryBool(r, "refresh")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if refresh {
			if err := svc.Refresh(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		items := svc.Notifications()
		resp := listResponse{Items: make([]notifications.Record, 0, len(items)), Total: len(items)}
		for _, item := range items {
			if !item.IsRead {
				resp.Unread++
			} else if unreadOnly {
				continue
			}
			if limit > 0 && len(resp.Items) >= limit {
				continue
			}
			resp.Items = append(resp.Items, item)
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead marks one notification read.
func MarkNotificationRead(svc NotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "is_read": true})
	}
}

// MarkAllNotificationsRead marks the whole collection read.
func MarkAllNotificationsRead(svc NotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.MarkAllRead(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"unread": 0})
	}
}

// ClearNotifications empties the local collection without touching the backend.
func ClearNotifications(svc NotificationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearAll(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
