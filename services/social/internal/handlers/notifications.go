package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/services/social/internal/store"
)

type notificationsResponse struct {
	Notifications []store.Notification `json:"notifications"`
}

// ListNotifications handles GET /v1/notifications
func ListNotifications(ns store.NotificationStore, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r, "see notifications")
		if !ok {
			return
		}

		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		list, err := ns.ListForUser(r.Context(), uid, limit)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		if list == nil {
			list = []store.Notification{}
		}
		api.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: list})
	}
}
