package handlers

import (
	"net/http"

	"progenai/internal/notify"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DrainNotifications returns and clears the pending user notifications.
func (a *App) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	items := []notify.Notification{}
	if a.Notifications != nil {
		items = append(items, a.Notifications.Drain()...)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
