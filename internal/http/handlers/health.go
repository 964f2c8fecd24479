package handlers

import (
	"net/http"
)

// Health is the liveness probe of the studio itself; see BackendHealth for
// the transformation service.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
