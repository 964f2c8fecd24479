package handlers

import (
	"context"
	"net/http"
	"time"

	"nanobanana/internal/domain"
)

// Session returns the JSON view of the caller's workflow.
func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	st, err := a.svc.View(r.Context(), id)
	if err != nil {
		a.logger(r).Error().Err(err).Msg("load session")
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return
	}
	a.json(w, http.StatusOK, newSessionView(st, a.translator(r)))
}

func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"items":   domain.Styles(),
		"default": domain.DefaultStyle,
	})
}

// BackendHealth probes the transformation service.
func (a *App) BackendHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ok, err := a.backend.Health(ctx)
	resp := map[string]string{"backend": a.backend.BaseURL(), "status": "ok"}
	switch {
	case err != nil:
		resp["status"] = "down"
		resp["message"] = a.translator(r).T(domain.UserMessage(err))
		a.logger(r).Warn().Err(err).Msg("backend health probe failed")
		a.json(w, http.StatusServiceUnavailable, resp)
	case !ok:
		resp["status"] = "degraded"
		a.json(w, http.StatusServiceUnavailable, resp)
	default:
		a.json(w, http.StatusOK, resp)
	}
}
