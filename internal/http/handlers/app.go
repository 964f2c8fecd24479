package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nanobanana/internal/domain"
	"nanobanana/internal/events"
	"nanobanana/internal/i18n"
	"nanobanana/internal/intake"
	"nanobanana/internal/middleware"
	"nanobanana/internal/workflow"
)

// BackendProber checks the remote transformation service.
type BackendProber interface {
	Health(ctx context.Context) (bool, error)
	BaseURL() string
}

type Options struct {
	Service  *workflow.Service
	Intake   *intake.Intake
	Backend  BackendProber
	Broker   events.Broker
	Notifier workflow.Notifier
	// Theme is the default palette; ?theme= overrides it per browser.
	Theme  string
	Logger zerolog.Logger
	// CheckOrigin guards websocket upgrades. Nil means same host only.
	CheckOrigin func(r *http.Request) bool
}

// App holds the dependencies shared by every handler.
type App struct {
	svc      *workflow.Service
	intake   *intake.Intake
	backend  BackendProber
	broker   events.Broker
	notifier workflow.Notifier
	theme    string
	log      zerolog.Logger
	pages    *template.Template
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewApp(opts Options) (*App, error) {
	if opts.Service == nil || opts.Intake == nil || opts.Backend == nil {
		return nil, errors.New("handlers: service, intake and backend are required")
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("handlers: parse templates: %w", err)
	}
	return &App{
		svc:      opts.Service,
		intake:   opts.Intake,
		backend:  opts.Backend,
		broker:   opts.Broker,
		notifier: opts.Notifier,
		theme:    opts.Theme,
		log:      opts.Logger,
		pages:    pages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		now: time.Now,
	}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// logger prefers the request scoped logger installed by middleware.Logger.
func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.log
}

func (a *App) translator(r *http.Request) *i18n.Translator {
	return i18n.New(middleware.LocaleFromContext(r.Context()))
}

func sessionID(r *http.Request) (string, bool) {
	id := middleware.SessionIDFromContext(r.Context())
	return id, id != ""
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// statusFor maps workflow errors onto HTTP statuses for JSON callers.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNoImage), errors.Is(err, domain.ErrEmptyPrompt), errors.Is(err, domain.ErrNotImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownStyle), errors.Is(err, domain.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNoResult):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// finish answers a state changing request: browsers are redirected back to
// the page, JSON clients get the new session view.
func (a *App) finish(w http.ResponseWriter, r *http.Request, id string, st *workflow.State, err error, okStatus int) {
	if st == nil {
		a.logger(r).Error().Err(err).Msg("session update failed")
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return
	}
	if a.notifier != nil {
		a.notifier.Notify(r.Context(), id, st)
	}
	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	status := okStatus
	if err != nil {
		status = statusFor(err)
	}
	a.json(w, status, newSessionView(st, a.translator(r)))
}
