package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"nanobanana/internal/http/handlers"
	"nanobanana/internal/infra"
	"nanobanana/internal/middleware"
)

func NewRouter(cfg *infra.Config, app *handlers.App, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(cfg.CORSOrigins),
		middleware.Session(cfg.SessionCookie, cfg.SessionTTL, cfg.CookieSecure),
		middleware.Logger(log),
		middleware.I18N(cfg.DefaultLocale),
	)

	// Health
	r.Get("/healthz", app.Health)

	r.Handle("/static/*", handlers.Static())

	r.Get("/", app.Index)
	r.Get("/download", app.Download)
	r.Get("/events", app.Events)

	r.Post("/upload", app.Upload)
	r.Post("/remove", app.Remove)
	r.Post("/style", app.SelectStyle)
	r.Post("/mode", app.SetMode)
	r.Post("/prompt", app.SetPrompt)
	r.Post("/error/dismiss", app.DismissError)
	r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/transform", app.Transform)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", app.Session)
		r.Get("/styles", app.Styles)
		r.Get("/backend/health", app.BackendHealth)
	})

	return r
}
