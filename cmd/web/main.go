package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nanobanana/internal/events"
	"nanobanana/internal/http/handlers"
	httpapi "nanobanana/internal/http/httpapi"
	"nanobanana/internal/infra"
	"nanobanana/internal/intake"
	"nanobanana/internal/session"
	"nanobanana/internal/transform"
	"nanobanana/internal/workflow"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	rdb, err := infra.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	store, err := session.Open(ctx, rdb, cfg.SessionTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}

	// Completion events: in-process hub, fanned out through Redis when several
	// instances share sessions.
	hub := events.NewHub()
	go hub.Run(ctx)
	var broker events.Broker = hub
	if rdb != nil {
		rb := events.NewRedisBroker(rdb, hub, logger)
		go rb.Run(ctx)
		broker = rb
	}

	notifier := events.NewNotifier(broker, logger)

	client := transform.NewClient(transform.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.TransformTimeout,
		Logger:  &logger,
	})
	svc := workflow.NewService(workflow.ServiceOptions{
		Store:    store,
		Client:   client,
		Notifier: notifier,
		Logger:   logger,
		Timeout:  cfg.TransformTimeout,
	})

	app, err := handlers.NewApp(handlers.Options{
		Service:  svc,
		Intake:   intake.New(intake.Options{MaxBytes: cfg.MaxUploadBytes, PreviewEdge: cfg.PreviewMaxEdge}),
		Backend:  client,
		Broker:   broker,
		Notifier: notifier,
		Theme:    cfg.Theme,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handlers")
	}

	router := httpapi.NewRouter(cfg, app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("backend", cfg.APIURL).Str("theme", cfg.Theme).Msgf("studio listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// let running transforms record their outcome before the store goes away
	svc.Wait()
	stopBackground()
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close session store")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info().Msg("server stopped")
}
