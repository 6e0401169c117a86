package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/notifsync/pkg/config"
	"github.com/dmitrymomot/notifsync/pkg/httpserver"
	"github.com/dmitrymomot/notifsync/pkg/identity"
	"github.com/dmitrymomot/notifsync/pkg/inbox"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/requestid"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractor(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("inboxd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := wire(ctx, cfg, log, reg)
	if err != nil {
		return errors.Join(err, app.close(context.WithoutCancel(ctx)))
	}

	parser, err := identity.NewJWTParser(cfg.JWTSecret, cfg.JWTLeeway)
	if err != nil {
		return errors.Join(fmt.Errorf("jwt: %w", err), app.close(context.WithoutCancel(ctx)))
	}

	sessions := inbox.NewSessions(app.factory(cfg), cfg.Inbox.MaxSessions, inbox.WithSessionsLogger(log))
	handler := inbox.NewHandler(sessions, parser,
		inbox.WithHandlerLogger(log),
		inbox.WithHeartbeat(cfg.Inbox.Heartbeat),
	)

	r := chi.NewRouter()
	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, cfg.HealthTimeout, app.checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/api/notifications", handler.Router())
	if cfg.ProducerAPI {
		r.Mount("/internal/notifications", producerRouter(app.dispatcher, log))
	}

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithOnShutdown(func() { _ = sessions.Close() }),
		httpserver.WithCloser("dependencies", app.close),
	)

	log.InfoContext(ctx, "starting inboxd",
		slog.String("storage", cfg.Storage),
		slog.String("realtime", cfg.Realtime),
		slog.String("ledger", cfg.Ledger),
	)
	return srv.Run(ctx, r)
}
