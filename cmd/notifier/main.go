package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/propnest/propnest-client/api/controllers"
	"github.com/propnest/propnest-client/api/routes"
	"github.com/propnest/propnest-client/internal/app"
	"github.com/propnest/propnest-client/internal/backend"
	"github.com/propnest/propnest-client/internal/notifications"
	"github.com/propnest/propnest-client/internal/session"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/db"
	"github.com/propnest/propnest-client/pkg/instance"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "notifier"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notifier",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx := logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	clientMetrics := metrics.NewClientMetrics(registry)

	holder := &session.Holder{}
	client, err := backend.NewFromConfig(cfg.API, cfg.Retry,
		backend.WithTokenSource(holder),
		backend.WithLogger(logg),
		backend.WithMetrics(clientMetrics),
	)
	if err != nil {
		logg.Error(ctx, "failed to create backend client", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{}

	dialer, dialerCloser, err := app.NewDialer(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create realtime dialer", err)
		os.Exit(1)
	}
	defer closeQuietly(ctx, logg, "realtime dialer", dialerCloser)
	if p, ok := dialerCloser.(controllers.Pinger); ok {
		pingers["redis"] = p
	}

	var cache *notifications.Cache
	if cfg.Cache.Enabled {
		dbClient, err := db.New(ctx, cfg.Cache, logg, notifications.Models()...)
		if err != nil {
			logg.Error(ctx, "failed to open notification cache", err)
			os.Exit(1)
		}
		defer closeQuietly(ctx, logg, "notification cache", dbClient)
		if cache, err = notifications.NewCache(dbClient); err != nil {
			logg.Error(ctx, "failed to create notification cache", err)
			os.Exit(1)
		}
		pingers["cache"] = dbClient
	}

	rt, err := app.New(app.Params{
		Config:  cfg,
		Logger:  logg,
		Metrics: clientMetrics,
		Backend: client,
		Dialer:  dialer,
		Cache:   cache,
		Session: holder,
		Redirect: func() {
			logg.Info(ctx, "app.login_redirect")
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create runtime", err)
		os.Exit(1)
	}

	var server *http.Server
	if cfg.Status.Enabled {
		server = &http.Server{
			Addr:              cfg.Status.Addr(),
			Handler:           routes.NewRouter(cfg, logg, rt, registry, pingers),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting status server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "status server stopped unexpectedly", err)
				stop()
			}
		}()
	}

	if cfg.API.Token != "" {
		if err := rt.Login(ctx, cfg.API.Token); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial login failed")
		}
	} else {
		logg.Info(ctx, "no token configured, waiting for a session")
	}

	<-runCtx.Done()
	logg.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "status server shutdown failed", err)
		}
	}
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "runtime shutdown incomplete", err)
	}
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", name), "close failed", err)
	}
}
