package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/teamer/internal/adapters/http/api"
	"github.com/okian/teamer/internal/adapters/http/swagger"
	"github.com/okian/teamer/internal/adapters/repository"
	app "github.com/okian/teamer/internal/app"
	"github.com/okian/teamer/internal/config"
	"github.com/okian/teamer/pkg/logger"
)

// HTTP server timeout constants. Writes wait for the record writer, so the
// write timeout is generous.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 15 * time.Second
)

func serveCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Root context with cancel on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep players in memory instead of data_dir")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, memory bool) error {
	log := logger.Get()

	src, err := newRoster(cfg)
	if err != nil {
		return err
	}

	var store repository.Store
	if memory {
		store = repository.NewMemoryStore()
		log.Warn(ctx, "using in-memory store; records are lost on exit")
	} else {
		fs, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		store = fs
		log.Info(ctx, "using file store", logger.String("state", fs.StateDir()))
	}

	svc := app.New(store, src,
		app.WithLogger(log.Named("service")),
		app.WithRater(newRater(cfg)),
		app.WithQueueSize(cfg.RecordQueueSize),
		app.WithSnapshotRetention(cfg.SnapshotRetention),
		app.WithMaxRoster(cfg.MaxRosterSize),
		app.WithTopMatchups(cfg.TopMatchups),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc,
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.Stats(ctx)
		}
	}
}
