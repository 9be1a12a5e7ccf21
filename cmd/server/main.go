// Command server runs the code graph engine as a single long-lived
// process: the C7 ingestion coordinator, the C4 journal, the C5
// broadcast hub, and the C8 query facade's HTTP and WebSocket surfaces
// all share one address space and one in-memory graph store.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ajacobm/code-graph-mcp-sub002/infrastructure/config"
	"github.com/ajacobm/code-graph-mcp-sub002/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}
	logger := container.Logger
	defer logger.Sync()

	if container.Tracing != nil {
		defer container.Tracing.Shutdown(context.Background())
	}

	mux := http.NewServeMux()
	mux.Handle("/", container.Router.Setup())
	mux.HandleFunc("/ws/events", container.WSServer.HandleEvents)
	mux.HandleFunc("/ws/events/filtered", container.WSServer.HandleEventsFiltered)
	if cfg.EnableMetrics {
		mux.Handle("/metrics", container.Metrics.Handler())
	}

	if cfg.ParserCommand != nil && cfg.WorkspaceRoot != "" {
		go runInitialAnalysis(ctx, container, logger)
	}

	watcher, err := config.NewWatcher(cfg, logger, nil, func() {
		if _, err := container.Facade.ForceReanalysis(context.Background()); err != nil {
			logger.Warn("workspace-triggered reanalysis failed", zap.Error(err))
		}
	})
	stopWatch := make(chan struct{})
	if err != nil {
		logger.Warn("failed to start workspace watcher", zap.Error(err))
	} else {
		go watcher.Run(stopWatch)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	close(stopWatch)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	log.Println("server stopped")
}

// runInitialAnalysis runs one ingestion batch at startup so the graph
// is populated before the first query arrives, instead of waiting for
// the first workspace change or an explicit /admin/reanalyze call.
func runInitialAnalysis(ctx context.Context, container *di.Container, logger *zap.Logger) {
	if _, err := container.Facade.ForceReanalysis(ctx); err != nil {
		logger.Warn("initial analysis failed", zap.Error(err))
	}
}
