// Command pagepulse starts the page analysis API server and its worker pool.
// Usage: pagepulse [config.yaml]
// The config path may also be set via PAGEPULSE_CONFIG.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pagepulse/pagepulse/internal/browser"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/fetcher"
	"github.com/pagepulse/pagepulse/internal/lighthouse"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/pipeline"
	"github.com/pagepulse/pagepulse/internal/server"
	"github.com/pagepulse/pagepulse/internal/store"
	"github.com/pagepulse/pagepulse/internal/sweeper"
	"github.com/pagepulse/pagepulse/internal/webclient"
)

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("PAGEPULSE_CONFIG")
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logging.NewStdoutLogger("pagepulse")

	st, err := store.New(cfg.StorageRoot, logger)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	wc := webclient.NewNetHTTPClient(logger, nil, cfg.Fetch.Timeout)
	defer wc.Close()

	renderer := browser.NewChromeRenderer(logger)
	defer renderer.Close()

	audit := lighthouse.NewCLIRunner(cfg.Lighthouse.Path, cfg.Lighthouse.Timeout, logger)

	runner := pipeline.NewRunner(
		st,
		fetcher.New(wc, logger),
		renderer,
		audit,
		cfg.Pipeline,
		cfg.StorageRoot,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := pipeline.NewQueue(runner, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	queue.Start(ctx)

	// Pick up scans accepted before the last shutdown.
	if _, err := queue.Requeue(ctx, st); err != nil {
		logger.Warn("requeueing pending scans", logging.Field{Key: "error", Value: err.Error()})
	}

	go sweeper.New(st, cfg.Sweeper, logger).Run(ctx)

	srv := server.New(cfg, st, queue, logger)
	httpServer := srv.HTTPServer()

	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: cfg.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", logging.Field{Key: "error", Value: err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", logging.Field{Key: "error", Value: err.Error()})
	}

	queue.Stop()
}
