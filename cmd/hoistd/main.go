// Command hoistd runs the resource host: the HTTP process that serves
// wrapped script resources installed by the transform pipeline, so a
// browser-side loader can fetch them.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/microfront/hoist/internal/config"
	"github.com/microfront/hoist/internal/intercept"
	"github.com/microfront/hoist/internal/logging"
	"github.com/microfront/hoist/internal/monitoring"
	"github.com/microfront/hoist/internal/server"
)

func main() {
	cfg := config.LoadOrDefault()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics, registry := monitoring.New()
	layer, err := intercept.NewLayer(cfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to build interception layer", zap.Error(err))
	}
	defer layer.Close() //nolint:errcheck

	srv := server.New(cfg, layer.Blobs(), registry, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}
