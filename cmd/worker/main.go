package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-intervention-planner/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/climate-intervention-planner/internal/adapter/kafka"
	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/observability"
	"github.com/couchcryptid/climate-intervention-planner/internal/pipeline"
	"github.com/couchcryptid/climate-intervention-planner/internal/planner"
)

func main() {
	// Local development reads a .env file; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	svc, err := planner.NewFromConfig(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize planner", "error", err)
		os.Exit(1)
	}
	status := svc.ModelStatus()
	logger.Info("planner ready", "method", status.Method, "model_loaded", status.Loaded, "encoding_version", status.EncodingVersion)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(svc, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
