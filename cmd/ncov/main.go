package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/mgw2168/2019-nCoV/internal/adapter/http"
	kafkaadapter "github.com/mgw2168/2019-nCoV/internal/adapter/kafka"
	"github.com/mgw2168/2019-nCoV/internal/adapter/shapefile"
	"github.com/mgw2168/2019-nCoV/internal/adapter/sina"
	"github.com/mgw2168/2019-nCoV/internal/adapter/xlsx"
	"github.com/mgw2168/2019-nCoV/internal/config"
	"github.com/mgw2168/2019-nCoV/internal/observability"
	"github.com/mgw2168/2019-nCoV/internal/pipeline"
	"github.com/mgw2168/2019-nCoV/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := sina.NewClient(cfg.SourceURL, cfg.FetchTimeout, logger, metrics)

	loader, err := shapefile.NewLoader(cfg.ShapefileEncoding, logger)
	if err != nil {
		logger.Error("failed to create shapefile loader", "error", err)
		os.Exit(1)
	}

	renderer, err := render.NewRenderer(cfg.OutputDir, cfg.FontPath, logger, metrics)
	if err != nil {
		logger.Error("failed to load chart font", "error", err, "font_path", cfg.FontPath)
		os.Exit(1)
	}

	opts := pipeline.Options{
		SeriesYear:        cfg.SeriesYear,
		ProvinceShapefile: cfg.ProvinceShapefile,
		BoundaryShapefile: cfg.BoundaryShapefile,
		BasemapShapefile:  cfg.BasemapShapefile,
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts.Publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.ExportXLSX {
		opts.Exporter = xlsx.NewExporter(cfg.OutputDir, logger)
	}
	if cfg.DisplayCharts {
		opts.Viewer = render.NewViewer()
	}

	p := pipeline.New(fetcher, loader, renderer, logger, metrics, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, p, logger)

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	if err := p.RunOnce(ctx); err != nil {
		logger.Error("cycle failed", "error", err)
		return 1
	}
	if !cfg.Serve() {
		return 0
	}

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	refreshDone := make(chan struct{})
	if cfg.RefreshInterval > 0 {
		go func() {
			defer close(refreshDone)
			if err := p.Run(ctx, cfg.RefreshInterval); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		close(refreshDone)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	// main closes the Kafka writer once run returns.
	<-refreshDone

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return 0
}
