// Command predictor scores future sales-volume panel rows with a trained
// model.
//
// The predictor loads the model and feature artifacts produced by the
// trainer and runs in one of three modes:
//
//   - predict: score a panel of future rows from a CSV file or HTTP
//     endpoint and write a predictions CSV
//   - forecast: generate a recursive multi-period forecast for every
//     (agency, SKU) pair seen at training time
//   - serve: run predict, store the snapshot, and expose it via HTTP
//
// In serve mode the predictor serves an HTTP API on port 8081
// (configurable) providing:
//   - GET /predictions/current?dataset=<name> - Retrieve latest snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	predictor \
//	  -mode=predict \
//	  -data=data/future.csv \
//	  -model=models/model.json \
//	  -artifacts=models/artifacts.json \
//	  -output=predictions.csv
//
// Environment variables:
//
//	MODE           - Run mode: predict, forecast or serve (default: predict)
//	SOURCE         - Data source: csv or http (default: csv)
//	DATA           - Prediction input CSV path (required for csv source)
//	HTTP_URL       - Panel endpoint URL (required for http source)
//	MODEL          - Trained model path (default: models/model.json)
//	ARTIFACTS      - Feature artifacts path (default: models/artifacts.json)
//	OUTPUT         - Predictions CSV path (empty disables)
//	DATASET        - Dataset name for stored snapshots (default: default)
//	HORIZON        - Forecast horizon in periods (default: 12)
//	FORECAST_START - First forecast period (YYYY-MM-DD)
//	STORE          - Snapshot store: memory or redis (default: memory)
//	REDIS_ADDR     - Redis server address (default: localhost:6379)
//	LISTEN         - HTTP listen address (default: :8081)
//	STALE_AFTER    - Snapshot staleness threshold (default: 48h)
//	TLS_ENABLED    - Enable mTLS for the http source and serve listener
//	TLS_CERT_FILE  - TLS certificate file
//	TLS_KEY_FILE   - TLS private key file
//	TLS_CA_FILE    - TLS CA certificate file for peer verification
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/salescast/cmd/predictor/config"
	"github.com/HatiCode/salescast/cmd/predictor/logger"
	"github.com/HatiCode/salescast/cmd/predictor/metrics"
	"github.com/HatiCode/salescast/cmd/predictor/router"
	"github.com/HatiCode/salescast/cmd/predictor/store"
	"github.com/HatiCode/salescast/pkg/adapters"
	"github.com/HatiCode/salescast/pkg/artifacts"
	"github.com/HatiCode/salescast/pkg/httpx"
	"github.com/HatiCode/salescast/pkg/models"
	"github.com/HatiCode/salescast/pkg/storage"
	"github.com/HatiCode/salescast/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting salescast predictor",
		"version", version,
		"mode", cfg.Mode,
		"dataset", cfg.Dataset,
	)

	model, err := models.Load(cfg.Model)
	if err != nil {
		logger.Error("failed to load model", "path", cfg.Model, "error", err)
		os.Exit(1)
	}
	arts, err := artifacts.Load(cfg.Artifacts)
	if err != nil {
		logger.Error("failed to load artifacts", "path", cfg.Artifacts, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded model and artifacts",
		"model", model.Name(),
		"trees", len(model.Trees),
		"trained_at", arts.TrainedAt.Format(time.RFC3339),
	)

	m := metrics.New(cfg.Dataset)
	p := NewPredictor(cfg.Dataset, model, arts, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	switch cfg.Mode {
	case "serve":
		runServe(ctx, cancel, cfg, p, logger, sigCh)
	default:
		go func() {
			sig := <-sigCh
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		}()
		snapshot, err := runBatch(ctx, cfg, p)
		if err != nil {
			logger.Error("prediction failed", "error", err)
			os.Exit(1)
		}
		logger.Info("prediction complete",
			"predictions", len(snapshot.Predictions),
			"rows_dropped", snapshot.RowsDropped,
		)
	}
}

func runBatch(ctx context.Context, cfg *config.Config, p *Predictor) (storage.Snapshot, error) {
	var snapshot storage.Snapshot
	var err error

	switch cfg.Mode {
	case "forecast":
		var start time.Time
		if cfg.ForecastStart != "" {
			start, err = time.Parse("2006-01-02", cfg.ForecastStart)
			if err != nil {
				return storage.Snapshot{}, fmt.Errorf("invalid forecast start %q: %w", cfg.ForecastStart, err)
			}
		}
		snapshot, err = p.Forecast(ctx, cfg.Horizon, start)
	default:
		var source adapters.Source
		source, err = newSource(cfg)
		if err == nil {
			snapshot, err = p.Predict(ctx, source)
		}
	}
	if err != nil {
		return storage.Snapshot{}, err
	}

	if cfg.Output != "" {
		if err := WriteCSV(cfg.Output, snapshot); err != nil {
			return storage.Snapshot{}, err
		}
	}
	return snapshot, nil
}

func runServe(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, p *Predictor, logger *slog.Logger, sigCh chan os.Signal) {
	st := store.New(cfg, logger)
	if closer, ok := st.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	snapshot, err := runBatch(ctx, cfg, p)
	if err != nil {
		logger.Error("prediction failed", "error", err)
		os.Exit(1)
	}
	if err := st.Put(ctx, snapshot); err != nil {
		logger.Error("failed to store snapshot", "error", err)
		os.Exit(1)
	}
	logger.Info("stored prediction snapshot",
		"dataset", snapshot.Dataset,
		"predictions", len(snapshot.Predictions),
	)

	mux := router.SetupRoutes(st, cfg.StaleAfter, logger)
	httpServer := httpx.NewServer(cfg.Listen, mux, logger)

	serverErr := make(chan error, 1)
	if cfg.TLS.Enabled {
		tlsConfig, err := tls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
		if err != nil {
			logger.Error("failed to create server TLS config", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(tlsConfig)
		go func() {
			serverErr <- httpServer.StartTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		}()
	} else {
		go func() {
			serverErr <- httpServer.Start()
		}()
	}

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newSource(cfg *config.Config) (adapters.Source, error) {
	if cfg.Source == "http" {
		client, err := httpx.NewClient(cfg.TLS, 60*time.Second)
		if err != nil {
			return nil, fmt.Errorf("create HTTP client: %w", err)
		}
		return &adapters.HTTPSource{
			URL:        cfg.HTTPURL,
			RowsPath:   cfg.HTTPRowsPath,
			HTTPClient: client,
		}, nil
	}
	return &adapters.CSVSource{Path: cfg.Data}, nil
}
