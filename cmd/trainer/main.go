// Command trainer fits a sales-volume forecasting model from a historical
// (agency, SKU) panel.
//
// The trainer runs a one-shot batch pipeline that:
//  1. Loads the raw panel from a CSV file or HTTP endpoint
//  2. Normalizes it and drops constant exogenous columns
//  3. Splits it into train/holdout sets at a cutoff date
//  4. Derives calendar, lag, rolling-mean, historical-mean and
//     entity-encoding features
//  5. Trains a gradient-boosted tree regressor with early stopping
//  6. Reports holdout metrics against a historical-mean baseline
//  7. Persists the model and the feature artifacts for the predictor
//
// Usage:
//
//	trainer \
//	  -data=data/volume.csv \
//	  -test-date=2017-01-01 \
//	  -model-output=models/model.json \
//	  -artifacts-output=models/artifacts.json
//
// Environment variables:
//
//	SOURCE            - Data source: csv or http (default: csv)
//	DATA              - Training data CSV path (required for csv source)
//	HTTP_URL          - Panel endpoint URL (required for http source)
//	HTTP_ROWS_PATH    - Path to the row array in the HTTP response
//	TLS_ENABLED       - Enable mTLS for the http source (default: false)
//	TLS_CERT_FILE     - TLS certificate file
//	TLS_KEY_FILE      - TLS private key file
//	TLS_CA_FILE       - TLS CA certificate file for server verification
//	TEST_DATE         - Holdout start date (YYYY-MM-DD)
//	TEST_PERIODS      - Holdout length in periods when TEST_DATE is unset (default: 12)
//	MODEL_OUTPUT      - Trained model path (default: models/model.json)
//	ARTIFACTS_OUTPUT  - Feature artifacts path (default: models/artifacts.json)
//	LAGS              - Comma-separated lag horizons (default: 1,2,3,6,12)
//	WINDOWS           - Comma-separated rolling windows (default: 3,6,12)
//	LOG_LEVEL         - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT        - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/salescast/cmd/trainer/config"
	"github.com/HatiCode/salescast/cmd/trainer/logger"
	"github.com/HatiCode/salescast/pkg/adapters"
	"github.com/HatiCode/salescast/pkg/httpx"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting salescast trainer",
		"version", version,
		"source", cfg.Source,
	)

	var source adapters.Source
	switch cfg.Source {
	case "csv":
		source = &adapters.CSVSource{Path: cfg.Data}
	case "http":
		client, err := httpx.NewClient(cfg.TLS, 60*time.Second)
		if err != nil {
			logger.Error("failed to create HTTP client", "error", err)
			os.Exit(1)
		}
		source = &adapters.HTTPSource{
			URL:        cfg.HTTPURL,
			RowsPath:   cfg.HTTPRowsPath,
			HTTPClient: client,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	t := NewTrainer(cfg, source, logger)
	if err := t.Run(ctx); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}

	logger.Info("training complete")
}
