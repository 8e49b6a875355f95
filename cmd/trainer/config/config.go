// Package config provides configuration parsing for the trainer.
//
// It handles both command-line flags and environment variables, with flags
// taking precedence. Supported configuration sources (in order of
// precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/salescast/pkg/tls"
)

// Config holds all trainer configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	Source       string
	Data         string
	HTTPURL      string
	HTTPRowsPath string
	TLS          tls.Config

	TestDate    string
	TestPeriods int

	ModelOutput     string
	ArtifactsOutput string

	Lags             string
	Windows          string
	ImputeGlobalMean bool
	AllowUnknown     bool

	Rounds          int
	LearningRate    float64
	MaxDepth        int
	MinChildSamples int
	Subsample       float64
	EarlyStopping   int
	Seed            int64
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")

	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", "csv"), "Data source: csv or http")
	flag.StringVar(&cfg.Data, "data", getEnv("DATA", ""), "Path to the training data CSV file (required for csv source)")
	flag.StringVar(&cfg.HTTPURL, "http-url", getEnv("HTTP_URL", ""), "Panel endpoint URL (required for http source)")
	flag.StringVar(&cfg.HTTPRowsPath, "http-rows-path", getEnv("HTTP_ROWS_PATH", "data.rows"), "gjson path to the row array in the HTTP response")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable mTLS for the http source")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for server verification")

	flag.StringVar(&cfg.TestDate, "test-date", getEnv("TEST_DATE", ""), "Start date of the test set (YYYY-MM-DD); empty uses -test-periods before the latest date")
	flag.IntVar(&cfg.TestPeriods, "test-periods", getEnvInt("TEST_PERIODS", 12), "Holdout length in monthly periods when -test-date is not set")

	flag.StringVar(&cfg.ModelOutput, "model-output", getEnv("MODEL_OUTPUT", "models/model.json"), "Path to save the trained model")
	flag.StringVar(&cfg.ArtifactsOutput, "artifacts-output", getEnv("ARTIFACTS_OUTPUT", "models/artifacts.json"), "Path to save training artifacts")

	flag.StringVar(&cfg.Lags, "lags", getEnv("LAGS", "1,2,3,6,12"), "Comma-separated lag horizons in periods")
	flag.StringVar(&cfg.Windows, "windows", getEnv("WINDOWS", "3,6,12"), "Comma-separated rolling-mean windows in periods")
	flag.BoolVar(&cfg.ImputeGlobalMean, "impute-global-mean", getEnvBool("IMPUTE_GLOBAL_MEAN", false), "Fill unmatched historical-mean joins with the training global mean")
	flag.BoolVar(&cfg.AllowUnknown, "allow-unknown-entities", getEnvBool("ALLOW_UNKNOWN_ENTITIES", false), "Sentinel-encode entities unseen at training time instead of failing")

	flag.IntVar(&cfg.Rounds, "rounds", getEnvInt("ROUNDS", 500), "Maximum boosting rounds")
	flag.Float64Var(&cfg.LearningRate, "learning-rate", getEnvFloat("LEARNING_RATE", 0.05), "Boosting learning rate")
	flag.IntVar(&cfg.MaxDepth, "max-depth", getEnvInt("MAX_DEPTH", 6), "Maximum tree depth")
	flag.IntVar(&cfg.MinChildSamples, "min-child-samples", getEnvInt("MIN_CHILD_SAMPLES", 20), "Minimum rows per leaf")
	flag.Float64Var(&cfg.Subsample, "subsample", getEnvFloat("SUBSAMPLE", 0.8), "Row subsampling fraction per round")
	flag.IntVar(&cfg.EarlyStopping, "early-stopping", getEnvInt("EARLY_STOPPING", 50), "Early-stopping patience in rounds (0 disables)")
	flag.Int64Var(&cfg.Seed, "seed", int64(getEnvInt("SEED", 42)), "Random seed for reproducible training")

	flag.Parse()

	switch cfg.Source {
	case "csv":
		if cfg.Data == "" {
			fmt.Fprintln(os.Stderr, "Error: --data is required with the csv source")
			os.Exit(1)
		}
	case "http":
		if cfg.HTTPURL == "" {
			fmt.Fprintln(os.Stderr, "Error: --http-url is required with the http source")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown source %q (want csv or http)\n", cfg.Source)
		os.Exit(1)
	}

	if err := cfg.TLS.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid TLS configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.TestDate != "" {
		if _, err := time.Parse("2006-01-02", cfg.TestDate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --test-date %q: %v\n", cfg.TestDate, err)
			os.Exit(1)
		}
	}

	return cfg
}

// ParseIntList parses a comma-separated list of positive integers, e.g. the
// lag and window flags.
func ParseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("value %d must be positive", n)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("list is empty")
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
