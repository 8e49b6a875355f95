// Package config provides configuration parsing for the predictor.
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
	"time"

	"github.com/HatiCode/salescast/pkg/tls"
)

// Config holds all predictor configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	// Mode selects what the predictor does: "predict" scores a panel of
	// future rows, "forecast" generates a recursive multi-period forecast
	// for every known entity, "serve" additionally exposes the result over
	// HTTP.
	Mode string

	Source       string
	Data         string
	HTTPURL      string
	HTTPRowsPath string

	Model     string
	Artifacts string
	Output    string

	Dataset       string
	Horizon       int
	ForecastStart string

	StoreType     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	Listen     string
	StaleAfter time.Duration

	// TLS applies to both sides: the http source client and the serve-mode
	// listener.
	TLS tls.Config
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")

	flag.StringVar(&cfg.Mode, "mode", getEnv("MODE", "predict"), "Run mode: predict, forecast or serve")

	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", "csv"), "Data source for predict mode: csv or http")
	flag.StringVar(&cfg.Data, "data", getEnv("DATA", ""), "Path to the prediction input CSV file (required for csv source)")
	flag.StringVar(&cfg.HTTPURL, "http-url", getEnv("HTTP_URL", ""), "Panel endpoint URL (required for http source)")
	flag.StringVar(&cfg.HTTPRowsPath, "http-rows-path", getEnv("HTTP_ROWS_PATH", "data.rows"), "gjson path to the row array in the HTTP response")

	flag.StringVar(&cfg.Model, "model", getEnv("MODEL", "models/model.json"), "Path to the trained model")
	flag.StringVar(&cfg.Artifacts, "artifacts", getEnv("ARTIFACTS", "models/artifacts.json"), "Path to the training artifacts")
	flag.StringVar(&cfg.Output, "output", getEnv("OUTPUT", ""), "Path to write predictions CSV; empty disables the file output")

	flag.StringVar(&cfg.Dataset, "dataset", getEnv("DATASET", "default"), "Dataset name used to key stored snapshots")
	flag.IntVar(&cfg.Horizon, "horizon", getEnvInt("HORIZON", 12), "Forecast horizon in monthly periods (forecast mode)")
	flag.StringVar(&cfg.ForecastStart, "forecast-start", getEnv("FORECAST_START", ""), "First forecast period (YYYY-MM-DD); empty uses the period after the last trained one")

	flag.StringVar(&cfg.StoreType, "store", getEnv("STORE", "memory"), "Snapshot store backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "TTL for snapshots stored in Redis")

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address (serve mode)")
	flag.DurationVar(&cfg.StaleAfter, "stale-after", getEnvDuration("STALE_AFTER", 48*time.Hour), "Age after which a served snapshot is flagged stale")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable mTLS for the http source and the serve listener")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for peer verification")

	flag.Parse()

	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Mode {
	case "predict", "serve":
		switch c.Source {
		case "csv":
			if c.Data == "" {
				return fmt.Errorf("-data is required for the csv source")
			}
		case "http":
			if c.HTTPURL == "" {
				return fmt.Errorf("-http-url is required for the http source")
			}
		default:
			return fmt.Errorf("unknown source %q (expected csv or http)", c.Source)
		}
	case "forecast":
		if c.Horizon < 1 {
			return fmt.Errorf("-horizon must be at least 1, got %d", c.Horizon)
		}
	default:
		return fmt.Errorf("unknown mode %q (expected predict, forecast or serve)", c.Mode)
	}

	if c.ForecastStart != "" {
		if _, err := time.Parse("2006-01-02", c.ForecastStart); err != nil {
			return fmt.Errorf("invalid -forecast-start %q: %w", c.ForecastStart, err)
		}
	}

	switch c.StoreType {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store %q (expected memory or redis)", c.StoreType)
	}

	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
