// Package router configures HTTP routes for the predictor's serve mode.
//
// In serve mode the predictor exposes an HTTP server on port 8081
// (configurable) that provides prediction snapshot retrieval, health checks,
// and Prometheus metrics. This package sets up the routes for that server.
//
// Routes configured:
//   - GET /predictions/current?dataset=<name> - Retrieve latest prediction snapshot
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// The /predictions/current endpoint returns snapshots in JSON, including the
// prediction rows and metadata (generated timestamp, model name, dropped row
// count). Snapshots older than the stale threshold include an
// X-Salescast-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/salescast/pkg/httpx"
	"github.com/HatiCode/salescast/pkg/storage"
)

var datasetNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures HTTP endpoints for the predictor.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.Handle("/healthz", httpx.HealthHandler())

	// Prediction snapshot endpoint
	mux.HandleFunc("/predictions/current", handleGetSnapshot(store, staleAfter, logger))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /predictions/current?dataset=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset := r.URL.Query().Get("dataset")
		if dataset == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "dataset parameter required")
			return
		}

		if !datasetNameRegex.MatchString(dataset) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid dataset name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, dataset)
		if err != nil {
			logger.Error("failed to get snapshot", "dataset", dataset, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for dataset %q", dataset))
			return
		}

		if time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set("X-Salescast-Stale", "true")
		}

		resp := map[string]any{
			"dataset":     snapshot.Dataset,
			"model":       snapshot.Model,
			"generatedAt": snapshot.GeneratedAt.Format(time.RFC3339),
			"rowsDropped": snapshot.RowsDropped,
			"predictions": snapshot.Predictions,
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
