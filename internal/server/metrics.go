package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/metrics"
	"github.com/courierbot/courier/internal/observability"
)

// MetricsResponse is the JSON body served at /metrics.
type MetricsResponse struct {
	Metrics []metrics.Sample `json:"metrics"`
}

// MetricsHandler serves the series recorded by the telemetry exporter,
// aggregated per name and label set.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		writeError(w, r, apperrors.NewServiceUnavailableError("Metrics exporter not initialized"))
		return
	}

	samples := metrics.Snapshot()
	if samples == nil {
		samples = []metrics.Sample{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(MetricsResponse{Metrics: samples})
}
