package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem is the global telemetry system
	TelemetrySystem *telemetry.System

	// PrometheusExporter stores every emitted event and, when started, serves
	// them in Prometheus text format on its own listener.
	PrometheusExporter *exporters.PrometheusExporter

	// metricsPort is the port the exporter listener bound to, zero when the
	// exporter runs in-process only.
	metricsPort int
)

// InitMetrics initializes the telemetry system backed by a Prometheus exporter.
// A positive port also starts the exporter's scrape listener on that port;
// zero or negative keeps the exporter in-process, where the status server
// reads it for /metrics.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	metricNamespace := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		metricNamespace = namespace[0]
	}

	if PrometheusExporter != nil {
		_ = PrometheusExporter.Stop()
	}
	metricsPort = 0

	PrometheusExporter = exporters.NewPrometheusExporter(metricNamespace, fmt.Sprintf(":%d", max(port, 0)))

	if port > 0 {
		if err := PrometheusExporter.Start(); err != nil {
			return err
		}
		if actual, err := resolvePort(PrometheusExporter.GetAddr()); err == nil {
			metricsPort = actual
		} else {
			metricsPort = port
		}
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: PrometheusExporter,
	})
	if err != nil {
		return err
	}
	TelemetrySystem = sys

	return nil
}

// StopMetrics closes the exporter listener, if any. Recorded events stay
// readable until the next InitMetrics.
func StopMetrics() error {
	if PrometheusExporter == nil {
		return nil
	}
	metricsPort = 0
	return PrometheusExporter.Stop()
}

// GetMetricsPort returns the port the Prometheus exporter is listening on
func GetMetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
