package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine bridge metrics, registered on the default registry.
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statbridge",
		Name:      "runs_total",
		Help:      "Script runs by engine and outcome.",
	}, []string{"engine", "outcome"})

	RunSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "statbridge",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of script runs.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"engine"})

	EngineRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statbridge",
		Name:      "engine_restarts_total",
		Help:      "Runtime process restarts by engine and reason.",
	}, []string{"engine", "reason"})
)

// Run outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeScriptError = "script_error"
	OutcomeBridgeError = "bridge_error"
)

// Expose serves the default registry on /metrics.
func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
