// Package metrics holds the prometheus collectors for wallet and biometric
// operations. A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "verox"

type Recorder struct {
	registry       *prometheus.Registry
	walletOps      *prometheus.CounterVec
	cryptoSeconds  *prometheus.HistogramVec
	prompts        *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	nativeRequests *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Wallet keystore operations by kind and result.",
		}, []string{"operation", "result"}),
		cryptoSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keystore",
			Name:      "crypto_seconds",
			Help:      "Time spent deriving keys and sealing or opening keystores.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation"}),
		prompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "biometric",
			Name:      "prompts_total",
			Help:      "Biometric prompts by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "biometric",
			Name:      "operations_total",
			Help:      "Register, verify and unregister calls by result.",
		}, []string{"operation", "result"}),
		nativeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "native_host",
			Name:      "requests_total",
			Help:      "Native messaging requests by action and result.",
		}, []string{"action", "result"}),
	}
	r.registry.MustRegister(r.walletOps, r.cryptoSeconds, r.prompts, r.verifications, r.nativeRequests)
	return r
}

func (r *Recorder) WalletOp(operation, result string) {
	if r == nil {
		return
	}
	r.walletOps.WithLabelValues(operation, result).Inc()
}

func (r *Recorder) CryptoDuration(operation string, started time.Time) {
	if r == nil {
		return
	}
	r.cryptoSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (r *Recorder) Prompt(outcome string) {
	if r == nil {
		return
	}
	r.prompts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) BiometricOp(operation, result string) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(operation, result).Inc()
}

func (r *Recorder) NativeRequest(action, result string) {
	if r == nil {
		return
	}
	r.nativeRequests.WithLabelValues(action, result).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
// Short-lived processes use it instead of serving /metrics.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
