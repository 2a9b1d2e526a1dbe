package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	Attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evm_discovery",
		Name:      "attempts_total",
		Help:      "Total discovery pass attempts by result",
	}, []string{"result"})

	Retries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "evm_discovery",
		Name:      "retries_total",
		Help:      "Total number of retry waits scheduled after a failed attempt",
	})

	Passes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evm_discovery",
		Name:      "passes_total",
		Help:      "Total discovery passes by final result",
	}, []string{"result"})

	SanityChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evm_discovery",
		Name:      "sanity_checks_total",
		Help:      "Total sanity checks by result",
	}, []string{"result"})

	Entries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "evm_discovery",
		Name:      "entries",
		Help:      "Number of entries produced by the last successful pass",
	})
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Attempts)
		prometheus.MustRegister(Retries)
		prometheus.MustRegister(Passes)
		prometheus.MustRegister(SanityChecks)
		prometheus.MustRegister(Entries)
	})
}

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
