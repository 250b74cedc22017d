// internal/service/transaction/application/saga/metrics.go
package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compensationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensation_attempts_total",
		Help: "Number of compensating actions executed after a partial failure.",
	}, []string{"step"})

	compensationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensation_failures_total",
		Help: "Number of compensating actions that themselves failed, leaving ledger and stock divergent.",
	}, []string{"step"})
)
