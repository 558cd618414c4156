package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "auth",
	Name:      "requests_total",
	Help:      "Authentication requests by operation and outcome.",
}, []string{"operation", "outcome"})

func observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	authRequests.WithLabelValues(operation, outcome).Inc()
}
