package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Promotion source label values.
const (
	sourceRequest = "request"
	sourceCatalog = "catalog"
)

// Evaluation outcome label values.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_evaluations_total",
			Help: "Total number of cart evaluations",
		},
		[]string{"source", "outcome"},
	)

	evaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promotion_evaluation_duration_seconds",
			Help:    "Time spent in the evaluation engine in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"source"},
	)

	promotionsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_applied_total",
			Help: "Total number of promotions applied to carts",
		},
		[]string{"promotion_id"},
	)

	promotionsIneligibleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_ineligible_total",
			Help: "Total number of promotions rejected during evaluation, by reason code",
		},
		[]string{"code"},
	)
)
