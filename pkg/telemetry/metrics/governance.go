// Package metrics exposes Prometheus metrics for the governance engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden-hq/warden/pkg/rules/engine"
)

const namespace = "warden"

// Collector tracks governance decision metrics.
//
// Metrics:
//   - warden_evaluations_total: Total action evaluations by decision status
//   - warden_evaluation_duration_seconds: Evaluation duration
//   - warden_rule_matches_total: Number of times a rule matched
//   - warden_approvals_requested_total: Approval requests created, by priority
//   - warden_rate_limit_hits_total: Rate limit trips, by rule
type Collector struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	ruleMatchesTotal   *prometheus.CounterVec
	approvalsTotal     *prometheus.CounterVec
	rateLimitHitsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates and registers governance metrics with the provided
// registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of action evaluations by decision status",
			},
			[]string{"status"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of action evaluation in seconds",
				// Evaluations are computation-bound and fast (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of rule matches",
			},
			[]string{"rule_id"},
		),

		approvalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "approvals_requested_total",
				Help:      "Total number of approval requests created",
			},
			[]string{"priority"},
		),

		rateLimitHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit trips",
			},
			[]string{"rule_id"},
		),
	}

	registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.ruleMatchesTotal,
		c.approvalsTotal,
		c.rateLimitHitsTotal,
	)

	return c
}

// RecordEvaluation records one completed action evaluation.
func (c *Collector) RecordEvaluation(status engine.Status, duration time.Duration) {
	c.evaluationsTotal.WithLabelValues(string(status)).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
}

// RecordRuleMatch records one rule match.
func (c *Collector) RecordRuleMatch(ruleID string) {
	c.ruleMatchesTotal.WithLabelValues(ruleID).Inc()
}

// RecordApprovalRequested records one approval request creation.
func (c *Collector) RecordApprovalRequested(priority string) {
	c.approvalsTotal.WithLabelValues(priority).Inc()
}

// RecordRateLimitHit records one rate limit trip.
func (c *Collector) RecordRateLimitHit(ruleID string) {
	c.rateLimitHitsTotal.WithLabelValues(ruleID).Inc()
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
