// Package metrics exposes the detection pipeline's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LogsEvaluated counts log records run through the Sigma engine.
	LogsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_logs_evaluated_total",
			Help: "Total number of log records evaluated against Sigma rules",
		},
		[]string{"organization"},
	)

	// SigmaMatches counts rule matches by severity.
	SigmaMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_sigma_matches_total",
			Help: "Total number of Sigma rule matches",
		},
		[]string{"organization", "level"},
	)

	// AlertTriggers counts threshold rule firings.
	AlertTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_alert_triggers_total",
			Help: "Total number of threshold alert rule triggers",
		},
	)

	// AlertCheckErrors counts per-rule failures isolated during a scan.
	AlertCheckErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_alert_check_errors_total",
			Help: "Total number of per-rule errors during alert rule scans",
		},
	)

	// NotificationFailures counts failed channel deliveries.
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"channel"},
	)

	// RuleCacheHits and RuleCacheMisses track rule-set cache effectiveness.
	RuleCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_rule_cache_hits_total",
			Help: "Total number of rule cache hits",
		},
	)
	RuleCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_rule_cache_misses_total",
			Help: "Total number of rule cache misses",
		},
	)
)
