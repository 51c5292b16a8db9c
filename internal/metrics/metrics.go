// Package metrics exposes the process's Prometheus instrumentation: send
// queue depth, IMAP reconnect count, and rule-application outcomes
// (spec §6 "/metrics").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meremail",
		Subsystem: "sendqueue",
		Name:      "depth",
		Help:      "Number of messages currently eligible for a send attempt.",
	})

	IMAPReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meremail",
		Subsystem: "imapingest",
		Name:      "reconnects_total",
		Help:      "Total number of primary-session IMAP reconnect attempts.",
	})

	RuleApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meremail",
		Subsystem: "ruleengine",
		Name:      "applications_total",
		Help:      "Retroactive rule applications by outcome.",
	}, []string{"outcome"})
)
