// Package metrics holds the Prometheus collectors shared by the bot and the
// dashboard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intent_bot"

// Update outcomes.
const (
	OutcomeHandled = "handled"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Telegram updates by outcome.",
	}, []string{"outcome"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Predicted intent tags.",
	}, []string{"tag"})

	ConversationsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversations_saved_total",
		Help:      "Conversation records written to the store.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Dashboard requests by method, route and status.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Dashboard request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler exposes the default registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
