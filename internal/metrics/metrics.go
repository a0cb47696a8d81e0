// Package metrics 定义 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts feed and page fetches by outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsrelay",
			Name:      "fetch_total",
			Help:      "Total number of feed and page fetches",
		},
		[]string{"kind", "status"},
	)

	// SendTotal counts outbound photo and text sends.
	SendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsrelay",
			Name:      "send_total",
			Help:      "Total number of messages sent to the channel",
		},
		[]string{"kind", "status"},
	)

	// ItemsTotal counts processed feed items.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsrelay",
			Name:      "items_total",
			Help:      "Total number of feed items processed",
		},
		[]string{"result"},
	)

	// RunDuration measures a full pass over all feeds.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsrelay",
			Name:      "run_duration_seconds",
			Help:      "Duration of a relay run in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)
)

// RecordFetch records a fetch outcome, kind is "feed" or "page".
func RecordFetch(kind, status string) {
	FetchTotal.WithLabelValues(kind, status).Inc()
}

// RecordSend records a send outcome, kind is "photo" or "text".
func RecordSend(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SendTotal.WithLabelValues(kind, status).Inc()
}

// RecordItem records the result of one feed item.
func RecordItem(result string) {
	ItemsTotal.WithLabelValues(result).Inc()
}
