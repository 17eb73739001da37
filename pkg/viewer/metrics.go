package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tdtpview_fetch_total",
		Help: "Completed fetch cycles by outcome (loaded, empty, failed, stale).",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tdtpview_fetch_duration_seconds",
		Help:    "Time spent in the dataset source per fetch.",
		Buckets: prometheus.DefBuckets,
	})

	staleResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tdtpview_stale_results_total",
		Help: "Fetch results dropped because a newer dataset was requested.",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tdtpview_exports_total",
		Help: "Export commands by format and outcome (ok, unavailable, error).",
	}, []string{"format", "outcome"})
)
