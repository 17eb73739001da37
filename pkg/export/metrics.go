package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tdtpview_export_bytes_total",
		Help: "Bytes of export artifacts handed to sinks, after compression.",
	}, []string{"format"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tdtpview_export_deliveries_total",
		Help: "Artifact deliveries by sink and outcome.",
	}, []string{"sink", "outcome"})
)
