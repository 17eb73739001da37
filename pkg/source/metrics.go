package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tdtpview_cache_lookups_total",
	Help: "Dataset cache lookups by result (hit, miss, corrupt, error).",
}, []string{"result"})
