package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dayahead_fetches_total",
		Help: "Total number of price refreshes by outcome",
	}, []string{"market", "outcome"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dayahead_fetch_duration_seconds",
		Help:    "Time spent fetching today's and tomorrow's prices",
		Buckets: prometheus.DefBuckets,
	}, []string{"market"})

	Intervals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dayahead_price_intervals",
		Help: "Number of price intervals in the latest series",
	}, []string{"market"})

	LastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dayahead_last_success_timestamp_seconds",
		Help: "Unix time of the last successful price refresh",
	}, []string{"market"})

	CurrentPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dayahead_current_price_eur_per_kwh",
		Help: "Price of the interval covering now",
	}, []string{"market"})
)
