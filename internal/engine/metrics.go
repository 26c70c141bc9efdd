package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mEnqueuedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iseven_keys_enqueued_total",
			Help: "The total number of keys the producer handed to the queue.",
		},
	)
	mEvaluatedKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iseven_keys_evaluated_total",
			Help: "The total number of keys evaluated, by verdict.",
		},
		[]string{"verdict"},
	)
	mLoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iseven_load_errors_total",
			Help: "The total number of keys whose computation could not be loaded.",
		},
	)
	mEvaluateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iseven_evaluate_latency_seconds",
			Help:    "The duration taken to evaluate one key.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
	mQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iseven_queue_depth",
			Help: "The number of keys waiting in the queue, sampled by the progress reporter.",
		},
	)
	mRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iseven_runs_total",
			Help: "The total number of scans, by final status.",
		},
		[]string{"status"},
	)
)
