package main

import "github.com/prometheus/client_golang/prometheus"

// Proof-engine signals: lookups served, proofs dropped during
// decompression, time spent waiting on the decompressor pool, and
// validator mismatches — re-pointed at this domain from the teacher's
// RPC-request metrics.go pattern.

func init() {
	prometheus.MustRegister(metricsProofsDecompressed)
	prometheus.MustRegister(metricsProofsDropped)
	prometheus.MustRegister(metricsPoolWaitSeconds)
	prometheus.MustRegister(metricsValidatorTotalProofs)
	prometheus.MustRegister(metricsValidatorMismatches)
	prometheus.MustRegister(metricsLookupDuration)
}

var metricsProofsDecompressed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proof_engine_proofs_decompressed_total",
		Help: "Proofs successfully decompressed from seeds back to full x values",
	},
	[]string{"compression_level"},
)

var metricsProofsDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proof_engine_proofs_dropped_total",
		Help: "Proof lookups that hit a dropped (unrecoverable) seed",
	},
	[]string{"compression_level"},
)

var metricsPoolWaitSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "proof_engine_decompressor_pool_wait_seconds",
		Help:    "Time spent waiting for a free decompressor pool instance",
		Buckets: prometheus.DefBuckets,
	},
)

var metricsValidatorTotalProofs = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "proof_engine_validator_proofs_checked_total",
		Help: "f7 entries re-derived by the plot validator",
	},
)

var metricsValidatorMismatches = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "proof_engine_validator_mismatches_total",
		Help: "f7 mismatches found by the plot validator",
	},
)

var metricsLookupDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "proof_engine_lookup_duration_seconds",
		Help:    "Wall-clock time of a quality/proof lookup, by CLI subcommand",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)
