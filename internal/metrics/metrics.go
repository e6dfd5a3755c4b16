package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are created eagerly so instrumented code never needs a nil check;
// Init registers them with the default registry.
var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentvote_vote_attempts_total",
			Help: "Vote submissions, by outcome.",
		},
		[]string{"outcome"},
	)

	SubmitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talentvote_vote_submit_duration_seconds",
			Help:    "Duration of backend vote submissions.",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentvote_snapshot_fetches_total",
			Help: "Snapshot fetch cycles, by outcome (success, error, discarded).",
		},
		[]string{"outcome"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talentvote_snapshot_fetch_duration_seconds",
			Help:    "Duration of snapshot fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)

	SkippedTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talentvote_refresh_skipped_total",
			Help: "Refresh triggers skipped because a fetch was already in flight.",
		},
	)

	SnapshotTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talentvote_snapshot_fetched_timestamp_seconds",
			Help: "Unix time of the currently published snapshot.",
		},
	)

	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talentvote_storage_errors_total",
			Help: "Vote store failures, by operation.",
		},
		[]string{"op"},
	)

	CorruptRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talentvote_vote_record_corrupt_total",
			Help: "Persisted vote records that failed to decode and were treated as absent.",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talentvote_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talentvote_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
)

var initOnce sync.Once

// Init registers all collectors. pool may be nil when the vote store is not PostgreSQL.
func Init(pool *pgxpool.Pool) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			VotesTotal,
			SubmitDuration,
			FetchesTotal,
			FetchDuration,
			SkippedTicks,
			SnapshotTimestamp,
			StorageErrors,
			CorruptRecords,
			RequestDuration,
			RequestsInFlight,
		)

		// DB pool gauges read live stats from pgxpool
		if pool != nil {
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "talentvote_db_connection_pool_active",
						Help: "Number of active database connections.",
					},
					func() float64 { return float64(pool.Stat().AcquiredConns()) },
				),
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "talentvote_db_connection_pool_idle",
						Help: "Number of idle database connections.",
					},
					func() float64 { return float64(pool.Stat().IdleConns()) },
				),
			)
		}
	})
}
