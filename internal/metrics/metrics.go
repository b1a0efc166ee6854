package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrtingester_records_total",
			Help: "MRT records read, by record kind.",
		},
		[]string{"kind"},
	)

	RecordErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrtingester_record_errors_total",
			Help: "Per-record decode failures and warnings.",
		},
		[]string{"reason"},
	)

	BytesDecodedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mrtingester_bytes_decoded_total",
			Help: "Dump bytes walked by the record stream.",
		},
	)

	StreamFaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mrtingester_stream_faults_total",
			Help: "Dumps abandoned on a truncated record header.",
		},
	)

	DBWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrtingester_db_write_duration_seconds",
			Help:    "DB write latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"op"},
	)

	DBRowsAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrtingester_db_rows_affected_total",
			Help: "DB rows written or deleted.",
		},
		[]string{"table", "op"},
	)

	DedupConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mrtingester_dedup_conflicts_total",
			Help: "Entries already present (ON CONFLICT DO NOTHING skips).",
		},
	)

	KafkaRecordsProducedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrtingester_kafka_records_produced_total",
			Help: "Entries published to Kafka.",
		},
		[]string{"topic"},
	)

	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrtingester_batch_size",
			Help:    "Batch sizes flushed to a sink.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2000, 5000},
		},
		[]string{"sink"},
	)

	LastRecordTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrtingester_last_record_timestamp_seconds",
			Help: "MRT timestamp of the last record read.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RecordsTotal,
			RecordErrorsTotal,
			BytesDecodedTotal,
			StreamFaultsTotal,
			DBWriteDuration,
			DBRowsAffectedTotal,
			DedupConflictsTotal,
			KafkaRecordsProducedTotal,
			BatchSize,
			LastRecordTimestamp,
		)
	})
}
