package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "refurb_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	deviceTransitions *prometheus.CounterVec

	repairsOpened    prometheus.Counter
	repairsCompleted prometheus.Counter

	importRows *prometheus.CounterVec

	exportTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total diagnostic ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total diagnostic ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Diagnostic ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		deviceTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_transitions_total",
				Help: "Total device lifecycle transitions by target status",
			},
			[]string{"to"},
		)

		repairsOpened = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "repairs_opened_total",
				Help: "Total repairs opened",
			},
		)
		repairsCompleted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "repairs_completed_total",
				Help: "Total repairs completed",
			},
		)

		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "shipment_import_rows_total",
				Help: "Total shipment manifest rows by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			deviceTransitions,
			repairsOpened,
			repairsCompleted,
			importRows,
			exportTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "repairs_open",
			Help: "Repairs currently open",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM repairs WHERE closed_at IS NULL")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "devices_needing_repair",
			Help: "Devices in the repair queue",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM devices WHERE status IN ('needs_repair', 'in_repair')")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments the ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncDeviceTransition counts a lifecycle transition.
func IncDeviceTransition(to string) {
	if to == "" {
		to = "unknown"
	}
	if deviceTransitions != nil {
		deviceTransitions.WithLabelValues(to).Inc()
	}
}

// IncRepairOpened counts an opened repair.
func IncRepairOpened() {
	if repairsOpened != nil {
		repairsOpened.Inc()
	}
}

// IncRepairCompleted counts a completed repair.
func IncRepairCompleted() {
	if repairsCompleted != nil {
		repairsCompleted.Inc()
	}
}

// AddImportRows counts manifest rows by outcome.
func AddImportRows(outcome string, count int) {
	if count <= 0 {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	if importRows != nil {
		importRows.WithLabelValues(outcome).Add(float64(count))
	}
}

// IncExport counts a report export.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
