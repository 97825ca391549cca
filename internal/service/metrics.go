package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	versionsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doc_history",
		Name:      "versions_written_total",
		Help:      "Versions appended, by kind (save or revert).",
	}, []string{"kind"})

	versionInsertRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doc_history",
		Name:      "version_insert_retries_total",
		Help:      "Version inserts retried after a duplicate version number.",
	})

	opsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doc_history",
		Name:      "ops_written_total",
		Help:      "Operation log entries recorded.",
	})

	archivesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doc_history",
		Name:      "archives_written_total",
		Help:      "Room archives written to the archive storage.",
	})

	serviceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doc_history",
		Name:      "service_errors_total",
		Help:      "Service calls that returned an error, by method and response code.",
	}, []string{"method", "code"})
)

// RecordInsertRetry counts a retried version insert; wired into dao.WithRetryHook
// RecordInsertRetry 统计版本插入重试次数，通过 dao.WithRetryHook 注入
func RecordInsertRetry(roomID string, attempt int) {
	versionInsertRetries.Inc()
}
