// Package metrics exposes Prometheus metrics for statements executed against
// the server and pushes them to a Pushgateway at the end of a task.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("indexima_default")
//	timer := metrics.NewTimer("load")
//	err := cursor.Execute(ctx, sql)
//	collector.RecordStatement(metrics.StatementKind(sql), timer.Stop(), err)
//
// Batch tasks are short lived, so the CLI pushes the default registry once
// the task finishes:
//
//	_ = metrics.Push(ctx, "http://pushgateway:9091", "indexima_load")
package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Statement outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDryRun  = "dry_run"
)

var (
	// StatementsExecuted counts statements by connection, kind and outcome.
	//
	// Example:
	//	metrics.StatementsExecuted.WithLabelValues("indexima_default", "load", "success").Inc()
	StatementsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexima_statements_total",
			Help: "Total number of statements sent to the server",
		},
		[]string{"connection", "kind", "status"},
	)

	// StatementLatency tracks statement durations in seconds. Loads can run
	// for hours so the buckets go well past the usual request range.
	StatementLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "indexima_statement_duration_seconds",
			Help: "Statement execution time in seconds",
			Buckets: []float64{
				0.01, 0.1, 1, 10, 60, 300, 900, 3600, 4 * 3600,
			},
		},
		[]string{"connection", "kind"},
	)

	// LoadErrorRows counts files reported with errors by load statements
	LoadErrorRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexima_load_error_rows_total",
			Help: "Number of load result rows reporting errors",
		},
		[]string{"connection"},
	)

	// ActiveSessions tracks open server sessions
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexima_active_sessions",
			Help: "Number of open server sessions",
		},
		[]string{"connection"},
	)

	// SessionOpenFailures counts failed session opens
	SessionOpenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexima_session_open_failures_total",
			Help: "Number of failed session opens",
		},
		[]string{"connection"},
	)
)

// Collector records the metrics of one connection
type Collector struct {
	connection string
	startTime  time.Time
}

// NewCollector creates a collector labelled with connection
func NewCollector(connection string) *Collector {
	return &Collector{connection: connection, startTime: time.Now()}
}

// Connection returns the connection label
func (c *Collector) Connection() string {
	return c.connection
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// RecordStatement records one executed statement
func (c *Collector) RecordStatement(kind string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	StatementsExecuted.WithLabelValues(c.connection, kind, status).Inc()
	StatementLatency.WithLabelValues(c.connection, kind).Observe(duration.Seconds())
}

// RecordDryRun records a statement that was only logged
func (c *Collector) RecordDryRun(kind string) {
	StatementsExecuted.WithLabelValues(c.connection, kind, StatusDryRun).Inc()
}

// RecordLoadErrors adds n failed load result rows
func (c *Collector) RecordLoadErrors(n int) {
	if n > 0 {
		LoadErrorRows.WithLabelValues(c.connection).Add(float64(n))
	}
}

// SessionOpened records a successful or failed session open
func (c *Collector) SessionOpened(err error) {
	if err != nil {
		SessionOpenFailures.WithLabelValues(c.connection).Inc()
		return
	}
	ActiveSessions.WithLabelValues(c.connection).Inc()
}

// SessionClosed records a closed session
func (c *Collector) SessionClosed() {
	ActiveSessions.WithLabelValues(c.connection).Dec()
}

// StatementKind returns the lower-cased leading keyword of sql, used as a
// low-cardinality label
func StatementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "empty"
	}
	kind := strings.ToLower(strings.TrimSuffix(fields[0], ";"))
	switch kind {
	case "load", "commit", "rollback", "pause", "truncate", "use", "select", "insert", "create", "drop", "show":
		return kind
	}
	return "other"
}

// Timer measures an operation duration
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{start: time.Now(), name: name}
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Push sends every metric of the default registry to a Pushgateway under job
func Push(ctx context.Context, url, job string) error {
	return PushFrom(ctx, url, job, prometheus.DefaultGatherer)
}

// PushFrom sends the metrics of g to a Pushgateway under job
func PushFrom(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}
