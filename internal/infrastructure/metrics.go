package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AppMetrics holds the application instruments. A nil *AppMetrics records nothing.
type AppMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Statement analysis metrics
	FilesAnalyzed    metric.Int64Counter
	AnalysisFailures metric.Int64Counter
	RowsRead         metric.Int64Counter
	RowsDropped      metric.Int64Counter
	RowsFiltered     metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	BatchesTotal     metric.Int64Counter
	BatchSize        metric.Int64Histogram

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// WebSocket metrics
	WebSocketClients metric.Int64UpDownCounter
}

// NewAppMetrics creates the instruments on meter.
func NewAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.FilesAnalyzed, "statement_files_analyzed_total", "Statement files processed, by status"},
		{&m.AnalysisFailures, "statement_analysis_failures_total", "Failed statement files, by error kind"},
		{&m.RowsRead, "statement_rows_read_total", "Transaction table rows read"},
		{&m.RowsDropped, "statement_rows_dropped_total", "Rows dropped for an unparseable grouping time"},
		{&m.RowsFiltered, "statement_rows_filtered_total", "Rows removed by the symbol filter"},
		{&m.BatchesTotal, "statement_batches_total", "Analysis batches processed"},
		{&m.CacheHits, "analysis_cache_hits_total", "Analysis result cache hits"},
		{&m.CacheMisses, "analysis_cache_misses_total", "Analysis result cache misses"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.AnalysisDuration, err = meter.Float64Histogram(
		"statement_analysis_duration_seconds",
		metric.WithDescription("Time to analyze one statement file"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.BatchSize, err = meter.Int64Histogram(
		"statement_batch_size",
		metric.WithDescription("Files per analysis batch"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.WebSocketClients, err = meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Connected progress stream clients"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// FileStats is what the analysis metrics need to know about one file.
type FileStats struct {
	ErrorKind string // empty on success
	RowsRead  int
	Dropped   int
	Filtered  int
	Duration  time.Duration
}

// RecordFile records the outcome of one statement file.
func (m *AppMetrics) RecordFile(ctx context.Context, s FileStats) {
	if m == nil {
		return
	}

	status := "success"
	if s.ErrorKind != "" {
		status = "failure"
		m.AnalysisFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", s.ErrorKind)))
	}
	statusAttr := metric.WithAttributes(attribute.String("status", status))
	m.FilesAnalyzed.Add(ctx, 1, statusAttr)
	m.AnalysisDuration.Record(ctx, s.Duration.Seconds(), statusAttr)

	m.RowsRead.Add(ctx, int64(s.RowsRead))
	m.RowsDropped.Add(ctx, int64(s.Dropped))
	m.RowsFiltered.Add(ctx, int64(s.Filtered))
}

// RecordBatch records a finished batch of size files.
func (m *AppMetrics) RecordBatch(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.BatchesTotal.Add(ctx, 1)
	m.BatchSize.Record(ctx, int64(size))
}

// RecordCache records one cache lookup.
func (m *AppMetrics) RecordCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Add(ctx, 1)
		return
	}
	m.CacheMisses.Add(ctx, 1)
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// AddActiveRequests moves the active request gauge by delta.
func (m *AppMetrics) AddActiveRequests(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}

// AddWebSocketClients moves the connected client gauge by delta.
func (m *AppMetrics) AddWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}
