package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal       = "typimports.files.total"
	metricDiagnosticsTotal = "typimports.diagnostics.total"
	metricParseErrorsTotal = "typimports.parse.errors.total"
	metricFileDuration     = "typimports.file.duration.seconds"

	attrOutcome = "outcome"
)

// File outcomes recorded by [CheckMetrics.RecordFile].
const (
	OutcomeClean      = "clean"
	OutcomeFlagged    = "flagged"
	OutcomeParseError = "parse_error"
	OutcomeSkipped    = "skipped"
)

// CheckMetrics holds OTel instruments for per-file check results.
type CheckMetrics struct {
	filesTotal       metric.Int64Counter
	diagnosticsTotal metric.Int64Counter
	parseErrorsTotal metric.Int64Counter
	fileDuration     metric.Float64Histogram
}

// FileStats is the outcome of checking one file.
type FileStats struct {
	Outcome     string
	Diagnostics int
	Duration    time.Duration
}

// NewCheckMetrics creates check metric instruments from the given meter.
func NewCheckMetrics(mt metric.Meter) (*CheckMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Total Python files checked"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	diags, err := mt.Int64Counter(metricDiagnosticsTotal,
		metric.WithDescription("Total TYP001 diagnostics reported"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiagnosticsTotal, err)
	}

	parseErrors, err := mt.Int64Counter(metricParseErrorsTotal,
		metric.WithDescription("Total files rejected with syntax errors"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricParseErrorsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricFileDuration,
		metric.WithDescription("Per-file read, parse and check duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileDuration, err)
	}

	return &CheckMetrics{
		filesTotal:       files,
		diagnosticsTotal: diags,
		parseErrorsTotal: parseErrors,
		fileDuration:     duration,
	}, nil
}

// RecordFile records one checked file. Safe to call on a nil receiver.
func (cm *CheckMetrics) RecordFile(ctx context.Context, stats FileStats) {
	if cm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, stats.Outcome))

	cm.filesTotal.Add(ctx, 1, attrs)
	cm.fileDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	cm.diagnosticsTotal.Add(ctx, int64(stats.Diagnostics))

	if stats.Outcome == OutcomeParseError {
		cm.parseErrorsTotal.Add(ctx, 1)
	}
}
