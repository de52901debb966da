package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/typimports/pkg/observability"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, point := range sum.DataPoints {
		total += point.Value
	}

	return total
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := observability.NewLogger(&buf, slog.LevelDebug, true, "test-svc", "ci", observability.ModeLSP)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "checked", "files", 3)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "lsp", record["mode"])
}

func TestNewLogger_TextDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := observability.NewLogger(&buf, slog.LevelWarn, false, "", "", observability.ModeCLI)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "service=typimports")
	assert.NotContains(t, out, "trace_id")
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	done := red.TrackInflight(ctx, "typimports_check")
	red.RecordRequest(ctx, "typimports_check", observability.StatusOK, 10*time.Millisecond)
	red.RecordRequest(ctx, "typimports_check", observability.StatusError, time.Millisecond)
	done()

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "typimports.requests.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "typimports.errors.total")))
	assert.NotNil(t, findMetric(rm, "typimports.request.duration.seconds"))
}

func TestREDMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var red *observability.REDMetrics

	assert.NotPanics(t, func() {
		red.RecordRequest(context.Background(), "op", observability.StatusOK, time.Second)
		red.TrackInflight(context.Background(), "op")()
	})
}

func TestCheckMetrics_RecordFile(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	cm, err := observability.NewCheckMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	cm.RecordFile(ctx, observability.FileStats{Outcome: observability.OutcomeFlagged, Diagnostics: 3, Duration: time.Millisecond})
	cm.RecordFile(ctx, observability.FileStats{Outcome: observability.OutcomeClean})
	cm.RecordFile(ctx, observability.FileStats{Outcome: observability.OutcomeParseError})

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(3), sumValue(t, findMetric(rm, "typimports.files.total")))
	assert.Equal(t, int64(3), sumValue(t, findMetric(rm, "typimports.diagnostics.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "typimports.parse.errors.total")))
	assert.NotNil(t, findMetric(rm, "typimports.file.duration.seconds"))

	var nilMetrics *observability.CheckMetrics

	assert.NotPanics(t, func() { nilMetrics.RecordFile(ctx, observability.FileStats{}) })
}

func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	filter := observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), nil)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(filter), sdktrace.WithSampler(sdktrace.AlwaysSample()))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(
		attribute.String("file.path", "a.py"),
		attribute.Int("diagnostics", 2),
		attribute.String("file.content", "import os"),
		attribute.String("user.name", "someone"),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	keys := make(map[string]bool)
	for _, kv := range spans[0].Attributes {
		keys[string(kv.Key)] = true
	}

	assert.True(t, keys["file.path"])
	assert.True(t, keys["diagnostics"])
	assert.False(t, keys["file.content"])
	assert.False(t, keys["user.name"])
}

func TestFilteringTracerProvider_DropsFileSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := observability.NewFilteringTracerProvider(tp).Tracer("test")

	_, fileSpan := tracer.Start(context.Background(), observability.SpanCheckFile)
	fileSpan.End()

	_, runSpan := tracer.Start(context.Background(), "typimports.check.run")
	runSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "typimports.check.run", spans[0].Name)
}

func TestHTTPMiddleware_CreatesSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	handler := observability.HTTPMiddleware(tp.Tracer("test"), http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /metrics", spans[0].Name)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInit_NoopWithoutExporters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogWriter = &buf

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	providers.Logger.Info("hello")
	assert.Contains(t, buf.String(), "hello")
	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, observability.ServeMetrics(context.Background(), ":0", providers))
}

func TestInit_PrometheusHandler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.LogWriter = &bytes.Buffer{}

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.MetricsHandler)

	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	cm, err := observability.NewCheckMetrics(providers.Meter)
	require.NoError(t, err)
	cm.RecordFile(context.Background(), observability.FileStats{Outcome: observability.OutcomeClean})

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "typimports_files")
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "secret", "tenant": "ci"},
		observability.ParseOTLPHeaders("api-key=secret, tenant = ci"))
}
