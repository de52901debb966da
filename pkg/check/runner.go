// Package check runs the type-only import checker over many files.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/typimports/pkg/discover"
	"github.com/Sumatoshi-tech/typimports/pkg/observability"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

// StdinName is the display name of source read from standard input.
const StdinName = "stdin"

const spanRun = "typimports.check.run"

// ErrRead marks files that could not be read.
var ErrRead = errors.New("read failed")

// Options configures a [Runner].
type Options struct {
	// Checker tunes guard recognition.
	Checker typeonly.Options
	// Logger receives progress and failures. Nil uses [slog.Default].
	Logger *slog.Logger
	// Metrics records per-file outcomes. Nil disables recording.
	Metrics *observability.CheckMetrics
	// Tracer creates run and per-file spans. Nil uses a no-op tracer.
	Tracer trace.Tracer
	// Stdin is read for the "-" path. Nil uses [os.Stdin].
	Stdin io.Reader
	// Workers bounds concurrency. Zero uses GOMAXPROCS.
	Workers int
	// NoQA honours "# noqa" comments.
	NoQA bool
}

// FileResult is the outcome of checking one file.
type FileResult struct {
	Path        string                `json:"path"                 yaml:"path"`
	Diagnostics []typeonly.Diagnostic `json:"diagnostics"          yaml:"diagnostics"`
	Suppressed  int                   `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Error       string                `json:"error,omitempty"      yaml:"error,omitempty"`

	// Err is the read or parse failure, if any.
	Err error `json:"-" yaml:"-"`
}

// Result aggregates a run.
type Result struct {
	Files    []FileResult
	Duration time.Duration
}

// DiagnosticCount returns the number of reported diagnostics.
func (res *Result) DiagnosticCount() int {
	total := 0

	for _, file := range res.Files {
		total += len(file.Diagnostics)
	}

	return total
}

// FailedCount returns the number of files that could not be checked.
func (res *Result) FailedCount() int {
	failed := 0

	for _, file := range res.Files {
		if file.Err != nil {
			failed++
		}
	}

	return failed
}

// Err joins the per-file failures.
func (res *Result) Err() error {
	errs := make([]error, 0, len(res.Files))

	for _, file := range res.Files {
		if file.Err != nil {
			errs = append(errs, file.Err)
		}
	}

	return errors.Join(errs...)
}

// Runner checks files concurrently. It is safe for concurrent use.
type Runner struct {
	parser  *pyparse.Parser
	checker *typeonly.Checker
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("typimports")
	}

	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	return &Runner{
		parser:  pyparse.NewParser(),
		checker: typeonly.NewChecker(opts.Checker),
		opts:    opts,
		logger:  logger,
		tracer:  tracer,
	}
}

// Checker returns the underlying checker.
func (r *Runner) Checker() *typeonly.Checker {
	return r.checker
}

// Run checks files and returns results sorted by path. Per-file failures are
// recorded in the result; the error is non-nil only when ctx ends the run.
func (r *Runner) Run(ctx context.Context, files []discover.File) (*Result, error) {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, spanRun, trace.WithAttributes(attribute.Int("check.files", len(files))))
	defer span.End()

	results := make([]FileResult, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers())

	for idx, file := range files {
		group.Go(func() error {
			err := groupCtx.Err()
			if err != nil {
				return err //nolint:wrapcheck // context error is wrapped below
			}

			results[idx] = r.checkFile(groupCtx, file)

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		span.SetStatus(codes.Error, waitErr.Error())

		return nil, fmt.Errorf("check: %w", waitErr)
	}

	slices.SortFunc(results, func(a, b FileResult) int { return strings.Compare(a.Path, b.Path) })

	res := &Result{Files: results, Duration: time.Since(start)}

	span.SetAttributes(attribute.Int("diagnostics", res.DiagnosticCount()))
	r.logger.DebugContext(ctx, "check finished",
		slog.Int("check.files", len(files)),
		slog.Int("diagnostics", res.DiagnosticCount()),
		slog.Duration("check.duration", res.Duration),
	)

	return res, nil
}

func (r *Runner) workers() int {
	if r.opts.Workers > 0 {
		return r.opts.Workers
	}

	return runtime.GOMAXPROCS(0)
}

func (r *Runner) checkFile(ctx context.Context, file discover.File) FileResult {
	start := time.Now()
	name := file.Path

	if file.Stdin {
		name = StdinName
	}

	ctx, span := r.tracer.Start(ctx, observability.SpanCheckFile, trace.WithAttributes(attribute.String("file.path", name)))
	defer span.End()

	result := FileResult{Path: name}

	src, err := r.read(file)
	if err == nil {
		result.Diagnostics, result.Suppressed, err = r.check(ctx, name, src)
	}

	outcome := observability.OutcomeClean

	switch {
	case err != nil:
		result.Err = err
		result.Error = err.Error()
		outcome = observability.OutcomeSkipped

		if errors.Is(err, pyparse.ErrSyntax) {
			outcome = observability.OutcomeParseError
		}

		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "file not checked", slog.String("file.path", name), slog.Any("error", err))
	case len(result.Diagnostics) > 0:
		outcome = observability.OutcomeFlagged
	}

	if result.Diagnostics == nil {
		result.Diagnostics = []typeonly.Diagnostic{}
	}

	span.SetAttributes(attribute.Int("diagnostics", len(result.Diagnostics)))
	r.opts.Metrics.RecordFile(ctx, observability.FileStats{
		Outcome:     outcome,
		Diagnostics: len(result.Diagnostics),
		Duration:    time.Since(start),
	})

	return result
}

func (r *Runner) read(file discover.File) ([]byte, error) {
	var (
		src []byte
		err error
	)

	if file.Stdin {
		src, err = io.ReadAll(r.opts.Stdin)
	} else {
		src, err = os.ReadFile(file.Path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, file.Path, err)
	}

	return src, nil
}

// CheckSource parses src and returns its unsuppressed diagnostics.
func (r *Runner) CheckSource(ctx context.Context, name string, src []byte) ([]typeonly.Diagnostic, error) {
	diags, _, err := r.check(ctx, name, src)

	return diags, err
}

func (r *Runner) check(ctx context.Context, name string, src []byte) ([]typeonly.Diagnostic, int, error) {
	tree, err := r.parser.Parse(ctx, name, src)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck // parse errors already carry the file name
	}

	diags := r.checker.Collect(tree)
	if !r.opts.NoQA {
		return diags, 0, nil
	}

	kept, suppressed := parseNoQA(src).filter(diags)

	return kept, suppressed, nil
}
