package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/discover"
	"github.com/Sumatoshi-tech/typimports/pkg/observability"
	"github.com/Sumatoshi-tech/typimports/pkg/report"
	"github.com/Sumatoshi-tech/typimports/pkg/version"
)

// CheckCommand holds the flags of the check command that are not config keys.
type CheckCommand struct {
	exitZero          bool
	ignoreParseErrors bool
	summary           bool
}

//nolint:gochecknoglobals // Read-only flag table.
var checkBindings = []flagBinding{
	{key: "check.sentinel_name", flag: "sentinel-name"},
	{key: "check.sentinel_modules", flag: "sentinel-module"},
	{key: "check.exclude", flag: "exclude"},
	{key: "check.include_hidden", flag: "include-hidden"},
	{key: "check.max_file_size", flag: "max-file-size"},
	{key: "check.workers", flag: "workers"},
	{key: "check.noqa", flag: "noqa"},
	{key: "output.format", flag: "format"},
	{key: "output.color", flag: "color"},
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cc := &CheckCommand{}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check Python files for type-only imports",
		Long: `Check Python files and directories for imports that are only used in
type annotations. Directories are walked recursively; "-" reads standard input.

Exit status is 0 when nothing was found, 1 when type-only imports were
reported and 2 when a file could not be read or parsed.`,
		RunE: cc.run,
	}

	flags := cmd.Flags()
	flags.String("format", config.DefaultFormat, "Output format: text, compact, table, json, yaml")
	flags.String("color", config.DefaultColor, "Color text output: auto, always, never")
	flags.String("sentinel-name", config.DefaultSentinelName, "Name that marks a type-checking guard")
	flags.StringSlice("sentinel-module", []string{config.DefaultSentinelModule}, "Modules the sentinel is imported from")
	flags.StringSlice("exclude", nil, "Glob patterns of paths to skip (e.g. 'migrations/*,*_pb2.py')")
	flags.Bool("include-hidden", config.DefaultIncludeHidden, "Walk hidden files and directories")
	flags.String("max-file-size", config.DefaultMaxFileSize, "Skip files larger than this (e.g. '512KB', '2MiB'; empty = no limit)")
	flags.Int("workers", config.DefaultWorkers, "Number of parallel workers (0 = use CPU count)")
	flags.Bool("noqa", config.DefaultNoQA, "Honour '# noqa' comments")
	flags.BoolVar(&cc.exitZero, "exit-zero", false, "Exit 0 even when type-only imports are found")
	flags.BoolVar(&cc.ignoreParseErrors, "ignore-parse-errors", false, "Do not fail on unreadable or unparsable files")
	flags.BoolVar(&cc.summary, "summary", true, "Print a summary line after text, compact and table output")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd, checkBindings)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer shutdown(providers)

	logger := providers.Logger
	ctx := cmd.Context()

	metrics, err := observability.NewCheckMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create check metrics: %w", err)
	}

	maxSize, err := cfg.Check.MaxFileSizeBytes()
	if err != nil {
		return err //nolint:wrapcheck // validated config; carries the sentinel.
	}

	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := discover.Discover(ctx, args, discover.Options{
		Logger:        logger,
		Exclude:       cfg.Check.Exclude,
		MaxFileSize:   maxSize,
		IncludeHidden: cfg.Check.IncludeHidden,
	})
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	logger.DebugContext(ctx, "discovered files", slog.Int("check.files", len(files)))

	runner := check.NewRunner(check.Options{
		Checker: checkerOptions(cfg),
		Logger:  logger,
		Metrics: metrics,
		Tracer:  providers.Tracer,
		Stdin:   cmd.InOrStdin(),
		Workers: cfg.Check.Workers,
		NoQA:    cfg.Check.NoQA,
	})

	res, err := runner.Run(ctx, files)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by the runner.
	}

	out := cmd.OutOrStdout()
	rep := report.New(res, version.Version)

	err = report.Write(out, rep, cfg.Output.Format, report.Options{
		Color:   useColor(cfg.Output.Color, out),
		Summary: cc.summary && !boolFlag(cmd, flagQuiet),
	})
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by report.
	}

	return cc.exitStatus(rep)
}

func (cc *CheckCommand) exitStatus(rep *report.Report) error {
	if rep.Summary.Failed > 0 && !cc.ignoreParseErrors {
		return &ExitCodeError{Code: ExitParseFailed, Reason: "some files could not be checked"}
	}

	if rep.Summary.Diagnostics > 0 && !cc.exitZero {
		return &ExitCodeError{Code: ExitFlagged, Reason: "type-only imports found"}
	}

	return nil
}

// useColor resolves the color mode; "auto" colors only a terminal stdout.
func useColor(mode string, out io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return out == os.Stdout && !color.NoColor
	}
}
