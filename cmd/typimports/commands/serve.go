package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/lsp"
	"github.com/Sumatoshi-tech/typimports/pkg/mcp"
	"github.com/Sumatoshi-tech/typimports/pkg/observability"
	"github.com/Sumatoshi-tech/typimports/pkg/version"
)

//nolint:gochecknoglobals // Read-only flag table.
var serveBindings = []flagBinding{
	{key: "check.sentinel_name", flag: "sentinel-name"},
	{key: "check.sentinel_modules", flag: "sentinel-module"},
	{key: "telemetry.metrics_addr", flag: "metrics-addr"},
}

// NewLSPCommand creates the language server command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server (stdio)",
		Long: `Start a Language Server Protocol server on stdio. Open Python documents get
TYP001 warnings on open, change and save; hovering a flagged import shows how
to move it under "if TYPE_CHECKING:".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, observability.ModeLSP, runLSP)
		},
	}

	addServeFlags(cmd)

	return cmd
}

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the checker as tools that AI agents can discover and
invoke:
  - typimports_check: Report type-only imports in inline Python code
  - typimports_classify: Explain how every imported name is used
  - typimports_parse: Dump the simplified syntax tree`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, observability.ModeMCP, runMCP)
		},
	}

	addServeFlags(cmd)

	return cmd
}

func addServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("sentinel-name", config.DefaultSentinelName, "Name that marks a type-checking guard")
	flags.StringSlice("sentinel-module", []string{config.DefaultSentinelModule}, "Modules the sentinel is imported from")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "Serve Prometheus metrics on this address (e.g. ':9464')")
}

type serveFunc func(ctx context.Context, cfg *config.Config, deps serveDeps) error

type serveDeps struct {
	providers observability.Providers
	red       *observability.REDMetrics
}

func runLSP(ctx context.Context, cfg *config.Config, deps serveDeps) error {
	runner := check.NewRunner(check.Options{
		Checker: checkerOptions(cfg),
		Logger:  deps.providers.Logger,
		Tracer:  deps.providers.Tracer,
		NoQA:    cfg.Check.NoQA,
	})

	srv := lsp.NewServer(lsp.ServerDeps{
		Runner:  runner,
		Logger:  deps.providers.Logger,
		Metrics: deps.red,
		Tracer:  deps.providers.Tracer,
		Version: version.Version,
	})

	return srv.Run(ctx) //nolint:wrapcheck // already wrapped by lsp.
}

func runMCP(ctx context.Context, cfg *config.Config, deps serveDeps) error {
	srv := mcp.NewServer(mcp.ServerDeps{
		Logger:  deps.providers.Logger,
		Metrics: deps.red,
		Tracer:  deps.providers.Tracer,
		Checker: checkerOptions(cfg),
		Version: version.Version,
	})

	return srv.Run(ctx) //nolint:wrapcheck // already wrapped by mcp.
}

// serve runs a long-lived stdio server alongside the optional metrics endpoint.
func serve(cmd *cobra.Command, mode observability.AppMode, run serveFunc) error {
	cfg, err := loadSettings(cmd, serveBindings)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, mode)
	if err != nil {
		return err
	}
	defer shutdown(providers)

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create request metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return observability.ServeMetrics(groupCtx, cfg.Telemetry.MetricsAddr, providers)
	})

	group.Go(func() error {
		defer cancel()

		return run(groupCtx, cfg, serveDeps{providers: providers, red: red})
	})

	return group.Wait() //nolint:wrapcheck // both branches wrap their errors.
}
