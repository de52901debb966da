// Package commands implements CLI command handlers for typimports.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typimports/pkg/version"
)

// Persistent flag names shared by all subcommands.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagLogJSON = "log-json"
)

// Exit codes of the check command.
const (
	ExitFlagged     = 1
	ExitParseFailed = 2
)

// ExitCodeError carries a process exit code for outcomes that were already
// reported on stdout.
type ExitCodeError struct {
	Code   int
	Reason string
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%s (exit %d)", e.Reason, e.Code)
}

// NewRootCommand builds the typimports command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "typimports",
		Short: "Find Python imports that are only used in type annotations",
		Long: `typimports reports imports whose names are referenced only from type
annotations (TYP001). Such imports can move into an "if TYPE_CHECKING:" block
so they cost nothing at runtime.

Commands:
  check            Check files and directories
  dump             Print the syntax tree the checker walks
  lsp              Serve diagnostics to editors over LSP (stdio)
  mcp              Serve the checker to AI agents over MCP (stdio)
  validate-report  Validate a JSON report against its schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "config file (default: .typimports.yaml in CWD or $HOME)")
	flags.BoolP(flagVerbose, "v", false, "verbose output")
	flags.BoolP(flagQuiet, "q", false, "suppress output")
	flags.Bool(flagLogJSON, false, "emit logs as JSON")

	rootCmd.AddCommand(
		NewCheckCommand(),
		NewDumpCommand(),
		NewLSPCommand(),
		NewMCPCommand(),
		NewValidateReportCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "typimports %s\n", version.String())

			return err //nolint:wrapcheck // stdout write failures need no context.
		},
	}
}

// boolFlag reads a flag that may be inherited from the root; missing flags
// read as false so subcommands also run standalone.
func boolFlag(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return false
	}

	return flag.Value.String() == "true"
}

func stringFlag(cmd *cobra.Command, name string) string {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return ""
	}

	return flag.Value.String()
}
