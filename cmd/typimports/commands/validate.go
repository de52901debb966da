package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typimports/pkg/discover"
	"github.com/Sumatoshi-tech/typimports/pkg/report"
)

// NewValidateReportCommand creates the validate-report command.
func NewValidateReportCommand() *cobra.Command {
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "validate-report [file]",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a report produced by "typimports check --format json" ("-" reads
standard input). With --print-schema, print the embedded JSON schema instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(report.Schema())

				return err //nolint:wrapcheck // stdout write failures need no context.
			}

			if len(args) == 0 {
				return fmt.Errorf("%w: report file is required", report.ErrInvalidReport)
			}

			return runValidateReport(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "Print the report JSON schema and exit")

	return cmd
}

func runValidateReport(cmd *cobra.Command, path string) error {
	var (
		data []byte
		err  error
	)

	if path == discover.StdinPath {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	err = report.Validate(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if !boolFlag(cmd, flagQuiet) {
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: valid report\n", path) //nolint:errcheck,gosec // best-effort status line.
	}

	return nil
}
