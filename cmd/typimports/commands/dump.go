package commands

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typimports/pkg/discover"
	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	var tables bool

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the syntax tree the checker walks",
		Long: `Parse one Python file ("-" for standard input) and print the simplified
syntax tree that the checker walks. With --tables, also print how every
imported name was classified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args[0], tables)
		},
	}

	cmd.Flags().BoolVar(&tables, "tables", false, "Also print the import classification tables")

	return cmd
}

func runDump(cmd *cobra.Command, path string, withTables bool) error {
	var (
		src []byte
		err error
	)

	if path == discover.StdinPath {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(path)
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	tree, err := pyparse.NewParser().Parse(cmd.Context(), path, src)
	if err != nil {
		return err //nolint:wrapcheck // syntax errors carry the file name.
	}

	out := cmd.OutOrStdout()

	err = pyast.Dump(out, tree)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by pyast.
	}

	if !withTables {
		return nil
	}

	cfg, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}

	renderTables(out, typeonly.Classify(tree, checkerOptions(cfg)))

	return nil
}

func renderTables(out io.Writer, tables *typeonly.Tables) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Name", "Import", "Line", "Annotation", "Runtime", "Type-only"})

	names := make([]string, 0, len(tables.Imports))
	for bound := range tables.Imports {
		names = append(names, bound)
	}

	slices.Sort(names)

	for _, bound := range names {
		rec := tables.Imports[bound]
		_, inAnnotation := tables.Annotation[bound]
		_, atRuntime := tables.Runtime[bound]

		tbl.AppendRow(table.Row{bound, describeImport(rec), rec.Pos.Line, mark(inAnnotation), mark(atRuntime),
			mark(tables.IsTypeOnly(bound))})
	}

	guarded := make([]string, 0, len(tables.Guarded))
	for bound := range tables.Guarded {
		guarded = append(guarded, bound)
	}

	slices.Sort(guarded)

	for _, bound := range guarded {
		tbl.AppendRow(table.Row{bound, "guarded", "", "", "", ""})
	}

	for _, star := range tables.StarImports {
		tbl.AppendRow(table.Row{"*", "from " + star.Module + " import *", star.Pos.Line, "", "", ""})
	}

	tbl.Render()
}

func describeImport(rec typeonly.ImportRecord) string {
	if rec.Form == typeonly.FormFrom {
		return "from " + rec.Origin + " import " + rec.Original
	}

	return "import " + rec.Original
}

func mark(set bool) string {
	if set {
		return "yes"
	}

	return ""
}
