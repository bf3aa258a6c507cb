package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func newTemplateCmd(global *globalOptions) *cobra.Command {
	var (
		format   string
		examples int
		output   string
	)

	cmd := &cobra.Command{
		Use:   "template <type>",
		Short: "Generate an import template from the live catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importType, err := core.ParseImportType(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return withCode(exitUsage, fmt.Errorf("unsupported --format: %s", format))
			}

			b, err := openBackend(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer b.close()

			if !cmd.Flags().Changed("examples") {
				examples = b.cfg.Import.ExampleRows
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return withCode(exitUsage, err)
				}
				defer f.Close()
				w = f
			}

			gen := core.NewTemplateGenerator(b.catalog)
			if format == "xlsx" {
				return gen.WriteXLSX(cmd.Context(), w, importType, examples)
			}
			rows, err := gen.GenerateTemplateWithExamples(cmd.Context(), importType, examples)
			if err != nil {
				return withCode(exitDB, err)
			}
			return core.WriteCSV(w, rows)
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	cmd.Flags().IntVar(&examples, "examples", 3, "Number of example rows")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
