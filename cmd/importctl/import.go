package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

type importOptions struct {
	dryRun           bool
	batchSize        int
	autoCombinations bool
	sheet            string
	reportPath       string
	asJSON           bool
}

func newImportCmd(global *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <type> <file>",
		Short: "Validate and import a CSV or XLSX file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			importType, err := core.ParseImportType(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}

			b, err := openBackend(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer b.close()

			if !cmd.Flags().Changed("batch-size") {
				opts.batchSize = b.cfg.Import.BatchSize
			}
			if !cmd.Flags().Changed("auto-combinations") {
				opts.autoCombinations = b.cfg.Import.AutoCombinations
			}
			return runImport(cmd, b, importType, args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate only; write nothing")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", core.DefaultBatchSize, "Rows per transaction (capped by IMPORT_MAX_BATCH_SIZE)")
	cmd.Flags().BoolVar(&opts.autoCombinations, "auto-combinations", false, "Expand multi-valued attribute cells (S|M) into variants")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "XLSX sheet to read (default: the one named after the type, else first)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write the error report to this .csv or .xlsx file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the run result as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, b *backend, importType core.ImportType, path string, opts importOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer f.Close()

	sheet := opts.sheet
	if sheet == "" {
		sheet = string(importType)
	}
	table, err := core.ReadTable(f, filepath.Base(path), sheet)
	if err != nil {
		return withCode(exitValidation, err)
	}

	importer := core.NewImporter(b.catalog, b.store)
	res, runErr := importer.Run(cmd.Context(), importType, table, core.RunOptions{
		DryRun:           opts.dryRun,
		BatchSize:        opts.batchSize,
		MaxBatchSize:     b.cfg.Import.MaxBatchSize,
		AutoCombinations: opts.autoCombinations,
		StrictBooleans:   b.cfg.Import.StrictBooleans,
	})
	if res == nil {
		return withCode(exitValidation, fmt.Errorf("%s: %w", core.FormatUserError(runErr), runErr))
	}

	if opts.reportPath != "" && res.Report.Len() > 0 {
		if err := writeReport(res.Report, opts.reportPath); err != nil {
			return withCode(exitFailure, err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printSummary(out, res, opts.reportPath)
	}

	switch {
	case runErr != nil:
		return withCode(exitDB, runErr)
	case res.Summary.NeedsVerification():
		return withCode(exitDB, fmt.Errorf("%d rows in failed batches; verify the catalog before retrying", res.Summary.BatchFailed))
	case res.Summary.Failed() > 0:
		return withCode(exitValidation, fmt.Errorf("%d of %d rows failed", res.Summary.Failed(), res.Summary.TotalRows))
	}
	return nil
}

func printSummary(w io.Writer, res *core.RunResult, reportPath string) {
	s := res.Summary
	mode := "import"
	if s.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", res.ImportType, mode, res.ID)
	fmt.Fprintf(w, "  rows:              %d", s.TotalRows)
	if s.TotalRows != s.SourceRows {
		fmt.Fprintf(w, " (%d in file)", s.SourceRows)
	}
	fmt.Fprintln(w)
	if s.DryRun {
		fmt.Fprintf(w, "  valid:             %d\n", s.Validated)
	} else {
		fmt.Fprintf(w, "  imported:          %d\n", s.Succeeded)
	}
	fmt.Fprintf(w, "  validation errors: %d\n", s.ValidationFailed)
	fmt.Fprintf(w, "  apply errors:      %d\n", s.ApplyFailed)
	if s.BatchFailed > 0 {
		fmt.Fprintf(w, "  failed batches:    %d rows (verify before retrying)\n", s.BatchFailed)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  skipped:           %d\n", s.Skipped)
	}
	if len(res.Mapping.Unmapped) > 0 {
		fmt.Fprintf(w, "  ignored columns:   %s\n", strings.Join(res.Mapping.Unmapped, ", "))
	}

	errs := res.Report.Errors()
	const maxShown = 20
	for i, e := range errs {
		if i == maxShown {
			fmt.Fprintf(w, "  ... and %d more\n", len(errs)-maxShown)
			break
		}
		fmt.Fprintf(w, "  ! %s\n", e.Error())
	}
	if reportPath != "" && len(errs) > 0 {
		fmt.Fprintf(w, "  report written to %s\n", reportPath)
	}
}

func writeReport(r *core.ErrorReporter, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return r.ExportXLSX(f)
	}
	return r.ExportCSV(f)
}
