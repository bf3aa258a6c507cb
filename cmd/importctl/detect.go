package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func newDetectCmd(global *globalOptions) *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "detect <type> <file>",
		Short: "Show how the columns of a file are recognized",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			importType, err := core.ParseImportType(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}

			f, err := os.Open(args[1])
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer f.Close()

			if sheet == "" {
				sheet = string(importType)
			}
			table, err := core.ReadTable(f, filepath.Base(args[1]), sheet)
			if err != nil {
				return withCode(exitValidation, err)
			}

			// Detection needs no catalog; dynamic columns are resolved on import.
			mapping, checkErr := core.NewImporter(nil, nil).Detect(importType, table.Header)
			if checkErr != nil && !errors.Is(checkErr, core.ErrMissingColumns) {
				return withCode(exitUsage, checkErr)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCOLUMN\tFIELD")
			for _, c := range mapping.Columns {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.Index+1, c.Column, c.Key)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, u := range mapping.Unmapped {
				fmt.Fprintf(out, "ignored: %s\n", u)
			}
			fmt.Fprintf(out, "%d data rows\n", len(table.Rows))

			if checkErr != nil {
				return withCode(exitValidation, checkErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX sheet to read (default: the one named after the type, else first)")
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List import types and their required columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tLABEL\tREQUIRED COLUMNS")
			for _, d := range core.ImportTypes() {
				fmt.Fprintf(tw, "%s\t%s\t%v\n", d.Type, d.Label, d.RequiredColumns())
			}
			return tw.Flush()
		},
	}
}
