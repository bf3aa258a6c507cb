package core

// pipeline.go wires the stages of one import run together:
//
//	header -> DetectColumns -> CheckHeader
//	rows   -> TransformRow -> [ExpandCombinations] -> windows of BatchSize:
//	          ValidateAll -> BulkApply -> ErrorReporter
//
// Validation runs per window, right before that window is applied, so the
// existence checks of later rows see everything earlier windows committed.

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

// RunOptions configures one import run.
type RunOptions struct {
	DryRun           bool
	BatchSize        int
	MaxBatchSize     int // 0 means DefaultMaxBatchSize
	AutoCombinations bool
	StrictBooleans   bool
}

// RunResult is everything a caller needs after a run.
type RunResult struct {
	ID         uuid.UUID        `json:"id"`
	ImportType ImportType       `json:"import_type"`
	Mapping    ColumnMapping    `json:"mapping"`
	Summary    ImportRunSummary `json:"summary"`
	Batch      BatchResult      `json:"batch"`
	Stats      ReportStats      `json:"stats"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`

	Report *ErrorReporter `json:"-"`
}

// Importer runs imports against a catalog and a store.
type Importer struct {
	catalog CatalogSchemaProvider
	engine  *Engine
}

// NewImporter creates an importer.
func NewImporter(catalog CatalogSchemaProvider, store Store) *Importer {
	return &Importer{catalog: catalog, engine: NewEngine(store)}
}

// Detect returns the column mapping for a header and checks it against the
// import type's required columns. The mapping is returned even when the
// check fails.
func (im *Importer) Detect(importType ImportType, header HeaderRow) (ColumnMapping, error) {
	def, err := Lookup(importType)
	if err != nil {
		return ColumnMapping{}, err
	}
	mapping := DetectColumns(header)
	return mapping, def.CheckHeader(mapping)
}

// Run imports a table. Header problems abort before any row is touched.
// A catalog failure during validation stops the run: the partial result is
// returned together with the error and unprocessed rows count as Skipped.
func (im *Importer) Run(ctx context.Context, importType ImportType, table Table, opts RunOptions) (*RunResult, error) {
	mapping, err := im.Detect(importType, table.Header)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		ID:         uuid.New(),
		ImportType: importType,
		Mapping:    mapping,
		StartedAt:  time.Now(),
		Report:     NewErrorReporter(),
		Batch:      BatchResult{Errors: make(map[int]string)},
	}
	logger := logging.WithFields(ctx, "run_id", res.ID, "import_type", importType)
	ctx = logging.NewContext(ctx, logger)

	rows := make([]TypedRow, 0, len(table.Rows))
	for _, src := range table.Rows {
		rows = append(rows, TransformRow(src.Number, src.Cells, mapping))
	}
	if opts.AutoCombinations && importType == ImportVariants {
		rows = ExpandCombinations(rows)
	}

	res.Summary = ImportRunSummary{
		SourceRows: len(table.Rows),
		TotalRows:  len(rows),
		DryRun:     opts.DryRun,
	}
	logger.Info("import started",
		"source_rows", len(table.Rows),
		"rows", len(rows),
		"columns", mapping.Len(),
		"unmapped", len(mapping.Unmapped),
		"dry_run", opts.DryRun,
	)

	validator := NewValidator(im.catalog, ValidatorOptions{StrictBooleans: opts.StrictBooleans})
	bulk := BulkOptions{BatchSize: opts.BatchSize, MaxBatchSize: opts.MaxBatchSize}
	size := bulk.batchSize()
	applied := 0

	var runErr error
	for start := 0; start < len(rows); start += size {
		if ctx.Err() != nil {
			res.Summary.Skipped += len(rows) - start
			logger.Warn("import cancelled", "skipped", len(rows)-start)
			break
		}
		window := rows[start:min(start+size, len(rows))]

		valid, invalid, err := validator.ValidateAll(ctx, window, importType, mapping)
		if err != nil {
			res.Summary.Skipped += len(rows) - start
			runErr = fmt.Errorf("validate rows %d-%d: %w", window[0].Number, window[len(window)-1].Number, err)
			logger.Error("import aborted", "error", err)
			break
		}
		for _, out := range invalid {
			res.Report.Merge(out)
		}
		res.Summary.ValidationFailed += len(invalid)

		if opts.DryRun || len(valid) == 0 {
			if opts.DryRun {
				res.Summary.Validated += len(valid)
			}
			continue
		}

		bulk.BatchOffset = res.Batch.Batches
		br, err := im.engine.BulkApply(ctx, valid, importType, bulk)
		if err != nil {
			res.Summary.Skipped += len(rows) - start - len(invalid)
			runErr = err
			break
		}
		im.record(res, br, valid)
		res.Batch.merge(br, applied)
		applied += len(valid)
	}

	res.Stats = res.Report.Stats(res.Summary.SourceRows)
	res.Duration = time.Since(res.StartedAt)

	logger.Info("import finished",
		"summary", res.Summary.String(),
		"errors", res.Report.Len(),
		"duration_ms", res.Duration.Milliseconds(),
		"needs_verification", res.Summary.NeedsVerification(),
	)
	return res, runErr
}

// record moves apply outcomes of one window into the summary and report.
func (im *Importer) record(res *RunResult, br BatchResult, applied []TypedRow) {
	batchFailed := br.BatchFailedRows()
	res.Summary.Succeeded += br.SuccessCount
	res.Summary.BatchFailed += batchFailed
	res.Summary.ApplyFailed += br.FailedCount - batchFailed
	res.Summary.Skipped += br.Skipped

	for _, idx := range slices.Sorted(maps.Keys(br.Errors)) {
		res.Report.Add(applied[idx].Number, "", ErrStructural, br.Errors[idx])
	}
}
