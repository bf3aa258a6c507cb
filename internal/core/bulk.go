package core

// bulk.go applies validated rows to the store in transactional batches.
//
// Failure modes are kept apart:
//   - a row whose apply call fails (or panics) is recorded and the batch
//     continues; the store implementation is expected to isolate the row
//     (the Postgres store wraps each row in a savepoint)
//   - a batch whose transaction fails to open or commit is counted failed in
//     full. Nothing from that batch may be assumed durable, so it is logged
//     with signal=batch_transaction_failed for manual verification.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

const (
	DefaultBatchSize    = 100
	DefaultMaxBatchSize = 1000
)

// BulkOptions configures one BulkApply call.
type BulkOptions struct {
	BatchSize int

	// MaxBatchSize caps BatchSize. Zero means DefaultMaxBatchSize.
	MaxBatchSize int

	// BatchOffset numbers the first batch when the caller splits the rows
	// itself. Only affects logs and failure messages.
	BatchOffset int
}

// batchSize clamps the configured size into [1, MaxBatchSize].
func (o BulkOptions) batchSize() int {
	limit := o.MaxBatchSize
	if limit <= 0 {
		limit = DefaultMaxBatchSize
	}
	switch {
	case o.BatchSize <= 0:
		return min(DefaultBatchSize, limit)
	case o.BatchSize > limit:
		return limit
	}
	return o.BatchSize
}

// BatchFailure describes a batch whose transaction did not commit.
type BatchFailure struct {
	Batch int    `json:"batch"`
	First int    `json:"first_index"`
	Rows  int    `json:"rows"`
	Error string `json:"error"`
}

// BatchResult aggregates outcomes across all batches. Errors is keyed by the
// row's index in the slice passed to BulkApply.
type BatchResult struct {
	SuccessCount  int            `json:"success_count"`
	FailedCount   int            `json:"failed_count"`
	Skipped       int            `json:"skipped,omitempty"`
	Batches       int            `json:"batches"`
	Errors        map[int]string `json:"errors,omitempty"`
	FailedBatches []BatchFailure `json:"failed_batches,omitempty"`
}

// BatchFailedRows returns how many rows were lost to transaction failures.
func (r BatchResult) BatchFailedRows() int {
	n := 0
	for _, f := range r.FailedBatches {
		n += f.Rows
	}
	return n
}

// merge adds another result whose indexes start at offset.
func (r *BatchResult) merge(o BatchResult, offset int) {
	r.SuccessCount += o.SuccessCount
	r.FailedCount += o.FailedCount
	r.Skipped += o.Skipped
	r.Batches += o.Batches
	for idx, msg := range o.Errors {
		r.Errors[idx+offset] = msg
	}
	for _, f := range o.FailedBatches {
		f.First += offset
		r.FailedBatches = append(r.FailedBatches, f)
	}
}

// Engine runs batches against a Store.
type Engine struct {
	store Store
}

// NewEngine creates an engine for the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// BulkApply applies rows in batches of opts.BatchSize, one transaction per
// batch, strictly in order. The context is checked between batches only: a
// batch that has started runs to completion, and rows of batches never
// started are counted as Skipped.
func (e *Engine) BulkApply(ctx context.Context, rows []TypedRow, importType ImportType, opts BulkOptions) (BatchResult, error) {
	def, err := Lookup(importType)
	if err != nil {
		return BatchResult{}, err
	}
	if def.Apply == nil {
		return BatchResult{}, fmt.Errorf("import type %s has no apply function", importType)
	}

	size := opts.batchSize()
	result := BatchResult{Errors: make(map[int]string)}
	logger := logging.WithFields(ctx, "batch_size", size)

	for start, batch := 0, opts.BatchOffset; start < len(rows); start, batch = start+size, batch+1 {
		if ctx.Err() != nil {
			result.Skipped += len(rows) - start
			logger.Warn("bulk apply stopped", "reason", ctx.Err(), "skipped", len(rows)-start)
			break
		}

		end := min(start+size, len(rows))
		br := e.applyBatch(ctx, logger, def, rows[start:end], batch)
		result.merge(br, start)
	}

	return result, nil
}

// applyBatch runs one batch in one transaction.
func (e *Engine) applyBatch(ctx context.Context, logger *slog.Logger, def ImportDefinition, rows []TypedRow, batch int) BatchResult {
	var (
		success int
		rowErrs map[int]string
	)

	txErr := e.store.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		// Reset in case the store retries fn.
		success = 0
		rowErrs = make(map[int]string)

		for i, row := range rows {
			if err := applyRow(ctx, def.Apply, tx, row); err != nil {
				rowErrs[i] = err.Error()
				logger.Warn("row apply failed",
					"batch", batch,
					"row", row.Number,
					"error", err,
				)
				continue
			}
			success++
		}
		return nil
	})

	if txErr != nil {
		logger.Error("batch transaction failed",
			"signal", "batch_transaction_failed",
			"requires_verification", true,
			"batch", batch,
			"rows", len(rows),
			"first_row", rows[0].Number,
			"last_row", rows[len(rows)-1].Number,
			"error", txErr,
		)

		msg := fmt.Sprintf("batch %d not committed: %v", batch+1, txErr)
		errs := make(map[int]string, len(rows))
		for i := range rows {
			errs[i] = msg
		}
		return BatchResult{
			FailedCount: len(rows),
			Batches:     1,
			Errors:      errs,
			FailedBatches: []BatchFailure{{
				Batch: batch,
				Rows:  len(rows),
				Error: txErr.Error(),
			}},
		}
	}

	logger.Debug("batch committed", "batch", batch, "succeeded", success, "failed", len(rowErrs))
	return BatchResult{
		SuccessCount: success,
		FailedCount:  len(rowErrs),
		Batches:      1,
		Errors:       rowErrs,
	}
}

// errApplyPanic marks row errors recovered from a panic.
var errApplyPanic = errors.New("panic while applying row")

// applyRow calls apply and converts panics into errors.
func applyRow(ctx context.Context, apply ApplyFunc, tx Tx, row TypedRow) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in row apply",
				"row", row.Number,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", errApplyPanic, r)
		}
	}()
	return apply(ctx, tx, row)
}
