package core

import "fmt"

// ImportRunSummary is the single ledger of one import run. Every row lands
// in exactly one bucket, so the buckets always sum to TotalRows.
//
// TotalRows counts rows after combination expansion; SourceRows counts the
// data rows read from the file.
type ImportRunSummary struct {
	SourceRows       int  `json:"source_rows"`
	TotalRows        int  `json:"total_rows"`
	Succeeded        int  `json:"succeeded"`
	Validated        int  `json:"validated"` // dry runs only: valid rows not applied
	ValidationFailed int  `json:"validation_failed"`
	ApplyFailed      int  `json:"apply_failed"`
	BatchFailed      int  `json:"batch_failed"`
	Skipped          int  `json:"skipped"`
	DryRun           bool `json:"dry_run"`
}

// Accounted returns the sum of all buckets.
func (s ImportRunSummary) Accounted() int {
	return s.Succeeded + s.Validated + s.ValidationFailed + s.ApplyFailed + s.BatchFailed + s.Skipped
}

// Balanced reports whether every row was counted exactly once.
func (s ImportRunSummary) Balanced() bool {
	return s.Accounted() == s.TotalRows
}

// Failed returns rows that did not make it into the store for any reason
// other than cancellation.
func (s ImportRunSummary) Failed() int {
	return s.ValidationFailed + s.ApplyFailed + s.BatchFailed
}

// NeedsVerification reports whether a batch transaction failed. Such runs
// must be checked against the store before any retry.
func (s ImportRunSummary) NeedsVerification() bool {
	return s.BatchFailed > 0
}

func (s ImportRunSummary) String() string {
	return fmt.Sprintf("total=%d succeeded=%d validated=%d validation_failed=%d apply_failed=%d batch_failed=%d skipped=%d",
		s.TotalRows, s.Succeeded, s.Validated, s.ValidationFailed, s.ApplyFailed, s.BatchFailed, s.Skipped)
}
