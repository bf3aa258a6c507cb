package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// fakeStore counts transactions and can fail chosen commits.
type fakeStore struct {
	mu        sync.Mutex
	txs       int
	failTx    map[int]bool
	committed []int
	onCommit  func()
}

type fakeTx struct{ rows *[]int }

func (t fakeTx) ApplyVariantRow(_ context.Context, row TypedRow) error {
	*t.rows = append(*t.rows, row.Number)
	return nil
}
func (t fakeTx) ApplyFeatureRow(context.Context, TypedRow) error       { return nil }
func (t fakeTx) ApplyCompatibilityRow(context.Context, TypedRow) error { return nil }

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.txs
	s.txs++

	var rows []int
	if err := fn(ctx, fakeTx{rows: &rows}); err != nil {
		return err
	}
	if s.failTx[n] {
		return errors.New("commit refused")
	}
	s.committed = append(s.committed, rows...)
	if s.onCommit != nil {
		s.onCommit()
	}
	return nil
}

const testImport ImportType = "bulk_test"

func registerTestImport(t *testing.T, apply ApplyFunc) {
	t.Helper()
	registryMu.Lock()
	registry[testImport] = ImportDefinition{Type: testImport, Apply: apply}
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, testImport)
		registryMu.Unlock()
	})
}

func numberedRows(n int) []TypedRow {
	rows := make([]TypedRow, n)
	for i := range rows {
		rows[i] = TypedRow{Number: i + 2}
	}
	return rows
}

func TestBulkOptions_BatchSize(t *testing.T) {
	tests := []struct {
		in, max, want int
	}{
		{0, 0, DefaultBatchSize},
		{-5, 0, DefaultBatchSize},
		{1, 0, 1},
		{250, 0, 250},
		{DefaultMaxBatchSize + 1, 0, DefaultMaxBatchSize},
		{2000, 5000, 2000},
		{6000, 5000, 5000},
		{0, 50, 50},
	}
	for _, tt := range tests {
		if got := (BulkOptions{BatchSize: tt.in, MaxBatchSize: tt.max}).batchSize(); got != tt.want {
			t.Errorf("batchSize(%d, max %d) = %d, want %d", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestBulkApply_Batches(t *testing.T) {
	registerTestImport(t, func(ctx context.Context, tx Tx, row TypedRow) error {
		return tx.ApplyVariantRow(ctx, row)
	})
	store := &fakeStore{failTx: map[int]bool{1: true}}

	res, err := NewEngine(store).BulkApply(context.Background(), numberedRows(5), testImport, BulkOptions{BatchSize: 2, BatchOffset: 3})
	if err != nil {
		t.Fatalf("BulkApply() error = %v", err)
	}

	if res.Batches != 3 || res.SuccessCount != 3 || res.FailedCount != 2 {
		t.Errorf("result = %+v, want 3 batches, 3 ok, 2 failed", res)
	}
	if len(res.FailedBatches) != 1 || res.FailedBatches[0].Batch != 4 || res.FailedBatches[0].First != 2 {
		t.Errorf("FailedBatches = %+v", res.FailedBatches)
	}
	if !strings.HasPrefix(res.Errors[2], "batch 5 not committed") {
		t.Errorf("Errors[2] = %q", res.Errors[2])
	}
	if got := store.committed; len(got) != 3 || got[0] != 2 || got[2] != 6 {
		t.Errorf("committed rows = %v, want [2 3 6]", got)
	}
}

func TestBulkApply_OneRowFailsInHundred(t *testing.T) {
	registerTestImport(t, func(ctx context.Context, tx Tx, row TypedRow) error {
		if row.Number == 44 {
			return errors.New("duplicate key")
		}
		return tx.ApplyVariantRow(ctx, row)
	})
	store := &fakeStore{}

	res, err := NewEngine(store).BulkApply(context.Background(), numberedRows(100), testImport, BulkOptions{})
	if err != nil {
		t.Fatalf("BulkApply() error = %v", err)
	}

	if res.SuccessCount != 99 || res.FailedCount != 1 || res.Batches != 1 {
		t.Errorf("result = %+v, want 99 ok, 1 failed, 1 batch", res)
	}
	if len(res.Errors) != 1 || res.Errors[42] != "duplicate key" {
		t.Errorf("Errors = %v, want only index 42", res.Errors)
	}
	if len(res.FailedBatches) != 0 {
		t.Errorf("FailedBatches = %+v, want none", res.FailedBatches)
	}
	if len(store.committed) != 99 {
		t.Errorf("committed %d rows, want 99", len(store.committed))
	}
}

func TestBulkApply_PanicBecomesRowError(t *testing.T) {
	registerTestImport(t, func(ctx context.Context, tx Tx, row TypedRow) error {
		if row.Number == 3 {
			panic("nil map")
		}
		return tx.ApplyVariantRow(ctx, row)
	})

	res, err := NewEngine(&fakeStore{}).BulkApply(context.Background(), numberedRows(3), testImport, BulkOptions{})
	if err != nil {
		t.Fatalf("BulkApply() error = %v", err)
	}
	if res.SuccessCount != 2 || res.FailedCount != 1 {
		t.Errorf("result = %+v, want 2 ok, 1 failed", res)
	}
	if msg := res.Errors[1]; !strings.Contains(msg, errApplyPanic.Error()) {
		t.Errorf("Errors[1] = %q, want panic error", msg)
	}
}

func TestBulkApply_StopsBetweenBatches(t *testing.T) {
	registerTestImport(t, func(ctx context.Context, tx Tx, row TypedRow) error {
		return tx.ApplyVariantRow(ctx, row)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &fakeStore{onCommit: cancel}

	res, err := NewEngine(store).BulkApply(ctx, numberedRows(5), testImport, BulkOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("BulkApply() error = %v", err)
	}
	if res.SuccessCount != 2 || res.Skipped != 3 || res.Batches != 1 {
		t.Errorf("result = %+v, want 2 ok, 3 skipped, 1 batch", res)
	}
}

func TestBulkApply_UnknownType(t *testing.T) {
	_, err := NewEngine(&fakeStore{}).BulkApply(context.Background(), numberedRows(1), "nope", BulkOptions{})
	if !errors.Is(err, ErrUnknownImportType) {
		t.Errorf("BulkApply() error = %v, want ErrUnknownImportType", err)
	}
}
