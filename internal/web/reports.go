package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

// reportStore keeps error reports of finished imports for download.
// Expired entries are swept on every put.
type reportStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]storedReport
}

type storedReport struct {
	importType core.ImportType
	report     *core.ErrorReporter
	expires    time.Time
}

func newReportStore(ttl time.Duration) *reportStore {
	return &reportStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]storedReport),
	}
}

func (s *reportStore) put(id uuid.UUID, t core.ImportType, r *core.ErrorReporter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[id] = storedReport{importType: t, report: r, expires: now.Add(s.ttl)}
}

func (s *reportStore) get(id uuid.UUID) (storedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.now().After(e.expires) {
		return storedReport{}, core.ErrReportNotFound
	}
	return e, nil
}

func (s *reportStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
