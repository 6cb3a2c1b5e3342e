package background

import (
	"sort"
	"sync"
	"time"
)

// RunStatus is the state of one scheduled attempt
type RunStatus string

const (
	RunStatusSkipped RunStatus = "SKIPPED"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailure RunStatus = "FAILURE"
)

// RunRecord is the result of calling RunScheduled on one source
type RunRecord struct {
	RunID          string        `json:"runId"`
	Source         string        `json:"source"`
	Status         RunStatus     `json:"status"`
	Reason         string        `json:"reason,omitempty"`
	Outcome        string        `json:"outcome,omitempty"`
	Records        int           `json:"records"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    time.Time     `json:"completedAt"`
	ProcessingTime time.Duration `json:"processingTime"`
	NextDueAt      *time.Time    `json:"nextDueAt,omitempty"`
}

// RunStore keeps the latest records in memory, bounded by size
type RunStore struct {
	mu      sync.RWMutex
	limit   int
	records []RunRecord
}

func NewRunStore(limit int) *RunStore {
	if limit <= 0 {
		limit = 100
	}
	return &RunStore{limit: limit}
}

func (s *RunStore) Add(r RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	if over := len(s.records) - s.limit; over > 0 {
		s.records = append([]RunRecord(nil), s.records[over:]...)
	}
}

// Recent returns the records newest first
func (s *RunStore) Recent() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Last returns the most recent record of a source
func (s *RunStore) Last(source string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Source == source {
			return s.records[i], true
		}
	}
	return RunRecord{}, false
}

// Cleanup drops records started before now-maxAge
func (s *RunStore) Cleanup(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-maxAge)
	kept := s.records[:0]
	for _, r := range s.records {
		if !r.StartedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	s.records = kept
	return removed
}
