package usecase

import (
	"sync"

	"SignalRelay/internal/domain/models"
)

// Journal keeps a bounded ring of recent pipeline results plus running
// outcome counts for the ops API. It is observability state, not
// persistence: a restart starts empty.
type Journal struct {
	mu     sync.Mutex
	ring   []models.PipelineResult
	next   int
	filled bool
	counts map[models.Outcome]int64
}

// NewJournal creates a journal holding the last size results.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = 100
	}
	return &Journal{
		ring:   make([]models.PipelineResult, size),
		counts: make(map[models.Outcome]int64),
	}
}

// Record appends a result, evicting the oldest when full.
func (j *Journal) Record(res models.PipelineResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.ring[j.next] = res
	j.next++
	if j.next == len(j.ring) {
		j.next = 0
		j.filled = true
	}
	j.counts[res.Outcome]++
}

// Recent returns up to limit results, newest first.
func (j *Journal) Recent(limit int) []models.PipelineResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	size := j.next
	if j.filled {
		size = len(j.ring)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.PipelineResult, 0, limit)
	idx := j.next - 1
	for len(out) < limit {
		if idx < 0 {
			idx = len(j.ring) - 1
		}
		out = append(out, j.ring[idx])
		idx--
	}
	return out
}

// Counts returns a snapshot of outcome totals since start.
func (j *Journal) Counts() map[models.Outcome]int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[models.Outcome]int64, len(j.counts))
	for k, v := range j.counts {
		out[k] = v
	}
	return out
}
