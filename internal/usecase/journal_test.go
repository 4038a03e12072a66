package usecase

import (
	"fmt"
	"testing"

	"SignalRelay/internal/domain/models"
)

func TestJournalRecentNewestFirst(t *testing.T) {
	j := NewJournal(10)
	for i := 0; i < 5; i++ {
		j.Record(models.PipelineResult{Outcome: models.OutcomeForwarded, MessageID: int64(i)})
	}

	got := j.Recent(3)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	for i, want := range []int64{4, 3, 2} {
		if got[i].MessageID != want {
			t.Fatalf("position %d: got message %d, want %d", i, got[i].MessageID, want)
		}
	}
}

func TestJournalEvictsOldest(t *testing.T) {
	j := NewJournal(3)
	for i := 0; i < 5; i++ {
		j.Record(models.PipelineResult{Outcome: models.OutcomeSkipped, MessageID: int64(i)})
	}

	got := j.Recent(0) // 0 means everything retained
	if len(got) != 3 {
		t.Fatalf("got %d results, want ring size 3", len(got))
	}
	for i, want := range []int64{4, 3, 2} {
		if got[i].MessageID != want {
			t.Fatalf("position %d: got message %d, want %d", i, got[i].MessageID, want)
		}
	}
}

func TestJournalCountsSurviveEviction(t *testing.T) {
	j := NewJournal(2)
	outcomes := []models.Outcome{
		models.OutcomeForwarded, models.OutcomeForwarded, models.OutcomeForwarded,
		models.OutcomeSkipped,
		models.OutcomeRejected, models.OutcomeRejected,
		models.OutcomeFailed,
	}
	for i, o := range outcomes {
		j.Record(models.PipelineResult{Outcome: o, Reason: fmt.Sprintf("r%d", i)})
	}

	counts := j.Counts()
	if counts[models.OutcomeForwarded] != 3 ||
		counts[models.OutcomeSkipped] != 1 ||
		counts[models.OutcomeRejected] != 2 ||
		counts[models.OutcomeFailed] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestJournalRecentOnEmpty(t *testing.T) {
	j := NewJournal(4)
	if got := j.Recent(10); len(got) != 0 {
		t.Fatalf("got %d results from empty journal, want 0", len(got))
	}
}
