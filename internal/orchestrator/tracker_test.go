package orchestrator

import (
	"testing"
	"time"

	"realestate-tokenizer/internal/domain"
)

func TestTracker_InitialSnapshot(t *testing.T) {
	tr := NewTracker("sub-1")
	s := tr.Snapshot()

	if s.SubmissionID != "sub-1" || s.Status != domain.StatusIdle {
		t.Errorf("unexpected initial snapshot: %+v", s)
	}
	if s.CompletedStages == nil {
		t.Errorf("completed stages should be an empty list, not nil")
	}
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker("sub-1")
	tr.Observe(Snapshot{
		SubmissionID:    "sub-1",
		Status:          domain.StatusRunning,
		Stage:           domain.StageIssueToken,
		CompletedStages: []domain.Stage{domain.StageUploadFiles, domain.StageUploadMetadata},
	})

	s := tr.Snapshot()
	s.CompletedStages[0] = domain.StageAnchorHashes

	if got := tr.Snapshot().CompletedStages[0]; got != domain.StageUploadFiles {
		t.Errorf("tracker state mutated through snapshot: %s", got)
	}
	if !tr.Snapshot().Completed(domain.StageUploadMetadata) {
		t.Errorf("expected upload_metadata completed")
	}
}

func TestTracker_SubscribeUntilTerminal(t *testing.T) {
	tr := NewTracker("sub-1")
	ch, cancel := tr.Subscribe()
	defer cancel()

	first := <-ch
	if first.Status != domain.StatusIdle {
		t.Errorf("first snapshot = %+v, want idle", first)
	}

	tr.Observe(Snapshot{SubmissionID: "sub-1", Status: domain.StatusRunning, Stage: domain.StageUploadFiles})
	if s := <-ch; s.Stage != domain.StageUploadFiles {
		t.Errorf("got %+v, want upload_files", s)
	}

	tr.Observe(Snapshot{SubmissionID: "sub-1", Status: domain.StatusDone})
	if s := <-ch; s.Status != domain.StatusDone {
		t.Errorf("got %+v, want done", s)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Errorf("expected channel closed after terminal snapshot")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestTracker_SlowSubscriberGetsLatest(t *testing.T) {
	tr := NewTracker("sub-1")
	ch, cancel := tr.Subscribe()
	defer cancel()

	for _, st := range domain.Stages {
		tr.Observe(Snapshot{SubmissionID: "sub-1", Status: domain.StatusRunning, Stage: st})
	}

	s := <-ch
	if s.Stage != domain.StageAnchorHashes {
		t.Errorf("got %s, want latest stage anchor_hashes", s.Stage)
	}
}

func TestTracker_SubscribeAfterTerminal(t *testing.T) {
	tr := NewTracker("sub-1")
	tr.Observe(Snapshot{
		SubmissionID: "sub-1",
		Status:       domain.StatusFailed,
		Stage:        domain.StageAnchorHashes,
		Error:        &domain.ErrorRecord{Kind: "AnchorError", Stage: domain.StageAnchorHashes, Message: "x"},
		Published:    true,
	})

	ch, cancel := tr.Subscribe()
	defer cancel()

	s, ok := <-ch
	if !ok || s.Status != domain.StatusFailed || !s.Published {
		t.Errorf("got %+v (ok=%t)", s, ok)
	}
	if _, ok := <-ch; ok {
		t.Errorf("expected closed channel")
	}
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker("sub-1")
	ch, cancel := tr.Subscribe()
	<-ch

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Errorf("expected closed channel after cancel")
	}

	// Observing after cancel must not panic
	tr.Observe(Snapshot{SubmissionID: "sub-1", Status: domain.StatusDone})
}
