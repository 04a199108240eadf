package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/ingest"
	"jobradar.fyi/jobradar/internal/jobposting"
)

// fakeReconcileStore backs reconcileDuplicate and the merger in tests.
// A non-nil patchErr makes every merge fail.
type fakeReconcileStore struct {
	view         db.MergeView
	patchErr     error
	deactivated  []int64
	canonicalIDs []int64
	events       []db.DedupEventRecord
}

func (f *fakeReconcileStore) GetMergeView(_ context.Context, postingID int64) (*db.MergeView, error) {
	view := f.view
	view.PostingID = postingID
	return &view, nil
}

func (f *fakeReconcileStore) ApplyMergePatch(_ context.Context, _ int64, _ db.MergePatch, _ time.Time) error {
	return f.patchErr
}

func (f *fakeReconcileStore) DeactivateAsDuplicate(_ context.Context, postingID, canonicalID int64, _ time.Time) error {
	f.deactivated = append(f.deactivated, postingID)
	f.canonicalIDs = append(f.canonicalIDs, canonicalID)
	return nil
}

func (f *fakeReconcileStore) InsertDedupEvent(_ context.Context, record db.DedupEventRecord) error {
	f.events = append(f.events, record)
	return nil
}

func TestReconcileDuplicateSurvivesMergeFailure(t *testing.T) {
	t.Parallel()

	store := &fakeReconcileStore{
		view:     db.MergeView{Description: "duplicate description text"},
		patchErr: errors.New("canonical row locked"),
	}

	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)
	merger := jobposting.NewMerger(store, logger)

	match := &jobposting.DuplicateCandidate{
		PostingID:  3,
		MatchType:  jobposting.MatchFuzzyTitleCompany,
		Confidence: 0.97,
	}
	if err := reconcileDuplicate(context.Background(), store, merger, logger, 11, match); err != nil {
		t.Fatalf("a failed merge must not fail the reconcile: %v", err)
	}

	if len(store.deactivated) != 1 || store.deactivated[0] != 11 {
		t.Fatalf("duplicate must still be deactivated, got %v", store.deactivated)
	}
	if store.canonicalIDs[0] != 3 {
		t.Fatalf("deactivation must point at the canonical posting, got %v", store.canonicalIDs)
	}
	if len(store.events) != 1 || store.events[0].Decision != ingest.DecisionMerged {
		t.Fatalf("reconcile must still record the merged event, got %+v", store.events)
	}
	if store.events[0].TitleSimilarity == nil || *store.events[0].TitleSimilarity != 0.97 {
		t.Fatalf("fuzzy match must carry the title similarity, got %+v", store.events[0])
	}
	if !strings.Contains(logBuf.String(), "reconcile merge failed") {
		t.Fatalf("merge failure must be logged, got %q", logBuf.String())
	}
}

func TestReconcileDuplicateMergesBeforeDeactivation(t *testing.T) {
	t.Parallel()

	store := &fakeReconcileStore{view: db.MergeView{Description: "text"}}
	logger := zerolog.Nop()
	merger := jobposting.NewMerger(store, logger)

	match := &jobposting.DuplicateCandidate{
		PostingID:  5,
		MatchType:  jobposting.MatchContentSimilarity,
		Confidence: 0.93,
	}
	if err := reconcileDuplicate(context.Background(), store, merger, logger, 12, match); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("expected one event, got %d", len(store.events))
	}
	event := store.events[0]
	if event.ChosenPostingID == nil || *event.ChosenPostingID != 5 {
		t.Fatalf("event must name the canonical posting, got %+v", event.ChosenPostingID)
	}
	if event.ContentCosine == nil || *event.ContentCosine != 0.93 {
		t.Fatalf("content match must carry the cosine, got %+v", event)
	}
}
