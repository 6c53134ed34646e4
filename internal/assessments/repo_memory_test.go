package assessments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"revops-backend/internal/shared/storage/object/local"
)

func TestMemoryRepoInsertGetConflict(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	a := sampleAssessment("a-1", baseTime, 3.0)

	if err := repo.Insert(ctx, a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, a); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, err := repo.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Lead.Company != "Acme" || got.Scores.Overall != 3.0 || got.HasAI() {
		t.Fatalf("unexpected assessment %+v", got)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoUpdateAI(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Insert(ctx, sampleAssessment("a-1", baseTime, 2.0))

	at := baseTime.Add(time.Minute)
	if err := repo.UpdateAI(ctx, "a-1", json.RawMessage(`{"narrative":"x"}`), nil, at); err != nil {
		t.Fatalf("UpdateAI: %v", err)
	}
	got, _ := repo.Get(ctx, "a-1")
	if !got.HasAI() || !got.AIGeneratedAt.Equal(at) {
		t.Fatalf("expected generated at %v, got %+v", at, got.AIGeneratedAt)
	}
	if string(got.AIAnalysis) != `{"narrative":"x"}` || got.AIActionPlan != nil {
		t.Fatalf("unexpected ai payloads %s / %s", got.AIAnalysis, got.AIActionPlan)
	}

	if err := repo.UpdateAI(ctx, "missing", nil, nil, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoListPagination(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_ = repo.Insert(ctx, sampleAssessment(fmt.Sprintf("a-%02d", i), baseTime.Add(time.Duration(i)*time.Hour), 3.0))
	}

	page, err := repo.List(ctx, 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 10 || page.Total != 25 || page.Page != 2 || page.Pages != 3 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].ID != "a-14" {
		t.Fatalf("expected newest-first order, got first id %s", page.Items[0].ID)
	}

	last, _ := repo.List(ctx, 3, 10)
	if len(last.Items) != 5 {
		t.Fatalf("expected 5 items on last page, got %d", len(last.Items))
	}
	beyond, _ := repo.List(ctx, 9, 10)
	if len(beyond.Items) != 0 || beyond.Items == nil {
		t.Fatalf("expected empty non-nil items past the end, got %+v", beyond.Items)
	}
	clamped, _ := repo.List(ctx, 0, 1000)
	if clamped.Page != 1 || len(clamped.Items) != 25 || clamped.Pages != 1 {
		t.Fatalf("unexpected clamped page %+v", clamped)
	}
}

func TestMemoryRepoStats(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	empty, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.Total != 0 || empty.AvgScores["overall"] != 0 || empty.Distribution["level3"] != 0 || len(empty.Weekly) != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}

	_ = repo.Insert(ctx, sampleAssessment("a-1", baseTime, 1.2))
	_ = repo.Insert(ctx, sampleAssessment("a-2", baseTime.Add(time.Hour), 3.0))
	_ = repo.Insert(ctx, sampleAssessment("a-3", baseTime.AddDate(0, 0, 7), 4.6))

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.AvgScores["overall"] != 2.9 || st.AvgScores["tech"] != 2.9 {
		t.Fatalf("unexpected totals %+v", st)
	}
	if st.Distribution["level1"] != 1 || st.Distribution["level3"] != 1 || st.Distribution["level5"] != 1 {
		t.Fatalf("unexpected distribution %+v", st.Distribution)
	}
	if len(st.Recent) != 3 || st.Recent[0].ID != "a-3" {
		t.Fatalf("unexpected recent %+v", st.Recent)
	}
	if len(st.Weekly) != 2 {
		t.Fatalf("expected 2 weeks, got %+v", st.Weekly)
	}
	if st.Weekly[0].Week != "2026-W11" || st.Weekly[0].Count != 1 {
		t.Fatalf("unexpected newest week %+v", st.Weekly[0])
	}
	if st.Weekly[1].Week != "2026-W10" || st.Weekly[1].Count != 2 || st.Weekly[1].AvgOverall != 2.1 {
		t.Fatalf("unexpected older week %+v", st.Weekly[1])
	}
}

func TestMemoryRepoEvents(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.TrackEvent(ctx, "pdf_download", "a-1", nil)
	_ = repo.TrackEvent(ctx, "cta_click", "", json.RawMessage(`{"cta":"book"}`))
	_ = repo.TrackEvent(ctx, "pdf_download", "", nil)

	counts, err := repo.EventStats(ctx)
	if err != nil {
		t.Fatalf("EventStats: %v", err)
	}
	if len(counts) != 2 || counts[0].EventType != "cta_click" || counts[1].Count != 2 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestSnapshotRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())

	repo, err := NewSnapshotRepo(ctx, store, "state/assessments.json")
	if err != nil {
		t.Fatalf("NewSnapshotRepo: %v", err)
	}
	_ = repo.Insert(ctx, sampleAssessment("a-1", baseTime, 2.0))
	_ = repo.UpdateAI(ctx, "a-1", nil, json.RawMessage(`{"summary":"s"}`), baseTime)
	_ = repo.TrackEvent(ctx, "cta_click", "a-1", nil)

	reopened, err := NewSnapshotRepo(ctx, store, "state/assessments.json")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !got.HasAI() || string(got.AIActionPlan) != `{"summary":"s"}` {
		t.Fatalf("ai fields not restored: %+v", got)
	}

	_ = reopened.TrackEvent(ctx, "cta_click", "", nil)
	counts, _ := reopened.EventStats(ctx)
	if len(counts) != 1 || counts[0].Count != 2 {
		t.Fatalf("unexpected event counts %+v", counts)
	}
	if reopened.events[1].ID != 2 {
		t.Fatalf("expected event ids to continue, got %d", reopened.events[1].ID)
	}
}
