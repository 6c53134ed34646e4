package assessments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/storage/object"
	"revops-backend/internal/shared/telemetry"
)

const snapshotVersion = 1

// MemoryRepo stores assessments and events in memory and is safe for concurrent use.
// When a snapshot store is attached, the full state is written to it after every write.
type MemoryRepo struct {
	mu          sync.RWMutex
	byID        map[string]Assessment
	order       []string
	events      []Event
	nextEventID int64

	snapMu   sync.Mutex
	snapshot object.ObjectStore
	key      string
	now      func() time.Time
}

type memorySnapshot struct {
	Version     int          `json:"version"`
	Assessments []Assessment `json:"assessments"`
	Events      []Event      `json:"events"`
	NextEventID int64        `json:"nextEventId"`
}

// NewMemoryRepo constructs a MemoryRepo without persistence.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:        make(map[string]Assessment),
		nextEventID: 1,
		now:         time.Now,
	}
}

// NewSnapshotRepo constructs a MemoryRepo persisted to store under key.
// An existing snapshot is loaded; a missing one starts an empty repo.
func NewSnapshotRepo(ctx context.Context, store object.ObjectStore, key string) (*MemoryRepo, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if key == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}
	r := NewMemoryRepo()
	r.snapshot = store
	r.key = key
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MemoryRepo) load(ctx context.Context) error {
	rc, err := r.snapshot.Get(ctx, r.key)
	if errors.Is(err, object.ErrNotFound) {
		telemetry.Info("store.snapshot.empty", map[string]any{"key": r.key})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	defer rc.Close()

	var snap memorySnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range snap.Assessments {
		if _, dup := r.byID[a.ID]; dup {
			continue
		}
		r.byID[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	r.events = snap.Events
	r.nextEventID = snap.NextEventID
	for _, e := range r.events {
		if e.ID >= r.nextEventID {
			r.nextEventID = e.ID + 1
		}
	}
	if r.nextEventID < 1 {
		r.nextEventID = 1
	}
	telemetry.Info("store.snapshot.loaded", map[string]any{
		"key":         r.key,
		"assessments": len(r.order),
		"events":      len(r.events),
	})
	return nil
}

// persist writes the current state. Failures are logged; memory stays authoritative
// and the next write retries the snapshot.
func (r *MemoryRepo) persist(ctx context.Context) {
	if r.snapshot == nil {
		return
	}
	r.snapMu.Lock()
	defer r.snapMu.Unlock()

	r.mu.RLock()
	snap := memorySnapshot{
		Version:     snapshotVersion,
		Assessments: make([]Assessment, 0, len(r.order)),
		Events:      append([]Event(nil), r.events...),
		NextEventID: r.nextEventID,
	}
	for _, id := range r.order {
		snap.Assessments = append(snap.Assessments, r.byID[id])
	}
	r.mu.RUnlock()

	payload, err := json.Marshal(snap)
	if err != nil {
		telemetry.Error("store.snapshot.encode_failed", map[string]any{"error": err})
		return
	}
	if _, err := r.snapshot.Put(context.WithoutCancel(ctx), r.key, "application/json", bytes.NewReader(payload)); err != nil {
		telemetry.Error("store.snapshot.write_failed", map[string]any{"key": r.key, "error": err})
	}
}

// Insert stores a new assessment.
func (r *MemoryRepo) Insert(ctx context.Context, a Assessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, exists := r.byID[a.ID]; exists {
		r.mu.Unlock()
		return ErrConflict
	}
	r.byID[a.ID] = a
	r.order = append(r.order, a.ID)
	r.mu.Unlock()

	r.persist(ctx)
	return nil
}

// Get returns an assessment by its ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Assessment{}, ErrNotFound
	}
	return a, nil
}

// UpdateAI attaches enrichment payloads and the generation time.
func (r *MemoryRepo) UpdateAI(ctx context.Context, id string, analysis, actionPlan json.RawMessage, generatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	a, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	at := generatedAt.UTC()
	a.AIAnalysis = cloneRaw(analysis)
	a.AIActionPlan = cloneRaw(actionPlan)
	a.AIGeneratedAt = &at
	r.byID[id] = a
	r.mu.Unlock()

	r.persist(ctx)
	return nil
}

// AllScores returns the scores of every stored assessment.
func (r *MemoryRepo) AllScores(ctx context.Context) ([]scoring.Scores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]scoring.Scores, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Scores)
	}
	return out, nil
}

// Count returns the number of stored assessments.
func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

// Stats computes the admin dashboard bundle.
func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	all := r.newestFirst()

	var sums scoring.Scores
	var buckets [scoring.BucketCount]int
	points := make([]trendPoint, 0, len(all))
	for _, a := range all {
		for _, d := range scoring.Dimensions {
			sums.Set(d, sums.Get(d)+a.Scores.Get(d))
		}
		sums.Overall += a.Scores.Overall
		buckets[scoring.Bucket(a.Scores.Overall)]++
		points = append(points, trendPoint{at: a.CreatedAt, overall: a.Scores.Overall})
	}

	recent := make([]Recent, 0, recentLimit)
	for i := 0; i < len(all) && i < recentLimit; i++ {
		recent = append(recent, recentOf(all[i]))
	}

	return Stats{
		Total:        len(all),
		AvgScores:    averageMap(sums, len(all)),
		Distribution: distributionMap(buckets),
		Recent:       recent,
		Weekly:       weeklyTrend(points),
	}, nil
}

// List returns one page of assessments, newest first.
func (r *MemoryRepo) List(ctx context.Context, page, limit int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	page, limit = NormalizePage(page, limit)
	all := r.newestFirst()

	items := []Record{}
	offset := (page - 1) * limit
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		for _, a := range all[offset:end] {
			items = append(items, recordOf(a))
		}
	}
	return Page{Items: items, Total: len(all), Page: page, Pages: pageCount(len(all), limit)}, nil
}

// ListForExport returns every assessment, newest first.
func (r *MemoryRepo) ListForExport(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := r.newestFirst()
	out := make([]Record, 0, len(all))
	for _, a := range all {
		out = append(out, recordOf(a))
	}
	return out, nil
}

// TrackEvent appends an analytics event.
func (r *MemoryRepo) TrackEvent(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.events = append(r.events, Event{
		ID:           r.nextEventID,
		Type:         eventType,
		AssessmentID: assessmentID,
		Metadata:     cloneRaw(metadata),
		CreatedAt:    r.now().UTC(),
	})
	r.nextEventID++
	r.mu.Unlock()

	r.persist(ctx)
	return nil
}

// EventStats counts events per type, ordered by type.
func (r *MemoryRepo) EventStats(ctx context.Context) ([]EventCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	counts := make(map[string]int)
	for _, e := range r.events {
		counts[e.Type]++
	}
	r.mu.RUnlock()

	out := make([]EventCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, EventCount{EventType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out, nil
}

// newestFirst orders by creation time, later inserts first on ties.
func (r *MemoryRepo) newestFirst() []Assessment {
	r.mu.RLock()
	out := make([]Assessment, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.byID[r.order[i]])
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

var _ Repo = (*MemoryRepo)(nil)
