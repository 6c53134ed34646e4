package assessments

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"revops-backend/internal/shared/storage/db"
)

func newMockRepo(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return NewSQLRepo(database, ""), mock
}

func TestSQLRepoInsertPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAssessment("a-1", baseTime, 3.0)

	mock.ExpectExec("INSERT INTO assessments").
		WithArgs(
			"a-1",
			sqlmock.AnyArg(), // created_at
			"Ada",
			"ada@example.com",
			"Acme",
			nil, // lead_role
			`{"strategy_1":3}`,
			3.0, 3.0, 3.0, 3.0, 3.0, 3.0,
			3.0,
			"Defined",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoInsertMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO assessments").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := repo.Insert(context.Background(), sampleAssessment("a-1", baseTime, 3.0))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSQLRepoGetPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	generated := baseTime.Add(time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "created_at", "lead_name", "lead_email", "lead_company", "lead_role", "answers_json",
		"score_strategy", "score_process", "score_data", "score_tech", "score_people", "score_journey",
		"score_overall", "maturity_level", "ai_analysis", "ai_action_plan", "ai_generated_at",
	}).AddRow(
		"a-1", baseTime, "Ada", nil, "Acme", nil, []byte(`{"strategy_1":2}`),
		2.0, 2.0, 2.0, 2.0, 2.0, 2.0,
		2.0, "Reactive", []byte(`{"narrative":"n"}`), nil, generated,
	)
	mock.ExpectQuery(`FROM assessments\s+WHERE id = \$1`).WithArgs("a-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Lead.Name != "Ada" || got.Lead.Email != "" || got.Answers["strategy_1"] != 2 {
		t.Fatalf("unexpected assessment %+v", got)
	}
	if !got.HasAI() || !got.AIGeneratedAt.Equal(generated) || got.AIActionPlan != nil {
		t.Fatalf("unexpected ai fields %+v", got)
	}
}

func TestSQLRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM assessments").WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLRepoUpdateAINotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE assessments").
		WithArgs(`{"narrative":"n"}`, nil, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAI(context.Background(), "missing", json.RawMessage(`{"narrative":"n"}`), nil, baseTime)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLRepoListPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)
	cols := []string{
		"id", "created_at", "lead_name", "lead_email", "lead_company", "lead_role",
		"score_strategy", "score_process", "score_data", "score_tech", "score_people", "score_journey",
		"score_overall", "maturity_level",
	}
	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"a-1", baseTime, nil, "x@example.com", nil, "", 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0, "Ad Hoc",
		))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assessments`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	page, err := repo.List(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 11 || page.Pages != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	item := page.Items[0]
	if item.LeadName != nil || item.LeadRole != nil || deref(item.LeadEmail) != "x@example.com" {
		t.Fatalf("unexpected nullable lead fields %+v", item)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSQLRepoRebindsForSQLite(t *testing.T) {
	repo := NewSQLRepo(nil, db.SQLite)
	got := repo.q("SELECT 1 FROM t WHERE a = $1 AND b = $2 LIMIT $10")
	if got != "SELECT 1 FROM t WHERE a = ? AND b = ? LIMIT ?" {
		t.Fatalf("unexpected rebind %q", got)
	}
	if pg := NewSQLRepo(nil, db.Postgres).q("a = $1"); pg != "a = $1" {
		t.Fatalf("postgres query should be unchanged, got %q", pg)
	}
}

func openSQLiteRepo(t *testing.T) *SQLRepo {
	t.Helper()
	ctx := context.Background()
	database, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "revops.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.RunMigrations(ctx, database, db.SQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return NewSQLRepo(database, db.SQLite)
}

func TestSQLiteRepoLifecycle(t *testing.T) {
	repo := openSQLiteRepo(t)
	ctx := context.Background()

	first := sampleAssessment("a-1", baseTime, 1.2)
	first.Lead.Role = "VP Sales"
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, first); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	_ = repo.Insert(ctx, sampleAssessment("a-2", baseTime.Add(time.Hour), 3.0))
	_ = repo.Insert(ctx, sampleAssessment("a-3", baseTime.AddDate(0, 0, 7), 4.6))

	got, err := repo.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(baseTime) || got.Lead.Role != "VP Sales" || got.HasAI() {
		t.Fatalf("unexpected assessment %+v", got)
	}

	if err := repo.UpdateAI(ctx, "a-1", json.RawMessage(`{"narrative":"n"}`), json.RawMessage(`{"summary":"s"}`), baseTime); err != nil {
		t.Fatalf("UpdateAI: %v", err)
	}
	if err := repo.UpdateAI(ctx, "missing", nil, nil, baseTime); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ = repo.Get(ctx, "a-1")
	if !got.HasAI() || string(got.AIActionPlan) != `{"summary":"s"}` {
		t.Fatalf("ai fields not stored: %+v", got)
	}

	scores, err := repo.AllScores(ctx)
	if err != nil || len(scores) != 3 {
		t.Fatalf("AllScores: %v %d", err, len(scores))
	}

	page, err := repo.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || page.Items[0].ID != "a-3" || page.Items[1].ID != "a-2" {
		t.Fatalf("unexpected page %+v", page)
	}

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.AvgScores["overall"] != 2.9 || st.Distribution["level1"] != 1 || st.Distribution["level5"] != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if len(st.Recent) != 3 || st.Recent[0].ID != "a-3" {
		t.Fatalf("unexpected recent %+v", st.Recent)
	}
	if len(st.Weekly) != 2 || st.Weekly[0].Week != "2026-W11" || st.Weekly[1].Count != 2 {
		t.Fatalf("unexpected weekly %+v", st.Weekly)
	}

	exported, err := repo.ListForExport(ctx)
	if err != nil || len(exported) != 3 || exported[2].ID != "a-1" {
		t.Fatalf("ListForExport: %v %+v", err, exported)
	}
}

func TestSQLiteRepoEvents(t *testing.T) {
	repo := openSQLiteRepo(t)
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

	empty, err := openSQLiteRepo(t).Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on empty db: %v", err)
	}
	if empty.Total != 0 || empty.AvgScores["overall"] != 0 || len(empty.Recent) != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}
