package assessments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/storage/db"
)

// sqliteTimeLayout is fixed width so TEXT timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

const pgUniqueViolation = "23505"

var placeholder = regexp.MustCompile(`\$\d+`)

// SQLRepo implements Repo on database/sql for Postgres and SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewSQLRepo constructs a SQLRepo. An empty dialect means Postgres.
func NewSQLRepo(database *sql.DB, dialect db.Dialect) *SQLRepo {
	if dialect == "" {
		dialect = db.Postgres
	}
	return &SQLRepo{DB: database, Dialect: dialect}
}

// q adapts a $N query to the dialect. Every query binds each argument once, in order,
// so SQLite can use bare positional markers.
func (r *SQLRepo) q(query string) string {
	if r.Dialect == db.SQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

func (r *SQLRepo) timeArg(t time.Time) any {
	if r.Dialect == db.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (r *SQLRepo) jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Insert inserts a new assessment.
func (r *SQLRepo) Insert(ctx context.Context, a Assessment) error {
	const query = `
INSERT INTO assessments (
	id, created_at, lead_name, lead_email, lead_company, lead_role, answers_json,
	score_strategy, score_process, score_data, score_tech, score_people, score_journey,
	score_overall, maturity_level
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, r.q(query),
		a.ID,
		r.timeArg(a.CreatedAt),
		nullable(a.Lead.Name),
		nullable(a.Lead.Email),
		nullable(a.Lead.Company),
		nullable(a.Lead.Role),
		string(answers),
		a.Scores.Strategy,
		a.Scores.Process,
		a.Scores.Data,
		a.Scores.Tech,
		a.Scores.People,
		a.Scores.Journey,
		a.Scores.Overall,
		a.MaturityLevel,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Get returns an assessment by ID.
func (r *SQLRepo) Get(ctx context.Context, id string) (Assessment, error) {
	const query = `
SELECT id, created_at, lead_name, lead_email, lead_company, lead_role, answers_json,
       score_strategy, score_process, score_data, score_tech, score_people, score_journey,
       score_overall, maturity_level, ai_analysis, ai_action_plan, ai_generated_at
FROM assessments
WHERE id = $1`
	var a Assessment
	var createdAt dbTime
	var leadName, leadEmail, leadCompany, leadRole sql.NullString
	var answers []byte
	var analysis, actionPlan []byte
	var generatedAt dbTime
	err := r.DB.QueryRowContext(ctx, r.q(query), id).Scan(
		&a.ID,
		&createdAt,
		&leadName,
		&leadEmail,
		&leadCompany,
		&leadRole,
		&answers,
		&a.Scores.Strategy,
		&a.Scores.Process,
		&a.Scores.Data,
		&a.Scores.Tech,
		&a.Scores.People,
		&a.Scores.Journey,
		&a.Scores.Overall,
		&a.MaturityLevel,
		&analysis,
		&actionPlan,
		&generatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, ErrNotFound
		}
		return Assessment{}, err
	}
	a.CreatedAt = createdAt.Time
	a.Lead = Lead{Name: leadName.String, Email: leadEmail.String, Company: leadCompany.String, Role: leadRole.String}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return Assessment{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	a.AIAnalysis = cloneRaw(analysis)
	a.AIActionPlan = cloneRaw(actionPlan)
	if generatedAt.Valid {
		t := generatedAt.Time
		a.AIGeneratedAt = &t
	}
	return a, nil
}

// UpdateAI attaches enrichment payloads; ErrNotFound when no row matched.
func (r *SQLRepo) UpdateAI(ctx context.Context, id string, analysis, actionPlan json.RawMessage, generatedAt time.Time) error {
	const query = `
UPDATE assessments
SET ai_analysis = $1, ai_action_plan = $2, ai_generated_at = $3
WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, r.q(query), r.jsonArg(analysis), r.jsonArg(actionPlan), r.timeArg(generatedAt), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AllScores scans the score columns of every row.
func (r *SQLRepo) AllScores(ctx context.Context) ([]scoring.Scores, error) {
	const query = `
SELECT score_strategy, score_process, score_data, score_tech, score_people, score_journey, score_overall
FROM assessments`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []scoring.Scores{}
	for rows.Next() {
		var s scoring.Scores
		if err := rows.Scan(&s.Strategy, &s.Process, &s.Data, &s.Tech, &s.People, &s.Journey, &s.Overall); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of stored assessments.
func (r *SQLRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Stats computes the admin dashboard bundle with one aggregate query and two scans.
func (r *SQLRepo) Stats(ctx context.Context) (Stats, error) {
	const totalsQuery = `
SELECT COUNT(*),
       COALESCE(SUM(score_strategy), 0), COALESCE(SUM(score_process), 0), COALESCE(SUM(score_data), 0),
       COALESCE(SUM(score_tech), 0), COALESCE(SUM(score_people), 0), COALESCE(SUM(score_journey), 0),
       COALESCE(SUM(score_overall), 0),
       COALESCE(SUM(CASE WHEN score_overall < 1.5 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN score_overall >= 1.5 AND score_overall < 2.5 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN score_overall >= 2.5 AND score_overall < 3.5 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN score_overall >= 3.5 AND score_overall < 4.5 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN score_overall >= 4.5 THEN 1 ELSE 0 END), 0)
FROM assessments`
	const recentQuery = `
SELECT id, created_at, lead_name, lead_company, lead_email, score_overall, maturity_level
FROM assessments
ORDER BY created_at DESC
LIMIT $1`
	const trendQuery = `SELECT created_at, score_overall FROM assessments`

	var st Stats
	var sums scoring.Scores
	var buckets [scoring.BucketCount]int
	err := r.DB.QueryRowContext(ctx, totalsQuery).Scan(
		&st.Total,
		&sums.Strategy, &sums.Process, &sums.Data, &sums.Tech, &sums.People, &sums.Journey,
		&sums.Overall,
		&buckets[0], &buckets[1], &buckets[2], &buckets[3], &buckets[4],
	)
	if err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}
	st.AvgScores = averageMap(sums, st.Total)
	st.Distribution = distributionMap(buckets)

	rows, err := r.DB.QueryContext(ctx, r.q(recentQuery), recentLimit)
	if err != nil {
		return Stats{}, fmt.Errorf("stats recent: %w", err)
	}
	st.Recent = []Recent{}
	for rows.Next() {
		var item Recent
		var createdAt dbTime
		var name, company, email sql.NullString
		if err := rows.Scan(&item.ID, &createdAt, &name, &company, &email, &item.ScoreOverall, &item.MaturityLevel); err != nil {
			rows.Close()
			return Stats{}, err
		}
		item.CreatedAt = createdAt.Time
		item.LeadName = nullString(name)
		item.LeadCompany = nullString(company)
		item.LeadEmail = nullString(email)
		st.Recent = append(st.Recent, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = r.DB.QueryContext(ctx, trendQuery)
	if err != nil {
		return Stats{}, fmt.Errorf("stats trend: %w", err)
	}
	defer rows.Close()
	points := []trendPoint{}
	for rows.Next() {
		var at dbTime
		var overall float64
		if err := rows.Scan(&at, &overall); err != nil {
			return Stats{}, err
		}
		points = append(points, trendPoint{at: at.Time, overall: overall})
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	st.Weekly = weeklyTrend(points)
	return st, nil
}

const recordColumns = `id, created_at, lead_name, lead_email, lead_company, lead_role,
       score_strategy, score_process, score_data, score_tech, score_people, score_journey,
       score_overall, maturity_level`

// List returns one page of assessments, newest first.
func (r *SQLRepo) List(ctx context.Context, page, limit int) (Page, error) {
	page, limit = NormalizePage(page, limit)
	query := `
SELECT ` + recordColumns + `
FROM assessments
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	items, err := r.queryRecords(ctx, r.q(query), limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, Pages: pageCount(total, limit)}, nil
}

// ListForExport returns every assessment, newest first.
func (r *SQLRepo) ListForExport(ctx context.Context) ([]Record, error) {
	query := `
SELECT ` + recordColumns + `
FROM assessments
ORDER BY created_at DESC`
	return r.queryRecords(ctx, query)
}

func (r *SQLRepo) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var createdAt dbTime
		var name, email, company, role sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&createdAt,
			&name,
			&email,
			&company,
			&role,
			&rec.ScoreStrategy,
			&rec.ScoreProcess,
			&rec.ScoreData,
			&rec.ScoreTech,
			&rec.ScorePeople,
			&rec.ScoreJourney,
			&rec.ScoreOverall,
			&rec.MaturityLevel,
		); err != nil {
			return nil, err
		}
		rec.CreatedAt = createdAt.Time
		rec.LeadName = nullString(name)
		rec.LeadEmail = nullString(email)
		rec.LeadCompany = nullString(company)
		rec.LeadRole = nullString(role)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TrackEvent appends an analytics event.
func (r *SQLRepo) TrackEvent(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) error {
	const query = `
INSERT INTO analytics_events (event_type, assessment_id, metadata_json, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, r.q(query), eventType, nullable(assessmentID), r.jsonArg(metadata), r.timeArg(time.Now()))
	return err
}

// EventStats counts events per type, ordered by type.
func (r *SQLRepo) EventStats(ctx context.Context) ([]EventCount, error) {
	const query = `
SELECT event_type, COUNT(*)
FROM analytics_events
GROUP BY event_type
ORDER BY event_type`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EventCount{}
	for rows.Next() {
		var ec EventCount
		if err := rows.Scan(&ec.EventType, &ec.Count); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
			return true
		}
	}
	return false
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

// dbTime scans TIMESTAMPTZ values from pgx and TEXT timestamps from SQLite.
type dbTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

var _ Repo = (*SQLRepo)(nil)
