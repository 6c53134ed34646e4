package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"revops-backend/internal/assessments"
	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/auth"
	"revops-backend/internal/shared/telemetry"
)

var seedTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *assessments.MemoryRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		a := assessments.Assessment{
			ID:            fmt.Sprintf("a-%02d", i),
			CreatedAt:     seedTime.Add(time.Duration(i) * time.Hour),
			Lead:          assessments.Lead{Name: "Ada", Company: `Acme; "Best" Co`},
			Scores:        scoring.Scores{Strategy: 3, Process: 3, Data: 3, Tech: 3, People: 3, Journey: 3, Overall: 3},
			MaturityLevel: "Defined",
		}
		if err := repo.Insert(context.Background(), a); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
}

func setupAdminRouter(t *testing.T) (*gin.Engine, *assessments.MemoryRepo, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := assessments.NewMemoryRepo()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, err := tokens.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	router := gin.New()
	NewHandler(repo, auth.NewPasswordChecker("letmein", ""), tokens).RegisterRoutes(router.Group("/api"))
	return router, repo, token
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestLogin(t *testing.T) {
	router, _, _ := setupAdminRouter(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	for _, body := range []string{`{"password":"wrong"}`, `{}`, `garbage`} {
		resp := post(body)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("body %q: expected 401, got %d", body, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "Invalid password") {
			t.Fatalf("body %q: unexpected error %s", body, resp.Body.String())
		}
	}

	resp := post(`{"password":"letmein"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.Token == "" {
		t.Fatalf("expected token, got %s", resp.Body.String())
	}
	if get(router, "/api/admin/stats", out.Token).Code != http.StatusOK {
		t.Fatalf("issued token was rejected")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _, _ := setupAdminRouter(t)
	for _, path := range []string{"/api/admin/stats", "/api/admin/assessments", "/api/admin/export"} {
		if resp := get(router, path, ""); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
		if resp := get(router, path, "not-a-jwt"); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for bad token, got %d", path, resp.Code)
		}
	}
}

func TestStatsIncludesEvents(t *testing.T) {
	router, repo, token := setupAdminRouter(t)
	seed(t, repo, 3)
	_ = repo.TrackEvent(context.Background(), "cta_click", "a-00", nil)

	resp := get(router, "/api/admin/stats?token="+token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out struct {
		Total        int                      `json:"total"`
		AvgScores    map[string]float64       `json:"avgScores"`
		Distribution map[string]int           `json:"distribution"`
		Recent       []map[string]any         `json:"recent"`
		Events       []assessments.EventCount `json:"events"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 3 || out.AvgScores["overall"] != 3 || out.Distribution["level3"] != 3 || len(out.Recent) != 3 {
		t.Fatalf("unexpected stats %s", resp.Body.String())
	}
	if len(out.Events) != 1 || out.Events[0].EventType != "cta_click" || out.Events[0].Count != 1 {
		t.Fatalf("unexpected events %+v", out.Events)
	}
}

func TestListPagination(t *testing.T) {
	router, repo, token := setupAdminRouter(t)
	seed(t, repo, 25)

	cases := []struct {
		query                     string
		items, total, page, pages int
	}{
		{"page=2&limit=10", 10, 25, 2, 3},
		{"page=3&limit=10", 5, 25, 3, 3},
		{"", 20, 25, 1, 2},
		{"page=abc&limit=500", 25, 25, 1, 1},
	}
	for _, tc := range cases {
		resp := get(router, "/api/admin/assessments?"+tc.query, token)
		if resp.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tc.query, resp.Code)
		}
		var page assessments.Page
		if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(page.Items) != tc.items || page.Total != tc.total || page.Page != tc.page || page.Pages != tc.pages {
			t.Fatalf("%q: unexpected page items=%d total=%d page=%d pages=%d",
				tc.query, len(page.Items), page.Total, page.Page, page.Pages)
		}
	}
}

func TestExport(t *testing.T) {
	router, repo, token := setupAdminRouter(t)
	seed(t, repo, 2)

	resp := get(router, "/api/admin/export", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != "attachment; filename=revops-assessments.csv" {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	body := resp.Body.String()
	if !strings.HasPrefix(body, "\ufeffid;created_at;lead_name;") {
		t.Fatalf("expected BOM and header, got %q", body[:40])
	}
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(lines))
	}
	want := `a-01;2026-03-02T10:00:00Z;Ada;;"Acme; ""Best"" Co";;3;3;3;3;3;3;3;Defined`
	if lines[1] != want {
		t.Fatalf("unexpected row\n got: %s\nwant: %s", lines[1], want)
	}
}

func TestEncodeCSVFormatsScores(t *testing.T) {
	role := "Head of\nRevOps"
	out, err := EncodeCSV([]assessments.Record{{
		ID:            "x",
		CreatedAt:     seedTime,
		LeadRole:      &role,
		ScoreStrategy: 2.5,
		ScoreOverall:  1.7,
		MaturityLevel: "Reactive",
	}})
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if !strings.Contains(string(out), "x;2026-03-02T09:00:00Z;;;;\"Head of\nRevOps\";2.5;0;0;0;0;0;1.7;Reactive\n") {
		t.Fatalf("unexpected csv %q", out)
	}
}

type failingStore struct {
	*assessments.MemoryRepo
	err error
}

func (s failingStore) Stats(ctx context.Context) (assessments.Stats, error) {
	return assessments.Stats{}, s.err
}

func (s failingStore) List(ctx context.Context, page, limit int) (assessments.Page, error) {
	return assessments.Page{}, s.err
}

func (s failingStore) ListForExport(ctx context.Context) ([]assessments.Record, error) {
	return nil, s.err
}

func TestStoreFailuresLogCause(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, err := tokens.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	store := failingStore{MemoryRepo: assessments.NewMemoryRepo(), err: errors.New("database is locked")}
	router := gin.New()
	NewHandler(store, auth.NewPasswordChecker("letmein", ""), tokens).RegisterRoutes(router.Group("/api"))

	for _, path := range []string{"/api/admin/stats", "/api/admin/assessments", "/api/admin/export"} {
		logs.TakeAll()
		resp := get(router, path, token)
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, resp.Code)
		}
		failed := logs.FilterMessage("admin.request.failed").All()
		if len(failed) != 1 || failed[0].ContextMap()["error"] != "database is locked" {
			t.Fatalf("%s: expected cause in log, got %+v", path, failed)
		}
	}
}
