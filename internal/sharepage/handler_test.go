package sharepage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/assessments"
	"revops-backend/internal/scoring"
)

const page = `<html><head><meta property="og:title" content="{{OG_TITLE}}"><meta property="og:description" content="{{OG_DESC}}"></head><body data-id="{{ASSESSMENT_ID}}"></body></html>`

func setup(t *testing.T, withTemplate bool) (*gin.Engine, *assessments.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if withTemplate {
		if err := os.WriteFile(filepath.Join(dir, TemplateName), []byte(page), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	repo := assessments.NewMemoryRepo()
	_ = repo.Insert(context.Background(), assessments.Assessment{
		ID:            "a-1",
		Scores:        scoring.Scores{Overall: 2.7},
		MaturityLevel: "Defined",
	})
	router := gin.New()
	NewHandler(repo, dir).RegisterRoutes(router)
	return router, repo
}

func fetch(router *gin.Engine, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestResultsPageSubstitutesTags(t *testing.T) {
	router, _ := setup(t, true)

	resp := fetch(router, "/results/a-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`content="RevOps Maturity: 2.7/5.0"`,
		`content="Defined – Organizational RevOps maturity assessment"`,
		`data-id="a-1"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in %s", want, body)
		}
	}
}

func TestResultsPageRedirects(t *testing.T) {
	router, _ := setup(t, true)
	if resp := fetch(router, "/results/unknown"); resp.Code != http.StatusFound || resp.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect for unknown id, got %d", resp.Code)
	}

	router, _ = setup(t, false)
	if resp := fetch(router, "/results/a-1"); resp.Code != http.StatusFound {
		t.Fatalf("expected redirect without template, got %d", resp.Code)
	}
}

func TestRenderEscapes(t *testing.T) {
	out := Render("{{OG_DESC}}|{{ASSESSMENT_ID}}", assessments.Assessment{ID: `"><script>`, MaturityLevel: "A&B"})
	if out != "A&amp;B – Organizational RevOps maturity assessment|&#34;&gt;&lt;script&gt;" {
		t.Fatalf("unexpected render %q", out)
	}
}
