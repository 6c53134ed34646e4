// Package sharepage renders the public results page with per-assessment Open Graph tags.
package sharepage

import (
	"context"
	"errors"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/assessments"
	"revops-backend/internal/shared/server/middleware"
	"revops-backend/internal/shared/telemetry"
)

// TemplateName is the results page template inside the public directory.
const TemplateName = "results.html"

// Getter loads one assessment.
type Getter interface {
	Get(ctx context.Context, id string) (assessments.Assessment, error)
}

// Handler serves GET /results/:id.
type Handler struct {
	Repo      Getter
	PublicDir string
}

// NewHandler constructs a Handler.
func NewHandler(repo Getter, publicDir string) *Handler {
	return &Handler{Repo: repo, PublicDir: publicDir}
}

// RegisterRoutes attaches the share page route.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/results/:id", h.results)
}

func (h *Handler) results(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.AssessmentIDKey, id)

	a, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, assessments.ErrNotFound) {
			telemetry.Error("sharepage.lookup_failed", map[string]any{
				"assessment_id": id,
				"request_id":    middleware.RequestIDFromContext(c),
				"error":         err,
			})
		}
		c.Redirect(http.StatusFound, "/")
		return
	}

	tmpl, err := os.ReadFile(filepath.Join(h.PublicDir, TemplateName))
	if err != nil {
		telemetry.Warn("sharepage.template_missing", map[string]any{"dir": h.PublicDir, "error": err})
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(Render(string(tmpl), a)))
}

// Render substitutes the Open Graph placeholders of the results template.
func Render(tmpl string, a assessments.Assessment) string {
	title := "RevOps Maturity: " + strconv.FormatFloat(a.Scores.Overall, 'f', -1, 64) + "/5.0"
	desc := a.MaturityLevel + " – Organizational RevOps maturity assessment"
	return strings.NewReplacer(
		"{{OG_TITLE}}", html.EscapeString(title),
		"{{OG_DESC}}", html.EscapeString(desc),
		"{{ASSESSMENT_ID}}", html.EscapeString(a.ID),
	).Replace(tmpl)
}
