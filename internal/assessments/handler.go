package assessments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/queue"
	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/server/middleware"
	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/shared/telemetry"
)

// Handler wires the public assessment endpoints to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches assessment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assessments", h.submit)
	rg.GET("/assessments/:id", h.get)
	rg.GET("/assessments/:id/ai", h.aiStatus)
	rg.POST("/assessments/:id/generate-ai", h.generateAI)
}

type submitRequest struct {
	Answers json.RawMessage `json:"answers"`
	Lead    Lead            `json:"lead"`
}

// ShareURL is the public results path of an assessment.
func ShareURL(id string) string {
	return "/results/" + id
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Missing answers", []map[string]string{
			{"field": "body", "issue": "invalid_json"},
		})
		return
	}
	answers, err := scoring.ParseAnswers(req.Answers)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Missing answers", []map[string]string{
			{"field": "answers", "issue": strings.TrimPrefix(err.Error(), scoring.ErrInvalidAnswers.Error()+": ")},
		})
		return
	}

	sub, err := h.Svc.Submit(c.Request.Context(), answers, req.Lead)
	if err != nil {
		internalError(c, err, "failed to save assessment")
		return
	}
	c.Set(middleware.AssessmentIDKey, sub.Assessment.ID)

	respond.JSON(c, http.StatusOK, gin.H{
		"id":        sub.Assessment.ID,
		"scores":    sub.Assessment.Scores,
		"level":     sub.Level,
		"benchmark": sub.Benchmark,
		"shareUrl":  ShareURL(sub.Assessment.ID),
	})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.AssessmentIDKey, id)

	sub, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, err, "failed to fetch assessment")
		return
	}
	a := sub.Assessment
	respond.JSON(c, http.StatusOK, gin.H{
		"id":            a.ID,
		"createdAt":     a.CreatedAt,
		"scores":        a.Scores,
		"level":         sub.Level,
		"maturityLevel": a.MaturityLevel,
		"benchmark":     sub.Benchmark,
		"shareUrl":      ShareURL(a.ID),
		"lead": gin.H{
			"name":    a.Lead.Name,
			"company": a.Lead.Company,
		},
	})
}

func (h *Handler) aiStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.AssessmentIDKey, id)

	content, err := h.Svc.AIStatus(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, err, "failed to fetch ai content")
		return
	}
	respond.JSON(c, http.StatusOK, content)
}

func (h *Handler) generateAI(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.AssessmentIDKey, id)

	status, err := h.Svc.TriggerAI(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
			respond.Error(c, http.StatusServiceUnavailable, ErrorCodeAIBusy, "AI generation is busy, try again shortly", nil)
		default:
			h.lookupError(c, err, "failed to start ai generation")
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"status": status})
}

func (h *Handler) lookupError(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "Not found", nil)
		return
	}
	internalError(c, err, msg)
}

func internalError(c *gin.Context, err error, msg string) {
	telemetry.Error("assessments.request.failed", map[string]any{
		"path":          c.Request.URL.Path,
		"assessment_id": c.GetString(middleware.AssessmentIDKey),
		"request_id":    middleware.RequestIDFromContext(c),
		"error":         err,
	})
	respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, msg, nil)
}
