package events

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/shared/telemetry"
)

// Handler exposes the public event intake.
type Handler struct {
	Tracker *Tracker
}

// NewHandler constructs a Handler.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{Tracker: tracker}
}

// RegisterRoutes attaches event routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.trackEvent)
}

type trackRequest struct {
	Type         string          `json:"type"`
	AssessmentID string          `json:"assessmentId"`
	Metadata     json.RawMessage `json:"metadata"`
}

func (h *Handler) trackEvent(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing event type", []map[string]string{
			{"field": "type", "issue": "required"},
		})
		return
	}
	metadata := req.Metadata
	if string(metadata) == "null" {
		metadata = nil
	}

	if err := h.Tracker.Track(c.Request.Context(), req.Type, req.AssessmentID, metadata); err != nil {
		telemetry.Error("event.track.failed", map[string]any{"event_type": req.Type, "error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"ok": true})
}
