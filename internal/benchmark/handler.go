package benchmark

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/shared/telemetry"
)

// Handler exposes the public benchmark overview.
type Handler struct {
	Engine *Engine
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterRoutes attaches benchmark routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/benchmarks", h.getAggregates)
}

func (h *Handler) getAggregates(c *gin.Context) {
	agg, err := h.Engine.Aggregates(c.Request.Context())
	if err != nil {
		telemetry.Error("benchmark.aggregates.failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load benchmarks", nil)
		return
	}
	if agg == nil {
		respond.JSON(c, http.StatusOK, gin.H{"totalAssessments": 0})
		return
	}
	respond.JSON(c, http.StatusOK, agg)
}
