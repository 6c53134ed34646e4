// Package admin serves the password-protected dashboard endpoints.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/assessments"
	"revops-backend/internal/shared/server/middleware"
	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/shared/telemetry"
)

// Store is the read side the dashboard needs.
type Store interface {
	Stats(ctx context.Context) (assessments.Stats, error)
	List(ctx context.Context, page, limit int) (assessments.Page, error)
	ListForExport(ctx context.Context) ([]assessments.Record, error)
	EventStats(ctx context.Context) ([]assessments.EventCount, error)
}

// PasswordChecker validates the admin password.
type PasswordChecker interface {
	Check(candidate string) bool
}

// Tokens issues and verifies admin session tokens.
type Tokens interface {
	Issue() (string, error)
	middleware.TokenVerifier
}

// Handler wires admin routes.
type Handler struct {
	Store     Store
	Passwords PasswordChecker
	Tokens    Tokens
}

// NewHandler constructs a Handler.
func NewHandler(store Store, passwords PasswordChecker, tokens Tokens) *Handler {
	return &Handler{Store: store, Passwords: passwords, Tokens: tokens}
}

// RegisterRoutes attaches login and the token-protected dashboard routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/admin")
	group.POST("/login", h.login)

	protected := group.Group("", middleware.AdminAuth(h.Tokens))
	protected.GET("/stats", h.stats)
	protected.GET("/assessments", h.list)
	protected.GET("/export", h.export)
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBindJSON(&req)
	if !h.Passwords.Check(req.Password) {
		telemetry.Warn("admin.login.failed", map[string]any{
			"client_ip":  c.ClientIP(),
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid password", nil)
		return
	}
	token, err := h.Tokens.Issue()
	if err != nil {
		internalError(c, err, "failed to issue token")
		return
	}
	respond.OK(c, gin.H{"token": token})
}

type statsResponse struct {
	assessments.Stats
	Events []assessments.EventCount `json:"events"`
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.Store.Stats(ctx)
	if err != nil {
		internalError(c, err, "failed to load stats")
		return
	}
	counts, err := h.Store.EventStats(ctx)
	if err != nil {
		internalError(c, err, "failed to load event stats")
		return
	}
	respond.OK(c, statsResponse{Stats: st, Events: counts})
}

func (h *Handler) list(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", assessments.DefaultPageSize)

	result, err := h.Store.List(c.Request.Context(), page, limit)
	if err != nil {
		internalError(c, err, "failed to list assessments")
		return
	}
	respond.OK(c, result)
}

func (h *Handler) export(c *gin.Context) {
	records, err := h.Store.ListForExport(c.Request.Context())
	if err != nil {
		internalError(c, err, "failed to export assessments")
		return
	}
	body, err := EncodeCSV(records)
	if err != nil {
		internalError(c, err, "failed to export assessments")
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+ExportFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// internalError logs the cause and answers with a generic 500.
func internalError(c *gin.Context, err error, msg string) {
	telemetry.Error("admin.request.failed", map[string]any{
		"path":       c.Request.URL.Path,
		"request_id": middleware.RequestIDFromContext(c),
		"error":      err,
	})
	respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
}

// queryInt reads a positive integer parameter; anything else yields def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
