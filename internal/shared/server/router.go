package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/admin"
	"revops-backend/internal/assessments"
	"revops-backend/internal/benchmark"
	"revops-backend/internal/events"
	"revops-backend/internal/shared/config"
	"revops-backend/internal/shared/metrics"
	"revops-backend/internal/shared/server/middleware"
	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/sharepage"
)

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	AssessmentHandler *assessments.Handler
	BenchmarkHandler  *benchmark.Handler
	EventHandler      *events.Handler
	AdminHandler      *admin.Handler
	SharePage         *sharepage.Handler
	// RateLimitStore backs the /api limiter; nil uses an in-process store.
	RateLimitStore middleware.WindowStore
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"status": "ok", "port": cfg.Port})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Max:    cfg.RateLimitMax,
		Window: cfg.RateLimitWindow,
		Store:  deps.RateLimitStore,
	}))
	if deps.AssessmentHandler != nil {
		deps.AssessmentHandler.RegisterRoutes(api)
	}
	if deps.BenchmarkHandler != nil {
		deps.BenchmarkHandler.RegisterRoutes(api)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.RegisterRoutes(api)
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.RegisterRoutes(api)
	}
	if deps.SharePage != nil {
		deps.SharePage.RegisterRoutes(r)
	}

	r.NoRoute(staticFallback(cfg.PublicDir))
	return r
}

// staticFallback serves files from publicDir and falls back to index.html for
// client-side routes. Unknown /api paths get a JSON 404.
func staticFallback(publicDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
			respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
			return
		}
		if publicDir == "" {
			respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
			return
		}

		candidate := filepath.Join(publicDir, filepath.FromSlash(path.Clean("/"+urlPath)))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
		index := filepath.Join(publicDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
			return
		}
		c.File(index)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
