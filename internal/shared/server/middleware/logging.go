package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/shared/telemetry"
)

// AssessmentIDKey is the gin context key handlers set so request logs carry the assessment id.
const AssessmentIDKey = "assessmentId"

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.GetString(AssessmentIDKey); id != "" {
			fields["assessment_id"] = id
		}
		if role := AdminRoleFromContext(c); role != "" {
			fields["admin_role"] = role
		}
		telemetry.Info("request.complete", fields)
	}
}
