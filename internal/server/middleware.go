package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/database"
	"github.com/adpulse/adpulse/pkg/logger"
)

const tenantIDKey = "tenant_id"

// RequestID assigns or propagates the request id header and stores it on
// the gin context for the logging middleware.
func RequestID(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(header, id)
		c.Next()
	}
}

// TenantResolver requires a valid tenant id header on every request and
// seeds both the gin context and the request context used by the
// tenant-isolated database layer.
func TenantResolver(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(header)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "MISSING_TENANT",
				Details: header + " header is required",
			})
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "INVALID_TENANT",
				Details: header + " header must be a uuid",
			})
			return
		}
		c.Set(tenantIDKey, tenantID)
		c.Request = c.Request.WithContext(database.SetTenantContext(c.Request.Context(), tenantID))
		c.Next()
	}
}

// tenantID reads the tenant set by TenantResolver. Handlers behind the
// middleware can assume it is present.
func tenantID(c *gin.Context) uuid.UUID {
	return c.MustGet(tenantIDKey).(uuid.UUID)
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request completed")
	}
}

// Recovery converts panics into 500 responses with a structured log line
// instead of gin's default stderr dump.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"request_id": c.GetString("request_id"),
					"panic":      r,
				}).Error("request handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "INTERNAL_ERROR",
				})
			}
		}()
		c.Next()
	}
}
