package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports liveness of one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler returns the /health endpoint over the named dependencies.
// The endpoint is 200 only when every dependency responds.
func HealthHandler(deps map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.HealthCheck(c.Request.Context()); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	}
}
