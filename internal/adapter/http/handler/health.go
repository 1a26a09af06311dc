package handler

import (
	"net/http"

	"tradelink/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// Liveness handles GET /healthz. Shallow: answers as long as the
// process serves HTTP, no backend calls. The body is the literal "ok"
// probes match on.
func Liveness(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Readiness handles GET /readyz with a deep ping of every registered
// backend checker.
func Readiness(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "ready"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
