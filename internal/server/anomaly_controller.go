package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adpulse/adpulse/pkg/anomaly"
)

// AnomalyRunner runs one detection pass.
type AnomalyRunner interface {
	Detect(ctx context.Context, req anomaly.Request) (*anomaly.Result, error)
}

// AnomalyController exposes on-demand anomaly detection.
type AnomalyController struct {
	detector AnomalyRunner
}

// NewAnomalyController creates the controller.
func NewAnomalyController(detector AnomalyRunner) *AnomalyController {
	return &AnomalyController{detector: detector}
}

// RegisterRoutes registers anomaly routes with the gin router.
func (ac *AnomalyController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/anomalies/detect", ac.Detect)
}

// Detect runs detection over the tenant's stored series. The body is an
// anomaly request without tenant id; the tenant comes from the header.
func (ac *AnomalyController) Detect(c *gin.Context) {
	var req anomaly.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Details: err.Error()})
		return
	}
	req.TenantID = tenantID(c)

	result, err := ac.detector.Detect(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "DETECTION_FAILED", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
