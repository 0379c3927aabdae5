package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/alerts"
	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/pkg/cache"
	"github.com/adpulse/adpulse/pkg/logger"
)

// DashboardSource aggregates per-account totals for the summary view.
type DashboardSource interface {
	AccountCurrencyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]store.AccountTotals, error)
}

// DashboardController serves the per-account summary, memoized in the
// cache because the aggregate query scans the whole period.
type DashboardController struct {
	metrics  DashboardSource
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewDashboardController creates the controller.
func NewDashboardController(metrics DashboardSource, c cache.Cache, ttl time.Duration, log *logger.Logger) *DashboardController {
	return &DashboardController{
		metrics:  metrics,
		cache:    c,
		cacheTTL: ttl,
		logger:   log.WithField("component", "dashboard"),
	}
}

// RegisterRoutes registers dashboard routes with the gin router.
func (dc *DashboardController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/summary", dc.Summary)
}

type dashboardSummary struct {
	Period   string                `json:"period"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Accounts []store.AccountTotals `json:"accounts"`
	CachedAt time.Time             `json:"cached_at"`
}

// Summary returns SUM aggregates grouped by account and currency over a
// named period (default last_7_days).
func (dc *DashboardController) Summary(c *gin.Context) {
	period := c.DefaultQuery("period", alerts.PeriodLast7Days)
	from, to, err := alerts.ResolvePeriod(period, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_PERIOD", Details: err.Error()})
		return
	}

	ctx := c.Request.Context()
	tenant := tenantID(c)
	key := fmt.Sprintf("dashboard:%s:%s", tenant, period)

	if cached, err := dc.cache.Get(ctx, key); err == nil {
		var summary dashboardSummary
		if err := json.Unmarshal(cached, &summary); err == nil {
			c.Header("X-Cache", "hit")
			c.JSON(http.StatusOK, summary)
			return
		}
	}

	accounts, err := dc.metrics.AccountCurrencyTotals(ctx, tenant, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "QUERY_FAILED", Details: err.Error()})
		return
	}

	summary := dashboardSummary{
		Period:   period,
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
		Accounts: accounts,
		CachedAt: time.Now().UTC(),
	}
	if raw, err := json.Marshal(summary); err == nil {
		if err := dc.cache.Set(ctx, key, raw, dc.cacheTTL); err != nil {
			dc.logger.WithError(err).Warn("failed to cache dashboard summary")
		}
	}
	c.Header("X-Cache", "miss")
	c.JSON(http.StatusOK, summary)
}
