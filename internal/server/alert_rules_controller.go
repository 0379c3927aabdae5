package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/alerts"
	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
)

// AlertRuleRepository is the slice of the rule store the controller uses.
type AlertRuleRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error
	Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*models.AlertRule, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AlertRule, int64, error)
	Update(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error
	Delete(ctx context.Context, tenantID, ruleID uuid.UUID) error
}

// TenantEvaluator runs an alert evaluation pass for one tenant.
type TenantEvaluator interface {
	EvaluateTenant(ctx context.Context, tenantID uuid.UUID) (*alerts.BatchSummary, error)
}

// AlertRuleController handles alert-rule CRUD and on-demand evaluation.
type AlertRuleController struct {
	rules           AlertRuleRepository
	evaluator       TenantEvaluator
	defaultPageSize int
	maxPageSize     int
}

// NewAlertRuleController creates the controller. Page sizes bound the list
// endpoint; zero values fall back to the server config defaults.
func NewAlertRuleController(rules AlertRuleRepository, evaluator TenantEvaluator, defaultPageSize, maxPageSize int) *AlertRuleController {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &AlertRuleController{
		rules:           rules,
		evaluator:       evaluator,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// RegisterRoutes registers alert-rule routes with the gin router.
func (ac *AlertRuleController) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/alert-rules")
	{
		group.POST("", ac.CreateRule)
		group.GET("", ac.ListRules)
		group.GET("/:rule_id", ac.GetRule)
		group.PUT("/:rule_id", ac.UpdateRule)
		group.DELETE("/:rule_id", ac.DeleteRule)
		group.POST("/evaluate", ac.Evaluate)
	}
}

// alertRuleRequest is the user-settable subset of a rule.
type alertRuleRequest struct {
	Name            string         `json:"name" binding:"required"`
	Type            string         `json:"type" binding:"required"`
	Condition       models.JSONMap `json:"condition" binding:"required"`
	ObjectiveFilter string         `json:"objective_filter"`
	Channels        []string       `json:"channels"`
	Enabled         *bool          `json:"enabled"`
	CooldownMinutes int            `json:"cooldown_minutes"`
}

// validate rejects unknown rule types and condition payloads that could
// never evaluate, so broken rules are caught at write time rather than
// silently never triggering.
func (r *alertRuleRequest) validate() error {
	var err error
	switch r.Type {
	case models.AlertTypeThreshold:
		_, err = alerts.ParseThresholdCondition(r.Condition)
	case models.AlertTypeAnomaly:
		_, err = alerts.ParseAnomalyCondition(r.Condition)
	case models.AlertTypeBudget:
		_, err = alerts.ParseBudgetCondition(r.Condition)
	default:
		return errors.New("type must be one of threshold, anomaly, budget")
	}
	return err
}

func (r *alertRuleRequest) apply(rule *models.AlertRule) {
	rule.Name = r.Name
	rule.Type = r.Type
	rule.Condition = r.Condition
	rule.ObjectiveFilter = r.ObjectiveFilter
	rule.Channels = models.StringSlice(r.Channels)
	if r.Enabled != nil {
		rule.Enabled = *r.Enabled
	}
	if r.CooldownMinutes > 0 {
		rule.CooldownMinutes = r.CooldownMinutes
	}
}

// CreateRule creates an alert rule for the tenant.
func (ac *AlertRuleController) CreateRule(c *gin.Context) {
	var req alertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Details: err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_CONDITION", Details: err.Error()})
		return
	}

	rule := &models.AlertRule{Enabled: true, CooldownMinutes: 60}
	req.apply(rule)
	if len(rule.Channels) == 0 {
		rule.Channels = models.StringSlice{models.ChannelEmail}
	}

	if err := ac.rules.Create(c.Request.Context(), tenantID(c), rule); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "CREATE_FAILED", Details: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRules lists one page of the tenant's alert rules. The page_size query
// parameter is clamped to the configured maximum.
func (ac *AlertRuleController) ListRules(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(ac.defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = ac.defaultPageSize
	}
	if pageSize > ac.maxPageSize {
		pageSize = ac.maxPageSize
	}

	rules, total, err := ac.rules.List(c.Request.Context(), tenantID(c), pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "LIST_FAILED", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules":     rules,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetRule fetches one rule.
func (ac *AlertRuleController) GetRule(c *gin.Context) {
	ruleID, ok := pathUUID(c, "rule_id")
	if !ok {
		return
	}
	rule, err := ac.rules.Get(c.Request.Context(), tenantID(c), ruleID)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule replaces the user-settable fields of a rule. Trigger state is
// owned by the evaluator and cannot be written here.
func (ac *AlertRuleController) UpdateRule(c *gin.Context) {
	ruleID, ok := pathUUID(c, "rule_id")
	if !ok {
		return
	}
	var req alertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST", Details: err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_CONDITION", Details: err.Error()})
		return
	}

	rule, err := ac.rules.Get(c.Request.Context(), tenantID(c), ruleID)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	req.apply(rule)
	if err := ac.rules.Update(c.Request.Context(), tenantID(c), rule); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule removes a rule.
func (ac *AlertRuleController) DeleteRule(c *gin.Context) {
	ruleID, ok := pathUUID(c, "rule_id")
	if !ok {
		return
	}
	if err := ac.rules.Delete(c.Request.Context(), tenantID(c), ruleID); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Evaluate runs an immediate evaluation pass for the tenant, outside the
// scheduler cadence. Cooldown gating still applies per rule.
func (ac *AlertRuleController) Evaluate(c *gin.Context) {
	summary, err := ac.evaluator.EvaluateTenant(c.Request.Context(), tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "EVALUATION_FAILED", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_ID", Details: param + " must be a uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "STORAGE_ERROR", Details: err.Error()})
}
