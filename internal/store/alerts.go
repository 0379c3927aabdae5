package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adpulse/adpulse/internal/database"
	"github.com/adpulse/adpulse/internal/database/models"
)

// ErrRuleNotFound is returned when an alert rule does not exist for the
// tenant.
var ErrRuleNotFound = errors.New("alert rule not found")

// AlertRuleStore persists alert rules and their evaluation state. User CRUD
// and engine state writeback go through separate methods so the engine is
// the only writer of trigger state.
type AlertRuleStore struct {
	tenantDB *database.TenantDatabase
}

// NewAlertRuleStore creates an alert rule store over the tenant database.
func NewAlertRuleStore(tenantDB *database.TenantDatabase) *AlertRuleStore {
	return &AlertRuleStore{tenantDB: tenantDB}
}

// Create inserts a new rule for the tenant.
func (s *AlertRuleStore) Create(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error {
	rule.TenantID = tenantID
	if err := s.tenantDB.WithTenant(ctx, tenantID).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// Get fetches one rule by id.
func (s *AlertRuleStore) Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*models.AlertRule, error) {
	var rule models.AlertRule
	err := s.tenantDB.WithTenant(ctx, tenantID).First(&rule, "id = ?", ruleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rule: %w", err)
	}
	return &rule, nil
}

// List returns one page of the tenant's rules, newest first, along with
// the total rule count for pagination metadata.
func (s *AlertRuleStore) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AlertRule, int64, error) {
	var total int64
	if err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AlertRule{}).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alert rules: %w", err)
	}

	var rules []models.AlertRule
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rules).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, total, nil
}

// Update overwrites the user-editable fields of a rule. Evaluation state
// columns are excluded; only the engine touches those.
func (s *AlertRuleStore) Update(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error {
	result := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AlertRule{}).
		Where("id = ?", rule.ID).
		Updates(map[string]interface{}{
			"name":             rule.Name,
			"type":             rule.Type,
			"condition":        rule.Condition,
			"objective_filter": rule.ObjectiveFilter,
			"channels":         rule.Channels,
			"enabled":          rule.Enabled,
			"cooldown_minutes": rule.CooldownMinutes,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update alert rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule.
func (s *AlertRuleStore) Delete(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	result := s.tenantDB.WithTenant(ctx, tenantID).Delete(&models.AlertRule{}, "id = ?", ruleID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ListEnabled returns all enabled rules for the tenant; the engine applies
// cooldown gating in memory so the due check stays in one place.
func (s *AlertRuleStore) ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled alert rules: %w", err)
	}
	return rules, nil
}

// MarkEvaluated records an evaluation pass over the rule.
func (s *AlertRuleStore) MarkEvaluated(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time) error {
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AlertRule{}).
		Where("id = ?", ruleID).
		Update("last_evaluated_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark rule evaluated: %w", err)
	}
	return nil
}

// MarkTriggered records a trigger along with the retained result payload.
func (s *AlertRuleStore) MarkTriggered(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time, result models.JSONMap) error {
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AlertRule{}).
		Where("id = ?", ruleID).
		Updates(map[string]interface{}{
			"last_triggered_at": at,
			"last_result":       result,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark rule triggered: %w", err)
	}
	return nil
}
