package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertRule is a tenant-scoped rule evaluated on a cooldown schedule.
// The condition payload is stored as JSONB and validated into a typed
// condition by the evaluation engine at evaluation entry. Trigger state
// (LastEvaluatedAt, LastTriggeredAt, LastResult) is mutated only by the
// evaluation engine, never by user-facing CRUD.
type AlertRule struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"not null;index" json:"type"` // threshold | anomaly | budget

	Condition       JSONMap     `gorm:"type:jsonb" json:"condition"`
	ObjectiveFilter string      `json:"objective_filter,omitempty"`
	Channels        StringSlice `gorm:"type:jsonb" json:"channels"`

	Enabled         bool `gorm:"not null;default:true;index" json:"enabled"`
	CooldownMinutes int  `gorm:"not null;default:60" json:"cooldown_minutes"`

	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	LastResult      JSONMap    `gorm:"type:jsonb" json:"last_result,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for AlertRule
func (AlertRule) TableName() string {
	return "alert_rules"
}

// Cooldown returns the rule's cooldown window, defaulting to 60 minutes.
func (r *AlertRule) Cooldown() time.Duration {
	if r.CooldownMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// DueForEvaluation reports whether the cooldown window since the last
// evaluation has elapsed at the given instant.
func (r *AlertRule) DueForEvaluation(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	if r.LastEvaluatedAt == nil {
		return true
	}
	return now.Sub(*r.LastEvaluatedAt) >= r.Cooldown()
}
