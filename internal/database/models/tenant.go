package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a tenant in the multi-tenant system
type Tenant struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"unique;not null;index" json:"name"`
	DisplayName string    `gorm:"not null" json:"display_name"`

	// Billing information
	BillingPlan  string `gorm:"not null;default:'starter'" json:"billing_plan"`
	BillingEmail string `json:"billing_email"`

	// Default reporting currency for dashboard aggregates
	Currency string `gorm:"not null;default:'USD'" json:"currency"`

	// Status and metadata
	Status    string     `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	AdAccounts []AdAccount `gorm:"foreignKey:TenantID" json:"ad_accounts,omitempty"`
	AlertRules []AlertRule `gorm:"foreignKey:TenantID" json:"alert_rules,omitempty"`
}

// TableName returns the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// IsActive returns true when the tenant can be synced and evaluated.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive && t.DeletedAt == nil
}
