// Package models contains the database models for the AdPulse platform.
// These models represent the core entities of the multi-tenant marketing
// analytics backend: tenants, ad accounts, campaigns, ingested daily
// metrics, and alert rules.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Common constants for model validation
const (
	// Status values for tenants
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusDeleted   = "deleted"

	// Status values for ad accounts
	AccountStatusActive   = "active"
	AccountStatusPaused   = "paused"
	AccountStatusError    = "error"
	AccountStatusDisabled = "disabled"

	// Status values for campaigns
	CampaignStatusActive   = "active"
	CampaignStatusPaused   = "paused"
	CampaignStatusArchived = "archived"

	// Ad platforms
	PlatformFacebook = "facebook"
	PlatformGoogle   = "google"

	// Funnel stages derived from campaign objective
	FunnelStageTop    = "tofu"
	FunnelStageMiddle = "mofu"
	FunnelStageBottom = "bofu"

	// Alert rule types
	AlertTypeThreshold = "threshold"
	AlertTypeAnomaly   = "anomaly"
	AlertTypeBudget    = "budget"

	// Notification channels
	ChannelEmail = "email"
)

// JSONMap is a helper type for JSONB fields
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface for JSONMap
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for JSONMap
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringSlice is a helper type for JSONB string arrays
type StringSlice []string

// Scan implements the sql.Scanner interface for StringSlice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = make(StringSlice, 0)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}

	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for StringSlice
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// AllModels returns the set of models registered for auto-migration,
// ordered so foreign-key targets migrate first.
func AllModels() []interface{} {
	return []interface{}{
		&Tenant{},
		&AdAccount{},
		&Campaign{},
		&AdMetric{},
		&AlertRule{},
	}
}
