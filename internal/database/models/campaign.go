package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Campaign represents an advertising campaign under an ad account.
// Objective and funnel stage are captured from the platform and copied onto
// each metric row at sync time so historical rows keep the metadata that was
// current when they were ingested.
type Campaign struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`

	ExternalCampaignID string `gorm:"not null;index" json:"external_campaign_id"`
	Name               string `gorm:"not null" json:"name"`
	Objective          string `gorm:"index" json:"objective"`
	FunnelStage        string `json:"funnel_stage"`
	DailyBudget        float64 `json:"daily_budget"`

	Status    string    `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// Relationships
	Account *AdAccount `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName returns the table name for Campaign
func (Campaign) TableName() string {
	return "campaigns"
}

// FunnelStageForObjective maps a platform objective onto a funnel stage.
func FunnelStageForObjective(objective string) string {
	switch strings.ToLower(objective) {
	case "awareness", "brand_awareness", "reach", "video_views":
		return FunnelStageTop
	case "traffic", "engagement", "link_clicks", "landing_page_views":
		return FunnelStageMiddle
	case "conversions", "sales", "leads", "lead_generation", "app_installs":
		return FunnelStageBottom
	default:
		return FunnelStageMiddle
	}
}
