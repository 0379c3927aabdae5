package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdMetric is one row of ingested daily performance data per
// (platform, account, campaign, date). The checksum over the identifying
// tuple is the natural key for idempotent upsert: re-ingesting identical
// source data updates the existing row instead of inserting a duplicate.
type AdMetric struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	CampaignID uuid.UUID `gorm:"type:uuid;not null;index" json:"campaign_id"`

	Date     time.Time `gorm:"type:date;not null;index" json:"date"`
	Platform string    `gorm:"not null;index" json:"platform"`

	// Campaign metadata copied at sync time
	Objective   string `json:"objective"`
	FunnelStage string `json:"funnel_stage"`

	// Delivery
	Spend       float64 `gorm:"not null;default:0" json:"spend"`
	Impressions int64   `gorm:"not null;default:0" json:"impressions"`
	Reach       int64   `gorm:"not null;default:0" json:"reach"`
	Clicks      int64   `gorm:"not null;default:0" json:"clicks"`

	// Conversion buckets parsed from the platform action arrays
	Conversions      int64 `gorm:"not null;default:0" json:"conversions"`
	Leads            int64 `gorm:"not null;default:0" json:"leads"`
	Purchases        int64 `gorm:"not null;default:0" json:"purchases"`
	AppInstalls      int64 `gorm:"not null;default:0" json:"app_installs"`
	AddToCart        int64 `gorm:"not null;default:0" json:"add_to_cart"`
	LandingPageViews int64 `gorm:"not null;default:0" json:"landing_page_views"`
	Calls            int64 `gorm:"not null;default:0" json:"calls"`

	Revenue           float64 `gorm:"not null;default:0" json:"revenue"`
	VideoViews100     int64   `gorm:"not null;default:0" json:"video_views_100"`
	CostPerResult     float64 `gorm:"not null;default:0" json:"cost_per_result"`

	// Natural key for idempotent upsert
	Checksum string `gorm:"not null;uniqueIndex;size:64" json:"checksum"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for AdMetric
func (AdMetric) TableName() string {
	return "ad_metrics"
}

// ComputeChecksum returns the deterministic hash over the identifying tuple
// (platform, external account id, external campaign id, date, impressions,
// spend). Spend is fixed to two decimals so float formatting noise cannot
// change the key.
func ComputeChecksum(platform, externalAccountID, externalCampaignID string, date time.Time, impressions int64, spend float64) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%d|%.2f",
		platform,
		externalAccountID,
		externalCampaignID,
		date.Format("2006-01-02"),
		impressions,
		spend,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
