package models

import (
	"time"

	"github.com/google/uuid"
)

// AdAccount represents a connected advertising account on an external
// platform (Facebook, Google). Credentials are referenced, never stored
// inline; the sync pipeline receives them from the credential service.
type AdAccount struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Platform          string `gorm:"not null;index" json:"platform"`
	ExternalAccountID string `gorm:"not null;index" json:"external_account_id"`
	Name              string `gorm:"not null" json:"name"`
	Currency          string `gorm:"not null;default:'USD'" json:"currency"`
	CredentialRef     string `json:"credential_ref,omitempty"`

	Status       string     `gorm:"not null;default:'active';index" json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	// Relationships
	Tenant    *Tenant    `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Campaigns []Campaign `gorm:"foreignKey:AccountID" json:"campaigns,omitempty"`
}

// TableName returns the table name for AdAccount
func (AdAccount) TableName() string {
	return "ad_accounts"
}

// IsSyncable returns true when the account should be included in
// scheduled syncs.
func (a *AdAccount) IsSyncable() bool {
	return a.Status == AccountStatusActive
}
