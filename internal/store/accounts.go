package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/database"
	"github.com/adpulse/adpulse/internal/database/models"
)

// AccountStore reads tenants, ad accounts, and campaigns for the sync and
// scheduling layers.
type AccountStore struct {
	db       *database.Database
	tenantDB *database.TenantDatabase
}

// NewAccountStore creates an account store.
func NewAccountStore(db *database.Database) *AccountStore {
	return &AccountStore{db: db, tenantDB: db.Tenant()}
}

// ListActiveTenants returns all tenants eligible for scheduled work.
// This is a cross-tenant read and bypasses tenant isolation on purpose.
func (s *AccountStore) ListActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.DB().WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", models.TenantStatusActive).
		Find(&tenants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	return tenants, nil
}

// GetAccount fetches one ad account for the tenant.
func (s *AccountStore) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*models.AdAccount, error) {
	var account models.AdAccount
	err := s.tenantDB.WithTenant(ctx, tenantID).First(&account, "id = ?", accountID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ad account %s: %w", accountID, err)
	}
	return &account, nil
}

// ListSyncableAccounts returns the tenant's accounts eligible for sync.
func (s *AccountStore) ListSyncableAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.AdAccount, error) {
	var accounts []models.AdAccount
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Where("status = ?", models.AccountStatusActive).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable accounts: %w", err)
	}
	return accounts, nil
}

// ListActiveCampaigns returns the account's campaigns that should be synced.
func (s *AccountStore) ListActiveCampaigns(ctx context.Context, tenantID, accountID uuid.UUID) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Where("account_id = ? AND status = ?", accountID, models.CampaignStatusActive).
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns for account %s: %w", accountID, err)
	}
	return campaigns, nil
}

// ArchiveCampaign retires a campaign the platform no longer reports, so
// later sync passes skip it.
func (s *AccountStore) ArchiveCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) error {
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("status", models.CampaignStatusArchived).Error
	if err != nil {
		return fmt.Errorf("failed to archive campaign %s: %w", campaignID, err)
	}
	return nil
}

// TouchAccountSynced records a completed sync on the account.
func (s *AccountStore) TouchAccountSynced(ctx context.Context, tenantID, accountID uuid.UUID, at time.Time) error {
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AdAccount{}).
		Where("id = ?", accountID).
		Update("last_synced_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to update account sync timestamp: %w", err)
	}
	return nil
}
