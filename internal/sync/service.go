// Package sync implements the metrics ingestion pipeline: it pulls daily
// campaign insights from the ad platforms, folds the nested action
// structures into typed metric buckets, and upserts rows keyed by a content
// checksum so re-ingestion is idempotent.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/platforms"
)

// MetricUpserter is the slice of the metric store the sync service writes
// through.
type MetricUpserter interface {
	Upsert(ctx context.Context, tenantID uuid.UUID, metric *models.AdMetric) error
}

// CampaignDirectory lists the campaigns to sync and records sync completion.
// ArchiveCampaign retires campaigns the platform no longer knows about so
// they stop being fetched on every pass.
type CampaignDirectory interface {
	ListActiveCampaigns(ctx context.Context, tenantID, accountID uuid.UUID) ([]models.Campaign, error)
	TouchAccountSynced(ctx context.Context, tenantID, accountID uuid.UUID, at time.Time) error
	ArchiveCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) error
}

// Summary reports the outcome of one account sync. Partial failure is
// normal: failed campaigns are skipped and counted, siblings still sync.
type Summary struct {
	AccountID          uuid.UUID `json:"account_id"`
	CampaignsProcessed int       `json:"campaigns_processed"`
	CampaignsFailed    int       `json:"campaigns_failed"`
	CampaignsArchived  int       `json:"campaigns_archived"`
	MetricsSynced      int       `json:"metrics_synced"`
}

// Service orchestrates account syncs across platform clients.
type Service struct {
	clients   map[string]platforms.Client
	metrics   MetricUpserter
	campaigns CampaignDirectory
	health    *HealthCounters
	logger    *logger.Logger
	tracer    trace.Tracer
}

// NewService creates a sync service. Clients are registered per platform
// identifier; the health counter store is injected, never global.
func NewService(metrics MetricUpserter, campaigns CampaignDirectory, health *HealthCounters, log *logger.Logger, clients ...platforms.Client) *Service {
	byPlatform := make(map[string]platforms.Client, len(clients))
	for _, c := range clients {
		byPlatform[c.Platform()] = c
	}
	return &Service{
		clients:   byPlatform,
		metrics:   metrics,
		campaigns: campaigns,
		health:    health,
		logger:    log.WithField("component", "metrics_sync"),
		tracer:    otel.Tracer("adpulse.sync"),
	}
}

// SyncAccount ingests daily insights for every active campaign of the
// account over the date range. A campaign-level platform or storage error
// is logged and counted without aborting sibling campaigns; an account-level
// failure (unknown platform, campaign listing failure) returns an error to
// the caller, whose scheduler owns retry policy.
func (s *Service) SyncAccount(ctx context.Context, account *models.AdAccount, creds platforms.Credentials, dateRange platforms.DateRange) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "sync.account", trace.WithAttributes(
		attribute.String("account.id", account.ID.String()),
		attribute.String("account.platform", account.Platform),
	))
	defer span.End()

	client, ok := s.clients[account.Platform]
	if !ok {
		return nil, fmt.Errorf("no client registered for platform %q", account.Platform)
	}

	campaigns, err := s.campaigns.ListActiveCampaigns(ctx, account.TenantID, account.ID)
	if err != nil {
		s.health.RecordFailure(ctx, account.ID)
		return nil, fmt.Errorf("failed to list campaigns for account %s: %w", account.ID, err)
	}

	summary := &Summary{AccountID: account.ID}
	log := s.logger.WithFields(map[string]interface{}{
		"tenant_id":  account.TenantID.String(),
		"account_id": account.ID.String(),
		"platform":   account.Platform,
	})

	for i := range campaigns {
		campaign := &campaigns[i]
		synced, err := s.syncCampaign(ctx, client, account, campaign, creds, dateRange)
		if errors.Is(err, platforms.ErrCampaignNotFound) {
			// The platform no longer knows this campaign; archive it so
			// it is not fetched again on the next pass.
			if archiveErr := s.campaigns.ArchiveCampaign(ctx, account.TenantID, campaign.ID); archiveErr != nil {
				log.WithError(archiveErr).Warn("failed to archive missing campaign %s", campaign.ExternalCampaignID)
			}
			summary.CampaignsArchived++
			log.Warn("campaign gone on platform, archived: campaign=%s", campaign.ExternalCampaignID)
			continue
		}
		if err != nil {
			summary.CampaignsFailed++
			log.WithError(err).Warn("campaign sync failed, continuing with siblings: campaign=%s", campaign.ExternalCampaignID)
			continue
		}
		summary.CampaignsProcessed++
		summary.MetricsSynced += synced
	}

	if err := s.campaigns.TouchAccountSynced(ctx, account.TenantID, account.ID, time.Now()); err != nil {
		log.WithError(err).Warn("failed to record account sync completion")
	}

	if summary.CampaignsFailed > 0 && summary.CampaignsProcessed == 0 && len(campaigns) > 0 {
		s.health.RecordFailure(ctx, account.ID)
	} else {
		s.health.RecordSuccess(ctx, account.ID)
	}

	span.SetAttributes(
		attribute.Int("sync.campaigns_processed", summary.CampaignsProcessed),
		attribute.Int("sync.campaigns_failed", summary.CampaignsFailed),
		attribute.Int("sync.metrics_synced", summary.MetricsSynced),
	)
	log.Info("account sync finished: processed=%d failed=%d archived=%d metrics=%d",
		summary.CampaignsProcessed, summary.CampaignsFailed, summary.CampaignsArchived, summary.MetricsSynced)
	return summary, nil
}

// syncCampaign fetches and upserts one campaign's daily rows. The first
// storage error aborts the campaign; the upsert itself is transactional per
// row, so an abort never leaves a partial row.
func (s *Service) syncCampaign(ctx context.Context, client platforms.Client, account *models.AdAccount, campaign *models.Campaign, creds platforms.Credentials, dateRange platforms.DateRange) (int, error) {
	rows, err := client.CampaignInsights(ctx, creds, account.ExternalAccountID, campaign.ExternalCampaignID, dateRange)
	if err != nil {
		return 0, fmt.Errorf("insights fetch failed: %w", err)
	}

	synced := 0
	for _, row := range rows {
		metric := buildMetric(account, campaign, row)
		if err := s.metrics.Upsert(ctx, account.TenantID, metric); err != nil {
			return synced, fmt.Errorf("upsert failed for %s: %w", row.Date.Format("2006-01-02"), err)
		}
		synced++
	}
	return synced, nil
}

// buildMetric folds one normalized insight row into a metric record,
// copying campaign metadata and computing the checksum natural key.
func buildMetric(account *models.AdAccount, campaign *models.Campaign, row platforms.InsightRow) *models.AdMetric {
	actions := parseActions(row.Actions)

	return &models.AdMetric{
		TenantID:   account.TenantID,
		AccountID:  account.ID,
		CampaignID: campaign.ID,
		Date:       row.Date,
		Platform:   account.Platform,

		Objective:   campaign.Objective,
		FunnelStage: campaign.FunnelStage,

		Spend:       row.Spend,
		Impressions: row.Impressions,
		Reach:       row.Reach,
		Clicks:      row.Clicks,

		Conversions:      actions.Conversions,
		Leads:            actions.Leads,
		Purchases:        actions.Purchases,
		AppInstalls:      actions.AppInstalls,
		AddToCart:        actions.AddToCart,
		LandingPageViews: actions.LandingPageViews,
		Calls:            actions.Calls,

		Revenue:       parseRevenue(row.ActionValues),
		VideoViews100: parseVideoCompletions(row.VideoCompletions),
		CostPerResult: parseCostPerResult(row.CostPerActionType),

		Checksum: models.ComputeChecksum(
			account.Platform,
			account.ExternalAccountID,
			campaign.ExternalCampaignID,
			row.Date,
			row.Impressions,
			row.Spend,
		),
	}
}
