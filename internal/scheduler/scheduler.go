// Package scheduler drives the recurring jobs: the nightly metrics sync
// across all tenants and the periodic alert evaluation pass. Retry policy
// lives here, not in the services it calls.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adpulse/adpulse/internal/alerts"
	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/sync"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/platforms"
)

// Config holds the cron schedules. Specs use the six-field form with a
// seconds column.
type Config struct {
	SyncSchedule       string `yaml:"sync_schedule" env:"SYNC_SCHEDULE" default:"0 0 2 * * *"`
	EvaluationSchedule string `yaml:"evaluation_schedule" env:"EVALUATION_SCHEDULE" default:"0 */5 * * * *"`
	SyncDays           int    `yaml:"sync_days" env:"SYNC_DAYS" default:"7"`
}

// GetDefaultConfig returns the default scheduler configuration.
func GetDefaultConfig() *Config {
	return &Config{
		SyncSchedule:       "0 0 2 * * *",
		EvaluationSchedule: "0 */5 * * * *",
		SyncDays:           7,
	}
}

// Directory lists the tenants and accounts the scheduled jobs cover.
type Directory interface {
	ListActiveTenants(ctx context.Context) ([]models.Tenant, error)
	ListSyncableAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.AdAccount, error)
}

// AccountSyncer runs a metrics sync for one account.
type AccountSyncer interface {
	SyncAccount(ctx context.Context, account *models.AdAccount, creds platforms.Credentials, dateRange platforms.DateRange) (*sync.Summary, error)
}

// CredentialSource resolves platform credentials for an account.
type CredentialSource interface {
	Resolve(ctx context.Context, account *models.AdAccount) (platforms.Credentials, error)
}

// TenantEvaluator runs an alert evaluation pass for one tenant.
type TenantEvaluator interface {
	EvaluateTenant(ctx context.Context, tenantID uuid.UUID) (*alerts.BatchSummary, error)
}

// Scheduler owns the cron loop.
type Scheduler struct {
	config    *Config
	cron      *cron.Cron
	directory Directory
	syncer    AccountSyncer
	creds     CredentialSource
	evaluator TenantEvaluator
	logger    *logger.Logger
	tracer    trace.Tracer
}

// New creates the scheduler.
func New(config *Config, directory Directory, syncer AccountSyncer, creds CredentialSource, evaluator TenantEvaluator, log *logger.Logger) *Scheduler {
	return &Scheduler{
		config:    config,
		cron:      cron.New(cron.WithSeconds()),
		directory: directory,
		syncer:    syncer,
		creds:     creds,
		evaluator: evaluator,
		logger:    log.WithField("component", "scheduler"),
		tracer:    otel.Tracer("adpulse.scheduler"),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.config.SyncSchedule, func() { s.RunSyncPass(ctx) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.config.SyncSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.config.EvaluationSchedule, func() { s.RunEvaluationPass(ctx) }); err != nil {
		return fmt.Errorf("invalid evaluation schedule %q: %w", s.config.EvaluationSchedule, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started: sync=%q evaluation=%q", s.config.SyncSchedule, s.config.EvaluationSchedule)
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

// RunSyncPass syncs every syncable account of every active tenant. One
// account's failure is logged and skipped; the pass continues.
func (s *Scheduler) RunSyncPass(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "scheduler.sync_pass")
	defer span.End()

	tenants, err := s.directory.ListActiveTenants(ctx)
	if err != nil {
		s.logger.WithError(err).Error("sync pass aborted: tenant listing failed")
		return
	}

	dateRange := platforms.LastNDays(s.config.SyncDays, time.Now())
	accountsSynced, accountsFailed := 0, 0

	for i := range tenants {
		tenant := &tenants[i]
		accounts, err := s.directory.ListSyncableAccounts(ctx, tenant.ID)
		if err != nil {
			s.logger.WithError(err).Error("skipping tenant %s: account listing failed", tenant.ID)
			continue
		}
		for j := range accounts {
			account := &accounts[j]
			if err := s.syncAccount(ctx, account, dateRange); err != nil {
				accountsFailed++
				s.logger.WithError(err).Error("account sync failed: tenant=%s account=%s", tenant.ID, account.ID)
				continue
			}
			accountsSynced++
		}
	}

	span.SetAttributes(
		attribute.Int("sync.accounts_synced", accountsSynced),
		attribute.Int("sync.accounts_failed", accountsFailed),
	)
	s.logger.Info("sync pass finished: synced=%d failed=%d", accountsSynced, accountsFailed)
}

func (s *Scheduler) syncAccount(ctx context.Context, account *models.AdAccount, dateRange platforms.DateRange) error {
	creds, err := s.creds.Resolve(ctx, account)
	if err != nil {
		return err
	}
	_, err = s.syncer.SyncAccount(ctx, account, creds, dateRange)
	return err
}

// RunEvaluationPass evaluates alert rules for every active tenant.
func (s *Scheduler) RunEvaluationPass(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "scheduler.evaluation_pass")
	defer span.End()

	tenants, err := s.directory.ListActiveTenants(ctx)
	if err != nil {
		s.logger.WithError(err).Error("evaluation pass aborted: tenant listing failed")
		return
	}

	triggered := 0
	for i := range tenants {
		tenant := &tenants[i]
		summary, err := s.evaluator.EvaluateTenant(ctx, tenant.ID)
		if err != nil {
			s.logger.WithError(err).Error("skipping tenant %s: evaluation failed", tenant.ID)
			continue
		}
		triggered += summary.Triggered
	}

	span.SetAttributes(attribute.Int("alerts.triggered", triggered))
	s.logger.Info("evaluation pass finished: tenants=%d triggered=%d", len(tenants), triggered)
}
