// Package store provides the GORM-backed repositories over the metrics and
// alert-rule tables. All operations run through the tenant-isolated
// database handle, so cross-tenant reads are impossible at this layer.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adpulse/adpulse/internal/database"
	"github.com/adpulse/adpulse/internal/database/models"
)

// Scope selects which slice of a tenant's metrics a query covers.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeAccount  Scope = "account"
	ScopeCampaign Scope = "campaign"
)

// MetricQuery scopes a metrics read.
type MetricQuery struct {
	Scope      Scope
	AccountID  uuid.UUID
	CampaignID uuid.UUID
	Objective  string
	From       time.Time
	To         time.Time
}

// Totals holds SUM aggregates over a metric query. Ratio KPIs are derived
// downstream by the alert engine.
type Totals struct {
	Spend            float64 `json:"spend"`
	Impressions      int64   `json:"impressions"`
	Reach            int64   `json:"reach"`
	Clicks           int64   `json:"clicks"`
	Conversions      int64   `json:"conversions"`
	Leads            int64   `json:"leads"`
	Purchases        int64   `json:"purchases"`
	AppInstalls      int64   `json:"app_installs"`
	AddToCart        int64   `json:"add_to_cart"`
	LandingPageViews int64   `json:"landing_page_views"`
	Calls            int64   `json:"calls"`
	Revenue          float64 `json:"revenue"`
}

// DatePoint is one day of a single-metric series.
type DatePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// AccountTotals is one row of the dashboard aggregate: SUMs grouped by
// account and currency.
type AccountTotals struct {
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
	Currency    string    `json:"currency"`
	Spend       float64   `json:"spend"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}

// MetricStore is the writer-of-record for ingested metrics and the read
// surface for alert evaluation and dashboards.
type MetricStore struct {
	tenantDB *database.TenantDatabase
}

// NewMetricStore creates a metric store over the tenant database.
func NewMetricStore(tenantDB *database.TenantDatabase) *MetricStore {
	return &MetricStore{tenantDB: tenantDB}
}

// Upsert writes one daily metric row keyed by its checksum: insert when the
// checksum is new, otherwise overwrite all derived fields. The write runs in
// its own transaction so a failure leaves no partial row behind.
func (s *MetricStore) Upsert(ctx context.Context, tenantID uuid.UUID, metric *models.AdMetric) error {
	if metric.Checksum == "" {
		return fmt.Errorf("metric checksum must be set before upsert")
	}
	metric.TenantID = tenantID

	db := s.tenantDB.WithTenant(ctx, tenantID)
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "checksum"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"objective", "funnel_stage",
				"spend", "impressions", "reach", "clicks",
				"conversions", "leads", "purchases", "app_installs",
				"add_to_cart", "landing_page_views", "calls",
				"revenue", "video_views_100", "cost_per_result",
				"updated_at",
			}),
		}).Create(metric).Error
	})
	if err != nil {
		return fmt.Errorf("metric upsert failed for checksum %s: %w", metric.Checksum, err)
	}
	return nil
}

// scoped applies the query's scope, objective, and date filters.
func (q MetricQuery) apply(db *gorm.DB) *gorm.DB {
	db = db.Model(&models.AdMetric{}).
		Where("date >= ? AND date <= ?", q.From.Format("2006-01-02"), q.To.Format("2006-01-02"))

	switch q.Scope {
	case ScopeAccount:
		db = db.Where("account_id = ?", q.AccountID)
	case ScopeCampaign:
		db = db.Where("campaign_id = ?", q.CampaignID)
	}
	if q.Objective != "" {
		db = db.Where("objective = ?", q.Objective)
	}
	return db
}

// Totals returns SUM aggregates over the scoped date range. A scope id that
// matches nothing yields zero totals, not an error.
func (s *MetricStore) Totals(ctx context.Context, tenantID uuid.UUID, q MetricQuery) (Totals, error) {
	var totals Totals
	db := q.apply(s.tenantDB.WithTenant(ctx, tenantID))

	err := db.Select(
		"COALESCE(SUM(spend), 0) AS spend",
		"COALESCE(SUM(impressions), 0) AS impressions",
		"COALESCE(SUM(reach), 0) AS reach",
		"COALESCE(SUM(clicks), 0) AS clicks",
		"COALESCE(SUM(conversions), 0) AS conversions",
		"COALESCE(SUM(leads), 0) AS leads",
		"COALESCE(SUM(purchases), 0) AS purchases",
		"COALESCE(SUM(app_installs), 0) AS app_installs",
		"COALESCE(SUM(add_to_cart), 0) AS add_to_cart",
		"COALESCE(SUM(landing_page_views), 0) AS landing_page_views",
		"COALESCE(SUM(calls), 0) AS calls",
		"COALESCE(SUM(revenue), 0) AS revenue",
	).Scan(&totals).Error
	if err != nil {
		return Totals{}, fmt.Errorf("metric totals query failed: %w", err)
	}
	return totals, nil
}

// DailySeries returns one summed value per day for the named raw metric
// column over the scoped range, ordered chronologically. Used by the anomaly
// detector to build history series.
func (s *MetricStore) DailySeries(ctx context.Context, tenantID uuid.UUID, q MetricQuery, column string) ([]DatePoint, error) {
	if !validSeriesColumn(column) {
		return nil, fmt.Errorf("unsupported series column %q", column)
	}

	var points []DatePoint
	db := q.apply(s.tenantDB.WithTenant(ctx, tenantID))
	err := db.Select(fmt.Sprintf("date, COALESCE(SUM(%s), 0) AS value", column)).
		Group("date").
		Order("date ASC").
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("metric series query failed: %w", err)
	}
	return points, nil
}

// validSeriesColumn whitelists the raw columns exposed as daily series.
func validSeriesColumn(column string) bool {
	switch column {
	case "spend", "impressions", "reach", "clicks", "conversions", "leads",
		"purchases", "app_installs", "add_to_cart", "landing_page_views",
		"calls", "revenue", "video_views_100":
		return true
	}
	return false
}

// AccountCurrencyTotals returns the dashboard aggregate: SUMs grouped by
// account and currency over the date range.
func (s *MetricStore) AccountCurrencyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]AccountTotals, error) {
	var rows []AccountTotals
	err := s.tenantDB.WithTenant(ctx, tenantID).
		Model(&models.AdMetric{}).
		Select(
			"ad_metrics.account_id",
			"ad_accounts.name AS account_name",
			"ad_accounts.currency",
			"COALESCE(SUM(ad_metrics.spend), 0) AS spend",
			"COALESCE(SUM(ad_metrics.impressions), 0) AS impressions",
			"COALESCE(SUM(ad_metrics.clicks), 0) AS clicks",
			"COALESCE(SUM(ad_metrics.conversions), 0) AS conversions",
			"COALESCE(SUM(ad_metrics.revenue), 0) AS revenue",
		).
		Joins("JOIN ad_accounts ON ad_accounts.id = ad_metrics.account_id").
		Where("ad_metrics.date >= ? AND ad_metrics.date <= ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Group("ad_metrics.account_id, ad_accounts.name, ad_accounts.currency").
		Order("spend DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("dashboard aggregate query failed: %w", err)
	}
	return rows, nil
}
