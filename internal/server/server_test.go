package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/internal/alerts"
	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/internal/sync"
	"github.com/adpulse/adpulse/pkg/cache"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/platforms"
)

type fakeRuleRepo struct {
	rules map[uuid.UUID]*models.AlertRule
	order []uuid.UUID
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: map[uuid.UUID]*models.AlertRule{}}
}

func (r *fakeRuleRepo) Create(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error {
	rule.ID = uuid.New()
	rule.TenantID = tenantID
	r.rules[rule.ID] = rule
	r.order = append(r.order, rule.ID)
	return nil
}

func (r *fakeRuleRepo) Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*models.AlertRule, error) {
	rule, ok := r.rules[ruleID]
	if !ok || rule.TenantID != tenantID {
		return nil, store.ErrRuleNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AlertRule, int64, error) {
	var matched []models.AlertRule
	for _, id := range r.order {
		if rule, ok := r.rules[id]; ok && rule.TenantID == tenantID {
			matched = append(matched, *rule)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) error {
	if _, err := r.Get(ctx, tenantID, rule.ID); err != nil {
		return err
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	if _, err := r.Get(ctx, tenantID, ruleID); err != nil {
		return err
	}
	delete(r.rules, ruleID)
	return nil
}

type fakeEvaluator struct {
	summary *alerts.BatchSummary
}

func (e *fakeEvaluator) EvaluateTenant(ctx context.Context, tenantID uuid.UUID) (*alerts.BatchSummary, error) {
	if e.summary != nil {
		return e.summary, nil
	}
	return &alerts.BatchSummary{TenantID: tenantID}, nil
}

type fakeAccounts struct {
	account *models.AdAccount
}

func (f *fakeAccounts) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*models.AdAccount, error) {
	if f.account == nil {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	return f.account, nil
}

type fakeSyncer struct {
	summary *sync.Summary
	gotDays int
}

func (f *fakeSyncer) SyncAccount(ctx context.Context, account *models.AdAccount, creds platforms.Credentials, dr platforms.DateRange) (*sync.Summary, error) {
	f.gotDays = int(dr.Until.Sub(dr.Since).Hours()/24) + 1
	return f.summary, nil
}

type staticCreds struct{}

func (staticCreds) Resolve(ctx context.Context, account *models.AdAccount) (platforms.Credentials, error) {
	return platforms.Credentials{AccessToken: "token"}, nil
}

type fakeDashboard struct {
	calls int
}

func (f *fakeDashboard) AccountCurrencyTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]store.AccountTotals, error) {
	f.calls++
	return []store.AccountTotals{{AccountName: "Main", Currency: "USD", Spend: 123.45}}, nil
}

type okChecker struct{}

func (okChecker) HealthCheck(ctx context.Context) error { return nil }

func testServer(t *testing.T, controllers ...Controller) *Server {
	t.Helper()
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel})
	config := GetDefaultConfig()
	config.LogRequests = false

	srv, err := New(config, log, HealthHandler(map[string]HealthChecker{"self": okChecker{}}), controllers...)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, tenant uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != uuid.Nil {
		req.Header.Set("X-Tenant-ID", tenant.String())
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointBypassesTenantHeader(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantHeaderRequired(t *testing.T) {
	srv := testServer(t, NewAlertRuleController(newFakeRuleRepo(), &fakeEvaluator{}, 20, 100))

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alert-rules", nil)
	req.Header.Set("X-Tenant-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertRuleCRUD(t *testing.T) {
	repo := newFakeRuleRepo()
	srv := testServer(t, NewAlertRuleController(repo, &fakeEvaluator{}, 20, 100))
	tenant := uuid.New()

	body := map[string]interface{}{
		"name": "weekly spend cap",
		"type": "threshold",
		"condition": map[string]interface{}{
			"metric":   "spend",
			"operator": ">",
			"value":    1000,
			"period":   "last_7_days",
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", tenant, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StringSlice{models.ChannelEmail}, created.Channels, "channels default to email")
	assert.True(t, created.Enabled)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules/"+created.ID.String(), tenant, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body["name"] = "renamed"
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/alert-rules/"+created.ID.String(), tenant, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/alert-rules/"+created.ID.String(), tenant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules/"+created.ID.String(), tenant, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRulesPaginates(t *testing.T) {
	repo := newFakeRuleRepo()
	srv := testServer(t, NewAlertRuleController(repo, &fakeEvaluator{}, 2, 3))
	tenant := uuid.New()

	for i := 0; i < 5; i++ {
		rule := &models.AlertRule{Name: fmt.Sprintf("rule %d", i), Type: models.AlertTypeThreshold}
		require.NoError(t, repo.Create(context.Background(), tenant, rule))
	}

	type listResponse struct {
		Rules    []models.AlertRule `json:"rules"`
		Total    int64              `json:"total"`
		Page     int                `json:"page"`
		PageSize int                `json:"page_size"`
	}

	// No parameters: first page at the configured default size.
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules", tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Rules, 2)
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PageSize)

	// Last page is short.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules?page=3&page_size=2", tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Rules, 1)

	// Oversized page_size is clamped to the configured maximum.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/alert-rules?page_size=50", tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Rules, 3)
	assert.Equal(t, 3, resp.PageSize)
}

func TestCreateRuleRejectsBadCondition(t *testing.T) {
	srv := testServer(t, NewAlertRuleController(newFakeRuleRepo(), &fakeEvaluator{}, 20, 100))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", uuid.New(), map[string]interface{}{
		"name":      "broken",
		"type":      "threshold",
		"condition": map[string]interface{}{"operator": ">"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alert-rules", uuid.New(), map[string]interface{}{
		"name":      "broken",
		"type":      "horoscope",
		"condition": map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncEndpoint(t *testing.T) {
	account := &models.AdAccount{
		ID:                uuid.New(),
		TenantID:          uuid.New(),
		Platform:          models.PlatformFacebook,
		Status:            models.AccountStatusActive,
		ExternalAccountID: "act_1",
	}
	syncer := &fakeSyncer{summary: &sync.Summary{AccountID: account.ID, MetricsSynced: 14}}
	srv := testServer(t, NewSyncController(&fakeAccounts{account: account}, syncer, staticCreds{}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/"+account.ID.String()+"/sync?days=14", account.TenantID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 14, syncer.gotDays)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/accounts/"+account.ID.String()+"/sync?days=500", account.TenantID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncEndpointRejectsPausedAccount(t *testing.T) {
	account := &models.AdAccount{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   models.AccountStatusPaused,
	}
	srv := testServer(t, NewSyncController(&fakeAccounts{account: account}, &fakeSyncer{}, staticCreds{}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/"+account.ID.String()+"/sync", account.TenantID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDashboardSummaryMemoized(t *testing.T) {
	source := &fakeDashboard{}
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel})
	srv := testServer(t, NewDashboardController(source, cache.NewMemoryCache(), time.Minute, log))
	tenant := uuid.New()

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/dashboard/summary", tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/dashboard/summary", tenant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, source.calls, "second request must come from the cache")

	// A different tenant never sees the cached payload.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/dashboard/summary", uuid.New(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
}
