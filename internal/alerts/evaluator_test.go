package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/pkg/anomaly"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/notify"
)

type fakeRuleStore struct {
	rules     []models.AlertRule
	listErr   error
	evaluated []uuid.UUID
	triggered []uuid.UUID
	results   map[uuid.UUID]models.JSONMap
}

func (s *fakeRuleStore) ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]models.AlertRule, error) {
	return s.rules, s.listErr
}

func (s *fakeRuleStore) MarkEvaluated(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time) error {
	s.evaluated = append(s.evaluated, ruleID)
	return nil
}

func (s *fakeRuleStore) MarkTriggered(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time, result models.JSONMap) error {
	s.triggered = append(s.triggered, ruleID)
	if s.results == nil {
		s.results = map[uuid.UUID]models.JSONMap{}
	}
	s.results[ruleID] = result
	return nil
}

type fakeTotals struct {
	totals store.Totals
	err    error
	gotQ   store.MetricQuery
}

func (f *fakeTotals) Totals(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery) (store.Totals, error) {
	f.gotQ = q
	return f.totals, f.err
}

type fakeDetector struct {
	result *anomaly.Result
	err    error
	gotReq anomaly.Request
}

func (f *fakeDetector) Detect(ctx context.Context, req anomaly.Request) (*anomaly.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

type sinkChannel struct {
	sent []notify.Notification
}

func (c *sinkChannel) Name() string { return notify.ChannelEmail }

func (c *sinkChannel) Send(ctx context.Context, n notify.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.FatalLevel})
}

func thresholdRule(condition models.JSONMap) models.AlertRule {
	return models.AlertRule{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Name:      "spend cap",
		Type:      models.AlertTypeThreshold,
		Condition: condition,
		Channels:  models.StringSlice{notify.ChannelEmail},
		Enabled:   true,
	}
}

func spendOver1000() models.JSONMap {
	return models.JSONMap{
		"metric":   "spend",
		"operator": ">",
		"value":    1000.0,
		"period":   "last_7_days",
	}
}

func newTestEvaluator(rules *fakeRuleStore, totals *fakeTotals, detector *fakeDetector, sink *sinkChannel) *Evaluator {
	var dispatcher *notify.Dispatcher
	if sink != nil {
		dispatcher = notify.NewDispatcher(quietLogger(), sink)
	}
	if detector == nil {
		detector = &fakeDetector{result: &anomaly.Result{}}
	}
	e := NewEvaluator(rules, totals, detector, dispatcher, quietLogger())
	e.now = func() time.Time { return refNow }
	return e
}

func TestThresholdTriggersAboveValue(t *testing.T) {
	rule := thresholdRule(spendOver1000())
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}
	totals := &fakeTotals{totals: store.Totals{Spend: 1500}}
	sink := &sinkChannel{}

	summary, err := newTestEvaluator(rules, totals, nil, sink).EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Evaluated)
	assert.Equal(t, 1, summary.Triggered)
	assert.Equal(t, []uuid.UUID{rule.ID}, rules.evaluated)
	assert.Equal(t, []uuid.UUID{rule.ID}, rules.triggered)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "spend cap", sink.sent[0].RuleName)
	assert.Contains(t, rules.results[rule.ID]["reason"], "triggered")
}

func TestThresholdDoesNotTriggerBelowValue(t *testing.T) {
	rule := thresholdRule(spendOver1000())
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}
	totals := &fakeTotals{totals: store.Totals{Spend: 900}}
	sink := &sinkChannel{}

	summary, err := newTestEvaluator(rules, totals, nil, sink).EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Evaluated)
	assert.Zero(t, summary.Triggered)
	assert.Empty(t, rules.triggered)
	assert.Empty(t, sink.sent)
	// Evaluation time still advances so the cooldown restarts.
	assert.Equal(t, []uuid.UUID{rule.ID}, rules.evaluated)
}

func TestBudgetRule(t *testing.T) {
	condition := models.JSONMap{"budget": 10000.0, "period": "monthly", "threshold": 90.0}

	t.Run("Triggers at 95 percent", func(t *testing.T) {
		rule := thresholdRule(condition)
		rule.Type = models.AlertTypeBudget
		rules := &fakeRuleStore{rules: []models.AlertRule{rule}}
		totals := &fakeTotals{totals: store.Totals{Spend: 9500}}

		summary, err := newTestEvaluator(rules, totals, nil, nil).EvaluateTenant(context.Background(), rule.TenantID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Triggered)
		require.Len(t, summary.Outcomes, 1)
		assert.InDelta(t, 95.0, summary.Outcomes[0].Value, 1e-9)
	})

	t.Run("Quiet at 80 percent", func(t *testing.T) {
		rule := thresholdRule(condition)
		rule.Type = models.AlertTypeBudget
		rules := &fakeRuleStore{rules: []models.AlertRule{rule}}
		totals := &fakeTotals{totals: store.Totals{Spend: 8000}}

		summary, err := newTestEvaluator(rules, totals, nil, nil).EvaluateTenant(context.Background(), rule.TenantID)
		require.NoError(t, err)
		assert.Zero(t, summary.Triggered)
	})
}

func TestAnomalyRuleDelegation(t *testing.T) {
	rule := thresholdRule(models.JSONMap{"metric": "clicks", "sensitivity": "high"})
	rule.Type = models.AlertTypeAnomaly
	detector := &fakeDetector{result: &anomaly.Result{
		Metric:    "clicks",
		Anomalies: []anomaly.Anomaly{{Value: 9000, Severity: "high"}},
	}}
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}

	summary, err := newTestEvaluator(rules, &fakeTotals{}, detector, nil).EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Triggered)
	assert.Equal(t, "clicks", detector.gotReq.Metric)
	assert.Equal(t, "high", detector.gotReq.Sensitivity)
	// The anomaly payload is retained on the rule for notification content.
	assert.NotEmpty(t, rules.results[rule.ID]["anomalies"])
}

func TestInvalidConditionIsNotTriggeredNotError(t *testing.T) {
	rule := thresholdRule(models.JSONMap{"operator": ">"})
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}

	summary, err := newTestEvaluator(rules, &fakeTotals{}, nil, nil).EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Zero(t, summary.Errors)
	assert.Zero(t, summary.Triggered)
	require.Len(t, summary.Outcomes, 1)
	assert.Contains(t, summary.Outcomes[0].Reason, "not triggered")
}

func TestCooldownSkipsRecentlyEvaluatedRules(t *testing.T) {
	recent := refNow.Add(-10 * time.Minute)
	rule := thresholdRule(spendOver1000())
	rule.LastEvaluatedAt = &recent
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}

	summary, err := newTestEvaluator(rules, &fakeTotals{totals: store.Totals{Spend: 5000}}, nil, nil).EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Evaluated)
	assert.Empty(t, rules.evaluated)
}

func TestRuleErrorDoesNotAbortBatch(t *testing.T) {
	broken := thresholdRule(spendOver1000())
	healthy := thresholdRule(spendOver1000())
	healthy.TenantID = broken.TenantID
	rules := &fakeRuleStore{rules: []models.AlertRule{broken, healthy}}

	calls := 0
	e := NewEvaluator(rules, &erroringTotals{failFirst: &calls}, &fakeDetector{}, nil, quietLogger())
	e.now = func() time.Time { return refNow }

	summary, err := e.EvaluateTenant(context.Background(), broken.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Evaluated)
	assert.Equal(t, 1, summary.Triggered)
	// Both rules record an evaluation time, failed or not.
	assert.Len(t, rules.evaluated, 2)
}

func TestRulePanicIsContained(t *testing.T) {
	rule := thresholdRule(spendOver1000())
	rules := &fakeRuleStore{rules: []models.AlertRule{rule}}

	e := NewEvaluator(rules, &panickingTotals{}, &fakeDetector{}, nil, quietLogger())
	e.now = func() time.Time { return refNow }

	summary, err := e.EvaluateTenant(context.Background(), rule.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Zero(t, summary.Triggered)
}

type panickingTotals struct{}

func (panickingTotals) Totals(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery) (store.Totals, error) {
	panic("totals backend gone")
}

// erroringTotals fails the first query and succeeds afterwards.
type erroringTotals struct {
	failFirst *int
}

func (f *erroringTotals) Totals(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery) (store.Totals, error) {
	*f.failFirst++
	if *f.failFirst == 1 {
		return store.Totals{}, errors.New("connection reset")
	}
	return store.Totals{Spend: 1500}, nil
}
