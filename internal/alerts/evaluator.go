// Package alerts evaluates tenant-scoped alert rules on a cooldown
// schedule. A rule moves idle -> due -> evaluating -> (triggered |
// not-triggered) -> idle; trigger state is persisted on the rule and
// notifications fan out through the configured channels.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/pkg/anomaly"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/notify"
)

// RuleStore is the slice of the alert-rule repository the evaluator needs.
type RuleStore interface {
	ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]models.AlertRule, error)
	MarkEvaluated(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time) error
	MarkTriggered(ctx context.Context, tenantID, ruleID uuid.UUID, at time.Time, result models.JSONMap) error
}

// TotalsProvider aggregates metrics for threshold and budget rules.
type TotalsProvider interface {
	Totals(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery) (store.Totals, error)
}

// AnomalyDetector is the collaborator anomaly rules delegate to.
type AnomalyDetector interface {
	Detect(ctx context.Context, req anomaly.Request) (*anomaly.Result, error)
}

// Outcome is the result of evaluating one rule.
type Outcome struct {
	RuleID    uuid.UUID      `json:"rule_id"`
	RuleName  string         `json:"rule_name"`
	Triggered bool           `json:"triggered"`
	Reason    string         `json:"reason"`
	Value     float64        `json:"value,omitempty"`
	Threshold float64        `json:"threshold,omitempty"`
	Details   models.JSONMap `json:"details,omitempty"`
}

// BatchSummary reports one tenant's evaluation pass.
type BatchSummary struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Evaluated int       `json:"evaluated"`
	Skipped   int       `json:"skipped"`
	Triggered int       `json:"triggered"`
	Errors    int       `json:"errors"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Evaluator runs alert rules for a tenant.
type Evaluator struct {
	rules      RuleStore
	metrics    TotalsProvider
	anomalies  AnomalyDetector
	dispatcher *notify.Dispatcher
	logger     *logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewEvaluator wires the evaluation engine.
func NewEvaluator(rules RuleStore, metrics TotalsProvider, anomalies AnomalyDetector, dispatcher *notify.Dispatcher, log *logger.Logger) *Evaluator {
	return &Evaluator{
		rules:      rules,
		metrics:    metrics,
		anomalies:  anomalies,
		dispatcher: dispatcher,
		logger:     log.WithField("component", "alert_evaluator"),
		tracer:     otel.Tracer("adpulse.alerts"),
		now:        time.Now,
	}
}

// EvaluateTenant evaluates every enabled rule whose cooldown has elapsed.
// A failing rule is logged and counted without stopping the batch.
func (e *Evaluator) EvaluateTenant(ctx context.Context, tenantID uuid.UUID) (*BatchSummary, error) {
	ctx, span := e.tracer.Start(ctx, "alerts.evaluate_tenant", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
	))
	defer span.End()

	rules, err := e.rules.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}

	summary := &BatchSummary{TenantID: tenantID}
	now := e.now()
	log := e.logger.WithField("tenant_id", tenantID.String())

	for i := range rules {
		rule := &rules[i]
		if !rule.DueForEvaluation(now) {
			summary.Skipped++
			continue
		}

		outcome, err := e.EvaluateRule(ctx, tenantID, rule)
		if markErr := e.rules.MarkEvaluated(ctx, tenantID, rule.ID, now); markErr != nil {
			log.WithError(markErr).Error("failed to record evaluation time for rule %s", rule.ID)
		}
		if err != nil {
			summary.Errors++
			log.WithError(err).Error("rule evaluation failed: rule=%s name=%q type=%s", rule.ID, rule.Name, rule.Type)
			continue
		}

		summary.Evaluated++
		summary.Outcomes = append(summary.Outcomes, *outcome)
		if !outcome.Triggered {
			continue
		}

		summary.Triggered++
		e.fireAlert(ctx, tenantID, rule, outcome, now, log)
	}

	span.SetAttributes(
		attribute.Int("alerts.evaluated", summary.Evaluated),
		attribute.Int("alerts.triggered", summary.Triggered),
		attribute.Int("alerts.errors", summary.Errors),
	)
	return summary, nil
}

// EvaluateRule dispatches on rule type. A malformed condition payload is a
// "not triggered" outcome, not an error. A panic inside an evaluator is
// converted to an error so one rule cannot take down a batch.
func (e *Evaluator) EvaluateRule(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule) (outcome *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("rule evaluation panicked: %v", r)
		}
	}()

	outcome = &Outcome{RuleID: rule.ID, RuleName: rule.Name}
	switch rule.Type {
	case models.AlertTypeThreshold:
		err = e.evaluateThreshold(ctx, tenantID, rule, outcome)
	case models.AlertTypeAnomaly:
		err = e.evaluateAnomaly(ctx, tenantID, rule, outcome)
	case models.AlertTypeBudget:
		err = e.evaluateBudget(ctx, tenantID, rule, outcome)
	default:
		outcome.Reason = fmt.Sprintf("not triggered: unknown rule type %q", rule.Type)
		return outcome, nil
	}

	if errors.Is(err, ErrInvalidCondition) {
		outcome.Triggered = false
		outcome.Reason = fmt.Sprintf("not triggered: %v", err)
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Evaluator) evaluateThreshold(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule, outcome *Outcome) error {
	cond, err := ParseThresholdCondition(rule.Condition)
	if err != nil {
		return err
	}
	if cond.Objective == "" {
		cond.Objective = rule.ObjectiveFilter
	}

	from, to, err := ResolvePeriod(cond.Period, e.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	totals, err := e.metrics.Totals(ctx, tenantID, store.MetricQuery{
		Scope:      cond.Scope,
		AccountID:  cond.AccountID,
		CampaignID: cond.CampaignID,
		Objective:  cond.Objective,
		From:       from,
		To:         to,
	})
	if err != nil {
		return fmt.Errorf("totals query failed: %w", err)
	}

	value := cond.Metric.Compute(totals)
	outcome.Value = value
	outcome.Threshold = cond.Value
	outcome.Triggered = Compare(cond.Operator, value, cond.Value)
	outcome.Reason = fmt.Sprintf("%s %s %s %.2f (actual %.2f over %s)",
		triggerWord(outcome.Triggered), cond.Metric, cond.Operator, cond.Value, value, cond.Period)
	outcome.Details = models.JSONMap{
		"metric":   string(cond.Metric),
		"operator": cond.Operator,
		"period":   cond.Period,
		"value":    value,
	}
	return nil
}

func (e *Evaluator) evaluateAnomaly(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule, outcome *Outcome) error {
	cond, err := ParseAnomalyCondition(rule.Condition)
	if err != nil {
		return err
	}

	result, err := e.anomalies.Detect(ctx, anomaly.Request{
		TenantID:     tenantID,
		Scope:        cond.Scope,
		AccountID:    cond.AccountID,
		CampaignID:   cond.CampaignID,
		Metric:       cond.Metric,
		Method:       cond.Method,
		LookbackDays: cond.LookbackDays,
		Sensitivity:  cond.Sensitivity,
	})
	if err != nil {
		return fmt.Errorf("anomaly detection failed: %w", err)
	}

	outcome.Triggered = result.HasAnomalies()
	outcome.Reason = fmt.Sprintf("%s %d anomalies in %s over %d days",
		triggerWord(outcome.Triggered), len(result.Anomalies), result.Metric, result.LookbackDays)
	outcome.Details = toJSONMap(result)
	return nil
}

func (e *Evaluator) evaluateBudget(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule, outcome *Outcome) error {
	cond, err := ParseBudgetCondition(rule.Condition)
	if err != nil {
		return err
	}

	from, to, err := ResolveBudgetPeriod(cond.Period, e.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	totals, err := e.metrics.Totals(ctx, tenantID, store.MetricQuery{
		Scope:      cond.Scope,
		AccountID:  cond.AccountID,
		CampaignID: cond.CampaignID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return fmt.Errorf("totals query failed: %w", err)
	}

	usedPct := ratio(totals.Spend, cond.Budget) * 100
	outcome.Value = usedPct
	outcome.Threshold = cond.ThresholdPct
	outcome.Triggered = usedPct >= cond.ThresholdPct
	outcome.Reason = fmt.Sprintf("%s %.1f%% of %s budget %.2f consumed (threshold %.0f%%)",
		triggerWord(outcome.Triggered), usedPct, cond.Period, cond.Budget, cond.ThresholdPct)
	outcome.Details = models.JSONMap{
		"budget":   cond.Budget,
		"spend":    totals.Spend,
		"used_pct": usedPct,
		"period":   cond.Period,
	}
	return nil
}

// fireAlert persists trigger state and fans out notifications.
func (e *Evaluator) fireAlert(ctx context.Context, tenantID uuid.UUID, rule *models.AlertRule, outcome *Outcome, at time.Time, log *logger.Logger) {
	result := models.JSONMap{"reason": outcome.Reason}
	for k, v := range outcome.Details {
		result[k] = v
	}
	if err := e.rules.MarkTriggered(ctx, tenantID, rule.ID, at, result); err != nil {
		log.WithError(err).Error("failed to persist trigger state for rule %s", rule.ID)
	}

	delivered := 0
	if e.dispatcher != nil {
		delivered = e.dispatcher.Dispatch(ctx, rule.Channels, notify.Notification{
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			RuleType:    rule.Type,
			TenantID:    tenantID,
			Message:     outcome.Reason,
			TriggeredAt: at,
			Details:     outcome.Details,
		})
	}
	log.Info("alert triggered: rule=%s name=%q type=%s delivered=%d reason=%q",
		rule.ID, rule.Name, rule.Type, delivered, outcome.Reason)
}

func triggerWord(triggered bool) string {
	if triggered {
		return "triggered:"
	}
	return "not triggered:"
}

// toJSONMap round-trips a struct through JSON so it can live in a JSONB
// column alongside hand-built payloads.
func toJSONMap(v interface{}) models.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.JSONMap{}
	}
	var m models.JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.JSONMap{}
	}
	return m
}
