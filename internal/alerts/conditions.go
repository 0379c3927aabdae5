package alerts

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
)

// ErrInvalidCondition marks a malformed rule condition payload. The
// evaluator maps it to a "not triggered" outcome rather than an evaluation
// error, so a bad rule cannot page anyone.
var ErrInvalidCondition = errors.New("invalid alert condition")

const (
	defaultBudgetThresholdPct = 90.0
	comparisonTolerance       = 0.01
)

// Comparison operators accepted by threshold conditions. Equality and
// inequality use a 0.01 tolerance because both sides are derived floats.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "="
	OpNotEqual     = "!="
)

// ThresholdCondition is the typed form of a threshold rule's payload.
type ThresholdCondition struct {
	Metric     MetricKind
	Operator   string
	Value      float64
	Period     string
	Scope      store.Scope
	AccountID  uuid.UUID
	CampaignID uuid.UUID
	Objective  string
}

// AnomalyCondition is the typed form of an anomaly rule's payload. All
// fields are optional; the detector applies its own defaults.
type AnomalyCondition struct {
	Metric       string
	Method       string
	LookbackDays int
	Sensitivity  string
	Scope        store.Scope
	AccountID    uuid.UUID
	CampaignID   uuid.UUID
}

// BudgetCondition is the typed form of a budget rule's payload.
type BudgetCondition struct {
	Budget       float64
	ThresholdPct float64
	Period       string
	Scope        store.Scope
	AccountID    uuid.UUID
	CampaignID   uuid.UUID
}

// ParseThresholdCondition validates a threshold payload. Metric, operator,
// value, and period are required.
func ParseThresholdCondition(raw models.JSONMap) (*ThresholdCondition, error) {
	metricName, err := requireString(raw, "metric")
	if err != nil {
		return nil, err
	}
	metric, err := ParseMetricKind(metricName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	operator, err := requireString(raw, "operator")
	if err != nil {
		return nil, err
	}
	switch operator {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual:
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, operator)
	}

	value, err := requireFloat(raw, "value")
	if err != nil {
		return nil, err
	}
	period, err := requireString(raw, "period")
	if err != nil {
		return nil, err
	}

	cond := &ThresholdCondition{
		Metric:    metric,
		Operator:  operator,
		Value:     value,
		Period:    period,
		Objective: optionalString(raw, "objective"),
	}
	cond.Scope, cond.AccountID, cond.CampaignID, err = parseScope(raw)
	if err != nil {
		return nil, err
	}
	return cond, nil
}

// ParseAnomalyCondition validates an anomaly payload.
func ParseAnomalyCondition(raw models.JSONMap) (*AnomalyCondition, error) {
	cond := &AnomalyCondition{
		Metric:       optionalString(raw, "metric"),
		Method:       optionalString(raw, "detection_method"),
		LookbackDays: int(optionalFloat(raw, "lookback_days", 0)),
		Sensitivity:  optionalString(raw, "sensitivity"),
	}
	var err error
	cond.Scope, cond.AccountID, cond.CampaignID, err = parseScope(raw)
	if err != nil {
		return nil, err
	}
	return cond, nil
}

// ParseBudgetCondition validates a budget payload. Budget and period are
// required; the trigger percentage defaults to 90.
func ParseBudgetCondition(raw models.JSONMap) (*BudgetCondition, error) {
	budget, err := requireFloat(raw, "budget")
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", ErrInvalidCondition)
	}
	period, err := requireString(raw, "period")
	if err != nil {
		return nil, err
	}

	cond := &BudgetCondition{
		Budget:       budget,
		ThresholdPct: optionalFloat(raw, "threshold", defaultBudgetThresholdPct),
		Period:       period,
	}
	cond.Scope, cond.AccountID, cond.CampaignID, err = parseScope(raw)
	if err != nil {
		return nil, err
	}
	return cond, nil
}

// Compare applies the operator against the threshold value.
func Compare(operator string, value, threshold float64) bool {
	switch operator {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return math.Abs(value-threshold) < comparisonTolerance
	case OpNotEqual:
		return math.Abs(value-threshold) >= comparisonTolerance
	}
	return false
}

// parseScope reads the optional scope block shared by all condition types.
// Scoping to an account or campaign requires the matching id.
func parseScope(raw models.JSONMap) (store.Scope, uuid.UUID, uuid.UUID, error) {
	scope := store.Scope(optionalString(raw, "scope"))
	if scope == "" {
		scope = store.ScopeAll
	}
	var accountID, campaignID uuid.UUID
	switch scope {
	case store.ScopeAll:
	case store.ScopeAccount:
		id, err := requireUUID(raw, "account_id")
		if err != nil {
			return "", uuid.Nil, uuid.Nil, err
		}
		accountID = id
	case store.ScopeCampaign:
		id, err := requireUUID(raw, "campaign_id")
		if err != nil {
			return "", uuid.Nil, uuid.Nil, err
		}
		campaignID = id
	default:
		return "", uuid.Nil, uuid.Nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidCondition, scope)
	}
	return scope, accountID, campaignID, nil
}

func requireString(raw models.JSONMap, key string) (string, error) {
	s, ok := raw[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: missing required field %q", ErrInvalidCondition, key)
	}
	return s, nil
}

func optionalString(raw models.JSONMap, key string) string {
	s, _ := raw[key].(string)
	return s
}

// requireFloat accepts float64 and int, the two numeric shapes JSONB
// round-trips produce.
func requireFloat(raw models.JSONMap, key string) (float64, error) {
	switch v := raw[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: missing or non-numeric field %q", ErrInvalidCondition, key)
}

func optionalFloat(raw models.JSONMap, key string, fallback float64) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func requireUUID(raw models.JSONMap, key string) (uuid.UUID, error) {
	s, err := requireString(raw, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: field %q is not a valid uuid", ErrInvalidCondition, key)
	}
	return id, nil
}
