package alerts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/internal/store"
)

func TestParseThresholdCondition(t *testing.T) {
	cond, err := ParseThresholdCondition(models.JSONMap{
		"metric":   "spend",
		"operator": ">",
		"value":    1000.0,
		"period":   "last_7_days",
	})
	require.NoError(t, err)
	assert.Equal(t, MetricSpend, cond.Metric)
	assert.Equal(t, OpGreater, cond.Operator)
	assert.Equal(t, 1000.0, cond.Value)
	assert.Equal(t, store.ScopeAll, cond.Scope)
}

func TestParseThresholdConditionScoped(t *testing.T) {
	accountID := uuid.New()
	cond, err := ParseThresholdCondition(models.JSONMap{
		"metric":     "cpc",
		"operator":   ">=",
		"value":      2.5,
		"period":     "today",
		"scope":      "account",
		"account_id": accountID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, store.ScopeAccount, cond.Scope)
	assert.Equal(t, accountID, cond.AccountID)
}

func TestParseThresholdConditionMalformed(t *testing.T) {
	cases := map[string]models.JSONMap{
		"missing metric":     {"operator": ">", "value": 1.0, "period": "today"},
		"unknown metric":     {"metric": "vibes", "operator": ">", "value": 1.0, "period": "today"},
		"unknown operator":   {"metric": "spend", "operator": "~", "value": 1.0, "period": "today"},
		"missing value":      {"metric": "spend", "operator": ">", "period": "today"},
		"non-numeric value":  {"metric": "spend", "operator": ">", "value": "much", "period": "today"},
		"missing period":     {"metric": "spend", "operator": ">", "value": 1.0},
		"scope without id":   {"metric": "spend", "operator": ">", "value": 1.0, "period": "today", "scope": "account"},
		"unknown scope":      {"metric": "spend", "operator": ">", "value": 1.0, "period": "today", "scope": "galaxy"},
		"malformed scope id": {"metric": "spend", "operator": ">", "value": 1.0, "period": "today", "scope": "campaign", "campaign_id": "nope"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseThresholdCondition(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCondition)
		})
	}
}

func TestParseBudgetCondition(t *testing.T) {
	cond, err := ParseBudgetCondition(models.JSONMap{
		"budget": 10000.0,
		"period": "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, cond.Budget)
	assert.Equal(t, 90.0, cond.ThresholdPct, "trigger percentage defaults to 90")

	cond, err = ParseBudgetCondition(models.JSONMap{
		"budget":    500.0,
		"threshold": 75.0,
		"period":    "daily",
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, cond.ThresholdPct)
}

func TestParseBudgetConditionRejectsNonPositiveBudget(t *testing.T) {
	_, err := ParseBudgetCondition(models.JSONMap{"budget": 0.0, "period": "daily"})
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestParseAnomalyConditionDefaultsToEmpty(t *testing.T) {
	cond, err := ParseAnomalyCondition(models.JSONMap{})
	require.NoError(t, err)
	assert.Equal(t, store.ScopeAll, cond.Scope)
	assert.Empty(t, cond.Method)
	assert.Zero(t, cond.LookbackDays)
}

func TestCompare(t *testing.T) {
	assert.True(t, Compare(OpGreater, 1500, 1000))
	assert.False(t, Compare(OpGreater, 900, 1000))
	assert.True(t, Compare(OpLess, 900, 1000))
	assert.True(t, Compare(OpGreaterEqual, 1000, 1000))
	assert.True(t, Compare(OpLessEqual, 1000, 1000))

	// Equality carries a 0.01 tolerance for derived floats.
	assert.True(t, Compare(OpEqual, 99.995, 100))
	assert.False(t, Compare(OpEqual, 99.9, 100))
	assert.True(t, Compare(OpNotEqual, 99.9, 100))
	assert.False(t, Compare(OpNotEqual, 99.995, 100))

	assert.False(t, Compare("~", 1, 1))
}
