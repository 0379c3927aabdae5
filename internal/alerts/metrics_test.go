package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/internal/store"
)

func TestMetricKindRawSums(t *testing.T) {
	totals := store.Totals{
		Spend:       250.5,
		Impressions: 10000,
		Clicks:      500,
		Conversions: 40,
		Leads:       25,
		Calls:       5,
		Purchases:   15,
		Revenue:     1200,
	}
	assert.Equal(t, 250.5, MetricSpend.Compute(totals))
	assert.Equal(t, 10000.0, MetricImpressions.Compute(totals))
	assert.Equal(t, 500.0, MetricClicks.Compute(totals))
	assert.Equal(t, 40.0, MetricConversions.Compute(totals))
	assert.Equal(t, 25.0, MetricLeads.Compute(totals))
	assert.Equal(t, 5.0, MetricCalls.Compute(totals))
	assert.Equal(t, 15.0, MetricPurchases.Compute(totals))
	assert.Equal(t, 1200.0, MetricRevenue.Compute(totals))
}

func TestMetricKindRatios(t *testing.T) {
	totals := store.Totals{
		Spend:       100,
		Impressions: 10000,
		Clicks:      200,
		Conversions: 20,
		Leads:       10,
		Revenue:     400,
	}
	assert.InDelta(t, 0.5, MetricCPC.Compute(totals), 1e-9)   // 100/200
	assert.InDelta(t, 10.0, MetricCPM.Compute(totals), 1e-9)  // 100/10000*1000
	assert.InDelta(t, 10.0, MetricCPL.Compute(totals), 1e-9)  // 100/10
	assert.InDelta(t, 5.0, MetricCPA.Compute(totals), 1e-9)   // 100/20
	assert.InDelta(t, 4.0, MetricROAS.Compute(totals), 1e-9)  // 400/100
	assert.InDelta(t, 2.0, MetricCTR.Compute(totals), 1e-9)   // 200/10000*100
	assert.InDelta(t, 10.0, MetricCVR.Compute(totals), 1e-9)  // 20/200*100
}

func TestMetricKindZeroDenominators(t *testing.T) {
	var empty store.Totals
	for _, kind := range []MetricKind{MetricCPC, MetricCPM, MetricCPL, MetricCPA, MetricROAS, MetricCTR, MetricCVR} {
		assert.Equal(t, 0.0, kind.Compute(empty), "kind %s must guard division by zero", kind)
	}
}

func TestParseMetricKind(t *testing.T) {
	kind, err := ParseMetricKind("roas")
	require.NoError(t, err)
	assert.Equal(t, MetricROAS, kind)

	_, err = ParseMetricKind("vibes")
	assert.Error(t, err)
}
