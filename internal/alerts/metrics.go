package alerts

import (
	"fmt"

	"github.com/adpulse/adpulse/internal/store"
)

// MetricKind enumerates the metrics a threshold rule can watch. Raw kinds
// read a sum straight off the totals; ratio kinds derive a KPI from two
// sums with a zero-denominator guard returning 0.
type MetricKind string

const (
	MetricSpend       MetricKind = "spend"
	MetricImpressions MetricKind = "impressions"
	MetricClicks      MetricKind = "clicks"
	MetricConversions MetricKind = "conversions"
	MetricLeads       MetricKind = "leads"
	MetricCalls       MetricKind = "calls"
	MetricPurchases   MetricKind = "purchases"
	MetricRevenue     MetricKind = "revenue"
	MetricCPC         MetricKind = "cpc"
	MetricCPM         MetricKind = "cpm"
	MetricCPL         MetricKind = "cpl"
	MetricCPA         MetricKind = "cpa"
	MetricROAS        MetricKind = "roas"
	MetricCTR         MetricKind = "ctr"
	MetricCVR         MetricKind = "cvr"
)

// metricCalcs is the closed dispatch table from metric kind to its
// calculation over a totals row.
var metricCalcs = map[MetricKind]func(store.Totals) float64{
	MetricSpend:       func(t store.Totals) float64 { return t.Spend },
	MetricImpressions: func(t store.Totals) float64 { return float64(t.Impressions) },
	MetricClicks:      func(t store.Totals) float64 { return float64(t.Clicks) },
	MetricConversions: func(t store.Totals) float64 { return float64(t.Conversions) },
	MetricLeads:       func(t store.Totals) float64 { return float64(t.Leads) },
	MetricCalls:       func(t store.Totals) float64 { return float64(t.Calls) },
	MetricPurchases:   func(t store.Totals) float64 { return float64(t.Purchases) },
	MetricRevenue:     func(t store.Totals) float64 { return t.Revenue },
	MetricCPC:         func(t store.Totals) float64 { return ratio(t.Spend, float64(t.Clicks)) },
	MetricCPM:         func(t store.Totals) float64 { return ratio(t.Spend, float64(t.Impressions)) * 1000 },
	MetricCPL:         func(t store.Totals) float64 { return ratio(t.Spend, float64(t.Leads)) },
	MetricCPA:         func(t store.Totals) float64 { return ratio(t.Spend, float64(t.Conversions)) },
	MetricROAS:        func(t store.Totals) float64 { return ratio(t.Revenue, t.Spend) },
	MetricCTR:         func(t store.Totals) float64 { return ratio(float64(t.Clicks), float64(t.Impressions)) * 100 },
	MetricCVR:         func(t store.Totals) float64 { return ratio(float64(t.Conversions), float64(t.Clicks)) * 100 },
}

func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// ParseMetricKind validates a condition's metric name.
func ParseMetricKind(name string) (MetricKind, error) {
	kind := MetricKind(name)
	if _, ok := metricCalcs[kind]; !ok {
		return "", fmt.Errorf("unknown metric %q", name)
	}
	return kind, nil
}

// Compute evaluates the metric over a totals row.
func (k MetricKind) Compute(t store.Totals) float64 {
	calc, ok := metricCalcs[k]
	if !ok {
		return 0
	}
	return calc(t)
}
