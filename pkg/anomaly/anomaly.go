// Package anomaly detects unusual values in a tenant's daily metric
// series. It layers the pure statistics in pkg/stats over a series
// provider, so detection logic stays testable against canned data.
package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/pkg/stats"
)

// Detection methods.
const (
	MethodZScore   = "zscore"
	MethodIQR      = "iqr"
	MethodTrend    = "trend"
	MethodCombined = "combined"
)

// Sensitivity levels and their z-score thresholds.
const (
	SensitivityLow      = "low"
	SensitivityModerate = "moderate"
	SensitivityHigh     = "high"
)

const (
	defaultLookbackDays = 30
	defaultMetric       = "spend"
	minSeriesLength     = 4
)

// SeriesProvider supplies the daily metric series the detector inspects.
// *store.MetricStore satisfies it.
type SeriesProvider interface {
	DailySeries(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery, column string) ([]store.DatePoint, error)
}

// Request describes one detection run. Zero-valued fields fall back to
// the documented defaults in normalize.
type Request struct {
	TenantID     uuid.UUID   `json:"tenant_id"`
	Scope        store.Scope `json:"scope"`
	AccountID    uuid.UUID   `json:"account_id,omitempty"`
	CampaignID   uuid.UUID   `json:"campaign_id,omitempty"`
	Metric       string      `json:"metric"`
	Method       string      `json:"method"`
	LookbackDays int         `json:"lookback_days"`
	Sensitivity  string      `json:"sensitivity"`
}

// Anomaly is one flagged data point.
type Anomaly struct {
	Date     time.Time      `json:"date"`
	Value    float64        `json:"value"`
	ZScore   float64        `json:"z_score"`
	Severity stats.Severity `json:"severity"`
	Method   string         `json:"method"`
}

// Result reports a detection run.
type Result struct {
	Metric       string      `json:"metric"`
	Method       string      `json:"method"`
	Sensitivity  string      `json:"sensitivity"`
	LookbackDays int         `json:"lookback_days"`
	DataPoints   int         `json:"data_points"`
	Anomalies    []Anomaly   `json:"anomalies"`
	Trend        stats.Trend `json:"trend,omitempty"`
	TrendSlope   float64     `json:"trend_slope,omitempty"`
}

// HasAnomalies reports whether the run flagged anything.
func (r *Result) HasAnomalies() bool {
	return len(r.Anomalies) > 0
}

// Detector runs anomaly detection over stored metric series.
type Detector struct {
	series SeriesProvider
	tracer trace.Tracer
}

// NewDetector creates a detector over the given series provider.
func NewDetector(series SeriesProvider) *Detector {
	return &Detector{
		series: series,
		tracer: otel.Tracer("adpulse.anomaly"),
	}
}

// normalize fills request defaults and validates the method.
func normalize(req Request) (Request, error) {
	if req.Scope == "" {
		req.Scope = store.ScopeAll
	}
	if req.Metric == "" {
		req.Metric = defaultMetric
	}
	if req.Method == "" {
		req.Method = MethodCombined
	}
	if req.LookbackDays <= 0 {
		req.LookbackDays = defaultLookbackDays
	}
	if req.Sensitivity == "" {
		req.Sensitivity = SensitivityModerate
	}
	switch req.Method {
	case MethodZScore, MethodIQR, MethodTrend, MethodCombined:
	default:
		return req, fmt.Errorf("unknown detection method %q", req.Method)
	}
	switch req.Sensitivity {
	case SensitivityLow, SensitivityModerate, SensitivityHigh:
	default:
		return req, fmt.Errorf("unknown sensitivity %q", req.Sensitivity)
	}
	return req, nil
}

// zThreshold maps sensitivity to the z-score cutoff. Higher sensitivity
// means a lower bar for flagging.
func zThreshold(sensitivity string) float64 {
	switch sensitivity {
	case SensitivityLow:
		return 3.0
	case SensitivityHigh:
		return 2.0
	default:
		return 2.5
	}
}

// Detect loads the lookback series for the requested metric and flags
// anomalous days using the requested method. A series too short to
// analyze yields an empty result, not an error.
func (d *Detector) Detect(ctx context.Context, req Request) (*Result, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := d.tracer.Start(ctx, "anomaly.detect", trace.WithAttributes(
		attribute.String("anomaly.metric", req.Metric),
		attribute.String("anomaly.method", req.Method),
	))
	defer span.End()

	now := time.Now().UTC()
	q := store.MetricQuery{
		Scope:      req.Scope,
		AccountID:  req.AccountID,
		CampaignID: req.CampaignID,
		From:       now.AddDate(0, 0, -req.LookbackDays),
		To:         now,
	}
	points, err := d.series.DailySeries(ctx, req.TenantID, q, req.Metric)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s series: %w", req.Metric, err)
	}

	return d.analyze(req, points), nil
}

// analyze is the pure half of Detect, split out for direct testing.
func (d *Detector) analyze(req Request, points []store.DatePoint) *Result {
	result := &Result{
		Metric:       req.Metric,
		Method:       req.Method,
		Sensitivity:  req.Sensitivity,
		LookbackDays: req.LookbackDays,
		DataPoints:   len(points),
	}
	if len(points) < minSeriesLength {
		return result
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	threshold := zThreshold(req.Sensitivity)

	if req.Method == MethodZScore || req.Method == MethodCombined {
		for _, p := range points {
			check := stats.IsOutlier(p.Value, values, threshold)
			if check.IsOutlier {
				result.addAnomaly(Anomaly{
					Date:     p.Date,
					Value:    p.Value,
					ZScore:   check.ZScore,
					Severity: check.Severity,
					Method:   MethodZScore,
				})
			}
		}
	}

	if req.Method == MethodIQR || req.Method == MethodCombined {
		for _, p := range points {
			if stats.IsOutlierIQR(p.Value, values) {
				check := stats.IsOutlier(p.Value, values, threshold)
				result.addAnomaly(Anomaly{
					Date:     p.Date,
					Value:    p.Value,
					ZScore:   check.ZScore,
					Severity: check.Severity,
					Method:   MethodIQR,
				})
			}
		}
	}

	if req.Method == MethodTrend || req.Method == MethodCombined {
		trend := stats.DetectTrend(values)
		result.Trend = trend.Trend
		result.TrendSlope = trend.Slope
		if req.Method == MethodTrend && len(values) >= 2 {
			last, prev := values[len(values)-1], values[len(values)-2]
			change := stats.DetectSuddenChange(last, prev, 50.0)
			if change.Changed {
				result.addAnomaly(Anomaly{
					Date:     points[len(points)-1].Date,
					Value:    last,
					ZScore:   stats.ZScore(last, values),
					Severity: change.Severity,
					Method:   MethodTrend,
				})
			}
		}
	}

	return result
}

// addAnomaly appends unless the same date was already flagged by another
// method, keeping the first (strongest-signal) entry.
func (r *Result) addAnomaly(a Anomaly) {
	for _, existing := range r.Anomalies {
		if existing.Date.Equal(a.Date) {
			return
		}
	}
	r.Anomalies = append(r.Anomalies, a)
}
