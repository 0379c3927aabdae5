package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/adpulse/internal/store"
	"github.com/adpulse/adpulse/pkg/stats"
)

type cannedSeries struct {
	points []store.DatePoint
	gotQ   store.MetricQuery
	gotCol string
}

func (c *cannedSeries) DailySeries(ctx context.Context, tenantID uuid.UUID, q store.MetricQuery, column string) ([]store.DatePoint, error) {
	c.gotQ = q
	c.gotCol = column
	return c.points, nil
}

func series(values ...float64) []store.DatePoint {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	points := make([]store.DatePoint, len(values))
	for i, v := range values {
		points[i] = store.DatePoint{Date: base.AddDate(0, 0, i), Value: v}
	}
	return points
}

func TestNormalizeDefaults(t *testing.T) {
	req, err := normalize(Request{TenantID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, store.ScopeAll, req.Scope)
	assert.Equal(t, "spend", req.Metric)
	assert.Equal(t, MethodCombined, req.Method)
	assert.Equal(t, 30, req.LookbackDays)
	assert.Equal(t, SensitivityModerate, req.Sensitivity)
}

func TestNormalizeRejectsUnknowns(t *testing.T) {
	_, err := normalize(Request{Method: "dowsing"})
	assert.Error(t, err)
	_, err = normalize(Request{Sensitivity: "paranoid"})
	assert.Error(t, err)
}

func TestZThreshold(t *testing.T) {
	assert.Equal(t, 3.0, zThreshold(SensitivityLow))
	assert.Equal(t, 2.5, zThreshold(SensitivityModerate))
	assert.Equal(t, 2.0, zThreshold(SensitivityHigh))
}

func TestDetectFlagsSpike(t *testing.T) {
	// Stable spend with one day an order of magnitude off.
	canned := &cannedSeries{points: series(100, 102, 98, 101, 99, 100, 1000, 100, 101, 99)}
	d := NewDetector(canned)

	result, err := d.Detect(context.Background(), Request{
		TenantID: uuid.New(),
		Metric:   "spend",
		Method:   MethodCombined,
	})
	require.NoError(t, err)
	assert.Equal(t, "spend", canned.gotCol)
	assert.Equal(t, 10, result.DataPoints)
	require.True(t, result.HasAnomalies())
	assert.Equal(t, 1000.0, result.Anomalies[0].Value)
	assert.Equal(t, stats.SeverityHigh, result.Anomalies[0].Severity)
}

func TestDetectQuietSeriesClean(t *testing.T) {
	canned := &cannedSeries{points: series(100, 102, 98, 101, 99, 100, 103)}
	d := NewDetector(canned)

	result, err := d.Detect(context.Background(), Request{TenantID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, result.HasAnomalies())
	assert.NotEmpty(t, result.Trend)
}

func TestDetectShortSeriesEmptyResult(t *testing.T) {
	canned := &cannedSeries{points: series(5, 6)}
	d := NewDetector(canned)

	result, err := d.Detect(context.Background(), Request{TenantID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DataPoints)
	assert.False(t, result.HasAnomalies())
}

func TestCombinedDeduplicatesByDate(t *testing.T) {
	d := NewDetector(nil)
	points := series(100, 100, 100, 100, 100, 100, 100, 100, 100, 5000)
	result := d.analyze(Request{
		Metric:      "spend",
		Method:      MethodCombined,
		Sensitivity: SensitivityHigh,
	}, points)

	// The spike trips both the z-score and IQR detectors but is reported once.
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, 5000.0, result.Anomalies[0].Value)
}

func TestTrendMethodReportsSuddenChange(t *testing.T) {
	d := NewDetector(nil)
	points := series(100, 100, 100, 100, 300)
	result := d.analyze(Request{
		Metric:      "spend",
		Method:      MethodTrend,
		Sensitivity: SensitivityModerate,
	}, points)

	require.True(t, result.HasAnomalies())
	assert.Equal(t, MethodTrend, result.Anomalies[0].Method)
	// A 100 to 300 jump is a 200% change, the top severity bucket.
	assert.Equal(t, stats.SeverityExtreme, result.Anomalies[0].Severity)
	assert.Equal(t, stats.TrendIncreasing, result.Trend)
}
