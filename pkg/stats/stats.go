// Package stats provides pure statistical primitives used by the anomaly
// detection and alerting subsystems. All functions are deterministic and
// side-effect free: they operate on in-memory float64 sequences, perform no
// I/O, and can be tested independently of the data-access layer.
package stats

import (
	"math"
	"sort"
)

// Severity buckets for outlier and sudden-change classification.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityExtreme  Severity = "extreme"
)

// Direction indicates which side of the baseline a value falls on.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Trend labels returned by DetectTrend.
type Trend string

const (
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// Default thresholds.
const (
	DefaultOutlierThreshold      = 2.0
	DefaultSuddenChangeThreshold = 50.0
	slopeStableEpsilon           = 0.01
)

// Mean returns the arithmetic mean of data, or 0 for empty input.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StandardDeviation returns the sample standard deviation (n-1 denominator).
// It returns 0 when fewer than two values are provided.
func StandardDeviation(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	mean := Mean(data)
	var sumSquares float64
	for _, v := range data {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(n-1))
}

// ZScore returns the number of standard deviations value lies from the mean
// of dataset. Returns 0 when the dataset has zero variance.
func ZScore(value float64, dataset []float64) float64 {
	stddev := StandardDeviation(dataset)
	if stddev == 0 {
		return 0
	}
	return (value - Mean(dataset)) / stddev
}

// OutlierResult describes a z-score based outlier classification.
type OutlierResult struct {
	IsOutlier bool      `json:"is_outlier"`
	ZScore    float64   `json:"z_score"`
	Severity  Severity  `json:"severity"`
	Direction Direction `json:"direction"`
}

// IsOutlier classifies value against dataset using a z-score threshold.
// Severity buckets: mild |z|>=1.5, moderate >=2.0, high >=2.5, extreme >=3.0.
func IsOutlier(value float64, dataset []float64, threshold float64) OutlierResult {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	z := ZScore(value, dataset)
	direction := DirectionAbove
	if z < 0 {
		direction = DirectionBelow
	}
	return OutlierResult{
		IsOutlier: math.Abs(z) > threshold,
		ZScore:    z,
		Severity:  zScoreSeverity(math.Abs(z)),
		Direction: direction,
	}
}

func zScoreSeverity(absZ float64) Severity {
	switch {
	case absZ >= 3.0:
		return SeverityExtreme
	case absZ >= 2.5:
		return SeverityHigh
	case absZ >= 2.0:
		return SeverityModerate
	case absZ >= 1.5:
		return SeverityMild
	default:
		return SeverityNormal
	}
}

// MovingAverage returns the sliding-window mean over a chronological series,
// one value per position from index window-1 onward. The result is empty when
// the series is shorter than the window or the window is not positive.
func MovingAverage(data []float64, window int) []float64 {
	if window <= 0 || len(data) < window {
		return nil
	}
	result := make([]float64, 0, len(data)-window+1)
	var sum float64
	for i, v := range data {
		sum += v
		if i >= window {
			sum -= data[i-window]
		}
		if i >= window-1 {
			result = append(result, sum/float64(window))
		}
	}
	return result
}

// TrendResult describes an ordinary least-squares fit of a series against its
// index sequence 0..n-1.
type TrendResult struct {
	Trend      Trend   `json:"trend"`
	Slope      float64 `json:"slope"`
	Confidence float64 `json:"confidence"` // R², 0-1
}

// DetectTrend fits a least-squares line through the series and labels it
// stable when |slope| < 0.01, otherwise increasing or decreasing. Fewer than
// three points yields insufficient_data.
func DetectTrend(data []float64) TrendResult {
	n := len(data)
	if n < 3 {
		return TrendResult{Trend: TrendInsufficientData}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range data {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return TrendResult{Trend: TrendStable}
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	// R² from residual and total sum of squares.
	meanY := sumY / fn
	var ssRes, ssTot float64
	for i, y := range data {
		fit := intercept + slope*float64(i)
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - meanY) * (y - meanY)
	}
	confidence := 1.0
	if ssTot > 0 {
		confidence = 1 - ssRes/ssTot
	}
	if confidence < 0 {
		confidence = 0
	}

	trend := TrendStable
	if slope >= slopeStableEpsilon {
		trend = TrendIncreasing
	} else if slope <= -slopeStableEpsilon {
		trend = TrendDecreasing
	}
	return TrendResult{Trend: trend, Slope: slope, Confidence: confidence}
}

// PercentageChange returns the relative change from oldValue to newValue in
// percent. A zero old value returns 100 when the new value is positive and 0
// otherwise, to avoid division by zero.
func PercentageChange(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		if newValue > 0 {
			return 100
		}
		return 0
	}
	return (newValue - oldValue) / math.Abs(oldValue) * 100
}

// SuddenChangeResult describes a spike/drop classification between two
// consecutive observations.
type SuddenChangeResult struct {
	Changed       bool     `json:"changed"`
	ChangePercent float64  `json:"change_percent"`
	IsSpike       bool     `json:"is_spike"`
	IsDrop        bool     `json:"is_drop"`
	Severity      Severity `json:"severity"`
}

// DetectSuddenChange flags a spike or drop when the percentage change between
// previous and current exceeds the threshold in either direction. Severity
// buckets at 25/50/75/100 percent absolute change.
func DetectSuddenChange(current, previous, threshold float64) SuddenChangeResult {
	if threshold <= 0 {
		threshold = DefaultSuddenChangeThreshold
	}
	change := PercentageChange(previous, current)
	abs := math.Abs(change)
	return SuddenChangeResult{
		Changed:       abs >= threshold,
		ChangePercent: change,
		IsSpike:       change >= threshold,
		IsDrop:        change <= -threshold,
		Severity:      changeSeverity(abs),
	}
}

func changeSeverity(absChange float64) Severity {
	switch {
	case absChange >= 100:
		return SeverityExtreme
	case absChange >= 75:
		return SeverityHigh
	case absChange >= 50:
		return SeverityModerate
	case absChange >= 25:
		return SeverityMild
	default:
		return SeverityNormal
	}
}

// ConfidenceIntervalResult holds the bounds of an approximate confidence
// interval around the sample mean.
type ConfidenceIntervalResult struct {
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// ConfidenceInterval computes mean ± critical × stderr. The critical value is
// a fixed approximation: 1.96 for samples larger than 30, 2.0 otherwise. Not
// an exact t-distribution.
func ConfidenceInterval(data []float64, level float64) ConfidenceIntervalResult {
	if level <= 0 || level >= 1 {
		level = 0.95
	}
	n := len(data)
	mean := Mean(data)
	if n < 2 {
		return ConfidenceIntervalResult{Mean: mean, Lower: mean, Upper: mean, Level: level}
	}
	critical := 2.0
	if n > 30 {
		critical = 1.96
	}
	stderr := StandardDeviation(data) / math.Sqrt(float64(n))
	margin := critical * stderr
	return ConfidenceIntervalResult{
		Mean:  mean,
		Lower: mean - margin,
		Upper: mean + margin,
		Level: level,
	}
}

// IQRResult holds quartiles and the 1.5×IQR outlier fences.
type IQRResult struct {
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
	OK         bool    `json:"ok"` // false when fewer than 4 samples
}

// InterquartileRange computes Q1/Q3 via simple positional indexing (no
// interpolation) and the 1.5×IQR fences. Requires at least four samples.
func InterquartileRange(data []float64) IQRResult {
	n := len(data)
	if n < 4 {
		return IQRResult{}
	}
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	q1 := sorted[n/4]
	q3 := sorted[(3*n)/4]
	iqr := q3 - q1
	return IQRResult{
		Q1:         q1,
		Q3:         q3,
		IQR:        iqr,
		LowerFence: q1 - 1.5*iqr,
		UpperFence: q3 + 1.5*iqr,
		OK:         true,
	}
}

// IsOutlierIQR reports whether value falls outside the 1.5×IQR fences of
// dataset. Datasets smaller than four samples never flag.
func IsOutlierIQR(value float64, dataset []float64) bool {
	r := InterquartileRange(dataset)
	if !r.OK {
		return false
	}
	return value < r.LowerFence || value > r.UpperFence
}

// SeasonalAnomalyResult describes a same-weekday baseline comparison.
type SeasonalAnomalyResult struct {
	IsAnomaly   bool                     `json:"is_anomaly"`
	Interval    ConfidenceIntervalResult `json:"interval"`
	SampleCount int                      `json:"sample_count"`
	Direction   Direction                `json:"direction"`
}

// DetectSeasonalAnomaly builds a confidence interval from the historical
// values observed on the same weekday and flags currentValue when it falls
// outside that interval. At least two historical points are required for the
// weekday; otherwise no anomaly is reported.
func DetectSeasonalAnomaly(dataByWeekday map[int][]float64, currentWeekday int, currentValue float64) SeasonalAnomalyResult {
	history := dataByWeekday[currentWeekday]
	if len(history) < 2 {
		return SeasonalAnomalyResult{SampleCount: len(history)}
	}
	interval := ConfidenceInterval(history, 0.95)
	direction := DirectionAbove
	if currentValue < interval.Lower {
		direction = DirectionBelow
	}
	return SeasonalAnomalyResult{
		IsAnomaly:   currentValue < interval.Lower || currentValue > interval.Upper,
		Interval:    interval,
		SampleCount: len(history),
		Direction:   direction,
	}
}
