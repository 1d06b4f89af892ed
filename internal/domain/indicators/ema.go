// Package indicators provides the pure, stateless indicator math used by
// the screening funnel: EMA, VWAP, ATR, RSI and the ATR stop-loss helper.
// Missing values are represented as NaN; callers branch on Valid rather
// than treating zero as "no data".
package indicators

import "math"

// Valid reports whether an indicator value carries data (is not NaN).
func Valid(v float64) bool { return !math.IsNaN(v) }

// NaNs returns an all-NaN slice of length n.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// EMA computes an exponential moving average with smoothing 2/(period+1),
// seeded directly from the first value. The result aligns 1:1 with the
// input; when the input is shorter than period the whole result is NaN and
// callers must treat it as insufficient data.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return NaNs(len(values))
	}
	out := make([]float64, len(values))
	k := 2.0 / (float64(period) + 1.0)
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = values[i]*k + ema*(1.0-k)
		out[i] = ema
	}
	return out
}

// TrendDirection classifies a daily trend from price vs fast/slow EMA.
type TrendDirection string

const (
	TrendUp       TrendDirection = "uptrend"
	TrendDown     TrendDirection = "downtrend"
	TrendSideways TrendDirection = "sideways"
)

// Trend returns uptrend when price > fast > slow, downtrend when
// price < fast < slow, sideways otherwise (including NaN inputs).
func Trend(price, emaFast, emaSlow float64) TrendDirection {
	if !Valid(emaFast) || !Valid(emaSlow) {
		return TrendSideways
	}
	switch {
	case price > emaFast && emaFast > emaSlow:
		return TrendUp
	case price < emaFast && emaFast < emaSlow:
		return TrendDown
	default:
		return TrendSideways
	}
}

// last returns the final element of a series, NaN when empty.
func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Latest returns the most recent value of an indicator series.
func Latest(values []float64) float64 { return last(values) }
