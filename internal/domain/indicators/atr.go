package indicators

import (
	"math"

	"github.com/intrascan/intrascan/internal/domain/candle"
)

// ATR computes the average true range as an EMA (smoothing 2/(period+1))
// of the true range series. The first bar has no previous close, so its
// entry is NaN. A series shorter than period is all NaN.
func ATR(s candle.Series, period int) []float64 {
	if period <= 0 || len(s) < period {
		return NaNs(len(s))
	}
	out := make([]float64, len(s))
	out[0] = math.NaN()
	k := 2.0 / (float64(period) + 1.0)
	atr := math.NaN()
	for i := 1; i < len(s); i++ {
		tr := trueRange(s[i], s[i-1].Close)
		if !Valid(atr) {
			atr = tr
		} else {
			atr = tr*k + atr*(1.0-k)
		}
		out[i] = atr
	}
	return out
}

func trueRange(c candle.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// Direction is the side of a proposed trade.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// StopLoss places an ATR-multiple stop below a long entry or above a short
// entry, rounded to the tick-friendly 2 decimals. An undefined ATR returns
// the entry unchanged.
func StopLoss(entry, atr, multiplier float64, dir Direction) float64 {
	if !Valid(atr) {
		return entry
	}
	var stop float64
	if dir == Short {
		stop = entry + atr*multiplier
	} else {
		stop = entry - atr*multiplier
	}
	return math.Round(stop*100) / 100
}

// VolatilityLevel buckets ATR relative to price into low/medium/high.
func VolatilityLevel(atr, price float64) string {
	if !Valid(atr) || price == 0 {
		return "unknown"
	}
	pct := atr / price * 100.0
	switch {
	case pct < 1.0:
		return "low"
	case pct < 2.0:
		return "medium"
	default:
		return "high"
	}
}
