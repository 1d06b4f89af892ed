package indicators

import (
	"math"

	"github.com/intrascan/intrascan/internal/domain/candle"
)

// VWAP computes the intraday cumulative volume-weighted average price.
// Typical price is (H+L+C)/3. Entries are NaN while cumulative volume is
// still zero; the undefined state propagates instead of dividing by zero.
func VWAP(s candle.Series) []float64 {
	out := make([]float64, len(s))
	cumTPV := 0.0
	cumVol := 0.0
	for i, c := range s {
		typical := (c.High + c.Low + c.Close) / 3.0
		cumTPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cumTPV / cumVol
	}
	return out
}

// DistanceFromVWAP returns the signed percentage distance of price from
// vwap, 0 when vwap is undefined or zero.
func DistanceFromVWAP(price, vwap float64) float64 {
	if !Valid(vwap) || vwap == 0 {
		return 0
	}
	return (price - vwap) / vwap * 100.0
}
