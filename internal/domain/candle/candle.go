// Package candle defines the OHLCV bar model shared by every stage of the
// screening funnel. A Series is ordered by timestamp and immutable once
// loaded; all stage logic reads from it without modification.
package candle

import "time"

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Body returns the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c Candle) Range() float64 { return c.High - c.Low }

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// UpperWick returns the distance from the body top to the high.
func (c Candle) UpperWick() float64 {
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	return c.High - top
}

// LowerWick returns the distance from the low to the body bottom.
func (c Candle) LowerWick() float64 {
	bottom := c.Open
	if c.Close < bottom {
		bottom = c.Close
	}
	return bottom - c.Low
}

// Series is a timestamp-ordered sequence of candles for one symbol and one
// timeframe.
type Series []Candle

// Last returns the most recent candle.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// HighestHigh returns the maximum high over the whole series, 0 when empty.
func (s Series) HighestHigh() float64 {
	max := 0.0
	for i, c := range s {
		if i == 0 || c.High > max {
			max = c.High
		}
	}
	return max
}

// LowestLow returns the minimum low over the whole series, 0 when empty.
func (s Series) LowestLow() float64 {
	min := 0.0
	for i, c := range s {
		if i == 0 || c.Low < min {
			min = c.Low
		}
	}
	return min
}

// TotalVolume sums the volume column.
func (s Series) TotalVolume() float64 {
	sum := 0.0
	for _, c := range s {
		sum += c.Volume
	}
	return sum
}

// MeanVolume returns the average volume, 0 when empty.
func (s Series) MeanVolume() float64 {
	if len(s) == 0 {
		return 0
	}
	return s.TotalVolume() / float64(len(s))
}

// Between returns the sub-series with timestamps in [from, to].
func (s Series) Between(from, to time.Time) Series {
	var out Series
	for _, c := range s {
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Tail returns the last n candles (the whole series when shorter).
func (s Series) Tail(n int) Series {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
