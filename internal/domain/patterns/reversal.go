// Package patterns detects single- and two-bar reversal candles on the most
// recent bar of an intraday series.
package patterns

import "github.com/intrascan/intrascan/internal/domain/candle"

// Type is the directional class of a detected pattern.
type Type string

const (
	Bullish Type = "bullish"
	Bearish Type = "bearish"
	None    Type = "none"
)

// Side selects which family of reversals to look for.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Reversal is a detected reversal candle with a fixed per-pattern strength.
type Reversal struct {
	Type     Type    `json:"type"`
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

var none = Reversal{Type: None, Name: "none", Strength: 0}

// Detect inspects the last bar (and the bar before it for engulfing
// patterns) of the series. It needs at least three bars; anything shorter
// returns no pattern.
func Detect(s candle.Series, side Side) Reversal {
	if len(s) < 3 {
		return none
	}
	cur := s[len(s)-1]
	prev := s[len(s)-2]
	if cur.Range() == 0 {
		return none
	}

	body := cur.Body()
	if side == SideBuy {
		switch {
		case cur.LowerWick() > 2*body && cur.UpperWick() < 0.5*body && cur.Bullish():
			return Reversal{Type: Bullish, Name: "hammer", Strength: 0.8}
		case cur.Bullish() && prev.Close < prev.Open && cur.Close > prev.Open && cur.Open < prev.Close:
			return Reversal{Type: Bullish, Name: "engulfing", Strength: 0.9}
		case cur.Bullish() && body > cur.Range()*0.6:
			return Reversal{Type: Bullish, Name: "bullish_candle", Strength: 0.6}
		}
		return none
	}

	switch {
	case cur.UpperWick() > 2*body && cur.LowerWick() < 0.5*body && cur.Close < cur.Open:
		return Reversal{Type: Bearish, Name: "shooting_star", Strength: 0.8}
	case cur.Close < cur.Open && prev.Bullish() && cur.Close < prev.Open && cur.Open > prev.Close:
		return Reversal{Type: Bearish, Name: "engulfing", Strength: 0.9}
	case cur.Close < cur.Open && body > cur.Range()*0.6:
		return Reversal{Type: Bearish, Name: "bearish_candle", Strength: 0.6}
	}
	return none
}
