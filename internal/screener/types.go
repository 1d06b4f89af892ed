// Package screener implements the candidate funnel's screening stages:
// pre-market gap/liquidity/news screening and live-market trend/volume/
// location filtering. Each stage consumes only the survivors of the
// previous one and reports the symbols it dropped together with the
// reason, so a run is fully explainable.
package screener

import (
	"time"

	"github.com/intrascan/intrascan/internal/domain/candle"
	"github.com/intrascan/intrascan/internal/domain/indicators"
)

// MarketData is the data-access collaborator the screener depends on.
// Implementations must tolerate missing symbols by returning empty series.
type MarketData interface {
	MinuteBars(symbol string, from, to time.Time) (candle.Series, error)
	DailyBars(symbol string, lookbackDays int) (candle.Series, error)
	PreviousClose(symbol string, date time.Time) (float64, bool)
	News(symbol string, date time.Time) (eventType, description string, ok bool)
}

// Skip records a symbol dropped by a stage and why.
type Skip struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// GapDirection is the sign of an overnight gap.
type GapDirection string

const (
	GapUp   GapDirection = "up"
	GapDown GapDirection = "down"
)

// GapCandidate is a symbol that passed the gap filter.
type GapCandidate struct {
	Symbol           string       `json:"symbol"`
	Price            float64      `json:"price"` // first traded price of the gap window
	PrevClose        float64      `json:"prev_close"`
	GapPercent       float64      `json:"gap_percent"`
	Direction        GapDirection `json:"gap_direction"`
	AlignedWithIndex bool         `json:"aligned_with_index"`
}

// LiquidCandidate extends a gap candidate with liquidity metrics.
type LiquidCandidate struct {
	GapCandidate
	AvgVolume     float64 `json:"avg_volume"`
	PreopenVolume float64 `json:"preopen_volume"`
	VolumeRatio   float64 `json:"volume_ratio"` // early volume vs per-bucket share of avg volume
}

// Candidate is a fully scored pre-market candidate.
type Candidate struct {
	LiquidCandidate
	HasNews         bool    `json:"has_news"`
	NewsType        string  `json:"news_type,omitempty"`
	NewsDescription string  `json:"news_description,omitempty"`
	Score           float64 `json:"score"`
}

// IndexState is one index's daily-trend snapshot.
type IndexState struct {
	Symbol        string                    `json:"symbol"`
	Trend         indicators.TrendDirection `json:"trend"`
	Price         float64                   `json:"price"`
	EMAFast       float64                   `json:"ema_fast"`
	EMASlow       float64                   `json:"ema_slow"`
	ChangePercent float64                   `json:"change_percent"`
	High          float64                   `json:"high"`
	Low           float64                   `json:"low"`
}

// IndexContext aggregates the configured indices' trend snapshots.
type IndexContext struct {
	Primary IndexState   `json:"primary"`
	All     []IndexState `json:"all"`
}

// PreMarketResult is the pre-market screening output for one date.
type PreMarketResult struct {
	Date       time.Time    `json:"date"`
	Index      IndexContext `json:"index_context"`
	Candidates []Candidate  `json:"candidates"`
	Skipped    []Skip       `json:"skipped"`
}

// Bias is the intraday trend classification of a live candidate.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasMixed   Bias = "mixed"
)

// KeyLevel is the nearest notable price level within the proximity
// threshold: yesterday's high/low, the opening range, or a swing point.
type KeyLevel struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DistancePercent float64 `json:"distance_percent"`
}

// LiveCandidate extends a scored pre-market candidate with the live-market
// filter's intraday measurements. Bars carries the 5-minute series the
// signal generator evaluates; it is read-only downstream.
type LiveCandidate struct {
	Candidate
	Trend            Bias          `json:"trend"`
	TrendStrength    float64       `json:"trend_strength"`
	LivePrice        float64       `json:"live_price"`
	EMA20            float64       `json:"ema_20"`
	EMA200           float64       `json:"ema_200"`
	VWAP             float64       `json:"vwap"`
	ATR              float64       `json:"atr"`
	LiveVolumeRatio  float64       `json:"live_volume_ratio"`
	TodayRangePct    float64       `json:"today_range_pct"`
	TodayHigh        float64       `json:"today_high"`
	TodayLow         float64       `json:"today_low"`
	OpeningRangeHigh float64       `json:"opening_range_high"`
	OpeningRangeLow  float64       `json:"opening_range_low"`
	YesterdayHigh    float64       `json:"yesterday_high"`
	YesterdayLow     float64       `json:"yesterday_low"`
	NearLevel        *KeyLevel     `json:"near_level,omitempty"`
	Bars             candle.Series `json:"-"`
}

// LiveResult is the live-market filtering output for one date.
type LiveResult struct {
	Date       time.Time       `json:"date"`
	Candidates []LiveCandidate `json:"candidates"`
	Skipped    []Skip          `json:"skipped"`
}
