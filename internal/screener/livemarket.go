package screener

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/candle"
	"github.com/intrascan/intrascan/internal/domain/indicators"
)

// LiveFilter refines pre-market candidates against the live 5-minute tape:
// trend filter, volume-and-range filter, key-level annotation, ranking.
type LiveFilter struct {
	cfg  *config.Config
	data MarketData
}

// NewLiveFilter builds the live-market filter.
func NewLiveFilter(cfg *config.Config, src MarketData) *LiveFilter {
	return &LiveFilter{cfg: cfg, data: src}
}

// Filter runs the live-market workflow over the pre-market candidates.
func (f *LiveFilter) Filter(candidates []Candidate, date time.Time) (*LiveResult, error) {
	log.Info().Str("date", date.Format("2006-01-02")).Int("in", len(candidates)).
		Msg("live-market filtering")

	result := &LiveResult{Date: date}
	if len(candidates) == 0 {
		return result, nil
	}

	trending, trendSkips := f.TrendFilter(candidates, date)
	result.Skipped = append(result.Skipped, trendSkips...)
	if len(trending) == 0 {
		log.Warn().Msg("no candidates with a clear trend")
		return result, nil
	}

	confirmed, volSkips := f.VolumeRangeFilter(trending)
	result.Skipped = append(result.Skipped, volSkips...)
	if len(confirmed) == 0 {
		log.Warn().Msg("no candidates with sufficient volume and range")
		return result, nil
	}

	located := f.AnnotateKeyLevels(confirmed, date)

	sort.SliceStable(located, func(i, j int) bool {
		if located[i].TrendStrength != located[j].TrendStrength {
			return located[i].TrendStrength > located[j].TrendStrength
		}
		return located[i].LiveVolumeRatio > located[j].LiveVolumeRatio
	})
	if len(located) > f.cfg.LiveMarket.MaxCandidates {
		located = located[:f.cfg.LiveMarket.MaxCandidates]
	}
	result.Candidates = located

	log.Info().Int("candidates", len(located)).Int("skipped", len(result.Skipped)).
		Msg("live-market filtering complete")
	return result, nil
}

// TrendFilter loads each candidate's intraday series, computes EMA20,
// EMA200, VWAP and ATR, and keeps only candidates whose price sits on the
// same side of both EMA200 and VWAP. A series shorter than the slow EMA
// period is skipped as insufficient, unless the relaxed daily-fallback
// mode is enabled, in which case daily bars stand in for the intraday
// series.
func (f *LiveFilter) TrendFilter(candidates []Candidate, date time.Time) ([]LiveCandidate, []Skip) {
	lm := f.cfg.LiveMarket
	from := f.cfg.SessionTime(date, f.cfg.Market.Open)
	to := f.cfg.SessionTime(date, f.cfg.Market.Close)

	var out []LiveCandidate
	var skips []Skip
	for _, c := range candidates {
		bars, err := f.data.MinuteBars(c.Symbol, from, to)
		if err != nil {
			log.Warn().Err(err).Str("symbol", c.Symbol).Msg("trend filter: minute data error")
			skips = append(skips, Skip{c.Symbol, "trend", "minute data error: " + err.Error()})
			continue
		}
		if len(bars) < lm.EMASlow {
			if !lm.AllowDailyFallback {
				skips = append(skips, Skip{c.Symbol, "trend", "insufficient intraday data"})
				continue
			}
			daily, err := f.data.DailyBars(c.Symbol, f.cfg.IndexTrend.LookbackDays)
			if err != nil || len(daily) < lm.EMASlow {
				skips = append(skips, Skip{c.Symbol, "trend", "insufficient data (daily fallback)"})
				continue
			}
			log.Debug().Str("symbol", c.Symbol).Msg("trend filter: using daily fallback")
			bars = daily
		}

		closes := bars.Closes()
		ema20 := indicators.Latest(indicators.EMA(closes, lm.EMAFast))
		ema200 := indicators.Latest(indicators.EMA(closes, lm.EMASlow))
		vwap := indicators.Latest(indicators.VWAP(bars))
		atr := indicators.Latest(indicators.ATR(bars, lm.ATRPeriod))
		price := closes[len(closes)-1]

		if !indicators.Valid(ema200) || !indicators.Valid(vwap) {
			skips = append(skips, Skip{c.Symbol, "trend", "indicators undefined"})
			continue
		}

		var bias Bias
		var strength float64
		switch {
		case price > ema200 && price > vwap:
			bias = BiasBullish
			strength = (price - ema200) / ema200 * 100.0
		case price < ema200 && price < vwap:
			bias = BiasBearish
			strength = (ema200 - price) / ema200 * 100.0
		default:
			bias = BiasMixed
		}
		if bias == BiasMixed {
			skips = append(skips, Skip{c.Symbol, "trend", "mixed trend"})
			continue
		}

		log.Debug().Str("symbol", c.Symbol).Str("trend", string(bias)).
			Float64("price", price).Float64("ema200", ema200).Float64("vwap", vwap).
			Msg("trend filter")

		out = append(out, LiveCandidate{
			Candidate:     c,
			Trend:         bias,
			TrendStrength: strength,
			LivePrice:     price,
			EMA20:         ema20,
			EMA200:        ema200,
			VWAP:          vwap,
			ATR:           atr,
			Bars:          bars,
		})
	}
	log.Info().Int("survivors", len(out)).Msg("trend filter")
	return out, skips
}

// VolumeRangeFilter keeps candidates whose latest bar out-trades the
// trailing average and whose session range is wide enough to trade.
func (f *LiveFilter) VolumeRangeFilter(candidates []LiveCandidate) ([]LiveCandidate, []Skip) {
	lookback := f.cfg.LiveMarket.Volume.LookbackCandles
	minRatio := f.cfg.LiveMarket.Volume.MinRatio
	minRangePct := f.cfg.LiveMarket.Range.MinPercent

	var out []LiveCandidate
	var skips []Skip
	for _, c := range candidates {
		ratio := VolumeSurge(c.Bars, lookback)

		todayHigh := c.Bars.HighestHigh()
		todayLow := c.Bars.LowestLow()
		rangePct := 0.0
		if c.LivePrice > 0 {
			rangePct = (todayHigh - todayLow) / c.LivePrice * 100.0
		}

		if ratio < minRatio {
			skips = append(skips, Skip{c.Symbol, "volume_range", "volume ratio below minimum"})
			continue
		}
		if rangePct < minRangePct {
			skips = append(skips, Skip{c.Symbol, "volume_range", "range below minimum"})
			continue
		}

		c.LiveVolumeRatio = ratio
		c.TodayRangePct = rangePct
		c.TodayHigh = todayHigh
		c.TodayLow = todayLow
		out = append(out, c)

		log.Debug().Str("symbol", c.Symbol).Float64("volume_ratio", ratio).
			Float64("range_pct", rangePct).Msg("volume/range filter")
	}
	log.Info().Int("survivors", len(out)).Msg("volume/range filter")
	return out, skips
}

// VolumeSurge compares the latest bar's volume with the mean of the
// preceding lookback bars. Series too short to measure report 1.0, a
// neutral ratio.
func VolumeSurge(bars candle.Series, lookback int) float64 {
	if len(bars) < lookback+1 {
		return 1.0
	}
	current := bars[len(bars)-1].Volume
	window := bars[len(bars)-1-lookback : len(bars)-1]
	avg := window.MeanVolume()
	if avg <= 0 {
		return 0
	}
	return current / avg
}

// AnnotateKeyLevels attaches the nearest key level (yesterday's high/low,
// opening range, recent swing points) within the proximity threshold. This
// stage only annotates; a candidate without a nearby level survives.
func (f *LiveFilter) AnnotateKeyLevels(candidates []LiveCandidate, date time.Time) []LiveCandidate {
	proximity := f.cfg.LiveMarket.Location.ProximityPercent

	out := make([]LiveCandidate, 0, len(candidates))
	for _, c := range candidates {
		orHigh, orLow := openingRange(c.Bars)
		c.OpeningRangeHigh = orHigh
		c.OpeningRangeLow = orLow

		c.YesterdayHigh, c.YesterdayLow = f.yesterdayRange(c.Symbol, c.LivePrice)

		levels := []KeyLevel{
			{Name: "yesterday_high", Price: c.YesterdayHigh},
			{Name: "yesterday_low", Price: c.YesterdayLow},
			{Name: "opening_range_high", Price: orHigh},
			{Name: "opening_range_low", Price: orLow},
		}
		swingHighs, swingLows := SwingPoints(c.Bars)
		for _, h := range lastN(swingHighs, 3) {
			levels = append(levels, KeyLevel{Name: "swing_high", Price: h})
		}
		for _, l := range lastN(swingLows, 3) {
			levels = append(levels, KeyLevel{Name: "swing_low", Price: l})
		}

		c.NearLevel = nearestLevel(c.LivePrice, levels, proximity)
		out = append(out, c)
	}
	log.Info().Int("annotated", len(out)).Msg("key-level annotation")
	return out
}

// yesterdayRange returns the previous session's high/low, approximating
// with ±2% of price when daily history is too short.
func (f *LiveFilter) yesterdayRange(symbol string, price float64) (high, low float64) {
	daily, err := f.data.DailyBars(symbol, 5)
	if err == nil && len(daily) >= 2 {
		prev := daily[len(daily)-2]
		return prev.High, prev.Low
	}
	return price * 1.02, price * 0.98
}

// openingRange spans the first three bars (15 minutes of 5-minute bars),
// or the whole session when shorter.
func openingRange(bars candle.Series) (high, low float64) {
	window := bars
	if len(bars) >= 3 {
		window = bars[:3]
	}
	return window.HighestHigh(), window.LowestLow()
}

// SwingPoints finds bars strictly above (below) both two neighbors on each
// side, in chronological order.
func SwingPoints(bars candle.Series) (highs, lows []float64) {
	for i := 2; i < len(bars)-2; i++ {
		h := bars[i].High
		if h > bars[i-1].High && h > bars[i-2].High && h > bars[i+1].High && h > bars[i+2].High {
			highs = append(highs, h)
		}
		l := bars[i].Low
		if l < bars[i-1].Low && l < bars[i-2].Low && l < bars[i+1].Low && l < bars[i+2].Low {
			lows = append(lows, l)
		}
	}
	return highs, lows
}

func nearestLevel(price float64, levels []KeyLevel, proximityPct float64) *KeyLevel {
	var nearest *KeyLevel
	minDistance := math.Inf(1)
	for i := range levels {
		if price == 0 {
			break
		}
		dist := math.Abs(price-levels[i].Price) / price * 100.0
		if dist <= proximityPct && dist < minDistance {
			minDistance = dist
			lv := levels[i]
			lv.DistancePercent = dist
			nearest = &lv
		}
	}
	return nearest
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
