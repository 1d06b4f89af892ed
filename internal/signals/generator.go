// Package signals turns live-filtered candidates into directional trade
// proposals: reversal-candle detection, multi-condition BUY/SELL rules,
// ATR stops and reward:risk targets, and a 0-100 quality score. The
// generator keeps no state between calls.
package signals

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/candle"
	"github.com/intrascan/intrascan/internal/domain/indicators"
	"github.com/intrascan/intrascan/internal/domain/patterns"
	"github.com/intrascan/intrascan/internal/screener"
)

// Direction is the side of a trade proposal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Signal is an immutable trade proposal produced for one candidate.
type Signal struct {
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	Entry           float64   `json:"entry"`
	StopLoss        float64   `json:"stop_loss"`
	Target          float64   `json:"target"`
	ATR             float64   `json:"atr"`
	VolumeRatio     float64   `json:"volume_ratio"`
	Pattern         string    `json:"pattern"`
	PatternStrength float64   `json:"pattern_strength"`
	EMA20           float64   `json:"ema_20"`
	EMA200          float64   `json:"ema_200"`
	VWAP            float64   `json:"vwap"`
	Score           float64   `json:"score"`
	MLScore         float64   `json:"ml_score,omitempty"`
}

// Prediction is the output of the external classifier collaborator.
type Prediction struct {
	Direction   string  `json:"direction"` // "up" or "down"
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// Predictor re-ranks signals with an externally trained classifier. The
// model itself is opaque to the funnel.
type Predictor interface {
	Predict(symbol string) (Prediction, error)
}

const (
	// Bars of trailing volume the entry rules compare the latest bar to.
	volumeLookback = 10
	// Bars within which a pullback must have touched the fast EMA.
	touchLookback = 3
	// Minimum series length worth evaluating.
	minBars = 5
)

// Generator evaluates the entry rules for each candidate.
type Generator struct {
	cfg       *config.Config
	predictor Predictor
}

// NewGenerator builds a signal generator. predictor may be nil, in which
// case signals rank purely by quality score.
func NewGenerator(cfg *config.Config, predictor Predictor) *Generator {
	return &Generator{cfg: cfg, predictor: predictor}
}

// Generate evaluates every candidate and returns the accepted signals in
// rank order (best first).
func (g *Generator) Generate(candidates []screener.LiveCandidate) []Signal {
	var out []Signal
	for _, c := range candidates {
		var sig *Signal
		var reason string
		switch c.Trend {
		case screener.BiasBullish:
			sig, reason = g.evaluate(c, Buy)
		case screener.BiasBearish:
			sig, reason = g.evaluate(c, Sell)
		default:
			reason = "no clear trend"
		}
		if sig == nil {
			log.Debug().Str("symbol", c.Symbol).Str("reason", reason).Msg("no signal")
			continue
		}
		sig.Score = g.score(*sig)
		out = append(out, *sig)
		log.Info().Str("symbol", sig.Symbol).Str("direction", string(sig.Direction)).
			Float64("entry", sig.Entry).Float64("score", sig.Score).Msg("signal")
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if g.predictor != nil {
		out = g.rerank(out)
	}
	log.Info().Int("signals", len(out)).Msg("signal generation complete")
	return out
}

// evaluate runs the five-condition gauntlet for one side. All conditions
// must hold; the first failure names the rejection reason.
func (g *Generator) evaluate(c screener.LiveCandidate, dir Direction) (*Signal, string) {
	if len(c.Bars) < minBars {
		return nil, "too few bars"
	}

	side := g.cfg.Signals.Buy
	patternSide := patterns.SideBuy
	wantPattern := patterns.Bullish
	if dir == Sell {
		side = g.cfg.Signals.Sell
		patternSide = patterns.SideSell
		wantPattern = patterns.Bearish
	}

	closes := c.Bars.Closes()
	ema20Series := indicators.EMA(closes, g.cfg.LiveMarket.EMAFast)
	ema20 := indicators.Latest(ema20Series)
	ema200 := indicators.Latest(indicators.EMA(closes, g.cfg.LiveMarket.EMASlow))
	vwap := indicators.Latest(indicators.VWAP(c.Bars))
	atr := indicators.Latest(indicators.ATR(c.Bars, g.cfg.Risk.ATRPeriod))
	price := closes[len(closes)-1]

	if !indicators.Valid(ema20) || !indicators.Valid(ema200) || !indicators.Valid(vwap) {
		return nil, "indicators undefined"
	}

	// Trend side: price beyond both the slow EMA and VWAP.
	if dir == Buy && (price <= ema200 || price <= vwap) {
		return nil, "price not above trend anchors"
	}
	if dir == Sell && (price >= ema200 || price >= vwap) {
		return nil, "price not below trend anchors"
	}

	// Pullback: close to the fast EMA now, or touched it recently.
	distPct := math.Abs(price-ema20) / price * 100.0
	if distPct > side.PullbackToEMA20Percent && !touchedEMA(c.Bars, ema20Series, touchLookback) {
		return nil, "no pullback to fast EMA"
	}

	reversal := patterns.Detect(c.Bars, patternSide)
	if reversal.Type != wantPattern {
		return nil, "no reversal candle"
	}

	volumeRatio := screener.VolumeSurge(c.Bars, volumeLookback)
	if volumeRatio < side.MinVolumeRatio {
		return nil, "volume ratio below minimum"
	}

	stopDir := indicators.Long
	if dir == Sell {
		stopDir = indicators.Short
	}
	stop := indicators.StopLoss(price, atr, g.cfg.Risk.StopLossATRMultiplier, stopDir)
	risk := math.Abs(price - stop)
	target := price + risk*g.cfg.Risk.Target.RiskRewardRatio
	if dir == Sell {
		target = price - risk*g.cfg.Risk.Target.RiskRewardRatio
	}

	return &Signal{
		Symbol:          c.Symbol,
		Direction:       dir,
		Entry:           price,
		StopLoss:        stop,
		Target:          math.Round(target*100) / 100,
		ATR:             atr,
		VolumeRatio:     volumeRatio,
		Pattern:         reversal.Name,
		PatternStrength: reversal.Strength,
		EMA20:           ema20,
		EMA200:          ema200,
		VWAP:            vwap,
	}, ""
}

// touchedEMA reports whether any of the last n bars straddled its fast-EMA
// value.
func touchedEMA(bars candle.Series, ema []float64, n int) bool {
	for i := len(bars) - n; i < len(bars); i++ {
		if i < 0 {
			continue
		}
		v := ema[i]
		if indicators.Valid(v) && bars[i].Low <= v && v <= bars[i].High {
			return true
		}
	}
	return false
}

// score grades a signal 0-100: trend distance from the slow EMA, volume
// surge, reversal strength, and reward:risk, each tiered.
func (g *Generator) score(s Signal) float64 {
	score := 0.0

	distPct := math.Abs(s.Entry-s.EMA200) / s.EMA200 * 100.0
	switch {
	case distPct > 2:
		score += 30
	case distPct > 1:
		score += 20
	default:
		score += 10
	}

	switch {
	case s.VolumeRatio > 2:
		score += 25
	case s.VolumeRatio > 1.5:
		score += 20
	case s.VolumeRatio > 1.2:
		score += 15
	default:
		score += 10
	}

	score += s.PatternStrength * 25

	risk := math.Abs(s.Entry - s.StopLoss)
	reward := math.Abs(s.Target - s.Entry)
	rr := 0.0
	if risk > 0 {
		rr = reward / risk
	}
	switch {
	case rr >= 2:
		score += 20
	case rr >= 1.5:
		score += 15
	default:
		score += 10
	}

	return math.Min(score, 100)
}

// rerank orders signals by confidence-weighted classifier agreement. A
// prediction failure leaves that signal's quality-only rank.
func (g *Generator) rerank(sigs []Signal) []Signal {
	for i := range sigs {
		pred, err := g.predictor.Predict(sigs[i].Symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sigs[i].Symbol).Msg("prediction failed")
			continue
		}
		aligned := pred.Probability
		if (sigs[i].Direction == Buy) != (pred.Direction == "up") {
			aligned = 1 - pred.Probability
		}
		sigs[i].MLScore = aligned * pred.Confidence * 100.0
	}
	sort.SliceStable(sigs, func(i, j int) bool { return sigs[i].MLScore > sigs[j].MLScore })
	return sigs
}
