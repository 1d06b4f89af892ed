package screener

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/indicators"
)

// PreMarket screens the configured universe before the open: index trend
// context, gap filter, liquidity filter, news tagging, composite scoring,
// top-K selection.
type PreMarket struct {
	cfg  *config.Config
	data MarketData
}

// NewPreMarket builds the pre-market screener.
func NewPreMarket(cfg *config.Config, src MarketData) *PreMarket {
	return &PreMarket{cfg: cfg, data: src}
}

// Screen runs the full pre-market workflow for one trading date.
func (p *PreMarket) Screen(date time.Time) (*PreMarketResult, error) {
	log.Info().Str("date", date.Format("2006-01-02")).Msg("pre-market screening")

	index := p.IndexTrends(date)

	gapped, gapSkips := p.GapFilter(p.cfg.Universe.Stocks, date, index.Primary.Trend)
	result := &PreMarketResult{Date: date, Index: index, Skipped: gapSkips}
	if len(gapped) == 0 {
		log.Warn().Msg("no symbols with valid gaps")
		return result, nil
	}

	liquid, liqSkips := p.LiquidityFilter(gapped, date)
	result.Skipped = append(result.Skipped, liqSkips...)
	if len(liquid) == 0 {
		log.Warn().Msg("no liquid symbols after gap filter")
		return result, nil
	}

	tagged := p.TagNews(liquid, date)
	scored := p.ScoreCandidates(tagged)

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > p.cfg.PreMarket.MaxCandidates {
		scored = scored[:p.cfg.PreMarket.MaxCandidates]
	}
	result.Candidates = scored

	log.Info().Int("candidates", len(scored)).Int("skipped", len(result.Skipped)).
		Msg("pre-market screening complete")
	return result, nil
}

// IndexTrends classifies each configured index's daily trend from fast and
// slow EMAs over daily closes. Indices without data count as sideways.
func (p *PreMarket) IndexTrends(date time.Time) IndexContext {
	ctx := IndexContext{}
	for i, symbol := range p.cfg.Universe.Indices {
		state := IndexState{Symbol: symbol, Trend: indicators.TrendSideways}
		daily, err := p.data.DailyBars(symbol, p.cfg.IndexTrend.LookbackDays)
		if err != nil || len(daily) == 0 {
			log.Warn().Err(err).Str("index", symbol).Msg("no daily data for index")
			ctx.All = append(ctx.All, state)
			if i == 0 {
				ctx.Primary = state
			}
			continue
		}

		closes := daily.Closes()
		fast := indicators.Latest(indicators.EMA(closes, p.cfg.IndexTrend.EMAFast))
		slow := indicators.Latest(indicators.EMA(closes, p.cfg.IndexTrend.EMASlow))
		price := closes[len(closes)-1]

		state.Price = price
		state.EMAFast = fast
		state.EMASlow = slow
		state.Trend = indicators.Trend(price, fast, slow)
		if len(closes) >= 2 {
			prev := closes[len(closes)-2]
			state.ChangePercent = (price - prev) / prev * 100.0
		}
		state.High = daily[len(daily)-1].High
		state.Low = daily[len(daily)-1].Low

		log.Info().Str("index", symbol).Str("trend", string(state.Trend)).
			Float64("price", price).Float64("change_pct", state.ChangePercent).
			Msg("index context")

		ctx.All = append(ctx.All, state)
		if i == 0 {
			ctx.Primary = state
		}
	}
	return ctx
}

// GapFilter keeps symbols whose absolute overnight gap sits inside the
// configured window and tags whether the gap direction agrees with the
// primary index trend. Survivors sort by (aligned, |gap|) descending:
// alignment partitions strictly before gap size breaks ties.
func (p *PreMarket) GapFilter(symbols []string, date time.Time, indexTrend indicators.TrendDirection) ([]GapCandidate, []Skip) {
	gapMin := p.cfg.PreMarket.Gap.MinPercent
	gapMax := p.cfg.PreMarket.Gap.MaxPercent
	from := p.cfg.SessionTime(date, p.cfg.Market.EarlyStart)
	to := p.cfg.SessionTime(date, p.cfg.Market.GapWindowEnd)

	var out []GapCandidate
	var skips []Skip
	for _, symbol := range symbols {
		prevClose, ok := p.data.PreviousClose(symbol, date)
		if !ok || prevClose == 0 {
			skips = append(skips, Skip{symbol, "gap", "no previous close"})
			continue
		}
		bars, err := p.data.MinuteBars(symbol, from, to)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("gap filter: minute data error")
			skips = append(skips, Skip{symbol, "gap", "minute data error: " + err.Error()})
			continue
		}
		if len(bars) == 0 {
			skips = append(skips, Skip{symbol, "gap", "no early prints"})
			continue
		}

		price := bars[0].Close
		gapPct := (price - prevClose) / prevClose * 100.0
		if math.Abs(gapPct) < gapMin || math.Abs(gapPct) > gapMax {
			skips = append(skips, Skip{symbol, "gap", "gap outside window"})
			continue
		}

		dir := GapUp
		if gapPct < 0 {
			dir = GapDown
		}
		aligned := (indexTrend == indicators.TrendUp && dir == GapUp) ||
			(indexTrend == indicators.TrendDown && dir == GapDown)

		out = append(out, GapCandidate{
			Symbol:           symbol,
			Price:            price,
			PrevClose:        prevClose,
			GapPercent:       gapPct,
			Direction:        dir,
			AlignedWithIndex: aligned,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AlignedWithIndex != out[j].AlignedWithIndex {
			return out[i].AlignedWithIndex
		}
		return math.Abs(out[i].GapPercent) > math.Abs(out[j].GapPercent)
	})
	log.Info().Int("survivors", len(out)).Msg("gap filter")
	return out, skips
}

// LiquidityFilter drops symbols below the average-volume floor and keeps
// the rest when their early volume runs ahead of the per-bucket share of
// average daily volume, or, as the escape hatch, when average volume
// exceeds twice the floor. Survivors sort by average volume descending.
func (p *PreMarket) LiquidityFilter(candidates []GapCandidate, date time.Time) ([]LiquidCandidate, []Skip) {
	liq := p.cfg.PreMarket.Liquidity
	from := p.cfg.SessionTime(date, p.cfg.Market.EarlyStart)
	to := p.cfg.SessionTime(date, p.cfg.Market.PreopenEnd)

	var out []LiquidCandidate
	var skips []Skip
	for _, c := range candidates {
		daily, err := p.data.DailyBars(c.Symbol, liq.VolumeLookbackDays)
		if err != nil {
			log.Warn().Err(err).Str("symbol", c.Symbol).Msg("liquidity filter: daily data error")
			skips = append(skips, Skip{c.Symbol, "liquidity", "daily data error: " + err.Error()})
			continue
		}
		if len(daily) == 0 {
			skips = append(skips, Skip{c.Symbol, "liquidity", "no daily data"})
			continue
		}
		avgVolume := daily.MeanVolume()
		if avgVolume < liq.MinAvgVolume {
			skips = append(skips, Skip{c.Symbol, "liquidity", "average volume below floor"})
			continue
		}

		preopenVolume := 0.0
		volumeRatio := 0.0
		if bars, err := p.data.MinuteBars(c.Symbol, from, to); err == nil && len(bars) > 0 {
			preopenVolume = bars.TotalVolume()
			bucketVolume := avgVolume / float64(liq.BucketsPerDay)
			if bucketVolume > 0 {
				volumeRatio = preopenVolume / bucketVolume
			}
		}

		if volumeRatio < liq.MinPreopenVolumeRatio && avgVolume <= liq.MinAvgVolume*2 {
			skips = append(skips, Skip{c.Symbol, "liquidity", "no early volume surge"})
			continue
		}

		out = append(out, LiquidCandidate{
			GapCandidate:  c,
			AvgVolume:     avgVolume,
			PreopenVolume: preopenVolume,
			VolumeRatio:   volumeRatio,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgVolume > out[j].AvgVolume })
	log.Info().Int("survivors", len(out)).Msg("liquidity filter")
	return out, skips
}

// TagNews annotates candidates with the news calendar. It never drops a
// candidate.
func (p *PreMarket) TagNews(candidates []LiquidCandidate, date time.Time) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	tagged := 0
	for _, c := range candidates {
		cand := Candidate{LiquidCandidate: c}
		if eventType, desc, ok := p.data.News(c.Symbol, date); ok {
			cand.HasNews = true
			cand.NewsType = eventType
			cand.NewsDescription = desc
			tagged++
		}
		out = append(out, cand)
	}
	log.Info().Int("tagged", tagged).Msg("news tagging")
	return out
}

// ScoreCandidates assigns the 0-100 composite score: up to 30 for gap
// size, 25 for index alignment, a 5-25 liquidity tier, and 10-20 for news
// (earnings and results score highest).
func (p *PreMarket) ScoreCandidates(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		score := math.Min(math.Abs(c.GapPercent)/2.0*30.0, 30.0)
		if c.AlignedWithIndex {
			score += 25
		}
		switch {
		case c.AvgVolume > 10_000_000:
			score += 25
		case c.AvgVolume > 5_000_000:
			score += 20
		case c.AvgVolume > 1_000_000:
			score += 15
		case c.AvgVolume > 500_000:
			score += 10
		default:
			score += 5
		}
		if c.HasNews {
			if c.NewsType == "earnings" || c.NewsType == "results" {
				score += 20
			} else {
				score += 10
			}
		}
		c.Score = math.Round(score*100) / 100
		out[i] = c
	}
	return out
}
