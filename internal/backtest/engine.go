package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/risk"
	"github.com/intrascan/intrascan/internal/screener"
	"github.com/intrascan/intrascan/internal/signals"
)

// DayResult is the funnel outcome for one simulated trading day.
type DayResult struct {
	Date       time.Time    `json:"date"`
	Candidates int          `json:"candidates"`
	Signals    int          `json:"signals"`
	Trades     []risk.Trade `json:"trades"`
	PnL        float64      `json:"pnl"`
	Capital    float64      `json:"capital"` // end-of-day capital
}

// Result is a completed backtest run.
type Result struct {
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	Days        []DayResult  `json:"days"`
	Errors      int          `json:"errors"`
	Summary     risk.Summary `json:"summary"`
	MaxDrawdown float64      `json:"max_drawdown"`
	Sharpe      float64      `json:"sharpe"`
}

// recordDayFailure books a failed trading day as a flat record, so the
// run still carries one record per weekday in the range.
func (r *Result) recordDayFailure(date time.Time, capital float64) {
	r.Errors++
	r.Days = append(r.Days, DayResult{Date: date, Capital: capital})
}

// Engine replays the screening funnel over a date range.
type Engine struct {
	cfg       *config.Config
	preMarket *screener.PreMarket
	live      *screener.LiveFilter
	generator *signals.Generator
	sizer     *risk.Sizer
	exits     ExitModel
}

// NewEngine wires the funnel stages for a backtest run.
func NewEngine(cfg *config.Config, src screener.MarketData, predictor signals.Predictor, exits ExitModel) *Engine {
	return &Engine{
		cfg:       cfg,
		preMarket: screener.NewPreMarket(cfg, src),
		live:      screener.NewLiveFilter(cfg, src),
		generator: signals.NewGenerator(cfg, predictor),
		sizer:     risk.NewSizer(cfg.Risk),
		exits:     exits,
	}
}

// Run replays each weekday in [start, end]. A day whose screening fails
// is logged and booked as a flat day, contributing no trades. The risk
// limits persist across days exactly as in a live session: the per-day
// trade count resets each morning, the loss streak does not.
func (e *Engine) Run(ctx context.Context, start, end time.Time, capital float64) (*Result, error) {
	log.Info().Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
		Float64("capital", capital).Msg("backtest starting")

	manager := risk.NewManager(e.cfg.Risk, capital)
	result := &Result{Start: start, End: end}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		manager.ResetDailyCounters()

		day, err := e.runDay(date, manager)
		if err != nil {
			log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("day failed")
			result.recordDayFailure(date, manager.Capital())
			continue
		}
		result.Days = append(result.Days, day)
	}

	dailyPnL := make([]float64, len(result.Days))
	for i, day := range result.Days {
		dailyPnL[i] = day.PnL
	}
	result.Summary = manager.Summarize()
	result.MaxDrawdown = MaxDrawdown(dailyPnL)
	result.Sharpe = Sharpe(dailyPnL)

	log.Info().Int("days", len(result.Days)).Int("errors", result.Errors).
		Int("trades", result.Summary.TotalTrades).Float64("pnl", result.Summary.TotalPnL).
		Float64("max_drawdown", result.MaxDrawdown).Msg("backtest complete")
	return result, nil
}

// runDay pushes one date through the funnel and settles every admitted
// trade with the exit model.
func (e *Engine) runDay(date time.Time, manager *risk.Manager) (DayResult, error) {
	day := DayResult{Date: date}

	pre, err := e.preMarket.Screen(date)
	if err != nil {
		return day, err
	}
	live, err := e.live.Filter(pre.Candidates, date)
	if err != nil {
		return day, err
	}
	day.Candidates = len(live.Candidates)

	sigs := e.generator.Generate(live.Candidates)
	day.Signals = len(sigs)

	closeAt := e.cfg.SessionTime(date, e.cfg.Market.Close)
	for _, sig := range sigs {
		ok, reason := manager.CanTakeTrade()
		if !ok {
			log.Debug().Str("reason", reason).Msg("admission stopped")
			break
		}
		pos, err := e.sizer.Size(sig, manager.Capital())
		if err != nil {
			log.Debug().Err(err).Str("symbol", sig.Symbol).Msg("sizing rejected")
			continue
		}
		trade := manager.AddTrade(pos, e.cfg.SessionTime(date, e.cfg.Market.Open))
		closed, err := manager.CloseTrade(trade.ID, e.exits.ExitPrice(trade), closeAt)
		if err != nil {
			return day, err
		}
		day.Trades = append(day.Trades, closed)
		day.PnL += closed.PnL
	}
	day.Capital = manager.Capital()
	return day, nil
}
