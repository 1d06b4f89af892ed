package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/candle"
	"github.com/intrascan/intrascan/internal/risk"
)

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{10, 20, 30}))
	// Peak 30 after two days, trough 30-25 = 5.
	assert.InDelta(t, 25.0, MaxDrawdown([]float64{10, 20, -15, -10, 20}), 1e-9)
	// A losing start draws down from the zero starting point.
	assert.InDelta(t, 15.0, MaxDrawdown([]float64{-10, -5, 20}), 1e-9)
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil))
	assert.Equal(t, 0.0, Sharpe([]float64{100}))
	assert.Equal(t, 0.0, Sharpe([]float64{10, 10, 10}))
	assert.Greater(t, Sharpe([]float64{10, 12, 11, 13}), 0.0)
	assert.Less(t, Sharpe([]float64{-10, -12, -11}), 0.0)
}

func TestBernoulliExit_SeededAndBiased(t *testing.T) {
	trade := risk.Trade{Target: 110, StopLoss: 95}

	a := NewBernoulliExit(0.6, 42)
	b := NewBernoulliExit(0.6, 42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.ExitPrice(trade), b.ExitPrice(trade))
	}

	wins := 0
	model := NewBernoulliExit(0.6, 7)
	for i := 0; i < 2000; i++ {
		if model.ExitPrice(trade) == trade.Target {
			wins++
		}
	}
	assert.InDelta(t, 1200, wins, 100)

	always := NewBernoulliExit(1.0, 1)
	assert.Equal(t, 110.0, always.ExitPrice(trade))
	never := NewBernoulliExit(0.0, 1)
	assert.Equal(t, 95.0, never.ExitPrice(trade))
}

// targetExit always fills at target, making engine P&L deterministic.
type targetExit struct{}

func (targetExit) ExitPrice(t risk.Trade) float64 { return t.Target }

// engineData serves one screenable symbol and one index for every
// weekday.
type engineData struct {
	cfg *config.Config
}

func (d *engineData) MinuteBars(symbol string, from, to time.Time) (candle.Series, error) {
	if symbol == "^NSEI" {
		return nil, nil
	}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	bars := make(candle.Series, 12)
	for i := 0; i < 12; i++ {
		c := 100.0 + float64(i)
		v := 50_000.0
		if i == 11 {
			v = 150_000
		}
		bars[i] = candle.Candle{
			Timestamp: day.Add(9*time.Hour + 15*time.Minute + time.Duration(i)*5*time.Minute),
			Open:      c - 0.9, High: c + 0.1, Low: c - 1.1, Close: c,
			Volume: v,
		}
	}
	return bars.Between(from, to), nil
}

func (d *engineData) DailyBars(symbol string, lookbackDays int) (candle.Series, error) {
	bars := make(candle.Series, 10)
	for i := 0; i < 10; i++ {
		c := 95.0 + float64(i)
		if symbol == "^NSEI" {
			c = 20000 + float64(i)*50
		}
		bars[i] = candle.Candle{
			Timestamp: time.Date(2024, 3, 4+i, 0, 0, 0, 0, time.UTC),
			Open:      c - 0.5, High: c + 0.5, Low: c - 1, Close: c,
			Volume:    1_000_000,
		}
	}
	return bars.Tail(lookbackDays), nil
}

func (d *engineData) PreviousClose(symbol string, date time.Time) (float64, bool) {
	// The first gap-window close of 100 is a +0.8% gap.
	return 99.2, true
}

func (d *engineData) News(symbol string, date time.Time) (string, string, bool) {
	return "", "", false
}

func engineConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{
			Timezone:     "UTC",
			Open:         "09:15",
			Close:        "15:30",
			EarlyStart:   "09:00",
			GapWindowEnd: "09:30",
			PreopenEnd:   "09:20",
		},
		Universe: config.UniverseConfig{
			Stocks:  []string{"UP.NS"},
			Indices: []string{"^NSEI"},
		},
		IndexTrend: config.IndexTrendConfig{EMAFast: 3, EMASlow: 5, LookbackDays: 10},
		PreMarket: config.PreMarketConfig{
			Gap: config.GapConfig{MinPercent: 0.3, MaxPercent: 2.0},
			Liquidity: config.LiquidityConfig{
				MinAvgVolume:          100_000,
				VolumeLookbackDays:    20,
				MinPreopenVolumeRatio: 1.2,
				BucketsPerDay:         78,
			},
			MaxCandidates: 8,
		},
		LiveMarket: config.LiveMarketConfig{
			EMAFast:       3,
			EMASlow:       5,
			ATRPeriod:     3,
			Volume:        config.VolumeConfig{LookbackCandles: 3, MinRatio: 1.0},
			Range:         config.RangeConfig{MinPercent: 0.8},
			Location:      config.LocationConfig{ProximityPercent: 0.5},
			MaxCandidates: 4,
		},
		Signals: config.SignalsConfig{
			Buy:  config.SignalSideConfig{PullbackToEMA20Percent: 0.5, MinVolumeRatio: 1.2},
			Sell: config.SignalSideConfig{PullbackToEMA20Percent: 0.5, MinVolumeRatio: 1.2},
		},
		Risk: config.RiskConfig{
			RiskPerTradePercent:   1.0,
			MaxTradesPerDay:       3,
			MaxConsecutiveLosses:  2,
			ATRPeriod:             3,
			StopLossATRMultiplier: 1.5,
			Target:                config.TargetConfig{RiskRewardRatio: 2.0},
		},
		Backtest: config.BacktestConfig{WinProbability: 0.6},
	}
}

func TestEngine_SkipsWeekendsAndTrades(t *testing.T) {
	cfg := engineConfig()
	engine := NewEngine(cfg, &engineData{cfg: cfg}, nil, targetExit{})

	// Friday through Monday: two trading days.
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

	result, err := engine.Run(context.Background(), start, end, 100_000)
	require.NoError(t, err)

	require.Len(t, result.Days, 2)
	assert.Equal(t, time.Friday, result.Days[0].Date.Weekday())
	assert.Equal(t, time.Monday, result.Days[1].Date.Weekday())

	assert.Equal(t, 2, result.Summary.TotalTrades)
	assert.Equal(t, 2, result.Summary.Wins)
	assert.Equal(t, 100.0, result.Summary.WinRate)
	assert.Greater(t, result.Summary.TotalPnL, 0.0)
	assert.Equal(t, 0.0, result.MaxDrawdown)

	for _, day := range result.Days {
		assert.Equal(t, 1, day.Candidates)
		assert.Equal(t, 1, day.Signals)
		require.Len(t, day.Trades, 1)
		assert.True(t, day.Trades[0].Closed)
		assert.Greater(t, day.PnL, 0.0)
	}
	// End-of-day capital compounds across days.
	assert.Greater(t, result.Days[1].Capital, result.Days[0].Capital)
}

// noData yields nothing for any symbol.
type noData struct{}

func (noData) MinuteBars(string, time.Time, time.Time) (candle.Series, error) { return nil, nil }
func (noData) DailyBars(string, int) (candle.Series, error)                   { return nil, nil }
func (noData) PreviousClose(string, time.Time) (float64, bool)                { return 0, false }
func (noData) News(string, time.Time) (string, string, bool)                  { return "", "", false }

func TestEngine_EmptyDaysRecordZerosAndContinue(t *testing.T) {
	cfg := engineConfig()
	engine := NewEngine(cfg, noData{}, nil, targetExit{})

	start := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC) // Monday
	end := start.AddDate(0, 0, 1)

	result, err := engine.Run(context.Background(), start, end, 100_000)
	require.NoError(t, err)

	require.Len(t, result.Days, 2)
	for _, day := range result.Days {
		assert.Equal(t, 0, day.Candidates)
		assert.Equal(t, 0, day.Signals)
		assert.Empty(t, day.Trades)
		assert.Equal(t, 0.0, day.PnL)
		assert.Equal(t, 100_000.0, day.Capital)
	}
	assert.Equal(t, 0, result.Summary.TotalTrades)
	assert.Equal(t, 0.0, result.Sharpe)
}

func TestResult_DayFailureBooksFlatDay(t *testing.T) {
	r := &Result{}
	date := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

	r.recordDayFailure(date, 100_000)

	assert.Equal(t, 1, r.Errors)
	require.Len(t, r.Days, 1)
	assert.Equal(t, date, r.Days[0].Date)
	assert.Equal(t, 0, r.Days[0].Candidates)
	assert.Empty(t, r.Days[0].Trades)
	assert.Equal(t, 0.0, r.Days[0].PnL)
	assert.Equal(t, 100_000.0, r.Days[0].Capital)
}

func TestEngine_ContextCancellation(t *testing.T) {
	cfg := engineConfig()
	engine := NewEngine(cfg, &engineData{cfg: cfg}, nil, targetExit{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := engine.Run(ctx, start, start.AddDate(0, 0, 5), 100_000)
	assert.ErrorIs(t, err, context.Canceled)
}
