package screener

import (
	"time"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/candle"
)

// testConfig uses short indicator periods so fixtures stay small.
func testConfig() *config.Config {
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

// fakeData is an in-memory MarketData for tests.
type fakeData struct {
	minute map[string]candle.Series
	daily  map[string]candle.Series
	prev   map[string]float64
	news   map[string][2]string
	errs   map[string]error
}

func newFakeData() *fakeData {
	return &fakeData{
		minute: map[string]candle.Series{},
		daily:  map[string]candle.Series{},
		prev:   map[string]float64{},
		news:   map[string][2]string{},
		errs:   map[string]error{},
	}
}

func (f *fakeData) MinuteBars(symbol string, from, to time.Time) (candle.Series, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.minute[symbol].Between(from, to), nil
}

func (f *fakeData) DailyBars(symbol string, lookbackDays int) (candle.Series, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.daily[symbol].Tail(lookbackDays), nil
}

func (f *fakeData) PreviousClose(symbol string, date time.Time) (float64, bool) {
	v, ok := f.prev[symbol]
	return v, ok
}

func (f *fakeData) News(symbol string, date time.Time) (string, string, bool) {
	if n, ok := f.news[symbol]; ok {
		return n[0], n[1], true
	}
	return "", "", false
}

// flatBar is a bar whose OHLC all sit at price.
func flatBar(ts time.Time, price, volume float64) candle.Candle {
	return candle.Candle{Timestamp: ts, Open: price, High: price, Low: price, Close: price, Volume: volume}
}

// risingSession builds n intraday bars climbing one point per bar from
// start, with the last bar printing surgeVolume.
func risingSession(first time.Time, start float64, n int, volume, surgeVolume float64) candle.Series {
	s := make(candle.Series, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)
		v := volume
		if i == n-1 {
			v = surgeVolume
		}
		s[i] = candle.Candle{
			Timestamp: first.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c - 0.9,
			High:      c + 0.1,
			Low:       c - 1.1,
			Close:     c,
			Volume:    v,
		}
	}
	return s
}

// risingDaily builds n daily bars climbing one point per day ending the
// day before endDate.
func risingDaily(endDate time.Time, start float64, n int, volume float64) candle.Series {
	s := make(candle.Series, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)
		s[i] = candle.Candle{
			Timestamp: endDate.AddDate(0, 0, i-n),
			Open:      c - 0.5,
			High:      c + 0.5,
			Low:       c - 1,
			Close:     c,
			Volume:    volume,
		}
	}
	return s
}
