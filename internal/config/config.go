// Package config loads and validates the screener configuration. The whole
// file is decoded once at startup into a typed Config which is passed
// explicitly into every component constructor; nothing reads ambient
// configuration after that.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Market     MarketConfig     `yaml:"market"`
	Universe   UniverseConfig   `yaml:"universe"`
	Data       DataConfig       `yaml:"data"`
	IndexTrend IndexTrendConfig `yaml:"index_context"`
	PreMarket  PreMarketConfig  `yaml:"pre_market"`
	LiveMarket LiveMarketConfig `yaml:"live_market"`
	Signals    SignalsConfig    `yaml:"signals"`
	Risk       RiskConfig       `yaml:"risk"`
	Backtest   BacktestConfig   `yaml:"backtest"`

	location *time.Location
}

// MarketConfig describes the exchange session.
type MarketConfig struct {
	Timezone     string `yaml:"timezone"`
	Open         string `yaml:"open"`           // session open, "09:15"
	Close        string `yaml:"close"`          // session close, "15:30"
	EarlyStart   string `yaml:"early_start"`    // first prints used for gap detection
	GapWindowEnd string `yaml:"gap_window_end"` // end of the gap observation window
	PreopenEnd   string `yaml:"preopen_end"`    // end of the early-volume window
}

// UniverseConfig fixes the symbol universe and its reference indices. The
// first index is the primary one used for gap alignment.
type UniverseConfig struct {
	Stocks  []string `yaml:"stocks"`
	Indices []string `yaml:"indices"`
}

// DataConfig points at the CSV market-data directories.
type DataConfig struct {
	MinuteDir string `yaml:"minute_data_dir"`
	DailyDir  string `yaml:"daily_data_dir"`
	NewsFile  string `yaml:"news_file"`
}

// IndexTrendConfig controls the daily index-trend classification.
type IndexTrendConfig struct {
	EMAFast      int `yaml:"ema_fast"`
	EMASlow      int `yaml:"ema_slow"`
	LookbackDays int `yaml:"lookback_days"`
}

// PreMarketConfig controls the pre-market screening stages.
type PreMarketConfig struct {
	Gap           GapConfig       `yaml:"gap"`
	Liquidity     LiquidityConfig `yaml:"liquidity"`
	MaxCandidates int             `yaml:"max_candidates"`
}

// GapConfig bounds the absolute overnight gap, in percent.
type GapConfig struct {
	MinPercent float64 `yaml:"min_percent"`
	MaxPercent float64 `yaml:"max_percent"`
}

// LiquidityConfig controls the average-volume floor and the early-volume
// surge requirement.
type LiquidityConfig struct {
	MinAvgVolume          float64 `yaml:"min_avg_volume"`
	VolumeLookbackDays    int     `yaml:"volume_lookback_days"`
	MinPreopenVolumeRatio float64 `yaml:"min_preopen_volume_ratio"`
	BucketsPerDay         int     `yaml:"buckets_per_day"` // 5-minute buckets in a session
}

// LiveMarketConfig controls the live-market filter.
type LiveMarketConfig struct {
	EMAFast            int            `yaml:"ema_fast"`
	EMASlow            int            `yaml:"ema_slow"`
	ATRPeriod          int            `yaml:"atr_period"`
	Volume             VolumeConfig   `yaml:"volume"`
	Range              RangeConfig    `yaml:"range"`
	Location           LocationConfig `yaml:"location"`
	MaxCandidates      int            `yaml:"max_candidates"`
	AllowDailyFallback bool           `yaml:"allow_daily_fallback"`
}

// VolumeConfig sets the intraday volume-surge requirement.
type VolumeConfig struct {
	LookbackCandles int     `yaml:"lookback_candles"`
	MinRatio        float64 `yaml:"min_ratio"`
}

// RangeConfig sets the minimum intraday range.
type RangeConfig struct {
	MinPercent float64 `yaml:"min_percent"`
}

// LocationConfig sets the key-level proximity threshold.
type LocationConfig struct {
	ProximityPercent float64 `yaml:"proximity_percent"`
}

// SignalsConfig holds the per-side entry rule parameters.
type SignalsConfig struct {
	Buy  SignalSideConfig `yaml:"buy"`
	Sell SignalSideConfig `yaml:"sell"`
}

// SignalSideConfig parameterizes one side of the entry rules.
type SignalSideConfig struct {
	PullbackToEMA20Percent float64 `yaml:"pullback_to_20ema_percent"`
	MinVolumeRatio         float64 `yaml:"min_volume_ratio"`
}

// RiskConfig holds the risk-management limits.
type RiskConfig struct {
	RiskPerTradePercent   float64      `yaml:"risk_per_trade_percent"`
	MaxTradesPerDay       int          `yaml:"max_trades_per_day"`
	MaxConsecutiveLosses  int          `yaml:"max_consecutive_losses"`
	ATRPeriod             int          `yaml:"atr_period"`
	StopLossATRMultiplier float64      `yaml:"stop_loss_atr_multiplier"`
	Target                TargetConfig `yaml:"target"`
}

// TargetConfig sets the reward:risk ratio used for targets.
type TargetConfig struct {
	RiskRewardRatio float64 `yaml:"risk_reward_ratio"`
}

// BacktestConfig parameterizes the synthetic exit model.
type BacktestConfig struct {
	WinProbability float64 `yaml:"win_probability"`
}

// Load reads, decodes, defaults and validates a config file. Any missing
// required key fails here, before the funnel starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Timezone == "" {
		c.Market.Timezone = "Asia/Kolkata"
	}
	if c.Market.Open == "" {
		c.Market.Open = "09:15"
	}
	if c.Market.Close == "" {
		c.Market.Close = "15:30"
	}
	if c.Market.EarlyStart == "" {
		c.Market.EarlyStart = "09:00"
	}
	if c.Market.GapWindowEnd == "" {
		c.Market.GapWindowEnd = "09:30"
	}
	if c.Market.PreopenEnd == "" {
		c.Market.PreopenEnd = "09:20"
	}
	if c.IndexTrend.EMAFast == 0 {
		c.IndexTrend.EMAFast = 50
	}
	if c.IndexTrend.EMASlow == 0 {
		c.IndexTrend.EMASlow = 200
	}
	if c.IndexTrend.LookbackDays == 0 {
		c.IndexTrend.LookbackDays = 250
	}
	if c.PreMarket.Gap.MinPercent == 0 {
		c.PreMarket.Gap.MinPercent = 0.3
	}
	if c.PreMarket.Gap.MaxPercent == 0 {
		c.PreMarket.Gap.MaxPercent = 2.0
	}
	if c.PreMarket.Liquidity.MinAvgVolume == 0 {
		c.PreMarket.Liquidity.MinAvgVolume = 100_000
	}
	if c.PreMarket.Liquidity.VolumeLookbackDays == 0 {
		c.PreMarket.Liquidity.VolumeLookbackDays = 20
	}
	if c.PreMarket.Liquidity.MinPreopenVolumeRatio == 0 {
		c.PreMarket.Liquidity.MinPreopenVolumeRatio = 1.2
	}
	if c.PreMarket.Liquidity.BucketsPerDay == 0 {
		c.PreMarket.Liquidity.BucketsPerDay = 78
	}
	if c.PreMarket.MaxCandidates == 0 {
		c.PreMarket.MaxCandidates = 8
	}
	if c.LiveMarket.EMAFast == 0 {
		c.LiveMarket.EMAFast = 20
	}
	if c.LiveMarket.EMASlow == 0 {
		c.LiveMarket.EMASlow = 200
	}
	if c.LiveMarket.ATRPeriod == 0 {
		c.LiveMarket.ATRPeriod = 14
	}
	if c.LiveMarket.Volume.LookbackCandles == 0 {
		c.LiveMarket.Volume.LookbackCandles = 10
	}
	if c.LiveMarket.Volume.MinRatio == 0 {
		c.LiveMarket.Volume.MinRatio = 1.0
	}
	if c.LiveMarket.Range.MinPercent == 0 {
		c.LiveMarket.Range.MinPercent = 0.8
	}
	if c.LiveMarket.Location.ProximityPercent == 0 {
		c.LiveMarket.Location.ProximityPercent = 0.5
	}
	if c.LiveMarket.MaxCandidates == 0 {
		c.LiveMarket.MaxCandidates = 4
	}
	if c.Signals.Buy.PullbackToEMA20Percent == 0 {
		c.Signals.Buy.PullbackToEMA20Percent = 0.5
	}
	if c.Signals.Buy.MinVolumeRatio == 0 {
		c.Signals.Buy.MinVolumeRatio = 1.2
	}
	if c.Signals.Sell.PullbackToEMA20Percent == 0 {
		c.Signals.Sell.PullbackToEMA20Percent = 0.5
	}
	if c.Signals.Sell.MinVolumeRatio == 0 {
		c.Signals.Sell.MinVolumeRatio = 1.2
	}
	if c.Risk.RiskPerTradePercent == 0 {
		c.Risk.RiskPerTradePercent = 1.0
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 3
	}
	if c.Risk.MaxConsecutiveLosses == 0 {
		c.Risk.MaxConsecutiveLosses = 2
	}
	if c.Risk.ATRPeriod == 0 {
		c.Risk.ATRPeriod = 14
	}
	if c.Risk.StopLossATRMultiplier == 0 {
		c.Risk.StopLossATRMultiplier = 1.5
	}
	if c.Risk.Target.RiskRewardRatio == 0 {
		c.Risk.Target.RiskRewardRatio = 2.0
	}
	if c.Backtest.WinProbability == 0 {
		c.Backtest.WinProbability = 0.6
	}
}

// Validate checks the required keys and resolves the exchange timezone.
func (c *Config) Validate() error {
	if len(c.Universe.Stocks) == 0 {
		return fmt.Errorf("universe.stocks must not be empty")
	}
	if len(c.Universe.Indices) == 0 {
		return fmt.Errorf("universe.indices must not be empty")
	}
	if c.Data.MinuteDir == "" || c.Data.DailyDir == "" {
		return fmt.Errorf("data.csv minute and daily directories are required")
	}
	if c.PreMarket.Gap.MinPercent >= c.PreMarket.Gap.MaxPercent {
		return fmt.Errorf("pre_market.gap: min_percent %.2f must be below max_percent %.2f",
			c.PreMarket.Gap.MinPercent, c.PreMarket.Gap.MaxPercent)
	}
	if c.Risk.RiskPerTradePercent <= 0 {
		return fmt.Errorf("risk.risk_per_trade_percent must be positive")
	}
	if c.Backtest.WinProbability < 0 || c.Backtest.WinProbability > 1 {
		return fmt.Errorf("backtest.win_probability must be in [0,1]")
	}
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return fmt.Errorf("market.timezone: %w", err)
	}
	c.location = loc
	for _, clock := range []string{c.Market.Open, c.Market.Close, c.Market.EarlyStart, c.Market.GapWindowEnd, c.Market.PreopenEnd} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return fmt.Errorf("market clock %q: %w", clock, err)
		}
	}
	return nil
}

// Location returns the resolved exchange timezone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		c.location = time.UTC
	}
	return c.location
}

// SessionTime anchors an "HH:MM" clock onto a trading date in the exchange
// timezone. Clocks are validated at load time; a malformed clock here
// falls back to midnight.
func (c *Config) SessionTime(date time.Time, clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		t = time.Time{}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, c.Location())
}

// PrimaryIndex returns the index symbol used for gap alignment.
func (c *Config) PrimaryIndex() string {
	return c.Universe.Indices[0]
}
