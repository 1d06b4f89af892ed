package backtest

import (
	"math"

	"github.com/intrascan/intrascan/internal/domain/indicators"
)

// MaxDrawdown is the largest peak-to-trough decline of the cumulative
// P&L curve built from the daily P&L series.
func MaxDrawdown(dailyPnL []float64) float64 {
	cum := 0.0
	peak := 0.0
	maxDD := 0.0
	for _, pnl := range dailyPnL {
		cum += pnl
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Sharpe is the annualized Sharpe ratio of the daily P&L series, assuming
// a zero risk-free rate and 252 trading days. Fewer than two days, or a
// flat series, yield 0.
func Sharpe(dailyPnL []float64) float64 {
	if len(dailyPnL) < 2 {
		return 0
	}
	mean := indicators.Mean(dailyPnL)
	std := indicators.Std(dailyPnL)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
