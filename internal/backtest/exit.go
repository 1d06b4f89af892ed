// Package backtest drives the full funnel across a historical date range
// with a pluggable exit model, producing per-day results and account
// metrics.
package backtest

import (
	"math/rand"

	"github.com/intrascan/intrascan/internal/risk"
)

// ExitModel decides where a simulated trade exits.
type ExitModel interface {
	// ExitPrice returns the fill price a trade exits at.
	ExitPrice(t risk.Trade) float64
}

// BernoulliExit resolves each trade as a coin flip: with probability p
// the trade exits at target, otherwise at stop. A fixed seed makes runs
// reproducible.
type BernoulliExit struct {
	p   float64
	rng *rand.Rand
}

// NewBernoulliExit builds the synthetic exit model.
func NewBernoulliExit(winProbability float64, seed int64) *BernoulliExit {
	return &BernoulliExit{p: winProbability, rng: rand.New(rand.NewSource(seed))}
}

// ExitPrice implements ExitModel.
func (b *BernoulliExit) ExitPrice(t risk.Trade) float64 {
	if b.rng.Float64() < b.p {
		return t.Target
	}
	return t.StopLoss
}
