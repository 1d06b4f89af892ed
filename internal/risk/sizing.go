// Package risk sizes positions and enforces the daily trading limits.
// Sizing is pure arithmetic; the Manager carries the mutable account
// state across a session.
package risk

import (
	"errors"
	"math"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/signals"
)

// ErrZeroRisk is returned when entry and stop coincide, leaving nothing
// to size against.
var ErrZeroRisk = errors.New("risk: entry equals stop loss")

// Positions never commit more than this fraction of capital.
const maxPositionFraction = 0.2

// Position is a sized order derived from a signal.
type Position struct {
	Symbol       string            `json:"symbol"`
	Direction    signals.Direction `json:"direction"`
	Entry        float64           `json:"entry"`
	StopLoss     float64           `json:"stop_loss"`
	Target       float64           `json:"target"`
	Quantity     int               `json:"quantity"`
	RiskAmount   float64           `json:"risk_amount"`
	PositionCost float64           `json:"position_cost"`
}

// Sizer computes position sizes from account capital.
type Sizer struct {
	cfg config.RiskConfig
}

// NewSizer builds a position sizer.
func NewSizer(cfg config.RiskConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size converts a signal into a position for the given capital. Quantity
// risks at most risk_per_trade_percent of capital and the position cost
// never exceeds 20% of capital; the risk amount reported is the one the
// final quantity actually carries.
func (s *Sizer) Size(sig signals.Signal, capital float64) (Position, error) {
	perShare := math.Abs(sig.Entry - sig.StopLoss)
	if perShare == 0 {
		return Position{}, ErrZeroRisk
	}

	riskBudget := capital * s.cfg.RiskPerTradePercent / 100.0
	qty := int(math.Floor(riskBudget / perShare))
	if qty < 1 {
		return Position{}, errors.New("risk: capital insufficient for one share")
	}

	maxCost := capital * maxPositionFraction
	if float64(qty)*sig.Entry > maxCost {
		qty = int(math.Floor(maxCost / sig.Entry))
		if qty < 1 {
			return Position{}, errors.New("risk: position cap insufficient for one share")
		}
	}

	return Position{
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		Entry:        sig.Entry,
		StopLoss:     sig.StopLoss,
		Target:       sig.Target,
		Quantity:     qty,
		RiskAmount:   math.Round(float64(qty)*perShare*100) / 100,
		PositionCost: math.Round(float64(qty)*sig.Entry*100) / 100,
	}, nil
}

// PotentialProfit is the gain if the position exits at target.
func (p Position) PotentialProfit() float64 {
	return math.Abs(p.Target-p.Entry) * float64(p.Quantity)
}

// RiskReward is the reward:risk ratio of the position, 0 when undefined.
func (p Position) RiskReward() float64 {
	risk := math.Abs(p.Entry - p.StopLoss)
	if risk == 0 {
		return 0
	}
	return math.Abs(p.Target-p.Entry) / risk
}
