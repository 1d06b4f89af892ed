package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/signals"
)

var (
	// ErrTradeNotFound is returned when closing an unknown trade id.
	ErrTradeNotFound = errors.New("risk: trade not found")
	// ErrTradeClosed is returned when closing a trade twice.
	ErrTradeClosed = errors.New("risk: trade already closed")
)

// Trade is one recorded trade, open or closed.
type Trade struct {
	ID         int               `json:"id"`
	Symbol     string            `json:"symbol"`
	Direction  signals.Direction `json:"direction"`
	Entry      float64           `json:"entry"`
	StopLoss   float64           `json:"stop_loss"`
	Target     float64           `json:"target"`
	Quantity   int               `json:"quantity"`
	OpenedAt   time.Time         `json:"opened_at"`
	ClosedAt   time.Time         `json:"closed_at,omitempty"`
	ExitPrice  float64           `json:"exit_price,omitempty"`
	PnL        float64           `json:"pnl"`
	PnLPercent float64           `json:"pnl_percent"`
	Closed     bool              `json:"closed"`
}

// Manager tracks capital, open trades and the session limits. It is not
// safe for concurrent use; the funnel runs it from a single goroutine.
type Manager struct {
	cfg               config.RiskConfig
	initialCapital    float64
	capital           float64
	trades            []Trade
	dailyTrades       int
	consecutiveLosses int
}

// NewManager starts a session with the given capital.
func NewManager(cfg config.RiskConfig, capital float64) *Manager {
	return &Manager{cfg: cfg, initialCapital: capital, capital: capital}
}

// Capital is the current account capital.
func (m *Manager) Capital() float64 { return m.capital }

// CanTakeTrade reports whether the session limits allow a new trade, with
// the blocking reason when not.
func (m *Manager) CanTakeTrade() (bool, string) {
	if m.dailyTrades >= m.cfg.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d)", m.cfg.MaxTradesPerDay)
	}
	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		return false, fmt.Sprintf("consecutive loss limit reached (%d)", m.cfg.MaxConsecutiveLosses)
	}
	if m.capital < m.initialCapital*0.2 {
		return false, "capital below 20% of initial"
	}
	return true, ""
}

// AddTrade records a new open trade from a sized position and counts it
// against the daily limit.
func (m *Manager) AddTrade(p Position, openedAt time.Time) Trade {
	t := Trade{
		ID:        len(m.trades) + 1,
		Symbol:    p.Symbol,
		Direction: p.Direction,
		Entry:     p.Entry,
		StopLoss:  p.StopLoss,
		Target:    p.Target,
		Quantity:  p.Quantity,
		OpenedAt:  openedAt,
	}
	m.trades = append(m.trades, t)
	m.dailyTrades++
	log.Info().Int("id", t.ID).Str("symbol", t.Symbol).Str("direction", string(t.Direction)).
		Int("qty", t.Quantity).Msg("trade opened")
	return t
}

// CloseTrade settles a trade at exitPrice, updates capital and the loss
// streak. A flat exit counts as a loss for streak purposes.
func (m *Manager) CloseTrade(id int, exitPrice float64, closedAt time.Time) (Trade, error) {
	idx := -1
	for i := range m.trades {
		if m.trades[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Trade{}, ErrTradeNotFound
	}
	t := &m.trades[idx]
	if t.Closed {
		return Trade{}, ErrTradeClosed
	}

	pnl := (exitPrice - t.Entry) * float64(t.Quantity)
	if t.Direction == signals.Sell {
		pnl = (t.Entry - exitPrice) * float64(t.Quantity)
	}
	t.ExitPrice = exitPrice
	t.ClosedAt = closedAt
	t.PnL = pnl
	if cost := t.Entry * float64(t.Quantity); cost != 0 {
		t.PnLPercent = pnl / cost * 100.0
	}
	t.Closed = true
	m.capital += pnl

	if pnl > 0 {
		m.consecutiveLosses = 0
	} else {
		m.consecutiveLosses++
	}

	log.Info().Int("id", t.ID).Str("symbol", t.Symbol).Float64("pnl", pnl).
		Float64("capital", m.capital).Msg("trade closed")
	return *t, nil
}

// ResetDailyCounters starts a new trading day. The loss streak carries
// over; only the per-day trade count resets.
func (m *Manager) ResetDailyCounters() {
	m.dailyTrades = 0
}

// Summary is the account-level aggregate of all recorded trades.
type Summary struct {
	InitialCapital    float64 `json:"initial_capital"`
	Capital           float64 `json:"capital"`
	TotalTrades       int     `json:"total_trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"win_rate"`
	TotalPnL          float64 `json:"total_pnl"`
	AveragePnL        float64 `json:"average_pnl"`
	ReturnPercent     float64 `json:"return_percent"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
}

// Summarize aggregates the closed trades. With no closed trades all
// counters are zero.
func (m *Manager) Summarize() Summary {
	s := Summary{InitialCapital: m.initialCapital, Capital: m.capital, ConsecutiveLosses: m.consecutiveLosses}
	for _, t := range m.trades {
		if !t.Closed {
			continue
		}
		s.TotalTrades++
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100.0
		s.AveragePnL = s.TotalPnL / float64(s.TotalTrades)
	}
	if m.initialCapital > 0 {
		s.ReturnPercent = (m.capital - m.initialCapital) / m.initialCapital * 100.0
	}
	return s
}

// Trades returns a copy of the trade log.
func (m *Manager) Trades() []Trade {
	out := make([]Trade, len(m.trades))
	copy(out, m.trades)
	return out
}
