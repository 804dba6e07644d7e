package backtest

import (
	"time"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// ExitReason records why a position left the Open state.
type ExitReason string

const (
	ExitStopLoss      ExitReason = "stop_loss"
	ExitTakeProfit    ExitReason = "take_profit"
	ExitEndOfBacktest ExitReason = "end_of_backtest"
)

// Position is the central mutable entity of a simulation run. It is
// created Open by the simulator and transitions to Closed exactly once;
// the exit fields and RealizedPnL are only ever written by close and are
// immutable afterwards.
type Position struct {
	ID        int
	Symbol    string
	Direction types.Direction

	EntryPrice      float64
	Quantity        float64
	StopLossPrice   float64
	TakeProfitPrice float64
	EntryTimestamp  time.Time

	// CommissionPaid accumulates entry commission at open and exit
	// commission at close.
	CommissionPaid float64

	Closed        bool
	ExitPrice     float64
	ExitTimestamp time.Time
	ExitReason    ExitReason

	// RealizedPnL is net of all commissions: price PnL minus
	// CommissionPaid. Zero until the position closes.
	RealizedPnL float64
}

// close transitions the position to Closed. Calling it twice is a
// programming error and panics rather than silently rewriting history.
func (p *Position) close(price float64, ts time.Time, reason ExitReason, exitCommission float64) {
	if p.Closed {
		panic("backtest: position closed twice")
	}
	p.Closed = true
	p.ExitPrice = price
	p.ExitTimestamp = ts
	p.ExitReason = reason
	p.CommissionPaid += exitCommission
	p.RealizedPnL = (price-p.EntryPrice)*p.Quantity*p.Direction.Sign() - p.CommissionPaid
}

// GrossPnL is the price PnL before commissions.
func (p *Position) GrossPnL() float64 {
	if !p.Closed {
		return 0
	}
	return p.RealizedPnL + p.CommissionPaid
}

// Return is the realized return on the capital committed at entry. Open
// positions return 0.
func (p *Position) Return() float64 {
	if !p.Closed || p.EntryPrice <= 0 || p.Quantity <= 0 {
		return 0
	}
	return p.RealizedPnL / (p.EntryPrice * p.Quantity)
}

// markValue is the mark-to-market value of an open position at the given
// price: for longs the liquidation value, for shorts the reserved margin
// plus unrealized PnL.
func (p *Position) markValue(price float64) float64 {
	if p.Direction == types.Short {
		return p.Quantity * (2*p.EntryPrice - price)
	}
	return p.Quantity * price
}
