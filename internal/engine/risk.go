package engine

import (
	"math"

	"helix/internal/common"
)

// RiskConfig bounds the projected position/notional a validated action may
// produce (§4.8).
type RiskConfig struct {
	MaxPosition float64
	MaxNotional float64
}

// Position is the running signed inventory and its PnL decomposition
// (§4.8). Realized PnL only changes on the closed portion of a reducing or
// sign-flipping fill; fees are tracked separately and subtracted in the
// identity check.
type Position struct {
	Qty      float64
	AvgPrice float64
	Realized float64
	Fees     float64
}

// Unrealized returns q*(mid-avg) at the given mid.
func (p Position) Unrealized(mid float64) float64 {
	return p.Qty * (mid - p.AvgPrice)
}

// NetTotal returns realized+unrealized-fees at the given mid (§4.8).
func (p Position) NetTotal(mid float64) float64 {
	return p.Realized + p.Unrealized(mid) - p.Fees
}

// RiskEngine validates actions pre-trade and updates the position on each
// fill, grounded on cpp_engine/src/risk_engine.cpp and generalized from a
// single fixed limit pair to per-action checked values, and from
// full-realize-on-flip to a closed-portion-first split: a fill that flips
// the position's sign closes the existing lot at the fill price before
// opening the new one, so realized PnL stays attributable to the closed
// lot rather than blended across old and new exposure.
type RiskEngine struct {
	cfg RiskConfig
	pos Position
}

// NewRiskEngine returns a risk engine starting from a flat position.
func NewRiskEngine(cfg RiskConfig) *RiskEngine {
	return &RiskEngine{cfg: cfg}
}

// Validate reports whether action, applied at lastPrice, would keep the
// projected position within the configured limits.
func (r *RiskEngine) Validate(action common.Action, lastPrice float64) bool {
	projectedQty := r.pos.Qty
	switch action.Side {
	case common.Buy:
		projectedQty += action.Size
	case common.Sell:
		projectedQty -= action.Size
	}
	projectedNotional := math.Abs(projectedQty) * math.Abs(lastPrice)
	return math.Abs(projectedQty) <= r.cfg.MaxPosition && projectedNotional <= r.cfg.MaxNotional
}

// Update applies a fill's PnL effect: realizing the closed portion first on
// a reducing or sign-flipping fill, then setting the average price
// appropriately for what remains open.
func (r *RiskEngine) Update(fill common.Fill) {
	signed := fill.FilledQty
	if fill.Side == common.Sell {
		signed = -fill.FilledQty
	}
	prev := r.pos.Qty
	newQty := prev + signed

	switch {
	case prev == 0:
		r.pos.AvgPrice = fill.VWAPPrice
	case sign(signed) == sign(prev):
		r.pos.AvgPrice = (r.pos.AvgPrice*math.Abs(prev) + fill.VWAPPrice*math.Abs(signed)) / math.Abs(newQty)
	default:
		closed := math.Min(math.Abs(prev), math.Abs(signed))
		r.pos.Realized += closed * (fill.VWAPPrice - r.pos.AvgPrice) * sign(prev)
		if newQty == 0 {
			r.pos.AvgPrice = 0
		} else if sign(newQty) != sign(prev) {
			r.pos.AvgPrice = fill.VWAPPrice
		}
	}
	r.pos.Qty = newQty
}

// AddFee accrues a fee against the position.
func (r *RiskEngine) AddFee(fee float64) { r.pos.Fees += fee }

// Position returns the current position snapshot.
func (r *RiskEngine) Position() Position { return r.pos }

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
