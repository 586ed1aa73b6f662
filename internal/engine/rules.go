package engine

import (
	"math"

	"helix/internal/common"
)

// RulesConfig holds the tick/step/minimum parameters the rules engine
// normalizes against (§4.7, §9 defaults).
type RulesConfig struct {
	TickSize    float64
	QtyStep     float64
	MinQty      float64
	MinNotional float64
}

// RulesResult is the outcome of applying the rules engine to an action.
type RulesResult struct {
	OK         bool
	Reason     common.RejectReason
	Normalized common.Action
}

// RulesEngine normalizes and validates actions per §4.7. Unlike
// cpp_engine/src/rules_engine.cpp's round-to-nearest `near_multiple`, price
// quantization here is directional — floor for Buy, ceil for Sell — so a
// normalized limit price never crosses further than the caller intended.
type RulesEngine struct {
	cfg RulesConfig
}

// NewRulesEngine returns a rules engine for the given configuration.
func NewRulesEngine(cfg RulesConfig) *RulesEngine {
	return &RulesEngine{cfg: cfg}
}

func floorToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step) * step
}

func ceilToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Ceil(value/step) * step
}

// RefPriceForAction returns the reference price used to compute notional
// for action: its own limit price if set, else the relevant top-of-book
// price for its side.
func RefPriceForAction(action common.Action, book common.OrderbookSnapshot) float64 {
	if action.LimitPrice > 0 {
		return action.LimitPrice
	}
	if action.Side == common.Buy {
		if book.BestAsk > 0 {
			return book.BestAsk
		}
		return book.BestBid
	}
	if action.Side == common.Sell {
		if book.BestBid > 0 {
			return book.BestBid
		}
		return book.BestAsk
	}
	return 0
}

// Apply normalizes qty and price and validates the result against the
// configured minimums.
func (r *RulesEngine) Apply(action common.Action, book common.OrderbookSnapshot) RulesResult {
	res := RulesResult{Normalized: action}

	if action.Side != common.Buy && action.Side != common.Sell {
		res.Reason = common.RejectBadSide
		return res
	}
	if action.Size <= 0 {
		res.Reason = common.RejectZeroQty
		return res
	}

	normQty := action.Size
	if r.cfg.QtyStep > 0 {
		normQty = floorToStep(action.Size, r.cfg.QtyStep)
	}
	if normQty < r.cfg.MinQty-1e-9 {
		res.Reason = common.RejectMinQty
		return res
	}

	normPrice := action.LimitPrice
	if action.LimitPrice > 0 && r.cfg.TickSize > 0 {
		if action.Side == common.Buy {
			normPrice = floorToStep(action.LimitPrice, r.cfg.TickSize)
		} else {
			normPrice = ceilToStep(action.LimitPrice, r.cfg.TickSize)
		}
	} else if action.IsMaker && action.LimitPrice <= 0 {
		if action.Side == common.Buy {
			normPrice = book.BestBid
		} else {
			normPrice = book.BestAsk
		}
	}

	res.Normalized.Size = normQty
	res.Normalized.LimitPrice = normPrice

	refPrice := RefPriceForAction(res.Normalized, book)
	if !(refPrice > 0) {
		res.Reason = common.RejectPriceInvalid
		return res
	}

	notional := normQty * refPrice
	if r.cfg.MinNotional > 0 && notional < r.cfg.MinNotional-1e-9 {
		res.Reason = common.RejectMinNotional
		return res
	}

	res.OK = true
	res.Reason = common.RejectNone
	return res
}
