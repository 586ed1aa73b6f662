package engine

import (
	"math"

	"helix/internal/common"
)

// FeeConfig holds maker/taker bps and the rounding mode (§4.7, §9
// defaults).
type FeeConfig struct {
	MakerBps float64
	TakerBps float64
	FeeCcy   string
	Rounding string // "" or "ceil_to_cent"
}

// FeeResult is the outcome of computing a fill's fee.
type FeeResult struct {
	Fee    float64
	FeeBps float64
	FeeCcy string
}

// FeeModel computes per-fill fees, grounded on cpp_engine/src/fee_model.cpp.
type FeeModel struct {
	cfg FeeConfig
}

// NewFeeModel returns a fee model for the given configuration.
func NewFeeModel(cfg FeeConfig) *FeeModel {
	return &FeeModel{cfg: cfg}
}

// Compute returns the fee and observed fee_bps for a filled fill; an
// unfilled or malformed fill yields a zero fee.
func (f *FeeModel) Compute(fill common.Fill) FeeResult {
	res := FeeResult{FeeCcy: f.cfg.FeeCcy}
	if fill.Status != common.StatusFilled || fill.FilledQty <= 0 || fill.VWAPPrice <= 0 {
		return res
	}
	notional := fill.VWAPPrice * fill.FilledQty
	bps := f.cfg.TakerBps
	if fill.Liquidity == common.Maker {
		bps = f.cfg.MakerBps
	}
	fee := notional * (bps / 1e4)
	fee = f.roundFee(fee)
	res.Fee = fee
	if notional > 0 {
		res.FeeBps = (fee / notional) * 1e4
	}
	return res
}

func (f *FeeModel) roundFee(fee float64) float64 {
	if f.cfg.Rounding == "ceil_to_cent" {
		return math.Ceil(fee*100) / 100
	}
	return fee
}
