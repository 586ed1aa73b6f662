package run

import (
	"helix/internal/common"
	"helix/internal/engine"
)

// buildFillRow turns a successful Fill into a ledger row, deriving the
// signed execution-cost figure algebraically from slip_ticks +
// mid_to_best_ticks (§6 Testable Property #4): for a Buy it reduces to
// (vwap-mid)/tick, for a Sell to (mid-vwap)/tick.
func buildFillRow(fill common.Fill, fee engine.FeeResult, snap common.OrderbookSnapshot, tick float64, nowTs, seq int64, advTicksCfg float64) FillRow {
	mid := snap.Mid()
	best := snap.BestAsk
	if fill.Side == common.Sell {
		best = snap.BestBid
	}

	var execCost, spreadPaid float64
	if tick > 0 && mid > 0 {
		if fill.Side == common.Buy {
			execCost = (fill.VWAPPrice - mid) / tick
			spreadPaid = (best - mid) / tick
		} else {
			execCost = (mid - fill.VWAPPrice) / tick
			spreadPaid = (mid - best) / tick
		}
	}

	proceeds := fill.VWAPPrice * fill.FilledQty
	if fill.Side == common.Buy {
		proceeds = -proceeds
	}
	net := proceeds - fee.Fee

	crossing := 0
	if fill.Liquidity == common.Taker {
		crossing = 1
	}

	advTicks := 0.0
	if fill.Liquidity == common.Maker {
		advTicks = advTicksCfg
	}

	targetNotional := 0.0
	if fill.TargetQty > 0 {
		targetNotional = fill.TargetQty * fill.VWAPPrice
	}

	return FillRow{
		OrderID:             fill.OrderID,
		TsMs:                nowTs,
		Seq:                 seq,
		Status:              fill.Status,
		Side:                fill.Side,
		Liquidity:           fill.Liquidity,
		Src:                 fill.Source,
		Reason:              fill.Reason,
		VWAP:                fill.VWAPPrice,
		FilledQty:           fill.FilledQty,
		UnfilledQty:         fill.UnfilledQty,
		Fee:                 fee.Fee,
		FeeBps:              fee.FeeBps,
		Gross:               proceeds,
		Net:                 net,
		ExecCostTicksSigned: execCost,
		Mid:                 mid,
		Best:                best,
		SpreadPaidTicks:     spreadPaid,
		SlipTicks:           fill.SlippageTicks,
		TargetNotional:      targetNotional,
		FilledNotional:      fill.FilledQty * fill.VWAPPrice,
		Crossing:            crossing,
		LevelsCrossed:       fill.LevelsCrossed,
		AdvTicks:            advTicks,
	}
}

// buildRejectRow records a reject produced downstream of order placement
// (a scheduled taker action that found no liquidity at delivery time).
func buildRejectRow(fill common.Fill, nowTs, seq int64) FillRow {
	return FillRow{
		OrderID:   fill.OrderID,
		TsMs:      nowTs,
		Seq:       seq,
		Status:    fill.Status,
		Side:      fill.Side,
		Liquidity: common.NoLiquidityRole,
		Src:       fill.Source,
		Reason:    fill.Reason,
	}
}

// buildRejectRowForAction records a reject produced before an order ever
// existed (rules or risk validation failure).
func buildRejectRowForAction(action common.Action, reason common.RejectReason, nowTs, seq int64) FillRow {
	return FillRow{
		TsMs:      nowTs,
		Seq:       seq,
		Status:    common.StatusRejected,
		Side:      action.Side,
		Liquidity: common.NoLiquidityRole,
		Src:       action.Source,
		Reason:    reason,
	}
}
