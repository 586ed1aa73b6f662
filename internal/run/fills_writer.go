package run

import (
	"encoding/csv"
	"fmt"
	"io"
)

var fillsHeader = []string{
	"order_id", "ts_ms", "seq", "status", "side", "liquidity", "src", "reason",
	"vwap", "filled_qty", "unfilled_qty", "fee", "fee_bps", "gross", "net",
	"exec_cost_ticks_signed", "mid", "best", "spread_paid_ticks", "slip_ticks",
	"target_notional", "filled_notional", "crossing", "levels_crossed",
	"adv_ticks", "queue_time_ms", "adv_selection_ticks",
}

// WriteFillsCSV writes the full ledger to w in the exact §6 column order.
// Numeric fields use >=10 significant digits.
func WriteFillsCSV(w io.Writer, rows []FillRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fillsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		advSel := ""
		if r.AdvSelectionTicks != nil {
			advSel = sig(*r.AdvSelectionTicks)
		}
		rec := []string{
			fmt.Sprintf("%d", r.OrderID),
			fmt.Sprintf("%d", r.TsMs),
			fmt.Sprintf("%d", r.Seq),
			r.Status.String(),
			r.Side.String(),
			r.Liquidity.String(),
			r.Src.String(),
			r.Reason.String(),
			sig(r.VWAP),
			sig(r.FilledQty),
			sig(r.UnfilledQty),
			sig(r.Fee),
			sig(r.FeeBps),
			sig(r.Gross),
			sig(r.Net),
			sig(r.ExecCostTicksSigned),
			sig(r.Mid),
			sig(r.Best),
			sig(r.SpreadPaidTicks),
			sig(r.SlipTicks),
			sig(r.TargetNotional),
			sig(r.FilledNotional),
			fmt.Sprintf("%d", r.Crossing),
			fmt.Sprintf("%d", r.LevelsCrossed),
			sig(r.AdvTicks),
			sig(r.QueueTimeMs),
			advSel,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sig(v float64) string {
	return fmt.Sprintf("%.10g", v)
}
