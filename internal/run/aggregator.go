package run

import (
	"math"

	"helix/internal/common"
	"helix/internal/herrors"
)

// pendingAdverseSelection is a maker fill awaiting its adverse-selection
// horizon to elapse (§4.9).
type pendingAdverseSelection struct {
	rowIndex int
	midAtFill float64
	side      common.Side
	targetTs  int64
}

// Aggregator accumulates everything the run-level metrics document needs:
// the fills ledger rows, turnover, bucketed net PnL for Sharpe, latency and
// queue-time samples, and pending adverse-selection horizons. Grounded on
// main.cpp's inline PnLAggregate, generalized to the full metric set in §6.
type Aggregator struct {
	rows []FillRow

	turnover float64
	netSteps []float64
	netBy1s  map[int64]float64
	netBy10s map[int64]float64

	fillsTotal       int
	nMakerFills      int
	nTakerFills      int
	rejectsTotal     int
	actionsAttempted int
	rejectCounts     map[common.RejectReason]int

	latencySamples        []float64
	tradeTsSkewSamples     []float64
	makerQueueTimeSamples  []float64
	advSelectionSamples    []float64
	execCostSamples        []float64
	execCostMakerSamples   []float64
	execCostTakerSamples   []float64
	filledToTargetSamples  []float64

	pendingAdv []pendingAdverseSelection
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		netBy1s:      make(map[int64]float64),
		netBy10s:     make(map[int64]float64),
		rejectCounts: make(map[common.RejectReason]int),
	}
}

// RecordActionAttempt counts one action passed to rules/risk/matching,
// regardless of outcome (§9 Open Question resolution).
func (a *Aggregator) RecordActionAttempt() {
	a.actionsAttempted++
}

// RecordLatencySample records one scheduled-action latency draw.
func (a *Aggregator) RecordLatencySample(ms float64) {
	a.latencySamples = append(a.latencySamples, ms)
}

// RecordTradeSkew records now_ts-tp.ts_ms for one drained trade print.
func (a *Aggregator) RecordTradeSkew(skewMs float64) {
	a.tradeTsSkewSamples = append(a.tradeTsSkewSamples, skewMs)
}

// RecordFill appends a fill/reject row, updates running totals, and
// returns the row's index (for adverse-selection registration on maker
// fills).
func (a *Aggregator) RecordFill(row FillRow) int {
	a.rows = append(a.rows, row)
	idx := len(a.rows) - 1

	if row.Status == common.StatusRejected {
		a.rejectsTotal++
		a.rejectCounts[row.Reason]++
		return idx
	}

	a.fillsTotal++
	if row.Liquidity == common.Maker {
		a.nMakerFills++
		a.makerQueueTimeSamples = append(a.makerQueueTimeSamples, row.QueueTimeMs)
	} else {
		a.nTakerFills++
	}
	a.turnover += math.Abs(row.FilledNotional)
	a.netSteps = append(a.netSteps, row.Net)
	a.netBy1s[row.TsMs/1000] += row.Net
	a.netBy10s[row.TsMs/10000] += row.Net
	a.execCostSamples = append(a.execCostSamples, row.ExecCostTicksSigned)
	if row.Liquidity == common.Maker {
		a.execCostMakerSamples = append(a.execCostMakerSamples, row.ExecCostTicksSigned)
	} else {
		a.execCostTakerSamples = append(a.execCostTakerSamples, row.ExecCostTicksSigned)
	}
	if row.TargetNotional > 0 {
		a.filledToTargetSamples = append(a.filledToTargetSamples, row.FilledNotional/row.TargetNotional)
	}
	return idx
}

// RegisterAdverseSelection marks row idx (a maker fill) as awaiting
// resolution at targetTs against midAtFill.
func (a *Aggregator) RegisterAdverseSelection(idx int, midAtFill float64, side common.Side, targetTs int64) {
	a.rows[idx].advPending = true
	a.rows[idx].advMidAtFill = midAtFill
	a.rows[idx].advSelectionTargetTs = targetTs
	a.pendingAdv = append(a.pendingAdv, pendingAdverseSelection{
		rowIndex: idx, midAtFill: midAtFill, side: side, targetTs: targetTs,
	})
}

// ResolveAdverseSelection resolves every pending adverse-selection sample
// whose horizon has elapsed as of nowTs, given the current mid and tick
// size (§4.9).
func (a *Aggregator) ResolveAdverseSelection(nowTs int64, mid, tick float64) {
	if tick <= 0 {
		return
	}
	remaining := a.pendingAdv[:0]
	for _, p := range a.pendingAdv {
		if nowTs < p.targetTs {
			remaining = append(remaining, p)
			continue
		}
		sign := 1.0
		if p.side == common.Sell {
			sign = -1.0
		}
		adv := (mid - p.midAtFill) * sign / tick
		a.rows[p.rowIndex].AdvSelectionTicks = &adv
		a.rows[p.rowIndex].advPending = false
		a.advSelectionSamples = append(a.advSelectionSamples, adv)
	}
	a.pendingAdv = remaining
}

// FinalizeUnresolved reports whether any adverse-selection horizon never
// elapsed by end of run; §4.9 makes this fatal when advFatalMissing is set.
func (a *Aggregator) FinalizeUnresolved(advFatalMissing bool) error {
	if len(a.pendingAdv) == 0 {
		return nil
	}
	if advFatalMissing {
		return herrors.Fatal(herrors.MissingAdverseSelect,
			"unresolved adverse-selection horizon at end of run")
	}
	return nil
}

// Rows returns the accumulated fills ledger.
func (a *Aggregator) Rows() []FillRow { return a.rows }

// Turnover returns sum(|filled_notional|) across all fills.
func (a *Aggregator) Turnover() float64 { return a.turnover }

// MaxDrawdown returns the largest peak-to-trough decline of the cumulative
// net PnL series (net_steps).
func (a *Aggregator) MaxDrawdown() float64 {
	var cum, peak, maxDD float64
	for _, step := range a.netSteps {
		cum += step
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Sharpe1s returns the 1-second-bucketed Sharpe figures.
func (a *Aggregator) Sharpe1s() (sharpe float64, n int, std float64) {
	return sharpeFromBuckets(a.netBy1s)
}

// Sharpe10s returns the 10-second-bucketed Sharpe figures.
func (a *Aggregator) Sharpe10s() (sharpe float64, n int, std float64) {
	return sharpeFromBuckets(a.netBy10s)
}

// FillsTotal, NMakerFills, NTakerFills, RejectsTotal, ActionsAttempted
// expose the raw counters.
func (a *Aggregator) FillsTotal() int       { return a.fillsTotal }
func (a *Aggregator) NMakerFills() int      { return a.nMakerFills }
func (a *Aggregator) NTakerFills() int      { return a.nTakerFills }
func (a *Aggregator) RejectsTotal() int     { return a.rejectsTotal }
func (a *Aggregator) ActionsAttempted() int { return a.actionsAttempted }

// RejectCounts returns the per-reason reject tally.
func (a *Aggregator) RejectCounts() map[common.RejectReason]int { return a.rejectCounts }

// FillRate returns fills/actions_attempted, or 0 with no attempts.
func (a *Aggregator) FillRate() float64 {
	if a.actionsAttempted == 0 {
		return 0
	}
	return float64(a.fillsTotal) / float64(a.actionsAttempted)
}

// MakerFillRate returns maker_fills/fills_total, or 0 with no fills.
func (a *Aggregator) MakerFillRate() float64 {
	if a.fillsTotal == 0 {
		return 0
	}
	return float64(a.nMakerFills) / float64(a.fillsTotal)
}

// LatencySamples, TradeSkewSamples, MakerQueueTimeSamples,
// AdvSelectionSamples, ExecCostSamples(Maker/Taker), FilledToTargetSamples
// expose raw sample slices for percentile computation.
func (a *Aggregator) LatencySamples() []float64           { return a.latencySamples }
func (a *Aggregator) TradeSkewSamples() []float64          { return a.tradeTsSkewSamples }
func (a *Aggregator) MakerQueueTimeSamples() []float64      { return a.makerQueueTimeSamples }
func (a *Aggregator) AdvSelectionSamples() []float64        { return a.advSelectionSamples }
func (a *Aggregator) ExecCostSamples() []float64            { return a.execCostSamples }
func (a *Aggregator) ExecCostMakerSamples() []float64        { return a.execCostMakerSamples }
func (a *Aggregator) ExecCostTakerSamples() []float64        { return a.execCostTakerSamples }
func (a *Aggregator) FilledToTargetSamples() []float64       { return a.filledToTargetSamples }
