package run

import (
	"encoding/json"
	"io"

	"helix/internal/common"
	"helix/internal/engine"
)

type sharpeStats struct {
	Sharpe float64 `json:"sharpe"`
	N      int     `json:"n"`
	Std    float64 `json:"std"`
}

type avgP90 struct {
	Avg float64 `json:"avg"`
	P90 float64 `json:"p90"`
}

type meanP90Count struct {
	Mean  float64 `json:"mean"`
	P90   float64 `json:"p90"`
	Count int     `json:"count"`
}

type pctStatsN struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
	N   int     `json:"n"`
}

type pctStatsStd struct {
	P50 float64 `json:"p50"`
	P99 float64 `json:"p99"`
	Std float64 `json:"std"`
}

type filledToTargetStats struct {
	P99 float64 `json:"p99"`
}

type rulesStats struct {
	TickSize    float64 `json:"tick_size"`
	QtyStep     float64 `json:"qty_step"`
	MinQty      float64 `json:"min_qty"`
	MinNotional float64 `json:"min_notional"`
	Source      string  `json:"source"`
}

type feeModelStats struct {
	MakerBps float64 `json:"maker_bps"`
	TakerBps float64 `json:"taker_bps"`
	FeeCcy   string  `json:"fee_ccy"`
	Rounding string  `json:"rounding"`
	Source   string  `json:"source"`
}

type ordersStats struct {
	Placed             uint64  `json:"placed"`
	Cancelled          uint64  `json:"cancelled"`
	CancelNoop         uint64  `json:"cancel_noop"`
	Replaced           uint64  `json:"replaced"`
	ReplaceNoop        uint64  `json:"replace_noop"`
	Rejected           uint64  `json:"rejected"`
	Expired            uint64  `json:"expired"`
	IllegalTransitions uint64  `json:"illegal_transitions"`
	OpenOrdersPeak     uint64  `json:"open_orders_peak"`
	AvgOrderLifetimeMs float64 `json:"avg_order_lifetime_ms"`
}

type latencyStats struct {
	BaseMs   float64   `json:"base_ms"`
	JitterMs float64   `json:"jitter_ms"`
	TailMs   float64   `json:"tail_ms"`
	TailProb float64   `json:"tail_prob"`
	Source   string    `json:"source"`
	Samples  pctStatsN `json:"samples"`
}

// Metrics is the metrics.json document shape, field-for-field against §6's
// required key set.
type Metrics struct {
	RunID      string  `json:"run_id"`
	Fees       float64 `json:"fees"`
	Gross      float64 `json:"gross"`
	Realized   float64 `json:"realized"`
	Unrealized float64 `json:"unrealized"`
	NetTotal   float64 `json:"net_total"`
	IdentityOk bool    `json:"identity_ok"`

	Sharpe1s  sharpeStats `json:"sharpe_1s"`
	Sharpe10s sharpeStats `json:"sharpe_10s"`

	MaxDrawdown    float64 `json:"max_drawdown"`
	Turnover       float64 `json:"turnover"`
	FillRate       float64 `json:"fill_rate"`
	MakerFillRate  float64 `json:"maker_fill_rate"`

	MakerQueueTimeMs       avgP90       `json:"maker_queue_time_ms"`
	MakerAdvSelectionTicks meanP90Count `json:"maker_adv_selection_ticks"`
	TradeTsSkewMs          pctStatsN    `json:"trade_ts_skew_ms"`

	FeeBps      float64 `json:"fee_bps"`
	FeeBpsMaker float64 `json:"fee_bps_maker"`
	FeeBpsTaker float64 `json:"fee_bps_taker"`

	ExecCostTicksSigned       pctStatsStd `json:"exec_cost_ticks_signed"`
	ExecCostTicksSignedMaker  pctStatsStd `json:"exec_cost_ticks_signed_maker"`
	ExecCostTicksSignedTaker  pctStatsStd `json:"exec_cost_ticks_signed_taker"`

	FilledToTarget filledToTargetStats `json:"filled_to_target"`

	FillsTotal       int `json:"fills_total"`
	NMakerFills      int `json:"n_maker_fills"`
	NTakerFills      int `json:"n_taker_fills"`
	RejectsTotal     int `json:"rejects_total"`
	ActionsAttempted int `json:"actions_attempted"`

	RejectCounts map[string]int `json:"reject_counts"`

	Rules    rulesStats    `json:"rules"`
	FeeModel feeModelStats `json:"fee_model"`
	Orders   ordersStats   `json:"orders"`
	Latency  latencyStats  `json:"latency"`
}

// MetricsInput gathers everything BuildMetrics needs from the rest of the
// engine.
type MetricsInput struct {
	RunID string
	Agg   *Aggregator

	Position engine.Position
	Mid      float64

	OrderMetrics engine.OrderMetrics

	RulesCfg    engine.RulesConfig
	RulesSource string
	FeeCfg      engine.FeeConfig
	FeeSource   string
	FeeBpsTotal float64

	LatencyCfg    engine.LatencyConfig
	LatencySource string
}

// BuildMetrics assembles the final metrics document from accumulated
// aggregator state plus the other subsystems' terminal state.
func BuildMetrics(in MetricsInput) Metrics {
	a := in.Agg

	realized := in.Position.Realized
	unrealized := in.Position.Unrealized(in.Mid)
	fees := in.Position.Fees
	gross := realized + unrealized
	netTotal := realized + unrealized - fees
	identityOk := absF(gross-fees-netTotal) <= 1e-6

	sharpe1, n1, std1 := a.Sharpe1s()
	sharpe10, n10, std10 := a.Sharpe10s()

	feeBpsMaker := meanOrZero(filterFeeBps(a, common.Maker))
	feeBpsTaker := meanOrZero(filterFeeBps(a, common.Taker))

	rejectCounts := make(map[string]int, len(a.RejectCounts()))
	for reason, count := range a.RejectCounts() {
		rejectCounts[reason.String()] = count
	}

	advSamples := a.AdvSelectionSamples()
	latSamples := a.LatencySamples()
	skewSamples := a.TradeSkewSamples()
	queueSamples := a.MakerQueueTimeSamples()
	execAll := a.ExecCostSamples()
	execMaker := a.ExecCostMakerSamples()
	execTaker := a.ExecCostTakerSamples()
	fillToTarget := a.FilledToTargetSamples()

	return Metrics{
		RunID:      in.RunID,
		Fees:       fees,
		Gross:      gross,
		Realized:   realized,
		Unrealized: unrealized,
		NetTotal:   netTotal,
		IdentityOk: identityOk,

		Sharpe1s:  sharpeStats{Sharpe: sharpe1, N: n1, Std: std1},
		Sharpe10s: sharpeStats{Sharpe: sharpe10, N: n10, Std: std10},

		MaxDrawdown:   a.MaxDrawdown(),
		Turnover:      a.Turnover(),
		FillRate:      a.FillRate(),
		MakerFillRate: a.MakerFillRate(),

		MakerQueueTimeMs: avgP90{Avg: mean(queueSamples), P90: percentile(queueSamples, 90)},
		MakerAdvSelectionTicks: meanP90Count{
			Mean: mean(advSamples), P90: percentile(advSamples, 90), Count: len(advSamples),
		},
		TradeTsSkewMs: pctStatsN{
			P50: percentile(skewSamples, 50), P90: percentile(skewSamples, 90),
			P99: percentile(skewSamples, 99), N: len(skewSamples),
		},

		FeeBps:      in.FeeBpsTotal,
		FeeBpsMaker: feeBpsMaker,
		FeeBpsTaker: feeBpsTaker,

		ExecCostTicksSigned: pctStatsStd{
			P50: percentile(execAll, 50), P99: percentile(execAll, 99), Std: sampleStddev(execAll, mean(execAll)),
		},
		ExecCostTicksSignedMaker: pctStatsStd{
			P50: percentile(execMaker, 50), P99: percentile(execMaker, 99), Std: sampleStddev(execMaker, mean(execMaker)),
		},
		ExecCostTicksSignedTaker: pctStatsStd{
			P50: percentile(execTaker, 50), P99: percentile(execTaker, 99), Std: sampleStddev(execTaker, mean(execTaker)),
		},

		FilledToTarget: filledToTargetStats{P99: percentile(fillToTarget, 99)},

		FillsTotal:       a.FillsTotal(),
		NMakerFills:      a.NMakerFills(),
		NTakerFills:      a.NTakerFills(),
		RejectsTotal:     a.RejectsTotal(),
		ActionsAttempted: a.ActionsAttempted(),

		RejectCounts: rejectCounts,

		Rules: rulesStats{
			TickSize: in.RulesCfg.TickSize, QtyStep: in.RulesCfg.QtyStep,
			MinQty: in.RulesCfg.MinQty, MinNotional: in.RulesCfg.MinNotional, Source: in.RulesSource,
		},
		FeeModel: feeModelStats{
			MakerBps: in.FeeCfg.MakerBps, TakerBps: in.FeeCfg.TakerBps,
			FeeCcy: in.FeeCfg.FeeCcy, Rounding: in.FeeCfg.Rounding, Source: in.FeeSource,
		},
		Orders: ordersStats{
			Placed: in.OrderMetrics.Placed, Cancelled: in.OrderMetrics.Cancelled,
			CancelNoop: in.OrderMetrics.CancelNoop, Replaced: in.OrderMetrics.Replaced,
			ReplaceNoop: in.OrderMetrics.ReplaceNoop, Rejected: in.OrderMetrics.Rejected,
			Expired: in.OrderMetrics.Expired, IllegalTransitions: in.OrderMetrics.IllegalTransitions,
			OpenOrdersPeak: in.OrderMetrics.OpenOrdersPeak, AvgOrderLifetimeMs: in.OrderMetrics.AvgLifetimeMs(),
		},
		Latency: latencyStats{
			BaseMs: in.LatencyCfg.BaseMs, JitterMs: in.LatencyCfg.JitterMs,
			TailMs: in.LatencyCfg.TailMs, TailProb: in.LatencyCfg.TailProb, Source: in.LatencySource,
			Samples: pctStatsN{
				P50: percentile(latSamples, 50), P90: percentile(latSamples, 90),
				P99: percentile(latSamples, 99), N: len(latSamples),
			},
		},
	}
}

// WriteMetricsJSON marshals m to w as indented JSON.
func WriteMetricsJSON(w io.Writer, m Metrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func filterFeeBps(a *Aggregator, liq common.Liquidity) []float64 {
	var out []float64
	for _, r := range a.Rows() {
		if r.Status == common.StatusFilled && r.Liquidity == liq {
			out = append(out, r.FeeBps)
		}
	}
	return out
}

func meanOrZero(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return mean(samples)
}
