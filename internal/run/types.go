package run

import "helix/internal/common"

// FillRow is one row of the fills ledger, columns ordered exactly per §6.
type FillRow struct {
	OrderID             uint64
	TsMs                int64
	Seq                 int64
	Status              common.FillStatus
	Side                common.Side
	Liquidity           common.Liquidity
	Src                 common.ActionSource
	Reason              common.RejectReason
	VWAP                float64
	FilledQty           float64
	UnfilledQty         float64
	Fee                 float64
	FeeBps              float64
	Gross               float64
	Net                 float64
	ExecCostTicksSigned float64
	Mid                 float64
	Best                float64
	SpreadPaidTicks     float64
	SlipTicks           float64
	TargetNotional      float64
	FilledNotional      float64
	Crossing            int
	LevelsCrossed       int
	AdvTicks            float64
	QueueTimeMs         float64
	AdvSelectionTicks   *float64 // nil until resolved or never applicable

	advSelectionTargetTs int64
	advMidAtFill         float64
	advPending           bool
}
