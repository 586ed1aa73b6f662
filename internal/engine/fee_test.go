package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/common"
	"helix/internal/engine"
)

func TestFeeModel_TakerVsMakerBps(t *testing.T) {
	f := engine.NewFeeModel(engine.FeeConfig{MakerBps: 2, TakerBps: 6, FeeCcy: "USD"})

	taker := common.Filled(common.Buy, 100, 2, false, common.Taker)
	res := f.Compute(taker)
	assert.InDelta(t, 0.12, res.Fee, 1e-9)
	assert.InDelta(t, 6, res.FeeBps, 1e-9)

	maker := common.Filled(common.Buy, 100, 2, false, common.Maker)
	res = f.Compute(maker)
	assert.InDelta(t, 0.04, res.Fee, 1e-9)
	assert.InDelta(t, 2, res.FeeBps, 1e-9)
}

func TestFeeModel_CeilToCentRounding(t *testing.T) {
	f := engine.NewFeeModel(engine.FeeConfig{TakerBps: 6, Rounding: "ceil_to_cent"})
	fill := common.Filled(common.Buy, 100, 0.01, false, common.Taker) // notional=1, fee=0.0006
	res := f.Compute(fill)
	assert.InDelta(t, 0.01, res.Fee, 1e-9)
}

func TestFeeModel_ZeroOnRejectedFill(t *testing.T) {
	f := engine.NewFeeModel(engine.FeeConfig{TakerBps: 6})
	res := f.Compute(common.Rejected(common.Buy, common.RejectZeroQty))
	assert.Equal(t, 0.0, res.Fee)
}
