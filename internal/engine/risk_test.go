package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/common"
	"helix/internal/engine"
)

func TestRiskEngine_ValidateRejectsOverPosition(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1, MaxNotional: 1e9})
	assert.True(t, r.Validate(common.Action{Side: common.Buy, Size: 1}, 100))
	assert.False(t, r.Validate(common.Action{Side: common.Buy, Size: 1.5}, 100))
}

func TestRiskEngine_ValidateRejectsOverNotional(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 500})
	assert.False(t, r.Validate(common.Action{Side: common.Buy, Size: 10}, 100))
}

func TestRiskEngine_OpeningFromFlatSetsAvgPrice(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 5, false, common.Taker))
	pos := r.Position()
	assert.InDelta(t, 5, pos.Qty, 1e-9)
	assert.InDelta(t, 100, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 0, pos.Realized, 1e-9)
}

func TestRiskEngine_AddingSameSideBlendsAvgPrice(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 5, false, common.Taker))
	r.Update(common.Filled(common.Buy, 110, 5, false, common.Taker))
	pos := r.Position()
	assert.InDelta(t, 10, pos.Qty, 1e-9)
	assert.InDelta(t, 105, pos.AvgPrice, 1e-9)
}

func TestRiskEngine_PartialReduceKeepsAvgPriceRealizesClosedPortion(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 10, false, common.Taker))
	r.Update(common.Filled(common.Sell, 110, 4, false, common.Taker))
	pos := r.Position()
	assert.InDelta(t, 6, pos.Qty, 1e-9)
	assert.InDelta(t, 100, pos.AvgPrice, 1e-9, "avg price must not blend on a reducing fill")
	assert.InDelta(t, 40, pos.Realized, 1e-9)
}

func TestRiskEngine_FlipClosesThenOpensAtFillPrice(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 5, false, common.Taker))
	r.Update(common.Filled(common.Sell, 120, 8, false, common.Taker))
	pos := r.Position()
	assert.InDelta(t, -3, pos.Qty, 1e-9)
	assert.InDelta(t, 120, pos.AvgPrice, 1e-9, "flip must re-open the remainder at the fill price")
	assert.InDelta(t, 100, pos.Realized, 1e-9) // 5 * (120-100)
}

func TestRiskEngine_ClosingToFlatZeroesAvgPrice(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 5, false, common.Taker))
	r.Update(common.Filled(common.Sell, 130, 5, false, common.Taker))
	pos := r.Position()
	assert.InDelta(t, 0, pos.Qty, 1e-9)
	assert.InDelta(t, 0, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 150, pos.Realized, 1e-9)
}

func TestPosition_NetTotalSubtractsFees(t *testing.T) {
	r := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: 1e9, MaxNotional: 1e9})
	r.Update(common.Filled(common.Buy, 100, 5, false, common.Taker))
	r.AddFee(2.5)
	pos := r.Position()
	assert.InDelta(t, 5*(110-100)-2.5, pos.NetTotal(110), 1e-9)
}
