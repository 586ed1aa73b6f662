package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/common"
	"helix/internal/strategy"
)

func TestFeatureEngine_ImbalanceAndMicroprice(t *testing.T) {
	book := common.OrderbookSnapshot{BestBid: 99, BestAsk: 101, BidSize: 8, AskSize: 2}
	f := strategy.FeatureEngine{}.Compute(book, strategy.TradeTape{LastPrice: 101, LastSize: 1})

	assert.InDelta(t, 0.6, f.Imbalance, 1e-9) // (8-2)/10
	assert.InDelta(t, (101*8+99*2)/10.0, f.Microprice, 1e-9)
	assert.InDelta(t, 8, f.PressureBid, 1e-9)
	assert.InDelta(t, 2, f.PressureAsk, 1e-9)
}

func TestFeatureEngine_ZeroDepthFallsBackToMid(t *testing.T) {
	book := common.OrderbookSnapshot{BestBid: 100, BestAsk: 100}
	f := strategy.FeatureEngine{}.Compute(book, strategy.TradeTape{})
	assert.InDelta(t, 100, f.Microprice, 1e-9)
	assert.Equal(t, 0.0, f.Imbalance)
}

func TestDecisionEngine_BuysOnPositiveTrendAndImbalance(t *testing.T) {
	d := strategy.NewDecisionEngine(0.1, 2.0)
	action := d.Decide(strategy.Feature{TrendStrength: 0.5, Imbalance: 0.2})
	assert.Equal(t, common.Buy, action.Side)
	assert.InDelta(t, 2.0, action.Size, 1e-9)
}

func TestDecisionEngine_SellsOnNegativeTrendAndImbalance(t *testing.T) {
	d := strategy.NewDecisionEngine(0.1, 2.0)
	action := d.Decide(strategy.Feature{TrendStrength: -0.5, Imbalance: -0.2})
	assert.Equal(t, common.Sell, action.Side)
}

func TestDecisionEngine_HoldsWhenImbalanceDisagreesWithTrend(t *testing.T) {
	d := strategy.NewDecisionEngine(0.1, 2.0)
	action := d.Decide(strategy.Feature{TrendStrength: 0.5, Imbalance: -0.2})
	assert.Equal(t, common.Hold, action.Side)
}

func TestDecisionEngine_HoldsBelowThreshold(t *testing.T) {
	d := strategy.NewDecisionEngine(0.5, 2.0)
	action := d.Decide(strategy.Feature{TrendStrength: 0.2, Imbalance: 0.2})
	assert.Equal(t, common.Hold, action.Side)
}

func TestDemoIssuer_AlternatesSidesAndPaces(t *testing.T) {
	d := strategy.NewDemoIssuer(100, 1000, -1)
	book := common.OrderbookSnapshot{BestBid: 99, BestAsk: 101}

	a1, ok := d.Next(book, 0)
	assert.True(t, ok)
	assert.Equal(t, common.Buy, a1.Side)
	assert.InDelta(t, 1.0, a1.Size, 1e-9) // notional 100 / mid 100

	_, ok = d.Next(book, 500) // too soon
	assert.False(t, ok)

	a2, ok := d.Next(book, 1000)
	assert.True(t, ok)
	assert.Equal(t, common.Sell, a2.Side)
}

func TestDemoIssuer_StopsAtMax(t *testing.T) {
	d := strategy.NewDemoIssuer(100, 0, 1)
	book := common.OrderbookSnapshot{BestBid: 99, BestAsk: 101}

	_, ok := d.Next(book, 0)
	assert.True(t, ok)
	_, ok = d.Next(book, 0)
	assert.False(t, ok)
}

func TestDemoIssuer_NoActionWithoutValidMid(t *testing.T) {
	d := strategy.NewDemoIssuer(100, 1000, -1)
	_, ok := d.Next(common.OrderbookSnapshot{}, 0)
	assert.False(t, ok)
}

func TestMakerDemoIssuer_QuotesAtBestAndAlternatesSides(t *testing.T) {
	m := strategy.NewMakerDemoIssuer(200, 1000, 5000, -1)
	book := common.OrderbookSnapshot{BestBid: 100, BestAsk: 102}

	a1, ttl, ok := m.Next(book, 0)
	assert.True(t, ok)
	assert.Equal(t, common.Buy, a1.Side)
	assert.InDelta(t, 100, a1.LimitPrice, 1e-9)
	assert.True(t, a1.PostOnly)
	assert.Equal(t, int64(5000), ttl)

	a2, _, ok := m.Next(book, 1000)
	assert.True(t, ok)
	assert.Equal(t, common.Sell, a2.Side)
	assert.InDelta(t, 102, a2.LimitPrice, 1e-9)
}
