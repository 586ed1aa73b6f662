// Package strategy implements the pluggable feature/decision collaborators
// that turn a book snapshot into an action via simple arithmetic, plus the
// interval-driven demo issuers the CLI exposes for exercising the engine
// without a real strategy. Grounded on cpp_engine/src/feature_engine.cpp
// and decision_engine.cpp.
package strategy

import "helix/internal/common"

// Feature is the microstructure summary computed each tick from the
// current book and the most recent trade print.
type Feature struct {
	Imbalance     float64
	Microprice    float64
	PressureBid   float64
	PressureAsk   float64
	SweepSignal   float64
	TrendStrength float64
}

// TradeTape carries the last observed trade print, used by the feature
// engine to derive trend strength and sweep signal.
type TradeTape struct {
	LastPrice float64
	LastSize  float64
}

// FeatureEngine derives a Feature from the current book and trade tape.
type FeatureEngine struct{}

// Compute returns the feature vector for the given book/tape pair.
func (FeatureEngine) Compute(book common.OrderbookSnapshot, tape TradeTape) Feature {
	spread := book.BestAsk - book.BestBid
	if spread < 0 {
		spread = 0
	}
	mid := book.BestBid
	if spread > 0 {
		mid = book.BestBid + spread/2.0
	}
	depth := book.BidSize + book.AskSize

	var f Feature
	if depth > 0 {
		f.Imbalance = (book.BidSize - book.AskSize) / depth
		f.Microprice = (book.BestAsk*book.BidSize + book.BestBid*book.AskSize) / depth
	} else {
		f.Microprice = mid
	}
	f.PressureBid = book.BidSize
	f.PressureAsk = book.AskSize
	if spread > 0 {
		f.SweepSignal = tape.LastSize / (depth + 1e-6)
		f.TrendStrength = (tape.LastPrice - mid) / (spread + 1e-6)
	}
	return f
}

// DecisionEngine turns a Feature into a Buy/Sell/Hold action by comparing
// trend strength against a threshold, confirmed by order-book imbalance.
type DecisionEngine struct {
	Threshold float64
	Size      float64
}

// NewDecisionEngine returns a decision engine with the given threshold and
// fixed per-decision size.
func NewDecisionEngine(threshold, size float64) *DecisionEngine {
	return &DecisionEngine{Threshold: threshold, Size: size}
}

// Decide returns the action implied by feature, or a Hold action.
func (d *DecisionEngine) Decide(feature Feature) common.Action {
	switch {
	case feature.TrendStrength > d.Threshold && feature.Imbalance > 0:
		return common.Action{Kind: common.Place, Side: common.Buy, Size: d.Size, Source: common.SrcStrategy}
	case feature.TrendStrength < -d.Threshold && feature.Imbalance < 0:
		return common.Action{Kind: common.Place, Side: common.Sell, Size: d.Size, Source: common.SrcStrategy}
	default:
		return common.Action{Kind: common.Place, Side: common.Hold, Size: 0, Source: common.SrcStrategy}
	}
}

// intervalClock paces a repeating issuer against a max-action budget.
type intervalClock struct {
	intervalMs int64
	max        int
	lastTs     int64
	started    bool
	count      int
}

func (c *intervalClock) ready(nowTs int64) bool {
	if c.max >= 0 && c.count >= c.max {
		return false
	}
	if !c.started {
		return true
	}
	return nowTs-c.lastTs >= c.intervalMs
}

func (c *intervalClock) mark(nowTs int64) {
	c.lastTs = nowTs
	c.started = true
	c.count++
}

// DemoIssuer alternates market Buy/Sell taker actions sized from a target
// notional, at a fixed interval, up to a maximum count (`--demo_*`).
type DemoIssuer struct {
	clock       intervalClock
	notional    float64
	nextSide    common.Side
}

// NewDemoIssuer returns a demo issuer paced at intervalMs with at most max
// actions (max<0 means unbounded), sizing each action from notional.
func NewDemoIssuer(notional float64, intervalMs int64, max int) *DemoIssuer {
	return &DemoIssuer{
		clock:    intervalClock{intervalMs: intervalMs, max: max},
		notional: notional,
		nextSide: common.Buy,
	}
}

// Next returns a demo action if the issuer is ready to fire at nowTs.
func (d *DemoIssuer) Next(book common.OrderbookSnapshot, nowTs int64) (common.Action, bool) {
	if !d.clock.ready(nowTs) {
		return common.Action{}, false
	}
	mid := book.Mid()
	if mid <= 0 {
		return common.Action{}, false
	}
	size := d.notional / mid
	side := d.nextSide
	if d.nextSide == common.Buy {
		d.nextSide = common.Sell
	} else {
		d.nextSide = common.Buy
	}
	d.clock.mark(nowTs)
	return common.Action{Kind: common.Place, Side: side, Size: size, Type: common.MarketOrder, Source: common.SrcDemo}, true
}

// MakerDemoIssuer periodically places a post-only maker quote at the
// current best on alternating sides, with a fixed time-to-live
// (`--maker_*`).
type MakerDemoIssuer struct {
	clock    intervalClock
	notional float64
	ttlMs    int64
	nextSide common.Side
}

// NewMakerDemoIssuer returns a maker-demo issuer paced at intervalMs with
// at most max quotes (max<0 means unbounded).
func NewMakerDemoIssuer(notional float64, intervalMs, ttlMs int64, max int) *MakerDemoIssuer {
	return &MakerDemoIssuer{
		clock:    intervalClock{intervalMs: intervalMs, max: max},
		notional: notional,
		ttlMs:    ttlMs,
		nextSide: common.Buy,
	}
}

// Next returns a maker-quote action and its TTL if the issuer is ready to
// fire at nowTs.
func (m *MakerDemoIssuer) Next(book common.OrderbookSnapshot, nowTs int64) (common.Action, int64, bool) {
	if !m.clock.ready(nowTs) {
		return common.Action{}, 0, false
	}
	side := m.nextSide
	price := book.BestBid
	if side == common.Sell {
		price = book.BestAsk
	}
	if price <= 0 {
		return common.Action{}, 0, false
	}
	size := m.notional / price
	if m.nextSide == common.Buy {
		m.nextSide = common.Sell
	} else {
		m.nextSide = common.Buy
	}
	m.clock.mark(nowTs)
	action := common.Action{
		Kind:       common.Place,
		Side:       side,
		Size:       size,
		LimitPrice: price,
		IsMaker:    true,
		PostOnly:   true,
		Type:       common.LimitOrder,
		Source:     common.SrcMaker,
	}
	return action, m.ttlMs, true
}
