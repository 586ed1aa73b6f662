package engine

import (
	"math"

	"helix/internal/common"
)

// MakerParams are the queue-position and adverse-selection parameters
// (§4.4): QInit/Alpha in [0,1], ExpireMs>=0, AdvTicks>=0.
type MakerParams struct {
	QInit    float64
	Alpha    float64
	ExpireMs int64
	AdvTicks float64
}

// MakerQueueSim simulates resting maker orders queued against the
// reconstructed book, grounded directly on cpp_engine/src/maker_queue.cpp.
type MakerQueueSim struct {
	params   MakerParams
	tickSize float64

	orders []common.RestingOrder

	currBids, currAsks map[float64]float64
	lastBids, lastAsks map[float64]float64
}

// NewMakerQueueSim returns a simulator for the given parameters.
func NewMakerQueueSim(params MakerParams, tickSize float64) *MakerQueueSim {
	return &MakerQueueSim{
		params:   params,
		tickSize: tickSize,
	}
}

// Submit adds a new resting order whose queue-ahead is the level's size at
// submission time scaled by QInit.
func (m *MakerQueueSim) Submit(action common.Action, orderID uint64, book common.OrderbookSnapshot, nowTs int64) common.RestingOrder {
	price := action.LimitPrice
	if price <= 0 {
		if action.Side == common.Buy {
			price = book.BestBid
		} else {
			price = book.BestAsk
		}
	}
	ord := common.RestingOrder{
		OrderID:     orderID,
		Side:        action.Side,
		Source:      action.Source,
		Price:       price,
		MyQty:       action.Size,
		SubmitTs:    nowTs,
		ExpireTs:    nowTs + m.params.ExpireMs,
		QueueAhead:  levelQtyAt(book, price, action.Side) * m.params.QInit,
	}
	m.orders = append(m.orders, ord)
	return ord
}

// Cancel removes every resting order with the given id; idempotent.
func (m *MakerQueueSim) Cancel(orderID uint64) bool {
	found := false
	out := m.orders[:0]
	for _, o := range m.orders {
		if o.OrderID == orderID {
			found = true
			continue
		}
		out = append(out, o)
	}
	m.orders = out
	return found
}

// OnBook runs one tick of the trade phase, depth phase, and expiry check
// against the current snapshot, returning any maker fills produced.
func (m *MakerQueueSim) OnBook(book common.OrderbookSnapshot, nowTs int64, trades []common.TradePrint) []common.Fill {
	m.updateLevelMaps(book)

	const eps = 1e-9
	var fills []common.Fill
	remaining := make([]common.RestingOrder, 0, len(m.orders))

	for _, ord := range m.orders {
		for _, tp := range trades {
			hits := false
			if ord.Side == common.Buy && tp.Side == common.Sell && tp.Price <= ord.Price+m.tickSize+eps {
				hits = true
			} else if ord.Side == common.Sell && tp.Side == common.Buy && tp.Price >= ord.Price-m.tickSize-eps {
				hits = true
			}
			if !hits || ord.MyQty <= 0 {
				continue
			}
			remainingTrade := tp.Size
			burn := math.Min(ord.QueueAhead, remainingTrade)
			ord.QueueAhead -= burn
			remainingTrade -= burn
			fillQty := math.Min(ord.MyQty, remainingTrade)
			ord.MyQty -= fillQty
			if fillQty > 0 {
				fills = append(fills, m.makerFill(ord, fillQty))
			}
		}

		prevQty := m.lastLevelQty(ord.Price, ord.Side)
		currQty := m.currentLevelQty(ord.Price, ord.Side)
		deltaDown := math.Max(0, prevQty-currQty)

		if deltaDown > 0 && ord.MyQty > 0 {
			consumeAhead := math.Min(ord.QueueAhead, deltaDown*m.params.Alpha)
			ord.QueueAhead -= consumeAhead
			remainingDelta := deltaDown - consumeAhead
			fillQty := math.Min(ord.MyQty, remainingDelta)
			ord.MyQty -= fillQty
			if fillQty > 0 {
				fills = append(fills, m.makerFill(ord, fillQty))
			}
		}

		if ord.MyQty > 0 && nowTs >= ord.ExpireTs {
			continue
		}
		if ord.MyQty > 0 {
			remaining = append(remaining, ord)
		}
	}

	m.orders = remaining
	m.lastBids, m.lastAsks = m.currBids, m.currAsks
	return fills
}

func (m *MakerQueueSim) makerFill(ord common.RestingOrder, fillQty float64) common.Fill {
	f := common.Filled(ord.Side, ord.Price, fillQty, ord.MyQty > 0, common.Maker)
	f.OrderID = ord.OrderID
	f.Source = ord.Source
	penalty := m.params.AdvTicks * m.tickSize
	if ord.Side == common.Buy {
		f.VWAPPrice += penalty
	} else {
		f.VWAPPrice -= penalty
	}
	f.UnfilledQty = ord.MyQty
	f.LevelsCrossed = 1
	f.SlippageTicks = 0
	return f
}

func levelQtyAt(book common.OrderbookSnapshot, price float64, side common.Side) float64 {
	const eps = 1e-9
	levels := book.Bids
	if side == common.Sell {
		levels = book.Asks
	}
	for _, lvl := range levels {
		if math.Abs(lvl.Price-price) < eps {
			return lvl.Qty
		}
	}
	if side == common.Buy && math.Abs(price-book.BestBid) < eps {
		return book.BidSize
	}
	if side == common.Sell && math.Abs(price-book.BestAsk) < eps {
		return book.AskSize
	}
	return 0
}

func (m *MakerQueueSim) updateLevelMaps(book common.OrderbookSnapshot) {
	m.currBids = make(map[float64]float64, len(book.Bids))
	m.currAsks = make(map[float64]float64, len(book.Asks))
	for _, lvl := range book.Bids {
		m.currBids[lvl.Price] = lvl.Qty
	}
	for _, lvl := range book.Asks {
		m.currAsks[lvl.Price] = lvl.Qty
	}
}

func (m *MakerQueueSim) currentLevelQty(price float64, side common.Side) float64 {
	if side == common.Buy {
		return m.currBids[price]
	}
	return m.currAsks[price]
}

func (m *MakerQueueSim) lastLevelQty(price float64, side common.Side) float64 {
	if side == common.Buy {
		if v, ok := m.lastBids[price]; ok {
			return v
		}
		return m.currentLevelQty(price, side)
	}
	if v, ok := m.lastAsks[price]; ok {
		return v
	}
	return m.currentLevelQty(price, side)
}
