package engine

import (
	"fmt"

	"helix/internal/common"
	"helix/internal/herrors"
)

// OrderMetrics tallies the lifecycle counters required by the run
// aggregator (§4.5, §6).
type OrderMetrics struct {
	Placed             uint64
	Cancelled          uint64
	CancelNoop         uint64
	Replaced           uint64
	ReplaceNoop        uint64
	Rejected           uint64
	Expired            uint64
	IllegalTransitions uint64
	OpenOrdersPeak     uint64
	TotalLifetimeMs    float64
	LifetimeSamples    uint64
}

// AvgLifetimeMs returns the mean order lifetime, or 0 with no samples.
func (m OrderMetrics) AvgLifetimeMs() float64 {
	if m.LifetimeSamples == 0 {
		return 0
	}
	return m.TotalLifetimeMs / float64(m.LifetimeSamples)
}

// OrderManager owns the order book of record and enforces the lifecycle
// state machine in §4.5, grounded directly on
// cpp_engine/src/order_manager.cpp. Illegal transitions (unknown order,
// side mismatch, terminal-order fill, overfill) are fatal per §4.5/§9,
// unlike the original which only sets a local error flag.
type OrderManager struct {
	orders      map[uint64]*common.Order
	nextOrderID uint64
	metrics     OrderMetrics
}

// NewOrderManager returns an empty order manager with ids starting at 1.
func NewOrderManager() *OrderManager {
	return &OrderManager{
		orders:      make(map[uint64]*common.Order),
		nextOrderID: 1,
	}
}

// Place creates a new order in status New.
func (m *OrderManager) Place(action common.Action, nowTs, expireTs int64) *common.Order {
	ord := &common.Order{
		OrderID:      m.nextOrderID,
		Side:         action.Side,
		Type:         action.Type,
		Source:       action.Source,
		Price:        action.LimitPrice,
		Qty:          action.Size,
		Status:       common.OrdNew,
		CreatedTs:    nowTs,
		LastUpdateTs: nowTs,
		ExpireTs:     expireTs,
		PostOnly:     action.PostOnly,
		ReduceOnly:   action.ReduceOnly,
		ReplacedFrom: action.TargetOrderID,
	}
	m.nextOrderID++
	m.orders[ord.OrderID] = ord
	m.metrics.Placed++
	m.updatePeak()
	return ord
}

// Cancel transitions order_id to Cancelled; legal only from {New, Partial}.
// Returns (success, noop).
func (m *OrderManager) Cancel(orderID uint64, nowTs int64) (bool, bool) {
	ord, ok := m.orders[orderID]
	if !ok || ord.Status.IsTerminal() {
		m.metrics.CancelNoop++
		return false, true
	}
	ord.Status = common.OrdCancelled
	ord.LastUpdateTs = nowTs
	m.metrics.Cancelled++
	m.recordLifetime(ord, nowTs)
	return true, false
}

// Replace closes order_id at status Replaced and opens a fresh order
// inheriting side/type/flags, with new price/qty defaulting to the old
// order's price / remaining unfilled qty when zero. Returns (newOrder,
// success, noop).
func (m *OrderManager) Replace(orderID uint64, newPrice, newQty float64, nowTs, expireTs int64) (*common.Order, bool, bool) {
	ord, ok := m.orders[orderID]
	if !ok || ord.Status.IsTerminal() {
		m.metrics.ReplaceNoop++
		return nil, false, true
	}
	ord.Status = common.OrdReplaced
	ord.LastUpdateTs = nowTs
	m.metrics.Replaced++
	m.recordLifetime(ord, nowTs)

	price := newPrice
	if price <= 0 {
		price = ord.Price
	}
	qty := newQty
	if qty <= 0 {
		qty = ord.Qty - ord.FilledQty
	}
	action := common.Action{
		Side:          ord.Side,
		Type:          ord.Type,
		LimitPrice:    price,
		Size:          qty,
		PostOnly:      ord.PostOnly,
		ReduceOnly:    ord.ReduceOnly,
		Source:        ord.Source,
		TargetOrderID: ord.OrderID,
	}
	newOrd := m.Place(action, nowTs, expireTs)
	ord.ReplacedBy = newOrd.OrderID
	return newOrd, true, false
}

// ApplyFill updates the referenced order's filled_qty and weighted
// avg_fill_price and transitions it to Filled or Partial. It is fatal if
// the order is unknown, terminal, side-mismatched, or overfilled.
func (m *OrderManager) ApplyFill(fill common.Fill, nowTs int64) error {
	ord, ok := m.orders[fill.OrderID]
	if !ok {
		return herrors.Fatal(herrors.IllegalTransition, fmt.Sprintf("fill for unknown order_id=%d", fill.OrderID))
	}
	if ord.Status.IsTerminal() {
		m.metrics.IllegalTransitions++
		return herrors.Fatal(herrors.IllegalTransition,
			fmt.Sprintf("illegal fill on terminal order_id=%d status=%s", ord.OrderID, ord.Status))
	}
	if fill.Side != ord.Side {
		m.metrics.IllegalTransitions++
		return herrors.Fatal(herrors.IllegalTransition, fmt.Sprintf("fill side mismatch for order_id=%d", ord.OrderID))
	}

	const eps = 1e-6
	prevFilled := ord.FilledQty
	newFilled := prevFilled + fill.FilledQty
	if newFilled > ord.Qty+eps {
		m.metrics.IllegalTransitions++
		return herrors.Fatal(herrors.Overfill, fmt.Sprintf("overfill detected for order_id=%d", ord.OrderID))
	}

	ord.FilledQty = newFilled
	totalNotional := ord.AvgFillPrice*prevFilled + fill.VWAPPrice*fill.FilledQty
	if newFilled > 0 {
		ord.AvgFillPrice = totalNotional / newFilled
	}
	ord.LastUpdateTs = nowTs
	if newFilled+1e-9 >= ord.Qty {
		ord.Status = common.OrdFilled
		m.recordLifetime(ord, nowTs)
	} else {
		ord.Status = common.OrdPartial
	}
	return nil
}

// MarkRejected transitions order_id to Rejected; legal only from
// {New, Partial}.
func (m *OrderManager) MarkRejected(orderID uint64, nowTs int64) {
	ord, ok := m.orders[orderID]
	if !ok {
		return
	}
	if ord.Status == common.OrdNew || ord.Status == common.OrdPartial {
		ord.Status = common.OrdRejected
		ord.LastUpdateTs = nowTs
		m.metrics.Rejected++
		m.recordLifetime(ord, nowTs)
	}
}

// ExpireOrders transitions any {New, Partial} order past its expire_ts and
// returns the ids that were expired.
func (m *OrderManager) ExpireOrders(nowTs int64) []uint64 {
	var expired []uint64
	for id, ord := range m.orders {
		if ord.Status != common.OrdNew && ord.Status != common.OrdPartial {
			continue
		}
		if ord.ExpireTs > 0 && nowTs >= ord.ExpireTs {
			ord.Status = common.OrdExpired
			ord.LastUpdateTs = nowTs
			m.metrics.Expired++
			m.recordLifetime(ord, nowTs)
			expired = append(expired, id)
		}
	}
	return expired
}

// Get returns the order by id.
func (m *OrderManager) Get(orderID uint64) (*common.Order, bool) {
	ord, ok := m.orders[orderID]
	return ord, ok
}

// Metrics returns a snapshot of the lifecycle counters.
func (m *OrderManager) Metrics() OrderMetrics { return m.metrics }

func (m *OrderManager) recordLifetime(ord *common.Order, nowTs int64) {
	m.metrics.TotalLifetimeMs += float64(nowTs - ord.CreatedTs)
	m.metrics.LifetimeSamples++
}

func (m *OrderManager) updatePeak() {
	var open uint64
	for _, ord := range m.orders {
		if ord.Status == common.OrdNew || ord.Status == common.OrdPartial {
			open++
		}
	}
	if open > m.metrics.OpenOrdersPeak {
		m.metrics.OpenOrdersPeak = open
	}
}
