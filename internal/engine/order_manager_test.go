package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/common"
	"helix/internal/engine"
)

func TestOrderManager_PlaceThenPartialThenFill(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 10, LimitPrice: 100}, 0, 0)
	assert.Equal(t, common.OrdNew, ord.Status)

	err := m.ApplyFill(common.Fill{OrderID: ord.OrderID, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 100, FilledQty: 4}, 10)
	require.NoError(t, err)
	got, _ := m.Get(ord.OrderID)
	assert.Equal(t, common.OrdPartial, got.Status)
	assert.InDelta(t, 4, got.FilledQty, 1e-9)

	err = m.ApplyFill(common.Fill{OrderID: ord.OrderID, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 102, FilledQty: 6}, 20)
	require.NoError(t, err)
	got, _ = m.Get(ord.OrderID)
	assert.Equal(t, common.OrdFilled, got.Status)
	assert.InDelta(t, 10, got.FilledQty, 1e-9)
	assert.InDelta(t, (100*4+102*6)/10.0, got.AvgFillPrice, 1e-9)
}

func TestOrderManager_OverfillIsFatal(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 5, LimitPrice: 100}, 0, 0)
	err := m.ApplyFill(common.Fill{OrderID: ord.OrderID, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 100, FilledQty: 6}, 0)
	assert.Error(t, err)
}

func TestOrderManager_FillOnTerminalOrderIsFatal(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 5, LimitPrice: 100}, 0, 0)
	m.Cancel(ord.OrderID, 1)
	err := m.ApplyFill(common.Fill{OrderID: ord.OrderID, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 100, FilledQty: 1}, 2)
	assert.Error(t, err)
}

func TestOrderManager_FillOnUnknownOrderIsFatal(t *testing.T) {
	m := engine.NewOrderManager()
	err := m.ApplyFill(common.Fill{OrderID: 999, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 100, FilledQty: 1}, 0)
	assert.Error(t, err)
}

func TestOrderManager_CancelNoopOnTerminalOrder(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 5, LimitPrice: 100}, 0, 0)
	ok, noop := m.Cancel(ord.OrderID, 1)
	assert.True(t, ok)
	assert.False(t, noop)
	ok, noop = m.Cancel(ord.OrderID, 2)
	assert.False(t, ok)
	assert.True(t, noop)
}

func TestOrderManager_ReplaceInheritsRemainingQtyWhenZero(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 10, LimitPrice: 100}, 0, 0)
	require.NoError(t, m.ApplyFill(common.Fill{OrderID: ord.OrderID, Side: common.Buy, Status: common.StatusFilled, VWAPPrice: 100, FilledQty: 4}, 1))

	newOrd, ok, noop := m.Replace(ord.OrderID, 0, 0, 2, 0)
	assert.True(t, ok)
	assert.False(t, noop)
	assert.InDelta(t, 6, newOrd.Qty, 1e-9)

	old, _ := m.Get(ord.OrderID)
	assert.Equal(t, common.OrdReplaced, old.Status)
	assert.Equal(t, newOrd.OrderID, old.ReplacedBy)
}

func TestOrderManager_ExpireOrdersPastDeadline(t *testing.T) {
	m := engine.NewOrderManager()
	ord := m.Place(common.Action{Side: common.Buy, Size: 5, LimitPrice: 100}, 0, 100)
	expired := m.ExpireOrders(50)
	assert.Empty(t, expired)
	expired = m.ExpireOrders(100)
	assert.Equal(t, []uint64{ord.OrderID}, expired)
	got, _ := m.Get(ord.OrderID)
	assert.Equal(t, common.OrdExpired, got.Status)
}
