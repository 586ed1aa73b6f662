package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/book"
	"helix/internal/common"
	"helix/internal/herrors"
)

func TestReconstructor_SnapshotThenDeltas(t *testing.T) {
	r := book.New(0, nil)

	snap, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.BestAsk) // not valid yet, snapshot still in progress

	snap, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Sell, Price: 101, Qty: 5})
	require.NoError(t, err)
	assert.InDelta(t, 99, snap.BestBid, 1e-9)
	assert.InDelta(t, 101, snap.BestAsk, 1e-9)

	snap, err = r.Apply(common.BookDelta{Seq: 3, PrevSeq: 2, TsMs: 3, Side: common.Buy, Price: 98, Qty: 3})
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	assert.InDelta(t, 99, snap.Bids[0].Price, 1e-9)
	assert.InDelta(t, 98, snap.Bids[1].Price, 1e-9)
}

func TestReconstructor_DeleteOnZeroQty(t *testing.T) {
	r := book.New(0, nil)
	_, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Sell, Price: 101, Qty: 5})
	require.NoError(t, err)

	snap, err := r.Apply(common.BookDelta{Seq: 3, PrevSeq: 2, TsMs: 3, Side: common.Buy, Price: 99, Qty: 0})
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
}

func TestReconstructor_SeqGapIsFatal(t *testing.T) {
	r := book.New(0, nil)
	_, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Sell, Price: 101, Qty: 5})
	require.NoError(t, err)

	_, err = r.Apply(common.BookDelta{Seq: 4, PrevSeq: 3, TsMs: 3, Side: common.Buy, Price: 98, Qty: 1})
	require.Error(t, err)
	fe, ok := err.(*herrors.FatalError)
	require.True(t, ok)
	assert.Equal(t, herrors.SeqGap, fe.Invariant)
}

func TestReconstructor_SeqRollbackIsFatal(t *testing.T) {
	r := book.New(0, nil)
	_, err := r.Apply(common.BookDelta{Seq: 5, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 6, PrevSeq: 5, TsMs: 2, Side: common.Sell, Price: 101, Qty: 5})
	require.NoError(t, err)

	_, err = r.Apply(common.BookDelta{Seq: 5, PrevSeq: 6, TsMs: 3, Side: common.Buy, Price: 98, Qty: 1})
	require.Error(t, err)
	fe, ok := err.(*herrors.FatalError)
	require.True(t, ok)
	assert.Equal(t, herrors.SeqRollback, fe.Invariant)
}

func TestReconstructor_NegativeQtyIsFatal(t *testing.T) {
	r := book.New(0, nil)
	_, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Buy, Price: 98, Qty: -1})
	require.Error(t, err)
	fe, ok := err.(*herrors.FatalError)
	require.True(t, ok)
	assert.Equal(t, herrors.NegativeQty, fe.Invariant)
}

func TestReconstructor_CrossedBookIsFatal(t *testing.T) {
	r := book.New(0, nil)
	_, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 101, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Sell, Price: 99, Qty: 5})
	require.Error(t, err)
	fe, ok := err.(*herrors.FatalError)
	require.True(t, ok)
	assert.Equal(t, herrors.InvalidTopOfBook, fe.Invariant)
}

func TestReconstructor_BookcheckEmittedEveryNDeltas(t *testing.T) {
	var rows []book.BookcheckRow
	r := book.New(2, func(row book.BookcheckRow) { rows = append(rows, row) })

	_, err := r.Apply(common.BookDelta{Seq: 1, IsSnapshot: true, TsMs: 1, Side: common.Buy, Price: 99, Qty: 5})
	require.NoError(t, err)
	_, err = r.Apply(common.BookDelta{Seq: 2, PrevSeq: 1, TsMs: 2, Side: common.Sell, Price: 101, Qty: 5})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = r.Apply(common.BookDelta{Seq: 3, PrevSeq: 2, TsMs: 3, Side: common.Buy, Price: 98, Qty: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = r.Apply(common.BookDelta{Seq: 4, PrevSeq: 3, TsMs: 4, Side: common.Buy, Price: 97, Qty: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
