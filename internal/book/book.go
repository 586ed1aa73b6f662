// Package book reconstructs a level-2 order book from a BookDelta stream
// and enforces its sequencing and shape invariants. The ordered
// price->qty maps are kept in a github.com/tidwall/btree.BTreeG, the same
// structure fenrir/internal/engine/orderbook.go uses for its price levels
// (PriceLevels = btree.BTreeG[*PriceLevel]).
package book

import (
	"math"

	"github.com/tidwall/btree"

	"helix/internal/common"
	"helix/internal/herrors"
)

const eps = 1e-9

type level struct {
	price float64
	qty   float64
}

// Reconstructor exclusively owns the bid/ask maps (§3 Ownership).
type Reconstructor struct {
	bids *btree.BTreeG[level] // sorted descending
	asks *btree.BTreeG[level] // sorted ascending

	lastSeq          int64
	haveLastSeq      bool
	lastTsMs         int64
	snapshotInProg   bool
	appliedCount     int

	bookcheckEvery int
	bookcheckSink  func(row BookcheckRow)
}

// BookcheckRow is one periodic top-of-book sample (§6 Bookcheck CSV).
type BookcheckRow struct {
	TsMs    int64
	Seq     int64
	BestBid float64
	BestAsk float64
	BidSize float64
	AskSize float64
}

// New builds an empty Reconstructor. bookcheckEvery<=0 disables bookcheck
// emission; bookcheckEvery>0 emits a row to sink every N applied deltas.
func New(bookcheckEvery int, sink func(row BookcheckRow)) *Reconstructor {
	return &Reconstructor{
		bids:           btree.NewBTreeG(func(a, b level) bool { return a.price > b.price }),
		asks:           btree.NewBTreeG(func(a, b level) bool { return a.price < b.price }),
		lastSeq:        -1,
		bookcheckEvery: bookcheckEvery,
		bookcheckSink:  sink,
	}
}

// Apply applies one delta and returns the resulting snapshot, per §4.1
// steps 1-8. Any invariant breach is returned as a *herrors.FatalError.
func (r *Reconstructor) Apply(d common.BookDelta) (common.OrderbookSnapshot, error) {
	implicitSnapshot := !d.IsSnapshot && d.PrevSeq == 0
	if d.IsSnapshot || implicitSnapshot {
		r.bids.Clear()
		r.asks.Clear()
		r.snapshotInProg = true
	} else {
		if r.haveLastSeq && d.PrevSeq != r.lastSeq {
			return common.OrderbookSnapshot{}, herrors.Fatal(herrors.SeqGap,
				"prev_seq does not match last applied seq")
		}
		if r.haveLastSeq && d.Seq <= r.lastSeq {
			return common.OrderbookSnapshot{}, herrors.Fatal(herrors.SeqRollback,
				"seq did not strictly increase")
		}
	}

	r.lastSeq = d.Seq
	r.haveLastSeq = true
	r.lastTsMs = max64(r.lastTsMs+1, d.TsMs)

	if d.Qty < 0 {
		return common.OrderbookSnapshot{}, herrors.Fatal(herrors.NegativeQty,
			"negative delta quantity")
	}

	side := r.sideTree(d.Side)
	if math.Abs(d.Qty) < eps {
		side.Delete(level{price: d.Price})
	} else {
		side.Set(level{price: d.Price, qty: d.Qty})
	}

	snap := r.snapshot()

	if r.bids.Len() > 0 && r.asks.Len() > 0 {
		r.snapshotInProg = false
	}

	if !r.snapshotInProg {
		if err := validate(snap); err != nil {
			return common.OrderbookSnapshot{}, err
		}
	}

	r.appliedCount++
	if r.bookcheckSink != nil && r.bookcheckEvery > 0 && r.appliedCount%r.bookcheckEvery == 0 {
		r.bookcheckSink(BookcheckRow{
			TsMs:    snap.TsMs,
			Seq:     d.Seq,
			BestBid: snap.BestBid,
			BestAsk: snap.BestAsk,
			BidSize: snap.BidSize,
			AskSize: snap.AskSize,
		})
	}

	return snap, nil
}

func validate(snap common.OrderbookSnapshot) error {
	if !(snap.BestBid > 0 && snap.BestAsk > 0) {
		return herrors.Fatal(herrors.InvalidTopOfBook, "best bid/ask must be positive")
	}
	if !(snap.BestBid < snap.BestAsk) {
		return herrors.Fatal(herrors.InvalidTopOfBook, "best bid must be below best ask")
	}
	if !(snap.BidSize > 0 && snap.AskSize > 0) {
		return herrors.Fatal(herrors.InvalidTopOfBook, "top-of-book size must be positive")
	}
	mid := (snap.BestBid + snap.BestAsk) / 2
	if math.IsNaN(mid) || math.IsInf(mid, 0) {
		return herrors.Fatal(herrors.NonFiniteMid, "mid is not finite")
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (r *Reconstructor) sideTree(s common.Side) *btree.BTreeG[level] {
	if s == common.Buy {
		return r.bids
	}
	return r.asks
}

func (r *Reconstructor) snapshot() common.OrderbookSnapshot {
	var snap common.OrderbookSnapshot
	snap.TsMs = r.lastTsMs

	first := true
	r.bids.Scan(func(l level) bool {
		snap.Bids = append(snap.Bids, common.PriceLevel{Price: l.price, Qty: l.qty})
		if first {
			snap.BestBid = l.price
			snap.BidSize = l.qty
			first = false
		}
		return true
	})
	first = true
	r.asks.Scan(func(l level) bool {
		snap.Asks = append(snap.Asks, common.PriceLevel{Price: l.price, Qty: l.qty})
		if first {
			snap.BestAsk = l.price
			snap.AskSize = l.qty
			first = false
		}
		return true
	})
	return snap
}
