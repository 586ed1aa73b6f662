package engine

import "helix/internal/common"

// MatchingEngine simulates a taker action against the current snapshot by
// walking the opposite side's depth. Grounded directly on
// cpp_engine/src/matching_engine.cpp.
type MatchingEngine struct {
	TickSize                float64
	RejectOnInsufficientDepth bool
}

// NewMatchingEngine returns a matching engine quantizing slippage in units
// of tickSize.
func NewMatchingEngine(tickSize float64, rejectOnInsufficientDepth bool) *MatchingEngine {
	return &MatchingEngine{TickSize: tickSize, RejectOnInsufficientDepth: rejectOnInsufficientDepth}
}

// IsTakerAction reports whether action is a taker per §3's Data Model: a
// Place is taker if market-typed or its limit crosses the opposite top,
// regardless of the caller's IsMaker flag (S7 crossing-equals-taker).
func IsTakerAction(action common.Action, book common.OrderbookSnapshot) bool {
	if action.Type == common.MarketOrder {
		return true
	}
	if action.LimitPrice <= 0 {
		return false
	}
	if action.Side == common.Buy {
		return book.BestAsk > 0 && action.LimitPrice >= book.BestAsk
	}
	return book.BestBid > 0 && action.LimitPrice <= book.BestBid
}

// sideLevels returns the depth the action crosses: asks for a Buy, bids for
// a Sell, falling back to a synthetic single level built from top-of-book
// when the snapshot carries no depth vectors.
func sideLevels(book common.OrderbookSnapshot, side common.Side) []common.PriceLevel {
	levels := book.Asks
	if side == common.Sell {
		levels = book.Bids
	}
	if len(levels) > 0 {
		return levels
	}
	if side == common.Buy && book.BestAsk > 0 && book.AskSize > 0 {
		return []common.PriceLevel{{Price: book.BestAsk, Qty: book.AskSize}}
	}
	if side == common.Sell && book.BestBid > 0 && book.BidSize > 0 {
		return []common.PriceLevel{{Price: book.BestBid, Qty: book.BidSize}}
	}
	return nil
}

func bestPriceForSide(book common.OrderbookSnapshot, side common.Side) float64 {
	if side == common.Buy {
		if len(book.Asks) > 0 {
			return book.Asks[0].Price
		}
		return book.BestAsk
	}
	if len(book.Bids) > 0 {
		return book.Bids[0].Price
	}
	return book.BestBid
}

// Simulate walks the book against action.Side and returns the resulting
// fill (or a rejection with a reason). The book is not mutated; Helix only
// reconstructs the external book, it never quotes into it.
func (m *MatchingEngine) Simulate(action common.Action, book common.OrderbookSnapshot) common.Fill {
	if action.Side != common.Buy && action.Side != common.Sell {
		return common.Rejected(action.Side, common.RejectBadSide)
	}
	if action.Size <= 0 {
		return common.Rejected(action.Side, common.RejectZeroQty)
	}

	levels := sideLevels(book, action.Side)
	if len(levels) == 0 {
		reason := common.RejectNoBid
		if action.Side == common.Buy {
			reason = common.RejectNoAsk
		}
		return common.Rejected(action.Side, reason)
	}

	remaining := action.Size
	filled := 0.0
	notional := 0.0
	levelsCrossed := 0

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		if lvl.Qty <= 0 {
			continue
		}
		traded := remaining
		if lvl.Qty < traded {
			traded = lvl.Qty
		}
		remaining -= traded
		filled += traded
		notional += traded * lvl.Price
		levelsCrossed++
	}

	if filled <= 0 {
		return common.Rejected(action.Side, common.RejectNoLiquidity)
	}
	if m.RejectOnInsufficientDepth && remaining > 0 {
		return common.Rejected(action.Side, common.RejectNoLiquidity)
	}

	vwap := notional / filled
	bestPrice := bestPriceForSide(book, action.Side)
	slippageTicks := 0.0
	if bestPrice > 0 && m.TickSize > 0 {
		if action.Side == common.Buy {
			slippageTicks = (vwap - bestPrice) / m.TickSize
		} else {
			slippageTicks = (bestPrice - vwap) / m.TickSize
		}
	}

	partial := remaining > 0
	fill := common.Filled(action.Side, vwap, filled, partial, common.Taker)
	fill.UnfilledQty = remaining
	if !partial {
		fill.UnfilledQty = 0
	}
	fill.LevelsCrossed = levelsCrossed
	fill.SlippageTicks = slippageTicks
	return fill
}
