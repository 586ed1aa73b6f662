// Package common holds the value types shared across the book reconstructor,
// matching engine, maker queue, order manager and run loop.
package common

import "fmt"

// Side is the direction of an order, a fill, or a book level.
type Side int

const (
	Buy Side = iota
	Sell
	Hold
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// OrderType distinguishes resting limit orders from immediate-or-cancel market orders.
type OrderType uint8

const (
	MarketOrder OrderType = iota
	LimitOrder
)

// ActionKind tags the three operations a strategy/demo issuer can submit.
type ActionKind uint8

const (
	Place ActionKind = iota
	Cancel
	Replace
)

// ActionSource attributes an action to the component that produced it, for
// reject_counts and fills-ledger src column purposes.
type ActionSource uint8

const (
	SrcStrategy ActionSource = iota
	SrcDemo
	SrcMaker
)

func (s ActionSource) String() string {
	switch s {
	case SrcStrategy:
		return "STRAT"
	case SrcDemo:
		return "DEMO"
	case SrcMaker:
		return "MAKER"
	default:
		return "STRAT"
	}
}

// Liquidity records whether a fill rested (Maker) or aggressed (Taker).
type Liquidity uint8

const (
	Taker Liquidity = iota
	Maker
	NoLiquidityRole
)

func (l Liquidity) String() string {
	switch l {
	case Maker:
		return "MAKER"
	case Taker:
		return "TAKER"
	default:
		return "NONE"
	}
}

// FillStatus is the outcome of attempting to execute an action.
type FillStatus uint8

const (
	StatusFilled FillStatus = iota
	StatusRejected
)

func (s FillStatus) String() string {
	if s == StatusFilled {
		return "filled"
	}
	return "rejected"
}

// RejectReason enumerates the local/recoverable reject causes from §7.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectBadSide
	RejectZeroQty
	RejectNoBid
	RejectNoAsk
	RejectNoLiquidity
	RejectMinQty
	RejectMinNotional
	RejectPriceInvalid
	RejectRiskLimit
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return ""
	case RejectBadSide:
		return "BadSide"
	case RejectZeroQty:
		return "ZeroQty"
	case RejectNoBid:
		return "NoBid"
	case RejectNoAsk:
		return "NoAsk"
	case RejectNoLiquidity:
		return "NoLiquidity"
	case RejectMinQty:
		return "MinQty"
	case RejectMinNotional:
		return "MinNotional"
	case RejectPriceInvalid:
		return "PriceInvalid"
	case RejectRiskLimit:
		return "RiskLimit"
	default:
		return "Unknown"
	}
}

// PriceLevel is one rung of book depth.
type PriceLevel struct {
	Price float64
	Qty   float64
}

// OrderbookSnapshot is the book reconstructor's output after applying one delta.
// Bids descend by price, asks ascend by price.
type OrderbookSnapshot struct {
	TsMs    int64
	BestBid float64
	BestAsk float64
	BidSize float64
	AskSize float64
	Bids    []PriceLevel
	Asks    []PriceLevel
}

// Mid returns the arithmetic mean of best bid/ask, or 0 if either side is empty.
func (s OrderbookSnapshot) Mid() float64 {
	if s.BestBid <= 0 || s.BestAsk <= 0 {
		return 0
	}
	return (s.BestBid + s.BestAsk) / 2
}

// BookDelta is one incremental change to a single price level, as read off the
// delta CSV stream (§6).
type BookDelta struct {
	Seq        int64
	PrevSeq    int64
	IsSnapshot bool
	TsMs       int64
	Side       Side // Buy for bid-side rows, Sell for ask-side rows
	Price      float64
	Qty        float64
}

// TradePrint is one aggressor-tagged print from the trade tape (§3).
type TradePrint struct {
	TsMs     int64
	Side     Side // aggressor side
	Price    float64
	Size     float64
	TradeID  string
}

// Action is a strategy/demo/maker instruction fed into rules, risk, and the
// order manager (§3).
type Action struct {
	Kind          ActionKind
	Source        ActionSource
	Side          Side
	Size          float64
	LimitPrice    float64
	IsMaker       bool
	PostOnly      bool
	ReduceOnly    bool
	Notional      float64
	TargetOrderID uint64
	ReplacePrice  float64
	ReplaceQty    float64
	Type          OrderType
}

// Fill is the outcome of matching or rejecting an Action (§3).
type Fill struct {
	OrderID       uint64
	Status        FillStatus
	Reason        RejectReason
	Side          Side
	Liquidity     Liquidity
	VWAPPrice     float64
	FilledQty     float64
	UnfilledQty   float64
	Partial       bool
	LevelsCrossed int
	SlippageTicks float64
	Source        ActionSource
	TargetQty     float64 // action.Size at time of attempt, for filled_to_target metrics
}

// Filled builds a successful maker/taker Fill.
func Filled(side Side, vwap, qty float64, partial bool, liq Liquidity) Fill {
	levels := 0
	if qty > 0 {
		levels = 1
	}
	return Fill{
		Status:        StatusFilled,
		Reason:        RejectNone,
		Side:          side,
		Liquidity:     liq,
		VWAPPrice:     vwap,
		FilledQty:     qty,
		UnfilledQty:   0,
		Partial:       partial,
		LevelsCrossed: levels,
	}
}

// Rejected builds a Fill representing a local/recoverable reject.
func Rejected(side Side, reason RejectReason) Fill {
	return Fill{Status: StatusRejected, Reason: reason, Side: side}
}

func (f Fill) String() string {
	return fmt.Sprintf("Fill{order=%d status=%s side=%s liq=%s vwap=%g filled=%g}",
		f.OrderID, f.Status, f.Side, f.Liquidity, f.VWAPPrice, f.FilledQty)
}
