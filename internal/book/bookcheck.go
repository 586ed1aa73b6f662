package book

import (
	"encoding/csv"
	"fmt"
	"io"
)

// BookcheckWriter appends periodic top-of-book rows to the bookcheck CSV
// (§6). Column order: ts_ms, seq, best_bid, best_ask, bid_size, ask_size.
type BookcheckWriter struct {
	w       *csv.Writer
	wrote   int
}

// NewBookcheckWriter wraps w with a header row.
func NewBookcheckWriter(w io.Writer) (*BookcheckWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ts_ms", "seq", "best_bid", "best_ask", "bid_size", "ask_size"}); err != nil {
		return nil, err
	}
	return &BookcheckWriter{w: cw}, nil
}

// Write appends one row.
func (b *BookcheckWriter) Write(row BookcheckRow) error {
	rec := []string{
		fmt.Sprintf("%d", row.TsMs),
		fmt.Sprintf("%d", row.Seq),
		formatSig(row.BestBid),
		formatSig(row.BestAsk),
		formatSig(row.BidSize),
		formatSig(row.AskSize),
	}
	b.wrote++
	return b.w.Write(rec)
}

// Flush flushes the underlying CSV writer and returns any write error.
func (b *BookcheckWriter) Flush() error {
	b.w.Flush()
	return b.w.Error()
}

func formatSig(v float64) string {
	return fmt.Sprintf("%.10g", v)
}
