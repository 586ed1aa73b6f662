// Package replay reads the delta and trade CSV streams (§6) and produces
// the synthetic seed trajectory used when no real data is present. The
// column auto-detection and header/positional fallback are grounded on
// original_source/cpp_engine/src/tick_replay.cpp's TickReplay::load_csv_from
// and load_delta_csv.
package replay

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"helix/internal/common"
)

// DeltaReader serves an ordered BookDelta stream, falling back to a
// synthetic 5-row trajectory when the source is empty or absent (§4.1
// Seed fallback).
type DeltaReader struct {
	deltas []common.BookDelta
	cursor int
	synthetic bool
}

// LoadDeltaFile opens path and parses it as a delta CSV (or falls back to
// synthetic data if the file is missing/empty/unparsable).
func LoadDeltaFile(path string) (*DeltaReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return &DeltaReader{deltas: seedSynthetic(), synthetic: true}, nil
	}
	defer f.Close()

	deltas, err := parseDeltaCSV(f)
	if err != nil || len(deltas) == 0 {
		return &DeltaReader{deltas: seedSynthetic(), synthetic: true}, nil
	}
	return &DeltaReader{deltas: deltas}, nil
}

// IsSynthetic reports whether the reader fell back to the seeded trajectory.
func (d *DeltaReader) IsSynthetic() bool { return d.synthetic }

// Next returns the next delta and true, or a zero value and false once the
// stream is exhausted.
func (d *DeltaReader) Next() (common.BookDelta, bool) {
	if d.cursor >= len(d.deltas) {
		return common.BookDelta{}, false
	}
	v := d.deltas[d.cursor]
	d.cursor++
	return v, true
}

// Len returns the total number of deltas in the stream.
func (d *DeltaReader) Len() int { return len(d.deltas) }

var deltaHeaderNames = map[string]int{
	"ts_ms": 0, "seq": 1, "prev_seq": 2, "type": 3,
	"book_side": 4, "side": 4, "price": 5, "size": 6,
}

func parseDeltaCSV(r io.Reader) ([]common.BookDelta, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var deltas []common.BookDelta
	var header []string
	headerKnown := false
	lineNo := 0
	lastTsMs := int64(0)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")

		if lineNo == 1 && looksLikeHeader(fields) {
			header = normalizeHeader(fields)
			headerKnown = true
			continue
		}

		idx := func(name string) int {
			if !headerKnown {
				return -1
			}
			for i, h := range header {
				if h == name {
					return i
				}
			}
			return -1
		}

		get := func(pos int, name string) string {
			i := pos
			if headerKnown {
				i = idx(name)
			}
			if i < 0 || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		tsStr := get(0, "ts_ms")
		seqStr := get(1, "seq")
		prevStr := get(2, "prev_seq")
		typeStr := get(3, "type")
		sideStr := get(4, "book_side")
		if sideStr == "" {
			sideStr = get(4, "side")
		}
		priceStr := get(5, "price")
		sizeStr := get(6, "size")

		var d common.BookDelta
		d.TsMs = parseInt64(tsStr, lastTsMs+1)
		d.Seq = parseInt64(seqStr, -1)
		d.PrevSeq = parseInt64(prevStr, 0)
		t := strings.ToLower(strings.TrimSpace(typeStr))
		d.IsSnapshot = t == "snapshot" || t == "snap" || t == "full"

		s := strings.ToLower(strings.TrimSpace(sideStr))
		if s == "" {
			continue
		}
		switch s[0] {
		case 'b':
			d.Side = common.Buy
		case 'a':
			d.Side = common.Sell
		default:
			continue
		}
		d.Price = parseFloat(priceStr, 0)
		d.Qty = parseFloat(sizeStr, 0)

		lastTsMs = d.TsMs
		deltas = append(deltas, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return deltas, nil
}

func looksLikeHeader(fields []string) bool {
	for _, f := range fields {
		for _, r := range f {
			if unicode.IsLetter(r) {
				return true
			}
		}
	}
	return false
}

func normalizeHeader(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return out
}

func parseInt64(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// seedSynthetic reproduces TickReplay::seed_synthetic_data() as a delta
// stream: five snapshot-carrying single-level books.
func seedSynthetic() []common.BookDelta {
	var deltas []common.BookDelta
	seq := int64(1)
	for i := 0; i < 5; i++ {
		bestBid := 100.0 + float64(i)*0.1
		bestAsk := 100.5 + float64(i)*0.1
		bidSize := 10.0 + float64(i)
		askSize := 12.0 - float64(i)*0.5
		tsMs := int64(1000 + i*100)

		deltas = append(deltas,
			common.BookDelta{Seq: seq, PrevSeq: 0, IsSnapshot: true, TsMs: tsMs, Side: common.Buy, Price: bestBid, Qty: bidSize},
		)
		seq++
		deltas = append(deltas,
			common.BookDelta{Seq: seq, PrevSeq: seq - 1, IsSnapshot: false, TsMs: tsMs, Side: common.Sell, Price: bestAsk, Qty: askSize},
		)
		seq++
	}
	return deltas
}
