package replay

import (
	"bufio"
	"os"
	"strings"

	"helix/internal/common"
)

// TradeDrainer serves the ordered trade-print prefix with ts_ms <= now,
// advancing its cursor monotonically (§4.2). Duplicate suppression is the
// recorder's responsibility, not this reader's.
type TradeDrainer struct {
	trades []common.TradePrint
	cursor int
}

// LoadTradeFile parses a trade CSV. A missing path yields an empty drainer
// (trades are optional per §1).
func LoadTradeFile(path string) (*TradeDrainer, error) {
	if path == "" {
		return &TradeDrainer{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return &TradeDrainer{}, nil
	}
	defer f.Close()

	trades, err := parseTradeCSV(f)
	if err != nil {
		return nil, err
	}
	return &TradeDrainer{trades: trades}, nil
}

// DrainUpTo returns the ordered prefix of trades with TsMs <= now and
// advances the cursor past them.
func (t *TradeDrainer) DrainUpTo(now int64) []common.TradePrint {
	var out []common.TradePrint
	for t.cursor < len(t.trades) && t.trades[t.cursor].TsMs <= now {
		out = append(out, t.trades[t.cursor])
		t.cursor++
	}
	return out
}

func parseTradeCSV(f *os.File) ([]common.TradePrint, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var trades []common.TradePrint
	var header []string
	headerKnown := false
	lineNo := 0

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

		var tp common.TradePrint
		tp.TsMs = parseInt64(get(0, "ts_ms"), 0)
		s := strings.ToLower(strings.TrimSpace(get(1, "side")))
		if strings.HasPrefix(s, "b") {
			tp.Side = common.Buy
		} else {
			tp.Side = common.Sell
		}
		tp.Price = parseFloat(get(2, "price"), 0)
		tp.Size = parseFloat(get(3, "size"), 0)
		tp.TradeID = strings.TrimSpace(get(4, "trade_id"))
		trades = append(trades, tp)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return trades, nil
}
