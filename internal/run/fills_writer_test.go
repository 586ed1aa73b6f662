package run

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/common"
)

func TestWriteFillsCSV_HeaderAndColumnOrder(t *testing.T) {
	adv := 1.5
	rows := []FillRow{
		{
			OrderID: 1, TsMs: 100, Seq: 2,
			Status: common.StatusFilled, Side: common.Buy, Liquidity: common.Taker,
			Src: common.SrcStrategy, Reason: common.RejectNone,
			VWAP: 100.25, FilledQty: 2, UnfilledQty: 0,
			Fee: 0.05, FeeBps: 6, Gross: 200.5, Net: 200.45,
			ExecCostTicksSigned: 1, Mid: 100, Best: 100.1,
			SpreadPaidTicks: 0.5, SlipTicks: 0.25,
			TargetNotional: 200, FilledNotional: 200.5,
			Crossing: 1, LevelsCrossed: 1, AdvTicks: 0, QueueTimeMs: 0,
			AdvSelectionTicks: &adv,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFillsCSV(&buf, rows))

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, fillsHeader, records[0])
	rec := records[1]
	assert.Equal(t, "1", rec[0])          // order_id
	assert.Equal(t, "100", rec[1])        // ts_ms
	assert.Equal(t, "2", rec[2])          // seq
	assert.Equal(t, common.StatusFilled.String(), rec[3])
	assert.Equal(t, common.Buy.String(), rec[4])
	assert.Equal(t, common.Taker.String(), rec[5])
	assert.Equal(t, "100.25", rec[8]) // vwap
	assert.Equal(t, "1.5", rec[len(rec)-1]) // adv_selection_ticks
}

func TestWriteFillsCSV_NilAdverseSelectionIsEmptyColumn(t *testing.T) {
	rows := []FillRow{{Status: common.StatusRejected, Reason: common.RejectMinQty}}
	var buf bytes.Buffer
	require.NoError(t, WriteFillsCSV(&buf, rows))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[1][len(records[1])-1])
}
