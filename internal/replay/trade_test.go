package replay_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/common"
	"helix/internal/replay"
)

func TestLoadTradeFile_EmptyPathYieldsEmptyDrainer(t *testing.T) {
	d, err := replay.LoadTradeFile("")
	require.NoError(t, err)
	assert.Empty(t, d.DrainUpTo(1_000_000))
}

func TestTradeDrainer_DrainUpToAdvancesCursorMonotonically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "ts_ms,side,price,size,trade_id\n" +
		"10,buy,100.0,1,t1\n" +
		"20,sell,100.5,2,t2\n" +
		"30,buy,100.2,1,t3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := replay.LoadTradeFile(path)
	require.NoError(t, err)

	first := d.DrainUpTo(15)
	require.Len(t, first, 1)
	assert.Equal(t, "t1", first[0].TradeID)
	assert.Equal(t, common.Buy, first[0].Side)

	second := d.DrainUpTo(30)
	require.Len(t, second, 2)
	assert.Equal(t, "t2", second[0].TradeID)
	assert.Equal(t, "t3", second[1].TradeID)

	assert.Empty(t, d.DrainUpTo(100))
}
