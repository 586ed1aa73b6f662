package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/common"
	"helix/internal/engine"
)

func TestScheduler_PopReadyInFillTsOrder(t *testing.T) {
	s := engine.NewScheduler()
	s.Schedule(100, 90, 1, common.Action{})
	s.Schedule(50, 40, 2, common.Action{})
	s.Schedule(50, 45, 3, common.Action{})

	ready := s.PopReady(50)
	assert.Len(t, ready, 2)
	assert.Equal(t, uint64(2), ready[0].OrderID, "same fill_ts breaks ties by insertion order")
	assert.Equal(t, uint64(3), ready[1].OrderID)
	assert.Equal(t, 1, s.Len())

	ready = s.PopReady(100)
	assert.Len(t, ready, 1)
	assert.Equal(t, uint64(1), ready[0].OrderID)
	assert.Equal(t, 0, s.Len())
}
