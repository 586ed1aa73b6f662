package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/engine"
)

func TestComputeLatencyMs_DeterministicForSameInputs(t *testing.T) {
	cfg := engine.LatencyConfig{BaseMs: 8, JitterMs: 4, TailMs: 12, TailProb: 0.02}
	a := engine.ComputeLatencyMs(cfg, "SIM", 42, 1)
	b := engine.ComputeLatencyMs(cfg, "SIM", 42, 1)
	assert.Equal(t, a, b)
}

func TestComputeLatencyMs_DiffersAcrossSeeds(t *testing.T) {
	cfg := engine.LatencyConfig{BaseMs: 8, JitterMs: 4, TailMs: 12, TailProb: 0.02}
	a := engine.ComputeLatencyMs(cfg, "SIM", 42, 1)
	b := engine.ComputeLatencyMs(cfg, "SIM", 42, 2)
	c := engine.ComputeLatencyMs(cfg, "SIM", 43, 1)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestComputeLatencyMs_WithinBaseAndJitterBoundsWhenNoTail(t *testing.T) {
	cfg := engine.LatencyConfig{BaseMs: 8, JitterMs: 4, TailMs: 12, TailProb: 0}
	for idx := 1; idx <= 50; idx++ {
		lat := engine.ComputeLatencyMs(cfg, "SIM", int64(idx), idx)
		assert.GreaterOrEqual(t, lat, 8.0)
		assert.LessOrEqual(t, lat, 12.0)
	}
}

func TestFNV1a64_KnownVector(t *testing.T) {
	// FNV-1a 64-bit hash of the empty string is the offset basis.
	assert.Equal(t, uint64(1469598103934665603), engine.FNV1a64(""))
}

func TestFNV1a64_SeedKeyMatchesLiteralSample(t *testing.T) {
	assert.Equal(t, uint64(6924961391117258329), engine.FNV1a64("SIM#1#42"))
}

func TestComputeLatencyMs_MatchesLiteralSample(t *testing.T) {
	cfg := engine.LatencyConfig{BaseMs: 8, JitterMs: 4, TailMs: 12, TailProb: 0.02}
	lat := engine.ComputeLatencyMs(cfg, "SIM", 1, 42)
	assert.InDelta(t, 8.471027861442069, lat, 1e-9)
}
