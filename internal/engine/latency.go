package engine

import (
	"container/heap"
	"fmt"

	"helix/internal/common"
)

// LatencyConfig holds the base/jitter/tail parameters for the scheduler
// (§4.6, §8 S4).
type LatencyConfig struct {
	BaseMs   float64
	JitterMs float64
	TailMs   float64
	TailProb float64
}

// ComputeLatencyMs derives the deterministic per-action latency. The RNG
// seed comes exclusively from fnv1a64(symbol#seq#actionIdx); two draws are
// taken in order — jitter, then the tail-probability check — matching
// std::mt19937_64 + std::uniform_real_distribution's draw sequence.
func ComputeLatencyMs(cfg LatencyConfig, symbol string, seq int64, actionIdx int) float64 {
	seedKey := fmt.Sprintf("%s#%d#%d", symbol, seq, actionIdx)
	seed := FNV1a64(seedKey)
	rng := newMT19937_64(seed)

	jitter := rng.uniformReal(0, cfg.JitterMs)
	u := rng.uniformReal(0, 1)

	lat := cfg.BaseMs + jitter
	if u < cfg.TailProb {
		lat += cfg.TailMs
	}
	return lat
}

// PendingAction is an action awaiting causal delivery, sitting on the
// scheduler's min-heap ordered by FillTs with insertion order as tiebreak
// (§4.6).
type PendingAction struct {
	FillTs    int64
	Insertion int64
	OrderID   uint64
	Action    common.Action
	NowTs     int64
}

type pendingHeap []PendingAction

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	if h[i].FillTs != h[j].FillTs {
		return h[i].FillTs < h[j].FillTs
	}
	return h[i].Insertion < h[j].Insertion
}
func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x any)   { *h = append(*h, x.(PendingAction)) }
func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Scheduler is the latency/causality min-heap from §4.6: actions are
// scheduled at now_ts+floor(latency_ms) and delivered once fill_ts is
// reached, against whatever book snapshot is current at delivery time.
type Scheduler struct {
	h         pendingHeap
	nextInsrt int64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.h)
	return s
}

// Schedule places action on the heap for delivery at fillTs.
func (s *Scheduler) Schedule(fillTs int64, nowTs int64, orderID uint64, action common.Action) {
	heap.Push(&s.h, PendingAction{
		FillTs:    fillTs,
		Insertion: s.nextInsrt,
		OrderID:   orderID,
		Action:    action,
		NowTs:     nowTs,
	})
	s.nextInsrt++
}

// PopReady removes and returns, in delivery order, every pending action
// with FillTs <= nowTs.
func (s *Scheduler) PopReady(nowTs int64) []PendingAction {
	var out []PendingAction
	for s.h.Len() > 0 && s.h[0].FillTs <= nowTs {
		out = append(out, heap.Pop(&s.h).(PendingAction))
	}
	return out
}

// Len reports the number of actions still pending delivery.
func (s *Scheduler) Len() int { return s.h.Len() }
