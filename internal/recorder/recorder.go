// Package recorder optionally drains the event bus to a structured log,
// one zerolog line per event, for offline inspection of a run
// (`--event_log PATH`). It has no bearing on fills.csv/metrics.json and is
// never required for correctness.
package recorder

import (
	"github.com/rs/zerolog"

	"helix/internal/eventbus"
)

// Recorder drains a bus and logs each event through a dedicated logger.
type Recorder struct {
	bus    *eventbus.Bus
	logger zerolog.Logger
}

// New returns a recorder that logs drained events through logger.
func New(bus *eventbus.Bus, logger zerolog.Logger) *Recorder {
	return &Recorder{bus: bus, logger: logger}
}

// Drain empties the bus, logging every pending event. Call once per tick
// after publishers have run.
func (r *Recorder) Drain() int {
	n := 0
	for {
		ev, ok := r.bus.Poll()
		if !ok {
			break
		}
		r.logger.Info().
			Str("event_type", ev.Type.String()).
			Interface("payload", ev.Payload).
			Msg("event")
		n++
	}
	return n
}
