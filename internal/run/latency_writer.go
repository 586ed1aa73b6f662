package run

import (
	"encoding/csv"
	"fmt"
	"io"
)

var latencySamplesHeader = []string{"sample_idx", "latency_ms"}

// WriteLatencySamplesCSV writes one row per scheduled-action latency draw,
// the optional companion file named in §6's per-run filesystem layout.
func WriteLatencySamplesCSV(w io.Writer, samples []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(latencySamplesHeader); err != nil {
		return err
	}
	for i, ms := range samples {
		if err := cw.Write([]string{fmt.Sprintf("%d", i), sig(ms)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
