// Package xlog wires zerolog the way fenrir/internal/net/server.go and
// fenrir/internal/worker.go do (github.com/rs/zerolog/log used directly);
// this package only adds the console-vs-JSON switch the CLI needs.
package xlog

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. jsonOutput selects structured
// JSON lines (for piping into a metrics collector) over the human-readable
// console writer used during interactive runs.
func Init(jsonOutput bool, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
