// Command helix replays a reconstructed L2 order book against a pluggable
// strategy/demo issuer and writes the fills ledger and run metrics for one
// deterministic simulation (§6). Grounded on
// fenrir/cmd/server/server.go's flag-driven entry point style and
// fenrir/internal/worker.go's tomb-supervised lifecycle.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"helix/internal/herrors"
	"helix/internal/run"
	"helix/internal/xlog"
)

func main() {
	noActions := flag.Bool("no_actions", false, "disable strategy/demo action issuance (S1 sanity mode)")

	demoNotional := flag.Float64("demo_notional", 0, "per-action target notional for the taker demo issuer")
	demoIntervalMs := flag.Int64("demo_interval_ms", 1000, "taker demo issuer firing interval in ms")
	demoMax := flag.Int("demo_max", 0, "max taker demo actions, 0 means unbounded")
	demoOnly := flag.Bool("demo_only", false, "disable the strategy decision engine, demo issuers only")

	makerDemo := flag.Bool("maker_demo", false, "enable the maker-quote demo issuer")
	makerNotional := flag.Float64("maker_notional", 0, "per-quote target notional for the maker demo issuer")
	makerIntervalMs := flag.Int64("maker_interval_ms", 1000, "maker demo issuer firing interval in ms")
	makerMax := flag.Int("maker_max", 0, "max maker demo quotes, 0 means unbounded")
	makerTTLMs := flag.Int64("maker_ttl_ms", 5000, "maker demo quote time-to-live in ms")

	advHorizonMs := flag.Int64("adv_horizon_ms", 0, "adverse-selection resolution horizon in ms, 0 disables tracking")
	advFatalMissing := flag.Int("adv_fatal_missing", 0, "1 makes an unresolved adverse-selection horizon at end of run fatal")

	bookcheckPath := flag.String("bookcheck", "", "optional path for the periodic top-of-book bookcheck CSV")
	bookcheckEvery := flag.Int("bookcheck_every", 1, "emit one bookcheck row every N applied deltas")

	runID := flag.String("run_id", "", "pin the run id; empty generates a uuid")
	rulesConfigPath := flag.String("rules_config", "", "path to the venue/symbol rules+fee config JSON")
	venue := flag.String("venue", "SIM", "venue key used to resolve rules_config")
	symbol := flag.String("symbol", "SIM", "symbol key used to resolve rules_config and seed the latency hash")
	tradesPath := flag.String("trades", "", "path to the trade-print CSV, optional")
	latencyFitPath := flag.String("latency_fit", "", "path to a JSON override of the base/jitter/tail latency config")

	eventLogPath := flag.String("event_log", "", "optional path to a structured event log of the tick-by-tick bus")
	logJSON := flag.Bool("log_json", false, "emit JSON log lines instead of the console writer")

	flag.Parse()

	xlog.Init(*logJSON, zerolog.InfoLevel)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: helix [flags] <delta_file>")
		os.Exit(1)
	}
	deltaPath := flag.Arg(0)

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}

	cfg := run.Config{
		DeltaPath:       deltaPath,
		TradePath:       *tradesPath,
		RulesConfigPath: *rulesConfigPath,
		LatencyFitPath:  *latencyFitPath,
		Venue:           *venue,
		Symbol:          *symbol,
		RunID:           id,

		NoActions: *noActions,
		DemoOnly:  *demoOnly,

		DemoNotional:   *demoNotional,
		DemoIntervalMs: *demoIntervalMs,
		DemoMax:        *demoMax,

		MakerDemo:       *makerDemo,
		MakerNotional:   *makerNotional,
		MakerIntervalMs: *makerIntervalMs,
		MakerMax:        *makerMax,
		MakerTTLMs:      *makerTTLMs,

		AdvHorizonMs:    *advHorizonMs,
		AdvFatalMissing: *advFatalMissing != 0,

		BookcheckPath:  *bookcheckPath,
		BookcheckEvery: *bookcheckEvery,

		EventLogPath: *eventLogPath,
	}

	var tb tomb.Tomb
	var outcome run.Outcome
	tb.Go(func() error {
		var err error
		outcome, err = run.Execute(cfg)
		return err
	})

	err := tb.Wait()
	if err != nil {
		var fatal *herrors.FatalError
		if ok := asFatal(err, &fatal); ok {
			log.Error().Str("invariant", string(fatal.Invariant)).Msg(fatal.Error())
		} else {
			log.Error().Err(err).Msg("run failed")
		}
		os.Exit(1)
	}

	if err := writeOutputs(id, outcome); err != nil {
		log.Error().Err(err).Msg("writing run outputs")
		os.Exit(1)
	}

	log.Info().Str("run_id", id).Int("fills_total", outcome.Metrics.FillsTotal).Msg("helix run complete")
}

func asFatal(err error, target **herrors.FatalError) bool {
	for err != nil {
		if fe, ok := err.(*herrors.FatalError); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func writeOutputs(runID string, outcome run.Outcome) error {
	dir := filepath.Join("runs", runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return herrors.Fatalf(herrors.IOFailure, "creating run directory", err)
	}

	fillsFile, err := os.Create(filepath.Join(dir, "fills.csv"))
	if err != nil {
		return herrors.Fatalf(herrors.IOFailure, "creating fills.csv", err)
	}
	defer fillsFile.Close()
	if err := run.WriteFillsCSV(fillsFile, outcome.FillRows); err != nil {
		return herrors.Fatalf(herrors.IOFailure, "writing fills.csv", err)
	}

	metricsFile, err := os.Create(filepath.Join(dir, "metrics.json"))
	if err != nil {
		return herrors.Fatalf(herrors.IOFailure, "creating metrics.json", err)
	}
	defer metricsFile.Close()
	if err := run.WriteMetricsJSON(metricsFile, outcome.Metrics); err != nil {
		return herrors.Fatalf(herrors.IOFailure, "writing metrics.json", err)
	}

	latFile, err := os.Create(filepath.Join(dir, "latency_samples.csv"))
	if err != nil {
		return herrors.Fatalf(herrors.IOFailure, "creating latency_samples.csv", err)
	}
	defer latFile.Close()
	if err := run.WriteLatencySamplesCSV(latFile, outcome.LatencySamples); err != nil {
		return herrors.Fatalf(herrors.IOFailure, "writing latency_samples.csv", err)
	}

	return nil
}
