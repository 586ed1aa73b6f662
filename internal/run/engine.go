// Package run wires the book reconstructor, order lifecycle manager,
// matching/maker-queue/rules/fee/risk engines, and the latency scheduler
// into the single-threaded tick loop of §2, and produces the fills ledger
// and metrics document of §6. Grounded on main.cpp's run loop, generalized
// to the full component set and step ordering in §2/§5.
package run

import (
	"encoding/json"
	"math"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"helix/internal/book"
	"helix/internal/common"
	"helix/internal/config"
	"helix/internal/engine"
	"helix/internal/eventbus"
	"helix/internal/herrors"
	"helix/internal/recorder"
	"helix/internal/replay"
	"helix/internal/strategy"
)

// Defaults not exposed on the CLI surface but needed to construct the
// risk/maker/decision collaborators, grounded on main.cpp's hardcoded
// construction (`RiskEngine(5.0, 250000.0)`, `MakerParams{}`,
// `DecisionEngine` default threshold 0.01 / fixed size 1.0, and the
// `TradeTape{100.0, 1.0}` seed).
const (
	DefaultMaxPosition     = 5.0
	DefaultMaxNotional     = 250000.0
	DefaultMakerQInit      = 0.8
	DefaultMakerAlpha      = 0.6
	DefaultMakerExpireMs   = int64(200)
	DefaultMakerAdvTicks   = 2.0
	DefaultDecisionThresh  = 0.01
	DefaultDecisionSize    = 1.0
	DefaultTapePrice       = 100.0
	DefaultTapeSize        = 1.0
	DefaultLatencyBaseMs   = 8.0
	DefaultLatencyJitterMs = 4.0
	DefaultLatencyTailMs   = 12.0
	DefaultLatencyTailProb = 0.02
)

// Config is the fully-resolved set of run parameters, populated by the CLI
// from the flags in §6.
type Config struct {
	DeltaPath       string
	TradePath       string
	RulesConfigPath string
	LatencyFitPath  string
	Venue           string
	Symbol          string
	RunID           string

	NoActions bool
	DemoOnly  bool

	DemoNotional   float64
	DemoIntervalMs int64
	DemoMax        int

	MakerDemo       bool
	MakerNotional   float64
	MakerIntervalMs int64
	MakerMax        int
	MakerTTLMs      int64

	AdvHorizonMs    int64
	AdvFatalMissing bool

	BookcheckPath  string
	BookcheckEvery int

	EventLogPath string
}

// Outcome is everything the CLI needs to write to disk and decide an exit
// code.
type Outcome struct {
	FillRows       []FillRow
	Metrics        Metrics
	LatencySamples []float64
}

// latencyFitFile is the optional `--latency_fit` JSON override shape.
type latencyFitFile struct {
	BaseMs   float64 `json:"base_ms"`
	JitterMs float64 `json:"jitter_ms"`
	TailMs   float64 `json:"tail_ms"`
	TailProb float64 `json:"tail_prob"`
}

func defaultLatencyConfig() engine.LatencyConfig {
	return engine.LatencyConfig{
		BaseMs: DefaultLatencyBaseMs, JitterMs: DefaultLatencyJitterMs,
		TailMs: DefaultLatencyTailMs, TailProb: DefaultLatencyTailProb,
	}
}

func loadLatencyFit(path string) (engine.LatencyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.LatencyConfig{}, err
	}
	var fit latencyFitFile
	if err := json.Unmarshal(data, &fit); err != nil {
		return engine.LatencyConfig{}, err
	}
	return engine.LatencyConfig{
		BaseMs: fit.BaseMs, JitterMs: fit.JitterMs, TailMs: fit.TailMs, TailProb: fit.TailProb,
	}, nil
}

// Execute runs one full replay to completion, returning the outcome on
// success. A non-nil error is always a *herrors.FatalError or an I/O
// failure; the caller should exit 1.
func Execute(cfg Config) (Outcome, error) {
	symbol := cfg.Symbol
	if symbol == "" {
		symbol = "SIM"
	}
	venue := cfg.Venue
	if venue == "" {
		venue = "SIM"
	}

	resolved, err := config.Load(cfg.RulesConfigPath, venue, symbol)
	if err != nil {
		return Outcome{}, herrors.Fatalf(herrors.IOFailure, "loading rules config", err)
	}
	tick := resolved.Rules.TickSize

	latCfg := defaultLatencyConfig()
	latSource := "default"
	if cfg.LatencyFitPath != "" {
		fit, ferr := loadLatencyFit(cfg.LatencyFitPath)
		if ferr != nil {
			return Outcome{}, herrors.Fatalf(herrors.IOFailure, "loading latency fit", ferr)
		}
		latCfg = fit
		latSource = "config"
	}

	deltas, err := replay.LoadDeltaFile(cfg.DeltaPath)
	if err != nil {
		return Outcome{}, herrors.Fatalf(herrors.IOFailure, "loading delta file", err)
	}
	trades, err := replay.LoadTradeFile(cfg.TradePath)
	if err != nil {
		return Outcome{}, herrors.Fatalf(herrors.IOFailure, "loading trade file", err)
	}

	var bookcheckWriter *book.BookcheckWriter
	if cfg.BookcheckPath != "" {
		f, ferr := os.Create(cfg.BookcheckPath)
		if ferr != nil {
			return Outcome{}, herrors.Fatalf(herrors.IOFailure, "opening bookcheck file", ferr)
		}
		defer f.Close()
		bookcheckWriter, err = book.NewBookcheckWriter(f)
		if err != nil {
			return Outcome{}, herrors.Fatalf(herrors.IOFailure, "writing bookcheck header", err)
		}
		defer bookcheckWriter.Flush()
	}
	bookcheckEvery := cfg.BookcheckEvery
	if bookcheckEvery <= 0 {
		bookcheckEvery = 1
	}
	reconstructor := book.New(bookcheckEvery, func(row book.BookcheckRow) {
		if bookcheckWriter != nil {
			_ = bookcheckWriter.Write(row)
		}
	})

	orderManager := engine.NewOrderManager()
	riskEngine := engine.NewRiskEngine(engine.RiskConfig{MaxPosition: DefaultMaxPosition, MaxNotional: DefaultMaxNotional})
	matchingEngine := engine.NewMatchingEngine(tick, false)
	makerSim := engine.NewMakerQueueSim(engine.MakerParams{
		QInit: DefaultMakerQInit, Alpha: DefaultMakerAlpha,
		ExpireMs: DefaultMakerExpireMs, AdvTicks: DefaultMakerAdvTicks,
	}, tick)
	rulesEngine := engine.NewRulesEngine(resolved.RulesConfig())
	feeModel := engine.NewFeeModel(resolved.FeeConfig())
	scheduler := engine.NewScheduler()
	agg := NewAggregator()

	bus := eventbus.New(1024)
	var rec *recorder.Recorder
	if cfg.EventLogPath != "" {
		f, ferr := os.Create(cfg.EventLogPath)
		if ferr != nil {
			return Outcome{}, herrors.Fatalf(herrors.IOFailure, "opening event log", ferr)
		}
		defer f.Close()
		rec = recorder.New(bus, zerolog.New(f).With().Timestamp().Logger())
	}

	featureEngine := strategy.FeatureEngine{}
	decisionEngine := strategy.NewDecisionEngine(DefaultDecisionThresh, DefaultDecisionSize)
	tape := strategy.TradeTape{LastPrice: DefaultTapePrice, LastSize: DefaultTapeSize}

	var demoIssuer *strategy.DemoIssuer
	if !cfg.NoActions && cfg.DemoNotional > 0 {
		demoIssuer = strategy.NewDemoIssuer(cfg.DemoNotional, cfg.DemoIntervalMs, orDefaultMax(cfg.DemoMax))
	}
	var makerDemoIssuer *strategy.MakerDemoIssuer
	if !cfg.NoActions && cfg.MakerDemo {
		makerDemoIssuer = strategy.NewMakerDemoIssuer(cfg.MakerNotional, cfg.MakerIntervalMs, cfg.MakerTTLMs, orDefaultMax(cfg.MakerMax))
	}

	var actionIdx int64
	var lastSnap common.OrderbookSnapshot

	for {
		delta, ok := deltas.Next()
		if !ok {
			break
		}
		snap, err := reconstructor.Apply(delta)
		if err != nil {
			return Outcome{}, err
		}
		lastSnap = snap
		nowTs := delta.TsMs
		seq := delta.Seq

		agg.ResolveAdverseSelection(nowTs, snap.Mid(), tick)

		tradesThisTick := trades.DrainUpTo(nowTs)
		for _, tp := range tradesThisTick {
			agg.RecordTradeSkew(float64(nowTs - tp.TsMs))
			tape.LastPrice = tp.Price
			tape.LastSize = tp.Size
		}

		for _, id := range orderManager.ExpireOrders(nowTs) {
			makerSim.Cancel(id)
		}

		for _, fill := range makerSim.OnBook(snap, nowTs, tradesThisTick) {
			if err := routeFill(orderManager, riskEngine, feeModel, agg, fill, snap, tick, nowTs, seq, cfg.AdvHorizonMs, DefaultMakerAdvTicks); err != nil {
				return Outcome{}, err
			}
		}

		for _, pending := range scheduler.PopReady(nowTs) {
			ord, exists := orderManager.Get(pending.OrderID)
			if !exists || ord.Status.IsTerminal() {
				continue
			}
			fill := matchingEngine.Simulate(pending.Action, snap)
			fill.OrderID = pending.OrderID
			fill.Source = pending.Action.Source
			fill.TargetQty = pending.Action.Size
			if fill.Status == common.StatusFilled {
				if err := routeFill(orderManager, riskEngine, feeModel, agg, fill, snap, tick, nowTs, seq, cfg.AdvHorizonMs, 0); err != nil {
					return Outcome{}, err
				}
			} else {
				orderManager.MarkRejected(pending.OrderID, nowTs)
				agg.RecordFill(buildRejectRow(fill, nowTs, seq))
			}
		}

		if !cfg.NoActions {
			if !cfg.DemoOnly {
				feature := featureEngine.Compute(snap, tape)
				bus.Publish(eventbus.Event{Type: eventbus.Feature, Payload: feature})
				action := decisionEngine.Decide(feature)
				if action.Side != common.Hold {
					if err := issueAction(action, snap, nowTs, seq, &actionIdx, latCfg, symbol,
						orderManager, riskEngine, rulesEngine, makerSim, scheduler, agg, 0); err != nil {
						return Outcome{}, err
					}
				}
			}
			if demoIssuer != nil {
				if action, fire := demoIssuer.Next(snap, nowTs); fire {
					if err := issueAction(action, snap, nowTs, seq, &actionIdx, latCfg, symbol,
						orderManager, riskEngine, rulesEngine, makerSim, scheduler, agg, 0); err != nil {
						return Outcome{}, err
					}
				}
			}
			if makerDemoIssuer != nil {
				if action, ttl, fire := makerDemoIssuer.Next(snap, nowTs); fire {
					if err := issueAction(action, snap, nowTs, seq, &actionIdx, latCfg, symbol,
						orderManager, riskEngine, rulesEngine, makerSim, scheduler, agg, ttl); err != nil {
						return Outcome{}, err
					}
				}
			}
		}

		if rec != nil {
			rec.Drain()
		}
	}

	if err := agg.FinalizeUnresolved(cfg.AdvFatalMissing); err != nil {
		return Outcome{}, err
	}

	pos := riskEngine.Position()
	finalMid := lastSnap.Mid()
	metrics := BuildMetrics(MetricsInput{
		RunID: cfg.RunID, Agg: agg, Position: pos, Mid: finalMid,
		OrderMetrics: orderManager.Metrics(),
		RulesCfg:     resolved.RulesConfig(), RulesSource: resolved.Source,
		FeeCfg: resolved.FeeConfig(), FeeSource: resolved.Source,
		FeeBpsTotal:   meanOrZero(allFeeBps(agg)),
		LatencyCfg:    latCfg, LatencySource: latSource,
	})
	if !metrics.IdentityOk {
		return Outcome{}, herrors.Fatal(herrors.PnLIdentity, "realized+unrealized-fees differs from net_total by more than 1e-6")
	}

	log.Info().Str("run_id", cfg.RunID).Int("fills", agg.FillsTotal()).Msg("run complete")
	return Outcome{FillRows: agg.Rows(), Metrics: metrics, LatencySamples: agg.LatencySamples()}, nil
}

func orDefaultMax(v int) int {
	if v == 0 {
		return -1
	}
	return v
}

func allFeeBps(a *Aggregator) []float64 {
	var out []float64
	for _, r := range a.Rows() {
		if r.Status == common.StatusFilled {
			out = append(out, r.FeeBps)
		}
	}
	return out
}

// issueAction runs one action through rules/risk/placement and routes it
// to the maker sim or the latency scheduler (§2 step 6).
func issueAction(
	action common.Action, snap common.OrderbookSnapshot, nowTs, seq int64, actionIdx *int64,
	latCfg engine.LatencyConfig, symbol string,
	orderManager *engine.OrderManager, riskEngine *engine.RiskEngine, rulesEngine *engine.RulesEngine,
	makerSim *engine.MakerQueueSim, scheduler *engine.Scheduler, agg *Aggregator, ttlMs int64,
) error {
	agg.RecordActionAttempt()

	res := rulesEngine.Apply(action, snap)
	if !res.OK {
		agg.RecordFill(buildRejectRowForAction(action, res.Reason, nowTs, seq))
		return nil
	}
	normalized := res.Normalized

	refPrice := engine.RefPriceForAction(normalized, snap)
	if !riskEngine.Validate(normalized, refPrice) {
		agg.RecordFill(buildRejectRowForAction(normalized, common.RejectRiskLimit, nowTs, seq))
		return nil
	}

	expireTs := int64(0)
	if ttlMs > 0 {
		expireTs = nowTs + ttlMs
	}
	ord := orderManager.Place(normalized, nowTs, expireTs)

	if engine.IsTakerAction(normalized, snap) {
		*actionIdx++
		lat := engine.ComputeLatencyMs(latCfg, symbol, seq, int(*actionIdx))
		agg.RecordLatencySample(lat)
		fillTs := nowTs + int64(math.Floor(lat))
		scheduler.Schedule(fillTs, nowTs, ord.OrderID, normalized)
	} else {
		makerSim.Submit(normalized, ord.OrderID, snap, nowTs)
	}
	return nil
}

// routeFill applies a filled Fill to the order manager, risk engine, and
// fee model, records the ledger row, and registers adverse-selection
// tracking for maker fills.
func routeFill(
	orderManager *engine.OrderManager, riskEngine *engine.RiskEngine, feeModel *engine.FeeModel,
	agg *Aggregator, fill common.Fill, snap common.OrderbookSnapshot, tick float64,
	nowTs, seq int64, advHorizonMs int64, advTicksCfg float64,
) error {
	if err := orderManager.ApplyFill(fill, nowTs); err != nil {
		return err
	}
	riskEngine.Update(fill)
	feeRes := feeModel.Compute(fill)
	riskEngine.AddFee(feeRes.Fee)

	row := buildFillRow(fill, feeRes, snap, tick, nowTs, seq, advTicksCfg)
	if ord, exists := orderManager.Get(fill.OrderID); exists {
		row.QueueTimeMs = float64(nowTs - ord.CreatedTs)
	}
	idx := agg.RecordFill(row)

	if fill.Liquidity == common.Maker && advHorizonMs > 0 {
		agg.RegisterAdverseSelection(idx, snap.Mid(), fill.Side, nowTs+advHorizonMs)
	}
	return nil
}
