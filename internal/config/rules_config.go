// Package config loads the per-venue/symbol rules and fee configuration
// (§9 Configuration) from a JSON file, falling back to the documented
// defaults when no file is given or the venue/symbol block is absent.
package config

import (
	"encoding/json"
	"os"

	"helix/internal/engine"
)

// defaults mirror §9's "if absent" table exactly.
const (
	DefaultTickSize    = 0.1
	DefaultQtyStep     = 0.001
	DefaultMinQty      = 0.001
	DefaultMinNotional = 5.0
	DefaultMakerBps    = 2.0
	DefaultTakerBps    = 6.0
	DefaultRounding    = "ceil_to_cent"
	DefaultFeeCcy      = "USD"
)

// RulesBlock is one venue/symbol's normalization and fee parameters, as
// they appear in the config JSON file.
type RulesBlock struct {
	TickSize    float64 `json:"tick_size"`
	QtyStep     float64 `json:"qty_step"`
	MinQty      float64 `json:"min_qty"`
	MinNotional float64 `json:"min_notional"`
	MakerBps    float64 `json:"maker_bps"`
	TakerBps    float64 `json:"taker_bps"`
	FeeCcy      string  `json:"fee_ccy"`
	Rounding    string  `json:"rounding"`
}

// File is the on-disk shape: a map of "venue:symbol" to its RulesBlock.
type File struct {
	Venues map[string]RulesBlock `json:"venues"`
}

// Resolved carries the effective rules/fee config plus its provenance, for
// the metrics.json `rules.source`/`fee_model.source` fields.
type Resolved struct {
	Rules  RulesBlock
	Source string // "config" or "default"
}

// defaultBlock returns the §9 fallback values.
func defaultBlock() RulesBlock {
	return RulesBlock{
		TickSize:    DefaultTickSize,
		QtyStep:     DefaultQtyStep,
		MinQty:      DefaultMinQty,
		MinNotional: DefaultMinNotional,
		MakerBps:    DefaultMakerBps,
		TakerBps:    DefaultTakerBps,
		FeeCcy:      DefaultFeeCcy,
		Rounding:    DefaultRounding,
	}
}

// Load resolves the rules/fee configuration for venue/symbol from the JSON
// file at path. A missing path, missing file, or missing venue/symbol
// block all fall back to defaults; a present-but-unparsable file is an
// I/O failure (fatal per §7, surfaced to the caller as an error).
func Load(path, venue, symbol string) (Resolved, error) {
	if path == "" {
		return Resolved{Rules: defaultBlock(), Source: "default"}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolved{Rules: defaultBlock(), Source: "default"}, nil
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return Resolved{}, err
	}
	key := venue + ":" + symbol
	block, ok := f.Venues[key]
	if !ok {
		return Resolved{Rules: defaultBlock(), Source: "default"}, nil
	}
	merged := mergeDefaults(block)
	return Resolved{Rules: merged, Source: "config"}, nil
}

// mergeDefaults fills any zero-valued field in block with the §9 default,
// so a config author can override only what they care about.
func mergeDefaults(block RulesBlock) RulesBlock {
	d := defaultBlock()
	if block.TickSize == 0 {
		block.TickSize = d.TickSize
	}
	if block.QtyStep == 0 {
		block.QtyStep = d.QtyStep
	}
	if block.MinQty == 0 {
		block.MinQty = d.MinQty
	}
	if block.MinNotional == 0 {
		block.MinNotional = d.MinNotional
	}
	if block.MakerBps == 0 {
		block.MakerBps = d.MakerBps
	}
	if block.TakerBps == 0 {
		block.TakerBps = d.TakerBps
	}
	if block.FeeCcy == "" {
		block.FeeCcy = d.FeeCcy
	}
	if block.Rounding == "" {
		block.Rounding = d.Rounding
	}
	return block
}

// RulesConfig converts the resolved block to the engine package's
// RulesConfig shape.
func (r Resolved) RulesConfig() engine.RulesConfig {
	return engine.RulesConfig{
		TickSize:    r.Rules.TickSize,
		QtyStep:     r.Rules.QtyStep,
		MinQty:      r.Rules.MinQty,
		MinNotional: r.Rules.MinNotional,
	}
}

// FeeConfig converts the resolved block to the engine package's FeeConfig
// shape.
func (r Resolved) FeeConfig() engine.FeeConfig {
	return engine.FeeConfig{
		MakerBps: r.Rules.MakerBps,
		TakerBps: r.Rules.TakerBps,
		FeeCcy:   r.Rules.FeeCcy,
		Rounding: r.Rules.Rounding,
	}
}
