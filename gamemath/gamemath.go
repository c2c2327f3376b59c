package gamemath

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

const SchemaVersion = 1

// Scatter count rules as written in definition files.
const (
	RuleGrid  = "grid"
	RuleReels = "reels"
)

// GameMath is the stored slot game definition (schema_version 1). Reel
// numbers are 1-based, as in the paytable documents designers write.
type GameMath struct {
	SchemaVersion  int        `json:"schema_version" yaml:"schema_version"`
	ModelID        string     `json:"model_id" yaml:"model_id"`
	ModelVersion   string     `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	Name           string     `json:"config_name,omitempty" yaml:"config_name,omitempty"`
	Paytable       Paytable   `json:"paytable" yaml:"paytable"`
	Reels          [][]string `json:"virtual_reel_strips" yaml:"virtual_reel_strips"`
	Rows           int        `json:"rows,omitempty" yaml:"rows,omitempty"`
	Paylines       [][]int    `json:"paylines,omitempty" yaml:"paylines,omitempty"`
	WildSymbol     string     `json:"wild_symbol,omitempty" yaml:"wild_symbol,omitempty"`
	Scatters       []Scatter  `json:"scatters" yaml:"scatters"`
	WildReels      []int      `json:"wild_reels" yaml:"wild_reels"`
	BetPerLine     float64    `json:"bet_per_line,omitempty" yaml:"bet_per_line,omitempty"`
	NumLines       int        `json:"num_lines,omitempty" yaml:"num_lines,omitempty"`
	BaseDisplayBet float64    `json:"base_bet_for_paytable_display,omitempty" yaml:"base_bet_for_paytable_display,omitempty"`
	PremiumSymbol  string     `json:"premium_symbol,omitempty" yaml:"premium_symbol,omitempty"`
	Stats          *GameStats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Integrity      *Integrity `json:"integrity,omitempty" yaml:"integrity,omitempty"`
}

// Scatter declares a scatter symbol and how it is counted. Reels applies to
// the "reels" rule only.
type Scatter struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Rule   string `json:"rule" yaml:"rule"`
	Reels  []int  `json:"reels,omitempty" yaml:"reels,omitempty"`
}

// GameStats are the figures of the latest finalized simulation.
type GameStats struct {
	ComputedRTP float64 `json:"computed_rtp" yaml:"computed_rtp"`
	HitRate     float64 `json:"hit_rate" yaml:"hit_rate"`
	Variance    float64 `json:"variance" yaml:"variance"`
	Spins       int64   `json:"spins,omitempty" yaml:"spins,omitempty"`
	RunID       string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

type Integrity struct {
	ContentHash string `json:"content_hash" yaml:"content_hash"`
}

// ApplyDefaults fills unset fields with the base game values: 1 credit per
// line on 10 lines, a 100 credit display bet, "Wild" expanding on reels 2-4,
// and DollarScatter (grid) plus StarScatter (reels 1, 3, 5) as scatters.
func (g *GameMath) ApplyDefaults() {
	if g.SchemaVersion == 0 {
		g.SchemaVersion = SchemaVersion
	}
	if g.BetPerLine == 0 {
		g.BetPerLine = 1
	}
	if g.NumLines == 0 {
		g.NumLines = 10
	}
	if g.BaseDisplayBet == 0 {
		g.BaseDisplayBet = 100
	}
	if g.WildSymbol == "" {
		g.WildSymbol = "Wild"
	}
	if g.WildReels == nil {
		g.WildReels = []int{2, 3, 4}
	}
	if g.Scatters == nil {
		g.Scatters = []Scatter{
			{Symbol: "DollarScatter", Rule: RuleGrid},
			{Symbol: "StarScatter", Rule: RuleReels, Reels: []int{1, 3, 5}},
		}
	}
	if g.PremiumSymbol == "" {
		g.PremiumSymbol = "Seven"
	}
	if g.Name == "" {
		g.Name = g.ModelID
	}
}

// Config converts the definition into an engine config, turning 1-based
// reel numbers into 0-based indexes. Validation is left to slot.NewGame.
func (g *GameMath) Config() (slot.Config, error) {
	cfg := slot.Config{
		Name:           g.Name,
		Paytable:       g.Paytable.Entries,
		SymbolOrder:    g.Paytable.Order,
		Reels:          g.Reels,
		Rows:           g.Rows,
		Wild:           g.WildSymbol,
		WildReels:      zeroBased(g.WildReels),
		BetPerLine:     g.BetPerLine,
		NumLines:       g.NumLines,
		BaseDisplayBet: g.BaseDisplayBet,
		Premium:        g.PremiumSymbol,
	}
	if cfg.Paytable == nil {
		cfg.Paytable = map[string]map[string]any{}
	}
	// Each payline lists the 0-based row it crosses on every reel.
	for _, rows := range g.Paylines {
		pl := make(slot.Payline, len(rows))
		for reel, row := range rows {
			pl[reel] = slot.Coord{Reel: reel, Row: row}
		}
		cfg.Paylines = append(cfg.Paylines, pl)
	}
	for _, s := range g.Scatters {
		rule := slot.ScatterRule{Symbol: s.Symbol}
		switch strings.ToLower(s.Rule) {
		case "", RuleGrid, "grid_count":
			rule.Rule = slot.GridCount
		case RuleReels, "reel_presence":
			rule.Rule = slot.ReelPresence
			rule.Reels = zeroBased(s.Reels)
		default:
			return slot.Config{}, &slot.ConfigError{Field: "scatters." + s.Symbol, Reason: fmt.Sprintf("unknown rule %q", s.Rule)}
		}
		cfg.Scatters = append(cfg.Scatters, rule)
	}
	return cfg, nil
}

// Compile applies defaults to a copy of g and builds the engine game.
func (g *GameMath) Compile() (*slot.Game, error) {
	c := *g
	c.ApplyDefaults()
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	return slot.NewGame(cfg)
}

func zeroBased(reels []int) []int {
	if reels == nil {
		return nil
	}
	out := make([]int, len(reels))
	for i, r := range reels {
		out[i] = r - 1
	}
	return out
}

// ContentHash is a sha256 over the paytable and reel strips.
func (g *GameMath) ContentHash() (string, error) {
	data, err := json.Marshal(struct {
		Paytable Paytable   `json:"paytable"`
		Reels    [][]string `json:"reels"`
	}{g.Paytable, g.Reels})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Parse decodes a definition from JSON or YAML. format is a file extension
// such as ".json" or ".yaml"; anything but ".json" is read as YAML.
func Parse(data []byte, format string) (*GameMath, error) {
	var g GameMath
	if strings.EqualFold(format, ".json") {
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadFile reads a definition file. A missing model_id is taken from the
// file name.
func LoadFile(path string) (*GameMath, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(path)
	g, err := Parse(data, ext)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if g.ModelID == "" {
		g.ModelID = strings.TrimSuffix(filepath.Base(path), ext)
	}
	return g, nil
}

// LoadReels reads a reel file of the form {"reel1": [...], "reel2": [...]}.
func LoadReels(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reels, err := ParseReels(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return reels, nil
}

// ParseReels decodes reel strips keyed reel1..reelN. Reels 1 to 5 are
// always returned; a missing one comes back empty so validation reports it.
func ParseReels(data []byte, format string) ([][]string, error) {
	var m map[string][]string
	var err error
	if strings.EqualFold(format, ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, err
	}
	n := 5
	for n < len(m) {
		if _, ok := m[fmt.Sprintf("reel%d", n+1)]; !ok {
			break
		}
		n++
	}
	reels := make([][]string, n)
	for i := range reels {
		reels[i] = m[fmt.Sprintf("reel%d", i+1)]
	}
	return reels, nil
}

// WithReels returns a copy of g using reels, named after the file they
// came from.
func (g *GameMath) WithReels(reels [][]string, source string) *GameMath {
	c := *g
	c.Reels = reels
	c.Name = "Loaded Reels from " + filepath.Base(source)
	c.Stats = nil
	c.Integrity = nil
	return &c
}
