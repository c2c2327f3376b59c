package slot

import (
	"fmt"
)

const (
	DefaultRows            = 3
	DefaultMinCount        = 3
	DefaultPremiumMinCount = 2
)

// CountRule selects how a scatter symbol is counted on the screen.
type CountRule uint8

const (
	// GridCount counts every matching cell on the screen.
	GridCount CountRule = iota
	// ReelPresence counts restricted reels showing the symbol at least once.
	ReelPresence
)

func (r CountRule) String() string {
	if r == ReelPresence {
		return "reel_presence"
	}
	return "grid_count"
}

// ScatterRule binds a scatter symbol to its counting rule.
type ScatterRule struct {
	Symbol string
	Rule   CountRule
	// Reels is the 0-based restricted reel set for ReelPresence.
	Reels []int
}

// Coord addresses one screen cell.
type Coord struct {
	Reel int
	Row  int
}

// Payline lists one coordinate per reel, read left to right.
type Payline []Coord

// Config is the uncompiled game description handed to NewGame.
type Config struct {
	Name     string
	Paytable map[string]map[string]any
	// SymbolOrder fixes the tie-break order between regular symbols.
	SymbolOrder []string
	Reels       [][]string
	Rows        int
	Paylines    []Payline
	Wild        string
	Scatters    []ScatterRule
	// WildReels are 0-based reels whose columns expand when a wild lands.
	WildReels       []int
	BetPerLine      float64
	NumLines        int
	BaseDisplayBet  float64
	Premium         string
	MinCount        int
	PremiumMinCount int
}

type payEntry struct {
	ok  bool
	raw float64
	pay float64
	key string
}

type lineSymbol struct {
	sym  Symbol
	min  int
	pays []payEntry
}

type scatterEval struct {
	sym   Symbol
	rule  CountRule
	reels []int
	pays  []payEntry
}

// Game is an immutable, validated game. It is safe for concurrent use;
// per-worker state lives in Evaluator.
type Game struct {
	name    string
	symbols []string
	index   map[string]Symbol
	roles   []SymbolRole

	reels    [][]Symbol
	rows     int
	paylines []Payline

	wild      Symbol
	wildReel  []bool
	scatters  []scatterEval
	lines     []lineSymbol
	paytable  *Paytable
	maxPayout float64

	betPerLine     float64
	numLines       int
	baseDisplayBet float64
	totalBet       float64
}

// NewGame validates cfg and compiles it into a Game.
func NewGame(cfg Config) (*Game, error) {
	if len(cfg.Reels) == 0 {
		return nil, configErr("reels", "no reel strips")
	}
	for i, strip := range cfg.Reels {
		if len(strip) == 0 {
			return nil, configErr(fmt.Sprintf("reels[%d]", i), "empty reel strip")
		}
	}
	rows := cfg.Rows
	if rows == 0 {
		rows = DefaultRows
	}
	if rows < 0 {
		return nil, configErr("rows", "must be positive")
	}
	if cfg.NumLines <= 0 {
		return nil, configErr("num_lines", "must be positive")
	}
	if cfg.BetPerLine <= 0 {
		return nil, configErr("bet_per_line", "must be positive")
	}
	if cfg.BaseDisplayBet <= 0 {
		return nil, configErr("base_display_bet", "must be positive")
	}
	minCount := cfg.MinCount
	if minCount == 0 {
		minCount = DefaultMinCount
	}
	premiumMin := cfg.PremiumMinCount
	if premiumMin == 0 {
		premiumMin = DefaultPremiumMinCount
	}
	if minCount < 1 || premiumMin < 1 {
		return nil, configErr("min_count", "must be positive")
	}

	numReels := len(cfg.Reels)
	paylines := cfg.Paylines
	if paylines == nil {
		if numReels != 5 || rows != 3 {
			return nil, configErr("paylines", "required for a %dx%d layout", numReels, rows)
		}
		paylines = DefaultPaylines()
	}
	for i, line := range paylines {
		field := fmt.Sprintf("paylines[%d]", i)
		if len(line) != numReels {
			return nil, configErr(field, "has %d cells, want %d", len(line), numReels)
		}
		for _, c := range line {
			if c.Reel < 0 || c.Reel >= numReels || c.Row < 0 || c.Row >= rows {
				return nil, configErr(field, "cell (%d,%d) outside %dx%d screen", c.Reel, c.Row, numReels, rows)
			}
		}
	}

	scatterNames := make([]string, 0, len(cfg.Scatters))
	for _, s := range cfg.Scatters {
		scatterNames = append(scatterNames, s.Symbol)
	}
	pt, err := ParsePaytable(cfg.Paytable, cfg.SymbolOrder, cfg.Wild, scatterNames)
	if err != nil {
		return nil, err
	}

	g := &Game{
		name:           cfg.Name,
		index:          make(map[string]Symbol),
		rows:           rows,
		paylines:       paylines,
		wild:           NoSymbol,
		wildReel:       make([]bool, numReels),
		paytable:       pt,
		betPerLine:     cfg.BetPerLine,
		numLines:       cfg.NumLines,
		baseDisplayBet: cfg.BaseDisplayBet,
		totalBet:       cfg.BetPerLine * float64(cfg.NumLines),
	}
	for _, s := range pt.Regular {
		g.intern(s, RoleRegular)
	}
	if cfg.Wild != "" {
		g.wild = g.intern(cfg.Wild, RoleWild)
	}
	for _, s := range scatterNames {
		g.intern(s, RoleScatter)
	}
	g.reels = make([][]Symbol, numReels)
	for i, strip := range cfg.Reels {
		g.reels[i] = make([]Symbol, len(strip))
		for j, name := range strip {
			g.reels[i][j] = g.intern(name, pt.Role(name))
		}
	}

	for _, r := range cfg.WildReels {
		if r < 0 || r >= numReels {
			return nil, configErr("wild_reels", "reel %d out of range", r)
		}
		if g.wildReel[r] {
			return nil, configErr("wild_reels", "reel %d listed twice", r)
		}
		g.wildReel[r] = true
	}

	linePayScale := cfg.BaseDisplayBet / float64(cfg.NumLines)
	var maxLine float64
	for _, name := range pt.Regular {
		ls := lineSymbol{sym: g.index[name], min: minCount}
		if cfg.Premium != "" && name == cfg.Premium {
			ls.min = premiumMin
		}
		for k, raw := range pt.LinePays {
			if k.Symbol != name {
				continue
			}
			if k.Count > numReels {
				return nil, configErr("paytable."+name, "count %d exceeds %d reels", k.Count, numReels)
			}
			ls.pays = grow(ls.pays, k.Count)
			ls.pays[k.Count] = payEntry{
				ok:  true,
				raw: raw,
				pay: raw / linePayScale * cfg.BetPerLine,
				key: fmt.Sprintf("%s x%d", name, k.Count),
			}
			if ls.pays[k.Count].pay > maxLine {
				maxLine = ls.pays[k.Count].pay
			}
		}
		g.lines = append(g.lines, ls)
	}
	g.maxPayout = maxLine * float64(len(paylines))

	for _, s := range cfg.Scatters {
		field := "scatters." + s.Symbol
		se := scatterEval{sym: g.index[s.Symbol], rule: s.Rule}
		reachable := numReels * rows
		switch s.Rule {
		case GridCount:
		case ReelPresence:
			if len(s.Reels) == 0 {
				return nil, configErr(field, "reel-presence rule needs reels")
			}
			seen := make([]bool, numReels)
			for _, r := range s.Reels {
				if r < 0 || r >= numReels {
					return nil, configErr(field, "reel %d out of range", r)
				}
				if seen[r] {
					return nil, configErr(field, "reel %d listed twice", r)
				}
				seen[r] = true
			}
			se.reels = append([]int(nil), s.Reels...)
			reachable = len(se.reels)
		default:
			return nil, configErr(field, "unknown count rule %d", s.Rule)
		}
		var maxScatter float64
		for n, raw := range pt.ScatterPays[s.Symbol] {
			if n > reachable {
				return nil, configErr(field, "count %d exceeds the %d reachable", n, reachable)
			}
			se.pays = grow(se.pays, n)
			se.pays[n] = payEntry{
				ok:  true,
				raw: raw,
				pay: raw / cfg.BaseDisplayBet * g.totalBet,
				key: fmt.Sprintf("%s x%d (Scatter)", s.Symbol, n),
			}
			if se.pays[n].pay > maxScatter {
				maxScatter = se.pays[n].pay
			}
		}
		g.maxPayout += maxScatter
		g.scatters = append(g.scatters, se)
	}
	return g, nil
}

func (g *Game) intern(name string, role SymbolRole) Symbol {
	if s, ok := g.index[name]; ok {
		return s
	}
	s := Symbol(len(g.symbols))
	g.symbols = append(g.symbols, name)
	g.roles = append(g.roles, role)
	g.index[name] = s
	return s
}

func grow(p []payEntry, n int) []payEntry {
	if n < len(p) {
		return p
	}
	out := make([]payEntry, n+1)
	copy(out, p)
	return out
}

func lookup(p []payEntry, n int) (payEntry, bool) {
	if n < 0 || n >= len(p) || !p[n].ok {
		return payEntry{}, false
	}
	return p[n], true
}

func (g *Game) Name() string            { return g.name }
func (g *Game) NumReels() int           { return len(g.reels) }
func (g *Game) Rows() int               { return g.rows }
func (g *Game) Paylines() []Payline     { return g.paylines }
func (g *Game) Paytable() *Paytable     { return g.paytable }
func (g *Game) BetPerLine() float64     { return g.betPerLine }
func (g *Game) NumLines() int           { return g.numLines }
func (g *Game) BaseDisplayBet() float64 { return g.baseDisplayBet }

// TotalBet is the stake of one spin: bet per line times number of lines.
func (g *Game) TotalBet() float64 { return g.totalBet }

// MaxPayout bounds any single spin: the best line pay on every payline
// plus the best pay of every scatter.
func (g *Game) MaxPayout() float64 { return g.maxPayout }

// SymbolName returns the identifier of s.
func (g *Game) SymbolName(s Symbol) string {
	if s < 0 || int(s) >= len(g.symbols) {
		return ""
	}
	return g.symbols[s]
}

// Lookup returns the symbol for name.
func (g *Game) Lookup(name string) (Symbol, bool) {
	s, ok := g.index[name]
	return s, ok
}

// Role returns the role of s.
func (g *Game) Role(s Symbol) SymbolRole {
	if s < 0 || int(s) >= len(g.roles) {
		return RoleRegular
	}
	return g.roles[s]
}

// DefaultPaylines returns the ten fixed paylines of the 5x3 layout.
func DefaultPaylines() []Payline {
	rows := [][5]int{
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0},
		{2, 2, 2, 2, 2},
		{0, 1, 2, 1, 0},
		{2, 1, 0, 1, 2},
		{0, 0, 1, 2, 2},
		{2, 2, 1, 0, 0},
		{1, 2, 2, 2, 1},
		{1, 0, 0, 0, 1},
		{0, 1, 1, 1, 0},
	}
	out := make([]Payline, len(rows))
	for i, r := range rows {
		line := make(Payline, 5)
		for reel, row := range r {
			line[reel] = Coord{Reel: reel, Row: row}
		}
		out[i] = line
	}
	return out
}
