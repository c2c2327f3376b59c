package slot

// Win is one paying combination of a spin.
type Win struct {
	Key    string `json:"key"`
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
	// Line is the 1-based payline number, 0 for scatter wins.
	Line   int     `json:"line,omitempty"`
	Raw    float64 `json:"raw"`
	Payout float64 `json:"payout"`
}

// SpinResult is the outcome of evaluating one screen. Wins doubles as the
// contribution ledger delta of the spin.
type SpinResult struct {
	Payout  float64 `json:"payout"`
	Winning bool    `json:"winning"`
	Wins    []Win   `json:"wins"`
}

// Evaluator scores screens for one Game. It owns scratch buffers and must
// not be shared between goroutines.
type Evaluator struct {
	g        *Game
	expanded Screen
	cells    []Symbol
	wins     []Win
}

func (g *Game) NewEvaluator() *Evaluator {
	return &Evaluator{
		g:        g,
		expanded: g.NewScreen(),
		cells:    make([]Symbol, len(g.reels)),
		wins:     make([]Win, 0, len(g.paylines)+len(g.scatters)),
	}
}

// Evaluate scores screen: scatters on screen as drawn, paylines on its
// wild-expanded copy. The returned Wins slice is reused by the next call.
func (e *Evaluator) Evaluate(screen Screen) SpinResult {
	g := e.g
	e.wins = e.wins[:0]
	var total float64

	for i := range g.scatters {
		se := &g.scatters[i]
		n := scatterCount(se, screen)
		p, ok := lookup(se.pays, n)
		if !ok || n == 0 || p.raw <= 0 {
			continue
		}
		total += p.pay
		e.wins = append(e.wins, Win{
			Key:    p.key,
			Symbol: g.symbols[se.sym],
			Count:  n,
			Raw:    p.raw,
			Payout: p.pay,
		})
	}

	g.Expand(screen, e.expanded)
	for li, line := range g.paylines {
		for reel, c := range line {
			e.cells[reel] = e.expanded[c.Reel][c.Row]
		}
		p, sym, n, ok := g.lineWin(e.cells)
		if !ok {
			continue
		}
		total += p.pay
		e.wins = append(e.wins, Win{
			Key:    p.key,
			Symbol: g.symbols[sym],
			Count:  n,
			Line:   li + 1,
			Raw:    p.raw,
			Payout: p.pay,
		})
	}

	return SpinResult{Payout: total, Winning: len(e.wins) > 0, Wins: e.wins}
}

// Evaluate scores a single screen with a fresh Evaluator.
func (g *Game) Evaluate(screen Screen) SpinResult {
	return g.NewEvaluator().Evaluate(screen)
}
