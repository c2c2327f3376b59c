package slot

import (
	"fmt"
	"math/rand/v2"
)

// Screen holds the visible symbols, indexed [reel][row].
type Screen [][]Symbol

// NewScreen allocates a screen sized for g.
func (g *Game) NewScreen() Screen {
	cells := make([]Symbol, len(g.reels)*g.rows)
	s := make(Screen, len(g.reels))
	for i := range s {
		s[i] = cells[i*g.rows : (i+1)*g.rows : (i+1)*g.rows]
	}
	return s
}

// Spin draws one stop per reel uniformly from rng and fills dst with the
// rows starting at each stop, wrapping around the strip.
func (g *Game) Spin(rng *rand.Rand, dst Screen) {
	for i, strip := range g.reels {
		stop := rng.IntN(len(strip))
		g.window(i, stop, dst[i])
	}
}

// SpinAt fills dst from explicit stop positions.
func (g *Game) SpinAt(stops []int, dst Screen) error {
	if len(stops) != len(g.reels) {
		return fmt.Errorf("got %d stops for %d reels", len(stops), len(g.reels))
	}
	for i, stop := range stops {
		if stop < 0 || stop >= len(g.reels[i]) {
			return fmt.Errorf("stop %d out of range for reel %d", stop, i)
		}
		g.window(i, stop, dst[i])
	}
	return nil
}

func (g *Game) window(reel, stop int, col []Symbol) {
	strip := g.reels[reel]
	for row := range col {
		col[row] = strip[(stop+row)%len(strip)]
	}
}

// ScreenOf builds a screen from symbol names, indexed [reel][row].
func (g *Game) ScreenOf(names [][]string) (Screen, error) {
	if len(names) != len(g.reels) {
		return nil, fmt.Errorf("got %d reels, want %d", len(names), len(g.reels))
	}
	s := g.NewScreen()
	for i, col := range names {
		if len(col) != g.rows {
			return nil, fmt.Errorf("reel %d has %d rows, want %d", i, len(col), g.rows)
		}
		for row, name := range col {
			sym, ok := g.index[name]
			if !ok {
				return nil, fmt.Errorf("unknown symbol %q", name)
			}
			s[i][row] = sym
		}
	}
	return s, nil
}

// Names converts s back to symbol names.
func (g *Game) Names(s Screen) [][]string {
	out := make([][]string, len(s))
	for i, col := range s {
		out[i] = make([]string, len(col))
		for row, sym := range col {
			out[i][row] = g.SymbolName(sym)
		}
	}
	return out
}
