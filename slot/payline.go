package slot

// lineWin finds the best win on one payline of the expanded screen.
// cells holds the payline's symbols left to right.
//
// For each regular symbol the run of the symbol or the wild from the first
// reel is measured, then counts are tried from the run length down to the
// symbol's minimum; the first count with a pay is that symbol's candidate.
// The candidate with the strictly highest raw pay wins, so ties keep the
// earlier symbol.
func (g *Game) lineWin(cells []Symbol) (payEntry, Symbol, int, bool) {
	var (
		best      payEntry
		bestSym   = NoSymbol
		bestCount int
	)
	for i := range g.lines {
		ls := &g.lines[i]
		run := g.run(cells, ls.sym)
		for n := run; n >= ls.min; n-- {
			e, ok := lookup(ls.pays, n)
			if !ok {
				continue
			}
			if e.raw > best.raw {
				best, bestSym, bestCount = e, ls.sym, n
			}
			break
		}
	}
	return best, bestSym, bestCount, bestSym != NoSymbol
}

// run counts leading cells matching target. The wild substitutes for any
// symbol except scatters.
func (g *Game) run(cells []Symbol, target Symbol) int {
	substitutes := g.wild != NoSymbol && g.roles[target] != RoleScatter
	n := 0
	for _, c := range cells {
		if c != target && !(substitutes && c == g.wild) {
			break
		}
		n++
	}
	return n
}
