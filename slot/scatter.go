package slot

// scatterCount applies the counting rule of se to the unexpanded screen.
func scatterCount(se *scatterEval, screen Screen) int {
	n := 0
	switch se.rule {
	case ReelPresence:
		for _, r := range se.reels {
			for _, sym := range screen[r] {
				if sym == se.sym {
					n++
					break
				}
			}
		}
	default:
		for _, col := range screen {
			for _, sym := range col {
				if sym == se.sym {
					n++
				}
			}
		}
	}
	return n
}

// ScatterCount reports the count of the named scatter on screen, using its
// configured rule. It returns false if name is not a configured scatter.
func (g *Game) ScatterCount(name string, screen Screen) (int, bool) {
	for i := range g.scatters {
		if g.symbols[g.scatters[i].sym] == name {
			return scatterCount(&g.scatters[i], screen), true
		}
	}
	return 0, false
}
