package slot

// Expand writes into dst the line-evaluation screen derived from src: on
// every wild reel whose column shows the wild, the whole column turns wild.
// Other columns are copied as is. src is never modified.
func (g *Game) Expand(src, dst Screen) {
	for i, col := range src {
		copy(dst[i], col)
		if !g.wildReel[i] || g.wild == NoSymbol {
			continue
		}
		for _, sym := range col {
			if sym == g.wild {
				for row := range dst[i] {
					dst[i][row] = g.wild
				}
				break
			}
		}
	}
}
