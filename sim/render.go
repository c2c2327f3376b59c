package sim

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// MinContributionPercent hides ledger rows at or below this share of RTP
// in the text report.
const MinContributionPercent = 0.0001

// WriteText renders r as the plain-text simulation report.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Simulation Results ---\n")
	fmt.Fprintf(&b, "Config Name: %s\n", r.Game)
	fmt.Fprintf(&b, "Base Paytable Display Bet: %s credits\n", humanize.Commaf(r.BaseDisplayBet))
	fmt.Fprintf(&b, "Simulation Bet per Line: %s credits\n", humanize.Commaf(r.BetPerLine))
	fmt.Fprintf(&b, "Simulation Total Bet per Spin: %s credits\n", humanize.Commaf(r.TotalBetPerSpin))
	fmt.Fprintf(&b, "Total Spins: %s\n", humanize.Comma(r.Spins))
	fmt.Fprintf(&b, "Total Bet: %s credits\n", humanize.Commaf(r.TotalBet))
	fmt.Fprintf(&b, "Total Payout: %s credits\n", humanize.Commaf(r.TotalPayout))
	fmt.Fprintf(&b, "Calculated RTP: %s%%\n", fixed(r.RTP, 4))
	fmt.Fprintf(&b, "Calculated Variance: %s\n", fixed(r.Variance, 4))
	fmt.Fprintf(&b, "Calculated Standard Deviation (Volatility): %s\n", fixed(r.StdDev, 4))
	fmt.Fprintf(&b, "Hit Frequency: %s%%\n", fixed(r.HitFrequency, 4))
	fmt.Fprintf(&b, "Average Win (per winning spin): %s credits\n", fixed(r.AvgWin, 2))
	fmt.Fprintf(&b, "Maximum Win Observed: %s credits\n", humanize.Commaf(r.MaxWin))
	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s (%d workers, seed %d)\n", r.Duration.Round(time.Millisecond), r.Workers, r.Seed)
	}

	b.WriteString("\n--- RTP Contribution Breakdown ---\n")
	for _, c := range r.Contributions {
		if c.Percent <= MinContributionPercent {
			continue
		}
		fmt.Fprintf(&b, "- %-30s: %10s credits (%s%% RTP)\n",
			c.Key, humanize.FormatFloat("#,###.##", c.Amount), fixed(c.Percent, 4))
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
