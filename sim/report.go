package sim

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

// Contribution is one ledger row of a report.
type Contribution struct {
	Key     string  `json:"key"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// Report is the finalized result of a simulation run.
type Report struct {
	Game            string         `json:"game"`
	BaseDisplayBet  float64        `json:"base_display_bet"`
	BetPerLine      float64        `json:"bet_per_line"`
	TotalBetPerSpin float64        `json:"total_bet_per_spin"`
	Spins           int64          `json:"spins"`
	TotalBet        float64        `json:"total_bet"`
	TotalPayout     float64        `json:"total_payout"`
	RTP             float64        `json:"rtp"`
	Mean            float64        `json:"mean"`
	Variance        float64        `json:"variance"`
	StdDev          float64        `json:"std_dev"`
	WinningSpins    int64          `json:"winning_spins"`
	HitFrequency    float64        `json:"hit_frequency"`
	AvgWin          float64        `json:"avg_win"`
	MaxWin          float64        `json:"max_win"`
	Contributions   []Contribution `json:"contributions"`
	Workers         int            `json:"workers,omitempty"`
	Seed            uint64         `json:"seed,omitempty"`
	Duration        time.Duration  `json:"duration_ns,omitempty"`
}

var errNoSpins = errors.New("sim: no spins recorded")

// Finalize converts accumulated stats into a report.
func Finalize(s *Stats, g *slot.Game) (*Report, error) {
	if s.Spins <= 0 {
		return nil, errNoSpins
	}
	n := float64(s.Spins)
	totalBet := n * g.TotalBet()
	total := s.TotalPayout()
	mean := total / n
	variance := s.SumSquares()/n - mean*mean

	r := &Report{
		Game:            g.Name(),
		BaseDisplayBet:  g.BaseDisplayBet(),
		BetPerLine:      g.BetPerLine(),
		TotalBetPerSpin: g.TotalBet(),
		Spins:           s.Spins,
		TotalBet:        totalBet,
		TotalPayout:     total,
		RTP:             total / totalBet * 100,
		Mean:            mean,
		Variance:        variance,
		StdDev:          math.Sqrt(math.Max(variance, 0)),
		WinningSpins:    s.Winning,
		HitFrequency:    float64(s.Winning) / n * 100,
		MaxWin:          s.MaxWin,
	}
	if s.Winning > 0 {
		r.AvgWin = total / float64(s.Winning)
	}

	ledger := s.Ledger()
	r.Contributions = make([]Contribution, 0, len(ledger))
	for k, v := range ledger {
		r.Contributions = append(r.Contributions, Contribution{
			Key:     k,
			Amount:  v,
			Percent: v / totalBet * 100,
		})
	}
	sort.Slice(r.Contributions, func(i, j int) bool {
		a, b := r.Contributions[i], r.Contributions[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Key < b.Key
	})
	return r, nil
}

// Summary is a report rounded for display and exchange: percentages and
// statistics to 4 places, credits to 2.
type Summary struct {
	Game          string                `json:"game"`
	Spins         int64                 `json:"spins"`
	TotalBet      decimal.Decimal       `json:"total_bet"`
	TotalPayout   decimal.Decimal       `json:"total_payout"`
	RTP           decimal.Decimal       `json:"rtp"`
	Variance      decimal.Decimal       `json:"variance"`
	StdDev        decimal.Decimal       `json:"std_dev"`
	HitFrequency  decimal.Decimal       `json:"hit_frequency"`
	AvgWin        decimal.Decimal       `json:"avg_win"`
	MaxWin        decimal.Decimal       `json:"max_win"`
	Contributions []SummaryContribution `json:"contributions"`
}

type SummaryContribution struct {
	Key     string          `json:"key"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

func (r *Report) Summary() Summary {
	s := Summary{
		Game:         r.Game,
		Spins:        r.Spins,
		TotalBet:     credits(r.TotalBet),
		TotalPayout:  credits(r.TotalPayout),
		RTP:          ratio(r.RTP),
		Variance:     ratio(r.Variance),
		StdDev:       ratio(r.StdDev),
		HitFrequency: ratio(r.HitFrequency),
		AvgWin:       credits(r.AvgWin),
		MaxWin:       credits(r.MaxWin),
	}
	s.Contributions = make([]SummaryContribution, 0, len(r.Contributions))
	for _, c := range r.Contributions {
		s.Contributions = append(s.Contributions, SummaryContribution{
			Key:     c.Key,
			Amount:  credits(c.Amount),
			Percent: ratio(c.Percent),
		})
	}
	return s
}

func credits(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

func ratio(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(4) }
