package sim

import (
	"math"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

// sum is a Neumaier compensated sum.
type sum struct {
	s, c float64
}

func (k *sum) add(x float64) {
	t := k.s + x
	if math.Abs(k.s) >= math.Abs(x) {
		k.c += (k.s - t) + x
	} else {
		k.c += (x - t) + k.s
	}
	k.s = t
}

func (k *sum) merge(o sum) {
	k.add(o.s)
	k.add(o.c)
}

func (k sum) value() float64 { return k.s + k.c }

// Stats holds the running totals of one worker or of a whole run. A Stats
// value is owned by exactly one goroutine until it is merged.
type Stats struct {
	Spins   int64
	Winning int64
	MaxWin  float64

	total  sum
	sumSq  sum
	ledger map[string]*sum
}

func NewStats() *Stats {
	return &Stats{ledger: make(map[string]*sum)}
}

// Record folds one spin result into s.
func (s *Stats) Record(res slot.SpinResult) {
	s.Spins++
	s.total.add(res.Payout)
	s.sumSq.add(res.Payout * res.Payout)
	if res.Winning {
		s.Winning++
	}
	if res.Payout > s.MaxWin {
		s.MaxWin = res.Payout
	}
	for _, w := range res.Wins {
		e := s.ledger[w.Key]
		if e == nil {
			e = &sum{}
			s.ledger[w.Key] = e
		}
		e.add(w.Payout)
	}
}

// Merge adds o into s. Merging is associative and commutative, so partial
// stats may be combined in any order.
func (s *Stats) Merge(o *Stats) {
	s.Spins += o.Spins
	s.Winning += o.Winning
	if o.MaxWin > s.MaxWin {
		s.MaxWin = o.MaxWin
	}
	s.total.merge(o.total)
	s.sumSq.merge(o.sumSq)
	for k, v := range o.ledger {
		e := s.ledger[k]
		if e == nil {
			e = &sum{}
			s.ledger[k] = e
		}
		e.merge(*v)
	}
}

func (s *Stats) TotalPayout() float64 { return s.total.value() }

func (s *Stats) SumSquares() float64 { return s.sumSq.value() }

// Ledger returns a copy of the contribution ledger.
func (s *Stats) Ledger() map[string]float64 {
	out := make(map[string]float64, len(s.ledger))
	for k, v := range s.ledger {
		out[k] = v.value()
	}
	return out
}
