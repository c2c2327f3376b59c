package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

const (
	// progressBatch caps how many spins a worker runs between counter
	// updates. Smaller runs flush every 1% of spins.
	progressBatch = 4096
	// cancelCheck is how many spins a worker runs between context checks.
	cancelCheck = 1024
)

// State is the lifecycle state of a Simulation.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateFinalized
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	case StateCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// Options controls a simulation run.
type Options struct {
	Spins int64
	// Workers defaults to GOMAXPROCS and never exceeds Spins.
	Workers int
	// Seed 0 picks a time-based seed. The same seed and worker count
	// reproduce the same report.
	Seed uint64
	// Progress is called from one goroutine each time completed spins cross
	// a new whole percent of Spins, and once when all workers are done.
	Progress func(done, total int64)
}

// Simulation drives spins of one game across workers. Each worker owns its
// generator, evaluator, screen and partial Stats; partials are merged once
// every worker is done.
type Simulation struct {
	game *slot.Game
	opts Options

	batch   int64
	state   atomic.Int32
	done    atomic.Int64
	percent atomic.Int64
	notify  chan struct{}
	mu      sync.Mutex
	report  *Report
}

// New validates opts against g. It fails with a *slot.ConfigError before
// any spin runs.
func New(g *slot.Game, opts Options) (*Simulation, error) {
	if g == nil {
		return nil, &slot.ConfigError{Field: "game", Reason: "missing"}
	}
	if opts.Spins <= 0 {
		return nil, &slot.ConfigError{Field: "spins", Reason: "must be positive"}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if int64(opts.Workers) > opts.Spins {
		opts.Workers = int(opts.Spins)
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	batch := min(max(opts.Spins/100, 1), progressBatch)
	return &Simulation{game: g, opts: opts, batch: batch, notify: make(chan struct{}, 1)}, nil
}

// Run compiles cfg and simulates it. It is the one-call form of
// slot.NewGame, New and Simulation.Run.
func Run(ctx context.Context, cfg slot.Config, opts Options) (*Report, error) {
	if opts.Spins <= 0 {
		return nil, &slot.ConfigError{Field: "spins", Reason: "must be positive"}
	}
	g, err := slot.NewGame(cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(g, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

func (s *Simulation) State() State { return State(s.state.Load()) }

func (s *Simulation) Seed() uint64 { return s.opts.Seed }

func (s *Simulation) Workers() int { return s.opts.Workers }

// Progress returns spins completed so far and the total.
func (s *Simulation) Progress() (done, total int64) {
	return s.done.Load(), s.opts.Spins
}

// Report returns the report once the simulation is finalized.
func (s *Simulation) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Run executes every spin and finalizes the report. Cancelling ctx stops
// workers between spins and returns ctx's error. A Simulation runs once.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	if !s.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return nil, errors.New("sim: simulation already started")
	}
	start := time.Now()

	stopProgress := s.startProgress()
	partials := make([]*Stats, s.opts.Workers)
	eg, gctx := errgroup.WithContext(ctx)
	per, rem := s.opts.Spins/int64(s.opts.Workers), s.opts.Spins%int64(s.opts.Workers)
	for i := 0; i < s.opts.Workers; i++ {
		n := per
		if int64(i) < rem {
			n++
		}
		eg.Go(func() error {
			st, err := s.work(gctx, i, n)
			partials[i] = st
			return err
		})
	}
	err := eg.Wait()
	stopProgress()
	if err != nil {
		if ctx.Err() != nil {
			s.state.Store(int32(StateCanceled))
			return nil, ctx.Err()
		}
		s.state.Store(int32(StateFailed))
		return nil, err
	}

	total := NewStats()
	for _, p := range partials {
		total.Merge(p)
	}
	r, err := Finalize(total, s.game)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return nil, err
	}
	r.Workers = s.opts.Workers
	r.Seed = s.opts.Seed
	r.Duration = time.Since(start)

	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
	s.state.Store(int32(StateFinalized))
	return r, nil
}

// work runs n spins on worker id's own generator.
func (s *Simulation) work(ctx context.Context, id int, n int64) (*Stats, error) {
	g := s.game
	rng := rand.New(rand.NewPCG(s.opts.Seed, uint64(id)))
	ev := g.NewEvaluator()
	screen := g.NewScreen()
	st := NewStats()

	var pending int64
	for k := int64(0); k < n; k++ {
		if k%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				s.advance(pending)
				return st, err
			}
		}
		g.Spin(rng, screen)
		st.Record(ev.Evaluate(screen))
		pending++
		if pending == s.batch {
			s.advance(pending)
			pending = 0
		}
	}
	s.advance(pending)
	return st, nil
}

// advance adds n completed spins and wakes the progress reporter when the
// total crosses a new whole percent.
func (s *Simulation) advance(n int64) {
	if n == 0 {
		return
	}
	pct := s.done.Add(n) * 100 / s.opts.Spins
	for {
		last := s.percent.Load()
		if pct <= last {
			return
		}
		if s.percent.CompareAndSwap(last, pct) {
			break
		}
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// startProgress reports each whole percent crossed until the returned func
// is called, which also emits the final count.
func (s *Simulation) startProgress() func() {
	if s.opts.Progress == nil {
		return func() {}
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-s.notify:
				if done := s.done.Load(); done < s.opts.Spins {
					s.opts.Progress(done, s.opts.Spins)
				}
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
		s.opts.Progress(s.done.Load(), s.opts.Spins)
	}
}
