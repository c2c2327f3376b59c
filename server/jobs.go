package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

// job is a simulation running in the background.
type job struct {
	sim    *sim.Simulation
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	rec run.Record
}

func (j *job) record() *run.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec := j.rec
	return &rec
}

type jobs struct {
	s  *Server
	mu sync.Mutex
	m  map[string]*job
	wg sync.WaitGroup
}

func newJobs(s *Server) *jobs {
	return &jobs{s: s, m: make(map[string]*job)}
}

type startRequest struct {
	GameID  string `json:"game_id"`
	Spins   int64  `json:"spins"`
	Workers int    `json:"workers"`
	Seed    uint64 `json:"seed"`
}

// start compiles the game, saves a running record and simulates in the
// background.
func (js *jobs) start(ctx context.Context, req startRequest) (*job, error) {
	g, err := js.s.registry.Compile(req.GameID)
	if err != nil {
		return nil, err
	}
	id := run.NewID()
	log := js.s.log.With(zap.String("run_id", id), zap.String("game", req.GameID))
	simulation, err := sim.New(g, sim.Options{
		Spins:   req.Spins,
		Workers: req.Workers,
		Seed:    req.Seed,
		Progress: func(done, total int64) {
			log.Info("simulation progress", zap.Int64("done", done), zap.Int64("total", total))
		},
	})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		sim:    simulation,
		cancel: cancel,
		done:   make(chan struct{}),
		rec: run.Record{
			ID:        id,
			GameID:    req.GameID,
			GameName:  g.Name(),
			Spins:     req.Spins,
			Workers:   simulation.Workers(),
			Seed:      simulation.Seed(),
			State:     sim.StateRunning.String(),
			CreatedAt: time.Now().UTC(),
		},
	}
	if err := js.s.runs.Save(ctx, j.record()); err != nil {
		cancel()
		return nil, err
	}

	js.mu.Lock()
	js.m[id] = j
	js.mu.Unlock()
	js.wg.Add(1)
	go func() {
		defer js.wg.Done()
		defer close(j.done)
		defer cancel()
		log.Info("simulation started", zap.Int64("spins", req.Spins), zap.Int("workers", simulation.Workers()), zap.Uint64("seed", simulation.Seed()))
		report, err := simulation.Run(runCtx)
		js.finish(j, report, err, log)
	}()
	return j, nil
}

// finish persists the outcome, records stats on the game and publishes
// finalized reports to the platform.
func (js *jobs) finish(j *job, report *sim.Report, runErr error, log *zap.Logger) {
	now := time.Now().UTC()
	j.mu.Lock()
	j.rec.State = j.sim.State().String()
	j.rec.Report = report
	j.rec.FinishedAt = &now
	if runErr != nil {
		j.rec.Error = runErr.Error()
	}
	j.mu.Unlock()
	rec := j.record()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := js.s.runs.Save(ctx, rec); err != nil {
		log.Error("save run", zap.Error(err))
	}

	if report == nil {
		log.Warn("simulation stopped", zap.String("state", rec.State), zap.Error(runErr))
		js.remove(rec.ID)
		return
	}
	log.Info("simulation finalized",
		zap.Float64("rtp", report.RTP),
		zap.Float64("hit_frequency", report.HitFrequency),
		zap.Duration("duration", report.Duration))

	stats := gamemath.GameStats{
		ComputedRTP: report.RTP,
		HitRate:     report.HitFrequency,
		Variance:    report.Variance,
		Spins:       report.Spins,
		RunID:       rec.ID,
	}
	if err := js.s.registry.UpdateStats(rec.GameID, stats); err != nil {
		log.Warn("update game stats", zap.Error(err))
	}
	if js.s.platform != nil {
		if status, err := js.s.platform.PublishReport(ctx, rec); err != nil {
			log.Warn("publish report", zap.Int("status", status), zap.Error(err))
		}
	}
	js.remove(rec.ID)
}

// remove drops a finished job; its record lives on in the run store.
func (js *jobs) remove(id string) {
	js.mu.Lock()
	delete(js.m, id)
	js.mu.Unlock()
}

func (js *jobs) get(id string) (*job, bool) {
	js.mu.Lock()
	defer js.mu.Unlock()
	j, ok := js.m[id]
	return j, ok
}

// stopAll cancels every running simulation and waits for them to be saved.
func (js *jobs) stopAll() {
	js.mu.Lock()
	for _, j := range js.m {
		j.cancel()
	}
	js.mu.Unlock()
	js.wg.Wait()
}
