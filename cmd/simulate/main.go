package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	rtpsim "github.com/Ashenafi-pixel/gamecrafter-rtp-simulator"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/config"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/games"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/logging"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

type options struct {
	game     string
	file     string
	reels    string
	spins    int64
	workers  int
	seed     uint64
	gamesDir string
	dataDir  string
	save     bool
	asJSON   bool
}

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	var o options
	flag.StringVar(&o.game, "game", "fruit_classic", "Game id from the registry (built-in presets, -games-dir, stored math)")
	flag.StringVar(&o.file, "file", "", "Definition file (yaml/json); overrides -game")
	flag.StringVar(&o.reels, "reels", "", "Reel file with reel1..reelN strips, applied over the definition")
	flag.Int64Var(&o.spins, "spins", cfg.DefaultSpins, "Number of spins")
	flag.IntVar(&o.workers, "workers", cfg.Workers, "Worker goroutines (0 = GOMAXPROCS)")
	flag.Uint64Var(&o.seed, "seed", cfg.Seed, "Random seed (0 = time-based)")
	flag.StringVar(&o.gamesDir, "games-dir", cfg.GamesDir, "Directory of extra definition files")
	flag.StringVar(&o.dataDir, "data-dir", cfg.DataDir, "Data directory for stored math and runs")
	flag.BoolVar(&o.save, "save", false, "Save the run (DATABASE_URL or data/runs.json) and record stats on stored math")
	flag.BoolVar(&o.asJSON, "json", false, "Print the report as JSON instead of text")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, o, os.Stdout, logger); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

// resolve picks the definition to simulate: -file if given, else -game
// from the registry; -reels replaces its strips.
func resolve(o options, registry *games.Registry) (*gamemath.GameMath, error) {
	var m *gamemath.GameMath
	if o.file != "" {
		def, err := gamemath.LoadFile(o.file)
		if err != nil {
			return nil, err
		}
		m = def
	} else {
		e, ok := registry.Get(o.game)
		if !ok {
			return nil, fmt.Errorf("%w: %s", games.ErrNotFound, o.game)
		}
		m = e.Math
	}
	if o.reels != "" {
		reels, err := gamemath.LoadReels(o.reels)
		if err != nil {
			return nil, fmt.Errorf("load reels: %w", err)
		}
		m = m.WithReels(reels, o.reels)
	}
	return m, nil
}

func simulate(ctx context.Context, o options, out io.Writer, log *zap.Logger) error {
	registry, err := games.NewRegistry(gamemath.NewStore(o.dataDir))
	if err != nil {
		return err
	}
	if _, err := registry.LoadDir(o.gamesDir); err != nil {
		log.Warn("some game definitions were skipped", zap.String("dir", o.gamesDir), zap.Error(err))
	}
	m, err := resolve(o, registry)
	if err != nil {
		return err
	}
	g, err := m.Compile()
	if err != nil {
		return err
	}

	log = log.With(zap.String("game", g.Name()))
	s, err := sim.New(g, sim.Options{
		Spins:   o.spins,
		Workers: o.workers,
		Seed:    o.seed,
		Progress: func(done, total int64) {
			log.Info("progress", zap.Int64("done", done), zap.Int64("total", total),
				zap.String("percent", fmt.Sprintf("%.1f%%", float64(done)/float64(total)*100)))
		},
	})
	if err != nil {
		return err
	}
	log.Info("simulation started", zap.Int64("spins", o.spins), zap.Int("workers", s.Workers()), zap.Uint64("seed", s.Seed()))
	created := time.Now().UTC()
	report, err := s.Run(ctx)
	if err != nil {
		return err
	}

	if o.save {
		if err := save(ctx, o, registry, m, s, report, created); err != nil {
			return err
		}
	}
	if o.asJSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Summary())
	}
	return sim.WriteText(out, report)
}

func save(ctx context.Context, o options, registry *games.Registry, m *gamemath.GameMath, s *sim.Simulation, report *sim.Report, created time.Time) error {
	var store run.Store = run.NewFileStore(o.dataDir)
	db, err := rtpsim.GetDB()
	if err != nil {
		return err
	}
	if db != nil {
		sqlStore := run.NewSQLStore(db, rtpsim.Builder(rtpsim.Driver()))
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
		store = sqlStore
	}
	finished := time.Now().UTC()
	rec := &run.Record{
		ID:         run.NewID(),
		GameID:     m.ModelID,
		GameName:   report.Game,
		Spins:      report.Spins,
		Workers:    s.Workers(),
		Seed:       s.Seed(),
		State:      s.State().String(),
		Report:     report,
		CreatedAt:  created,
		FinishedAt: &finished,
	}
	if err := store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if o.file == "" && o.reels == "" {
		if err := registry.UpdateStats(m.ModelID, gamemath.GameStats{
			ComputedRTP: report.RTP,
			HitRate:     report.HitFrequency,
			Variance:    report.Variance,
			Spins:       report.Spins,
			RunID:       rec.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}
