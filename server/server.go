package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	rtpsim "github.com/Ashenafi-pixel/gamecrafter-rtp-simulator"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/config"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/games"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/platform"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
)

type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *games.Registry
	runs     run.Store
	platform *platform.Client
	jobs     *jobs
	router   chi.Router
}

// New wires the registry and run store from cfg. With DATABASE_URL set,
// runs go to the simulation_runs table and enabled rows of
// game_definitions join the catalog; otherwise runs are kept in
// data/runs.json.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	registry, err := games.NewRegistry(gamemath.NewStore(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	n, err := registry.LoadDir(cfg.GamesDir)
	if err != nil {
		log.Warn("some game definitions were skipped", zap.String("dir", cfg.GamesDir), zap.Error(err))
	}
	log.Info("game definitions loaded", zap.String("dir", cfg.GamesDir), zap.Int("files", n))

	var runs run.Store = run.NewFileStore(cfg.DataDir)
	db, err := rtpsim.GetDB()
	if err != nil {
		return nil, err
	}
	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sb := rtpsim.Builder(rtpsim.Driver())
		store := run.NewSQLStore(db, sb)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		runs = store
		if n, err := registry.LoadFromDB(ctx, db, sb); err != nil {
			log.Warn("game_definitions not loaded", zap.Error(err))
		} else {
			log.Info("game definitions loaded from database", zap.Int("count", n))
		}
	}
	return newServer(cfg, log, registry, runs), nil
}

func newServer(cfg *config.Config, log *zap.Logger, registry *games.Registry, runs run.Store) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		runs:     runs,
	}
	if cfg.PlatformURL != "" {
		s.platform = platform.NewClient(cfg.PlatformURL, cfg.PlatformSecret)
	}
	s.jobs = newJobs(s)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         60 * 15,
	}))
	r.Use(requestLogger(s.log))

	r.Get("/health", s.health)
	r.Route("/games", func(rr chi.Router) {
		rr.Get("/", s.handleListGames)
		rr.Post("/import", s.handleImportZip)
		rr.Get("/{gameID}", s.handleGetGame)
		rr.Post("/{gameID}/math", s.handleRegisterGameMath)
	})
	r.Route("/simulations", func(rr chi.Router) {
		rr.Post("/", s.handleStartSimulation)
		rr.Get("/", s.handleListSimulations)
		rr.Get("/{runID}", s.handleGetSimulation)
		rr.Get("/{runID}/report", s.handleSimulationReport)
		rr.Delete("/{runID}", s.handleCancelSimulation)
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then cancels running simulations and
// shuts down.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8081
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("simulator listening", zap.String("addr", srv.Addr), zap.String("platform", s.cfg.PlatformURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.jobs.stopAll()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLogger logs method, path, status and duration for each request
// (no body or secrets).
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "rtp-simulator"})
}
