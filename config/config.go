package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           int
	DataDir        string
	GamesDir       string // Extra definition files (*.yaml, *.yml, *.json) loaded at startup
	DefaultSpins   int64
	MaxSpins       int64
	Workers        int    // 0 = GOMAXPROCS
	Seed           uint64 // 0 = time-based per run
	PlatformURL    string // Finished reports are published here when set
	PlatformSecret string
	LogLevel       string
	CORSOrigins    []string
}

func Load() *Config {
	port := 8081
	// Prefer PORT (Render, Fly.io, Railway, etc.) then SIM_PORT
	if v := intEnv("PORT"); v > 0 {
		port = v
	} else if v := intEnv("SIM_PORT"); v > 0 {
		port = v
	}
	dataDir := os.Getenv("SIM_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	gamesDir := os.Getenv("SIM_GAMES_DIR")
	if gamesDir == "" {
		gamesDir = "games"
	}
	defaultSpins := int64Env("SIM_DEFAULT_SPINS")
	if defaultSpins <= 0 {
		defaultSpins = 1_000_000
	}
	maxSpins := int64Env("SIM_MAX_SPINS")
	if maxSpins <= 0 {
		maxSpins = 1_000_000_000
	}
	if defaultSpins > maxSpins {
		defaultSpins = maxSpins
	}
	workers := intEnv("SIM_WORKERS")
	if workers < 0 {
		workers = 0
	}
	var seed uint64
	if s := os.Getenv("SIM_SEED"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			seed = v
		}
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	origins := []string{"*"}
	if s := os.Getenv("CORS_ORIGINS"); s != "" {
		origins = origins[:0]
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return &Config{
		Port:           port,
		DataDir:        dataDir,
		GamesDir:       gamesDir,
		DefaultSpins:   defaultSpins,
		MaxSpins:       maxSpins,
		Workers:        workers,
		Seed:           seed,
		PlatformURL:    strings.TrimRight(os.Getenv("PLATFORM_URL"), "/"),
		PlatformSecret: os.Getenv("PLATFORM_SECRET"),
		LogLevel:       logLevel,
		CORSOrigins:    origins,
	}
}

func intEnv(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func int64Env(key string) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
