package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "SIM_PORT", "SIM_DATA_DIR", "SIM_GAMES_DIR", "SIM_DEFAULT_SPINS", "SIM_MAX_SPINS", "SIM_WORKERS", "SIM_SEED", "PLATFORM_URL", "LOG_LEVEL", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Port != 8081 || c.DataDir != "data" || c.GamesDir != "games" {
		t.Errorf("got %+v", c)
	}
	if c.DefaultSpins != 1_000_000 || c.MaxSpins != 1_000_000_000 || c.Workers != 0 || c.Seed != 0 {
		t.Errorf("got %+v", c)
	}
	if c.LogLevel != "info" || len(c.CORSOrigins) != 1 || c.CORSOrigins[0] != "*" {
		t.Errorf("got %+v", c)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SIM_PORT", "9090")
	t.Setenv("SIM_DEFAULT_SPINS", "5000")
	t.Setenv("SIM_MAX_SPINS", "2000")
	t.Setenv("SIM_WORKERS", "3")
	t.Setenv("SIM_SEED", "18446744073709551615")
	t.Setenv("PLATFORM_URL", "http://platform:3000/")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	c := Load()
	if c.Port != 9090 || c.Workers != 3 || c.Seed != 18446744073709551615 {
		t.Errorf("got %+v", c)
	}
	if c.MaxSpins != 2000 || c.DefaultSpins != 2000 {
		t.Errorf("default spins should be capped by max: %+v", c)
	}
	if c.PlatformURL != "http://platform:3000" {
		t.Errorf("platform url = %q", c.PlatformURL)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
		t.Errorf("origins = %q", c.CORSOrigins)
	}
}
