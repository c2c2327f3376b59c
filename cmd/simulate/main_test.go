package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
)

func TestSimulate_PresetText(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	o := options{game: "fruit_classic", spins: 5000, workers: 2, seed: 3, dataDir: dir, save: true}
	var out bytes.Buffer
	if err := simulate(context.Background(), o, &out, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Config Name: Fruit Classic") || !strings.Contains(out.String(), "Total Spins: 5,000") {
		t.Errorf("report:\n%s", out.String())
	}
	recs, err := run.NewFileStore(dir).List(context.Background(), run.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].GameID != "fruit_classic" || recs[0].Seed != 3 {
		t.Errorf("saved runs = %+v", recs)
	}
}

func TestSimulate_FileAndReels(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "bells.yaml")
	if err := os.WriteFile(def, []byte("paytable:\n  Bell: {\"3\": 200}\nvirtual_reel_strips: [[Lemon], [Lemon], [Lemon], [Lemon], [Lemon]]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	reels := filepath.Join(dir, "reels_all_bells.json")
	if err := os.WriteFile(reels, []byte(`{"reel1":["Bell"],"reel2":["Bell"],"reel3":["Bell"],"reel4":["Bell"],"reel5":["Bell"]}`), 0644); err != nil {
		t.Fatal(err)
	}
	o := options{file: def, reels: reels, spins: 100, workers: 1, seed: 1, dataDir: dir, asJSON: true}
	var out bytes.Buffer
	if err := simulate(context.Background(), o, &out, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	// Bell x5 has no entry, so each of the 10 lines pays Bell x3: 20 credits on a 10 credit bet.
	if !strings.Contains(out.String(), "Loaded Reels from reels_all_bells.json") || !strings.Contains(out.String(), `"2000"`) {
		t.Errorf("json report:\n%s", out.String())
	}
}

func TestSimulate_UnknownGame(t *testing.T) {
	o := options{game: "nope", spins: 10, dataDir: t.TempDir()}
	if err := simulate(context.Background(), o, &bytes.Buffer{}, zap.NewNop()); err == nil {
		t.Error("expected error")
	}
}
