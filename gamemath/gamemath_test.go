package gamemath

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

const fruitYAML = `
model_id: fruit_yaml
config_name: Fruit YAML
paytable:
  Seven: {"5": 50000, "4": 2500, "3": 500, "2": 100}
  Watermelon: {"5": 7000, "4": 1200, "3": 400}
  Grapes: {"5": 7000, "4": 1200, "3": 400}
  StarScatter: {"3": 2000, note: "Only appears on 1st, 3rd and 5th reels."}
virtual_reel_strips:
  - [Seven, Watermelon, StarScatter]
  - [Grapes, Wild, Seven]
  - [Watermelon, StarScatter, Wild]
  - [Seven, Grapes, Wild]
  - [StarScatter, Grapes, Seven]
`

func TestParse_YAMLKeepsPaytableOrder(t *testing.T) {
	g, err := Parse([]byte(fruitYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Seven", "Watermelon", "Grapes", "StarScatter"}
	if !reflect.DeepEqual(g.Paytable.Order, want) {
		t.Errorf("order = %v, want %v", g.Paytable.Order, want)
	}
	if g.Paytable.Entries["StarScatter"]["note"] == nil {
		t.Error("annotation dropped")
	}
	if len(g.Reels) != 5 || g.Name != "Fruit YAML" {
		t.Errorf("got %+v", g)
	}
}

func TestParse_JSONKeepsPaytableOrder(t *testing.T) {
	doc := `{"model_id":"j","paytable":{"Lemon":{"3":100},"Bell":{"3":200},"Cherry":{"3":100}},"virtual_reel_strips":[["Lemon"]]}`
	g, err := Parse([]byte(doc), ".json")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Lemon", "Bell", "Cherry"}; !reflect.DeepEqual(g.Paytable.Order, want) {
		t.Errorf("order = %v, want %v", g.Paytable.Order, want)
	}
	out, err := json.Marshal(g.Paytable)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"Lemon":{"3":100},"Bell":{"3":200},"Cherry":{"3":100}}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestApplyDefaults(t *testing.T) {
	g := &GameMath{ModelID: "d"}
	g.ApplyDefaults()
	if g.BetPerLine != 1 || g.NumLines != 10 || g.BaseDisplayBet != 100 || g.WildSymbol != "Wild" || g.PremiumSymbol != "Seven" {
		t.Errorf("defaults = %+v", g)
	}
	if !reflect.DeepEqual(g.WildReels, []int{2, 3, 4}) || len(g.Scatters) != 2 {
		t.Errorf("wild reels %v scatters %+v", g.WildReels, g.Scatters)
	}

	none := &GameMath{ModelID: "n", WildReels: []int{}, Scatters: []Scatter{}}
	none.ApplyDefaults()
	if len(none.WildReels) != 0 || len(none.Scatters) != 0 {
		t.Errorf("explicit empty sets were overridden: %+v", none)
	}
}

func TestConfig_ZeroBasedReels(t *testing.T) {
	g, err := Parse([]byte(fruitYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	g.ApplyDefaults()
	cfg, err := g.Config()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.WildReels, []int{1, 2, 3}) {
		t.Errorf("wild reels = %v", cfg.WildReels)
	}
	if len(cfg.Scatters) != 2 || cfg.Scatters[1].Rule != slot.ReelPresence || !reflect.DeepEqual(cfg.Scatters[1].Reels, []int{0, 2, 4}) {
		t.Errorf("scatters = %+v", cfg.Scatters)
	}
	if cfg.Premium != "Seven" || cfg.SymbolOrder[0] != "Seven" {
		t.Errorf("premium %q order %v", cfg.Premium, cfg.SymbolOrder)
	}
	if _, err := g.Compile(); err != nil {
		t.Fatal(err)
	}
}

func TestConfig_Paylines(t *testing.T) {
	g := &GameMath{Paylines: [][]int{{1, 1, 1}, {0, 1, 2}}}
	cfg, err := g.Config()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Paylines) != 2 || cfg.Paylines[1][2] != (slot.Coord{Reel: 2, Row: 2}) {
		t.Errorf("paylines = %+v", cfg.Paylines)
	}
}

func TestCompile_Errors(t *testing.T) {
	g, _ := Parse([]byte(fruitYAML), ".yaml")
	g.Scatters = []Scatter{{Symbol: "StarScatter", Rule: "sideways"}}
	if _, err := g.Compile(); !errors.Is(err, slot.ErrConfig) {
		t.Errorf("unknown rule: err = %v", err)
	}

	g, _ = Parse([]byte(fruitYAML), ".yaml")
	g.WildReels = []int{0}
	if _, err := g.Compile(); !errors.Is(err, slot.ErrConfig) {
		t.Errorf("reel 0 is not a 1-based reel: err = %v", err)
	}

	g, _ = Parse([]byte(fruitYAML), ".yaml")
	g.Reels[4] = nil
	if _, err := g.Compile(); !errors.Is(err, slot.ErrConfig) {
		t.Errorf("empty strip: err = %v", err)
	}
}

func TestLoadFileAndReels(t *testing.T) {
	dir := t.TempDir()
	defPath := filepath.Join(dir, "my_slot.yaml")
	if err := os.WriteFile(defPath, []byte("paytable:\n  Lemon: {\"3\": 100}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	g, err := LoadFile(defPath)
	if err != nil {
		t.Fatal(err)
	}
	if g.ModelID != "my_slot" {
		t.Errorf("model id = %q", g.ModelID)
	}

	reelPath := filepath.Join(dir, "reels_rtp91.json")
	reelDoc := `{"reel1":["Lemon","Wild"],"reel2":["Lemon"],"reel3":["Lemon"],"reel5":["Lemon"]}`
	if err := os.WriteFile(reelPath, []byte(reelDoc), 0644); err != nil {
		t.Fatal(err)
	}
	reels, err := LoadReels(reelPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(reels) != 5 || len(reels[0]) != 2 || reels[3] != nil {
		t.Fatalf("reels = %v", reels)
	}
	withReels := g.WithReels(reels, reelPath)
	if withReels.Name != "Loaded Reels from reels_rtp91.json" || g.Reels != nil {
		t.Errorf("with reels = %+v", withReels)
	}
	if _, err := withReels.Compile(); !errors.Is(err, slot.ErrConfig) {
		t.Errorf("missing reel4 should be a config error, got %v", err)
	}
}

func TestContentHash_StableAcrossFormats(t *testing.T) {
	a := testMath("a", 100)
	b, err := Parse([]byte(`{"model_id":"b","paytable":{"Lemon":{"3":100}},"virtual_reel_strips":[["Lemon"],["Lemon"],["Lemon"],["Lemon"],["Lemon"]]}`), ".json")
	if err != nil {
		t.Fatal(err)
	}
	ha, _ := a.ContentHash()
	hb, _ := b.ContentHash()
	if ha != hb {
		t.Errorf("hash differs: %s vs %s", ha, hb)
	}
	b.Reels[0] = []string{"Bell"}
	if hc, _ := b.ContentHash(); hc == ha {
		t.Error("hash did not change with reels")
	}
}
