package server

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/config"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/games"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/platform"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:      t.TempDir(),
		DefaultSpins: 2000,
		MaxSpins:     1_000_000_000,
		Seed:         7,
		CORSOrigins:  []string{"*"},
	}
}

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	reg, err := games.NewRegistry(gamemath.NewStore(cfg.DataDir))
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(cfg, zap.NewNop(), reg, run.NewFileStore(cfg.DataDir))
	t.Cleanup(s.jobs.stopAll)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

type viewResp struct {
	ID       string      `json:"id"`
	GameID   string      `json:"game_id"`
	State    string      `json:"state"`
	Spins    int64       `json:"spins"`
	Seed     uint64      `json:"seed"`
	Done     int64       `json:"done"`
	Progress float64     `json:"progress"`
	Report   *sim.Report `json:"report"`
	Summary  *struct {
		RTP string `json:"rtp"`
	} `json:"summary"`
}

func waitRun(t *testing.T, s *Server, id string) {
	t.Helper()
	j, ok := s.jobs.get(id)
	if !ok {
		return
	}
	select {
	case <-j.done:
	case <-time.After(60 * time.Second):
		t.Fatalf("run %s did not finish", id)
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t, testConfig(t))
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestListAndGetGames(t *testing.T) {
	s := testServer(t, testConfig(t))
	rec := do(t, s, http.MethodGet, "/games", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var list struct {
		Games []gameSummary `json:"games"`
	}
	decode(t, rec, &list)
	if len(list.Games) != 1 || list.Games[0].ID != "fruit_classic" || !list.Games[0].Valid || list.Games[0].Paylines != 10 {
		t.Errorf("games = %+v", list.Games)
	}

	rec = do(t, s, http.MethodGet, "/games/fruit_classic", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"virtual_reel_strips"`) {
		t.Errorf("get = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/games/nope", "")
	var apiErr APIError
	decode(t, rec, &apiErr)
	if rec.Code != http.StatusNotFound || apiErr.Code != CodeGameNotFound {
		t.Errorf("unknown game = %d %+v", rec.Code, apiErr)
	}
}

func TestRegisterGameMath(t *testing.T) {
	s := testServer(t, testConfig(t))
	body := `{"paytable":{"Lemon":{"3":100}},"virtual_reel_strips":[["Lemon"],["Lemon"],["Lemon"],["Lemon"],["Lemon"]]}`
	rec := do(t, s, http.MethodPost, "/games/lemons/math", body)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "content_hash") {
		t.Fatalf("register = %d %s", rec.Code, rec.Body)
	}
	if e, ok := s.registry.Get("lemons"); !ok || e.Source != games.SourceStore {
		t.Errorf("lemons not registered: %+v", e)
	}

	cases := []struct {
		name, path, body, code string
		status                 int
	}{
		{"bad json", "/games/x/math", `{`, CodeInvalidBody, http.StatusBadRequest},
		{"id mismatch", "/games/x/math", `{"model_id":"y","paytable":{"Lemon":{"3":1}}}`, CodeInvalidBody, http.StatusBadRequest},
		{"no paytable", "/games/x/math", `{"virtual_reel_strips":[["Lemon"]]}`, CodeInvalidBody, http.StatusBadRequest},
		{"empty strip", "/games/x/math", `{"paytable":{"Lemon":{"3":1}},"virtual_reel_strips":[["Lemon"],[],["Lemon"],["Lemon"],["Lemon"]]}`, CodeInvalidConfig, http.StatusBadRequest},
		{"negative pay", "/games/x/math", `{"paytable":{"Lemon":{"3":-1}},"virtual_reel_strips":[["Lemon"],["Lemon"],["Lemon"],["Lemon"],["Lemon"]]}`, CodeInvalidConfig, http.StatusBadRequest},
		{"unreachable count", "/games/x/math", `{"paytable":{"Lemon":{"3":1,"2000000000":1}},"virtual_reel_strips":[["Lemon"],["Lemon"],["Lemon"],["Lemon"],["Lemon"]]}`, CodeInvalidConfig, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, c.path, c.body)
			var apiErr APIError
			decode(t, rec, &apiErr)
			if rec.Code != c.status || apiErr.Code != c.code {
				t.Errorf("got %d %+v", rec.Code, apiErr)
			}
		})
	}
}

func TestSimulationLifecycle(t *testing.T) {
	s := testServer(t, testConfig(t))
	rec := do(t, s, http.MethodPost, "/simulations", `{"game_id":"fruit_classic","spins":20000,"workers":2,"seed":99}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}
	var started viewResp
	decode(t, rec, &started)
	if started.ID == "" || started.Seed != 99 || started.Spins != 20000 {
		t.Fatalf("started = %+v", started)
	}
	waitRun(t, s, started.ID)

	rec = do(t, s, http.MethodGet, "/simulations/"+started.ID, "")
	var got viewResp
	decode(t, rec, &got)
	if got.State != sim.StateFinalized.String() || got.Report == nil || got.Summary == nil {
		t.Fatalf("finished run = %+v", got)
	}
	if got.Report.Spins != 20000 || got.Done != 20000 || got.Progress != 1 {
		t.Errorf("report spins %d done %d progress %v", got.Report.Spins, got.Done, got.Progress)
	}
	if got.Report.RTP <= 0 {
		t.Errorf("rtp = %v", got.Report.RTP)
	}

	rec = do(t, s, http.MethodGet, "/simulations/"+started.ID+"/report", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Calculated RTP:") || !strings.Contains(rec.Body.String(), "Config Name: Fruit Classic") {
		t.Errorf("report = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/simulations?game_id=fruit_classic", "")
	var list struct {
		Simulations []viewResp `json:"simulations"`
	}
	decode(t, rec, &list)
	if len(list.Simulations) != 1 || list.Simulations[0].ID != started.ID {
		t.Errorf("list = %+v", list.Simulations)
	}

	e, _ := s.registry.Get("fruit_classic")
	if e.Math.Stats == nil || e.Math.Stats.RunID != started.ID || e.Math.Stats.Spins != 20000 {
		t.Errorf("game stats = %+v", e.Math.Stats)
	}

	rec = do(t, s, http.MethodDelete, "/simulations/"+started.ID, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("cancel finished run = %d", rec.Code)
	}
}

func TestSimulationSeedReproducible(t *testing.T) {
	s := testServer(t, testConfig(t))
	rtps := make([]float64, 2)
	for i := range rtps {
		rec := do(t, s, http.MethodPost, "/simulations", `{"game_id":"fruit_classic","spins":5000,"workers":3,"seed":1234}`)
		var v viewResp
		decode(t, rec, &v)
		waitRun(t, s, v.ID)
		stored, err := s.runs.Get(t.Context(), v.ID)
		if err != nil {
			t.Fatal(err)
		}
		rtps[i] = stored.Report.RTP
	}
	if rtps[0] != rtps[1] {
		t.Errorf("same seed gave %v and %v", rtps[0], rtps[1])
	}
}

func TestStartSimulation_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxSpins = 10_000
	s := testServer(t, cfg)
	cases := []struct {
		name, body, code string
		status           int
	}{
		{"bad json", `{`, CodeInvalidBody, http.StatusBadRequest},
		{"missing game", `{"spins":10}`, CodeInvalidBody, http.StatusBadRequest},
		{"unknown game", `{"game_id":"nope"}`, CodeGameNotFound, http.StatusNotFound},
		{"too many spins", `{"game_id":"fruit_classic","spins":10001}`, CodeInvalidConfig, http.StatusBadRequest},
		{"negative spins", `{"game_id":"fruit_classic","spins":-5}`, CodeInvalidConfig, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/simulations", c.body)
			var apiErr APIError
			decode(t, rec, &apiErr)
			if rec.Code != c.status || apiErr.Code != c.code {
				t.Errorf("got %d %+v", rec.Code, apiErr)
			}
		})
	}

	rec := do(t, s, http.MethodGet, "/simulations/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/simulations?limit=x", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rec.Code)
	}
}

func TestCancelSimulation(t *testing.T) {
	s := testServer(t, testConfig(t))
	rec := do(t, s, http.MethodPost, "/simulations", `{"game_id":"fruit_classic","spins":500000000,"workers":1}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}
	var v viewResp
	decode(t, rec, &v)

	rec = do(t, s, http.MethodGet, "/simulations/"+v.ID+"/report", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("report of running simulation = %d", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/simulations/"+v.ID, "")
	var canceled viewResp
	decode(t, rec, &canceled)
	if rec.Code != http.StatusOK || canceled.State != sim.StateCanceled.String() || canceled.Report != nil {
		t.Errorf("cancel = %d %+v", rec.Code, canceled)
	}
	stored, err := s.runs.Get(t.Context(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.State != sim.StateCanceled.String() || stored.FinishedAt == nil || stored.Error == "" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestFinishedRunIsPublished(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
		sig  string
	)
	platformSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(platform.SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer platformSrv.Close()

	cfg := testConfig(t)
	cfg.PlatformURL = platformSrv.URL
	cfg.PlatformSecret = "secret"
	s := testServer(t, cfg)
	rec := do(t, s, http.MethodPost, "/simulations", `{"game_id":"fruit_classic","spins":3000}`)
	var v viewResp
	decode(t, rec, &v)
	waitRun(t, s, v.ID)

	mu.Lock()
	defer mu.Unlock()
	if !platform.Verify("secret", body, sig) {
		t.Fatalf("publish body %q sig %q", body, sig)
	}
	var res platform.RTPResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.RunID != v.ID || res.GameID != "fruit_classic" || res.Spins != 3000 || res.Seed != 7 {
		t.Errorf("published = %+v", res)
	}
}

func TestImportZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"bundle/project_scratch.json": `{"displayName":"Ignored"}`,
		"bundle/math.json":            `{"config_name":"Zipped","paytable":{"Bell":{"3":200}},"virtual_reel_strips":[["Lemon"]]}`,
		"bundle/reels_rtp91.json":     `{"reel1":["Bell"],"reel2":["Bell"],"reel3":["Bell"],"reel4":["Bell"],"reel5":["Bell"]}`,
	}
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(f, content)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	s := testServer(t, testConfig(t))
	req := httptest.NewRequest(http.MethodPost, "/games/import?model_id=zipped_bells", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", "application/zip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rec.Code, rec.Body)
	}
	e, ok := s.registry.Get("zipped_bells")
	if !ok || e.Name != "Zipped" || len(e.Math.Reels) != 5 || e.Math.Reels[4][0] != "Bell" {
		t.Fatalf("imported = %+v", e)
	}

	rec = do(t, s, http.MethodPost, "/games/import", "not a zip")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad zip = %d", rec.Code)
	}
}

func TestDefinitionFromZip_EntryTooLarge(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("math.json")
	if err != nil {
		t.Fatal(err)
	}
	chunk := bytes.Repeat([]byte(" "), 1<<20)
	for written := 0; written <= maxImportSize; written += len(chunk) {
		if _, err := f.Write(chunk); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= maxImportSize {
		t.Fatalf("compressed bundle is %d bytes", buf.Len())
	}

	_, err = definitionFromZip(buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v, want size error", err)
	}
}
