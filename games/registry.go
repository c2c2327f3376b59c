package games

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

//go:embed presets/*.yaml
var presets embed.FS

var ErrNotFound = errors.New("games: unknown game")

// Source says where a definition came from. Later sources replace earlier
// ones with the same id: builtin < file < database < store.
type Source string

const (
	SourceBuiltin  Source = "builtin"
	SourceFile     Source = "file"
	SourceDatabase Source = "database"
	SourceStore    Source = "store"
)

var precedence = map[Source]int{SourceBuiltin: 0, SourceFile: 1, SourceDatabase: 2, SourceStore: 3}

type Entry struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Source Source             `json:"source"`
	Path   string             `json:"path,omitempty"`
	Math   *gamemath.GameMath `json:"math"`
}

// Registry is the catalog of slot definitions the simulator can run.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Entry
	store *gamemath.Store
}

// NewRegistry loads the built-in presets and everything already in store.
// store may be nil, in which case Register keeps definitions in memory.
func NewRegistry(store *gamemath.Store) (*Registry, error) {
	r := &Registry{games: make(map[string]*Entry), store: store}
	if err := r.loadPresets(); err != nil {
		return nil, err
	}
	if store != nil {
		for _, m := range store.List() {
			r.put(&Entry{ID: m.ModelID, Source: SourceStore, Math: m})
		}
	}
	return r, nil
}

func (r *Registry) loadPresets() error {
	return fs.WalkDir(presets, "presets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := presets.ReadFile(p)
		if err != nil {
			return err
		}
		m, err := gamemath.Parse(data, path.Ext(p))
		if err != nil {
			return fmt.Errorf("preset %s: %w", p, err)
		}
		if m.ModelID == "" {
			m.ModelID = strings.TrimSuffix(path.Base(p), path.Ext(p))
		}
		r.put(&Entry{ID: m.ModelID, Source: SourceBuiltin, Path: p, Math: m})
		return nil
	})
}

// LoadDir adds every *.yaml, *.yml and *.json definition in dir. A missing
// dir is not an error. Files that fail to parse are skipped and reported
// together.
func (r *Registry) LoadDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var errs []error
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		p := filepath.Join(dir, e.Name())
		m, err := gamemath.LoadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if r.put(&Entry{ID: m.ModelID, Source: SourceFile, Path: p, Math: m}) {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// LoadFromDB adds enabled definitions from the game_definitions table
// (model_id, definition JSON, enabled).
func (r *Registry) LoadFromDB(ctx context.Context, db *sql.DB, sb sq.StatementBuilderType) (int, error) {
	if db == nil {
		return 0, nil
	}
	rows, err := sb.Select("model_id", "definition").
		From("game_definitions").
		Where(sq.Eq{"enabled": true}).
		OrderBy("model_id").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var id, def string
		if err := rows.Scan(&id, &def); err != nil {
			return n, err
		}
		if id == "" {
			continue
		}
		m, err := gamemath.Parse([]byte(def), ".json")
		if err != nil {
			return n, fmt.Errorf("definition %s: %w", id, err)
		}
		m.ModelID = id
		if r.put(&Entry{ID: id, Source: SourceDatabase, Math: m}) {
			n++
		}
	}
	return n, rows.Err()
}

// put stores e unless an entry from a higher-precedence source holds the id.
func (r *Registry) put(e *Entry) bool {
	e.Name = e.Math.Name
	if e.Name == "" {
		e.Name = e.ID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.games[e.ID]; ok && precedence[old.Source] > precedence[e.Source] {
		return false
	}
	r.games[e.ID] = e
	return true
}

// Register validates m and saves it to the store.
func (r *Registry) Register(m *gamemath.GameMath) error {
	if m == nil || m.ModelID == "" {
		return &slot.ConfigError{Field: "model_id", Reason: "required"}
	}
	if _, err := m.Compile(); err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.Register(m); err != nil {
			return err
		}
	}
	r.put(&Entry{ID: m.ModelID, Source: SourceStore, Math: m})
	return nil
}

func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.games[id]
	return e, ok
}

// List returns all entries ordered by id.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.games))
	for _, e := range r.games {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Compile builds the engine game for id.
func (r *Registry) Compile(id string) (*slot.Game, error) {
	e, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Math.Compile()
}

// UpdateStats records finalized simulation figures on id. Store-backed
// definitions are persisted; others are updated in memory only.
func (r *Registry) UpdateStats(id string, stats gamemath.GameStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.games[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Source == SourceStore && r.store != nil {
		if err := r.store.UpdateStats(id, stats); err != nil {
			return err
		}
	}
	m := *e.Math
	m.Stats = &stats
	c := *e
	c.Math = &m
	r.games[id] = &c
	return nil
}
