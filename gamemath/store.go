package gamemath

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var ErrUnknownModel = errors.New("gamemath: unknown model_id")

// Store persists game definitions by model_id in data/game_math.json.
type Store struct {
	mu      sync.RWMutex
	math    map[string]*GameMath
	dataDir string
}

func NewStore(dataDir string) *Store {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Store{
		math:    make(map[string]*GameMath),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, "game_math.json")
}

type storedEntry struct {
	ModelID string    `json:"model_id"`
	Math    *GameMath `json:"math"`
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []storedEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, e := range list {
		if e.ModelID != "" && e.Math != nil {
			s.math[e.ModelID] = e.Math
		}
	}
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *Store) saveLocked() error {
	list := make([]storedEntry, 0, len(s.math))
	for _, id := range s.idsLocked() {
		list = append(list, storedEntry{ModelID: id, Math: s.math[id]})
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.math))
	for id := range s.math {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register stores a definition by its model_id, overwriting any previous
// one, and stamps its content hash.
func (s *Store) Register(math *GameMath) error {
	if math == nil || math.ModelID == "" {
		return errors.New("gamemath: model_id required")
	}
	hash, err := math.ContentHash()
	if err != nil {
		return err
	}
	math.Integrity = &Integrity{ContentHash: hash}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.math[math.ModelID] = math
	return s.saveLocked()
}

// Get returns the definition for modelID, or nil.
func (s *Store) Get(modelID string) *GameMath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.math[modelID]
	if !ok {
		return nil
	}
	return m
}

// List returns all stored definitions ordered by model_id.
func (s *Store) List() []*GameMath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*GameMath, 0, len(s.math))
	for _, id := range s.idsLocked() {
		out = append(out, s.math[id])
	}
	return out
}

// UpdateStats records the result of a finalized simulation on a stored
// definition.
func (s *Store) UpdateStats(modelID string, stats GameStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.math[modelID]
	if !ok {
		return ErrUnknownModel
	}
	c := *m
	c.Stats = &stats
	s.math[modelID] = &c
	return s.saveLocked()
}
