package run

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps run records in data/runs.json.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	if dataDir == "" {
		dataDir = "data"
	}
	return &FileStore{dataDir: dataDir}
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dataDir, "runs.json")
}

// readLocked returns the stored records; a missing file is an empty list.
func (fs *FileStore) readLocked() ([]*Record, error) {
	data, err := os.ReadFile(fs.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []*Record
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (fs *FileStore) Save(_ context.Context, rec *Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list, err := fs.readLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i, r := range list {
		if r.ID == rec.ID {
			list[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, rec)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(fs.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(fs.path(), data, 0644)
}

func (fs *FileStore) Get(_ context.Context, id string) (*Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list, err := fs.readLocked()
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (fs *FileStore) List(_ context.Context, f Filter) ([]*Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list, err := fs.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(list))
	for _, r := range list {
		if f.GameID == "" || r.GameID == f.GameID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
