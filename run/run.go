// Package run persists simulation runs and their reports.
package run

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("run: not found")

// Record is one simulation run. Report is set once the run is finalized.
type Record struct {
	ID         string      `json:"id"`
	GameID     string      `json:"game_id"`
	GameName   string      `json:"game_name"`
	Spins      int64       `json:"spins"`
	Workers    int         `json:"workers"`
	Seed       uint64      `json:"seed"`
	State      string      `json:"state"`
	Error      string      `json:"error,omitempty"`
	Report     *sim.Report `json:"report,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// NewID returns a fresh run id.
func NewID() string {
	return uuid.NewString()
}

// Filter narrows List. Zero values match everything; Limit 0 means no limit.
type Filter struct {
	GameID string
	Limit  int
}

// Store saves run records. Save replaces any record with the same ID.
// List returns newest first.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, f Filter) ([]*Record, error)
}
