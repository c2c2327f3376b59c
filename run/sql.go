package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/sim"
)

const (
	table      = "simulation_runs"
	colID      = "id"
	colGame    = "game_id"
	colName    = "game_name"
	colSpins   = "spins"
	colWorkers = "workers"
	colSeed    = "seed"
	colState   = "state"
	colError   = "error"
	colRTP     = "rtp"
	colHitFreq = "hit_frequency"
	colReport  = "report_json"
	colCreated = "created_at"
	colDone    = "finished_at"
)

var columns = []string{colID, colGame, colName, colSpins, colWorkers, colSeed, colState, colError, colRTP, colHitFreq, colReport, colCreated, colDone}

// SQLStore keeps run records in the simulation_runs table. It works on
// Postgres and SQLite; sb carries the placeholder style.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewSQLStore(db *sql.DB, sb sq.StatementBuilderType) *SQLStore {
	return &SQLStore{db: db, sb: sb}
}

// Migrate creates the runs table and its indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			game_name TEXT NOT NULL DEFAULT '',
			spins BIGINT NOT NULL,
			workers INTEGER NOT NULL,
			seed TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			rtp DOUBLE PRECISION,
			hit_frequency DOUBLE PRECISION,
			report_json TEXT,
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_game ON simulation_runs(game_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_runs_created ON simulation_runs(created_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migrate runs: %w", err)
		}
	}
	return nil
}

// Save upserts rec.
func (s *SQLStore) Save(ctx context.Context, rec *Record) error {
	var (
		report  sql.NullString
		rtp     sql.NullFloat64
		hitFreq sql.NullFloat64
		done    sql.NullTime
	)
	if rec.Report != nil {
		data, err := json.Marshal(rec.Report)
		if err != nil {
			return err
		}
		report = sql.NullString{String: string(data), Valid: true}
		rtp = sql.NullFloat64{Float64: rec.Report.RTP, Valid: true}
		hitFreq = sql.NullFloat64{Float64: rec.Report.HitFrequency, Valid: true}
	}
	if rec.FinishedAt != nil {
		done = sql.NullTime{Time: rec.FinishedAt.UTC(), Valid: true}
	}
	query := s.sb.Insert(table).
		Columns(columns...).
		Values(rec.ID, rec.GameID, rec.GameName, rec.Spins, rec.Workers,
			strconv.FormatUint(rec.Seed, 10), rec.State, rec.Error,
			rtp, hitFreq, report, rec.CreatedAt.UTC(), done).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			rtp = excluded.rtp,
			hit_frequency = excluded.hit_frequency,
			report_json = excluded.report_json,
			finished_at = excluded.finished_at`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	sqlStr, args, err := s.sb.Select(columns...).
		From(table).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLStore) List(ctx context.Context, f Filter) ([]*Record, error) {
	query := s.sb.Select(columns...).
		From(table).
		OrderBy(colCreated + " DESC")
	if f.GameID != "" {
		query = query.Where(sq.Eq{colGame: f.GameID})
	}
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec     Record
		seed    string
		rtp     sql.NullFloat64
		hitFreq sql.NullFloat64
		report  sql.NullString
		created time.Time
		done    sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.GameID, &rec.GameName, &rec.Spins, &rec.Workers,
		&seed, &rec.State, &rec.Error, &rtp, &hitFreq, &report, &created, &done); err != nil {
		return nil, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(seed), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad seed %q", rec.ID, seed)
	}
	rec.Seed = v
	rec.CreatedAt = created.UTC()
	if done.Valid {
		t := done.Time.UTC()
		rec.FinishedAt = &t
	}
	if report.Valid && report.String != "" {
		var r sim.Report
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return nil, fmt.Errorf("run %s: %w", rec.ID, err)
		}
		rec.Report = &r
	}
	return &rec, nil
}
