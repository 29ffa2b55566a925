package save

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/research"
)

//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// SQLiteStore is a Store backed by a SQLite database file. The research
// state is stored as a JSON blob.
type SQLiteStore struct {
	db   *sql.DB
	opts Options

	// mu serializes Create so the save limit holds.
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at path, creating parent
// directories as needed.
func OpenSQLite(path string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps per-connection pragmas in effect and
	// serializes writers.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, opts: opts}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, name string) (*Save, error) {
	sv, err := newSave(name, s.opts.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves`).Scan(&n); err != nil {
		return nil, fmt.Errorf("count saves: %w", err)
	}
	if n >= MaxSaves {
		return nil, errLimit()
	}

	blob, err := json.Marshal(sv.Research)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (id, name, research, version, created_at, updated_at, last_played_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.Name, blob, sv.Meta.Version,
		sv.Meta.CreatedAt.UnixMilli(), sv.Meta.UpdatedAt.UnixMilli(), sv.Meta.LastPlayedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sv, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Save, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	sv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	seeded := s.opts.seed(sv)
	now := s.opts.now()
	sv.Meta.LastPlayedAt = now
	if seeded {
		sv.Meta.UpdatedAt = now
	}
	if err := s.write(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Save, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, research, version, created_at, updated_at, last_played_at
		 FROM saves ORDER BY last_played_at DESC, created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()

	var saves []Save
	for rows.Next() {
		sv, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		saves = append(saves, *sv)
	}
	return saves, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNotFound(id)
	}
	return nil
}

func (s *SQLiteStore) UpdateResearch(ctx context.Context, id string, state research.State) (*Save, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	sv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	sv.Research = state.Clone()
	sv.Meta.UpdatedAt = s.opts.now()
	if err := s.write(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *SQLiteStore) get(ctx context.Context, id string) (*Save, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, research, version, created_at, updated_at, last_played_at
		 FROM saves WHERE id = ?`, id)
	sv, err := scanSave(row)
	if err == sql.ErrNoRows {
		return nil, errNotFound(id)
	}
	return sv, err
}

func (s *SQLiteStore) write(ctx context.Context, sv *Save) error {
	blob, err := json.Marshal(sv.Research)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE saves SET name = ?, research = ?, updated_at = ?, last_played_at = ? WHERE id = ?`,
		sv.Name, blob, sv.Meta.UpdatedAt.UnixMilli(), sv.Meta.LastPlayedAt.UnixMilli(), sv.ID)
	if err != nil {
		return fmt.Errorf("update save: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSave(row scanner) (*Save, error) {
	var (
		sv                         Save
		blob                       []byte
		created, updated, lastPlay int64
	)
	if err := row.Scan(&sv.ID, &sv.Name, &blob, &sv.Meta.Version, &created, &updated, &lastPlay); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan save: %w", err)
	}
	if err := json.Unmarshal(blob, &sv.Research); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode research state of %s", sv.ID)
	}
	sv.Meta.CreatedAt = time.UnixMilli(created).UTC()
	sv.Meta.UpdatedAt = time.UnixMilli(updated).UTC()
	sv.Meta.LastPlayedAt = time.UnixMilli(lastPlay).UTC()
	return &sv, nil
}
