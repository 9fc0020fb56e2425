package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"teleasistencia-backend/internal/types"
)

// SQLiteStore implements Store on a local SQLite file. It is the default
// backend for single-node deployments where running DynamoDB is overkill.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Op: "open sqlite", Err: err}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			generated_at DATETIME NOT NULL,
			snapshot TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			beneficiary TEXT NOT NULL,
			operator TEXT NOT NULL,
			commune TEXT,
			phones TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &StorageError{Op: "create schema", Err: err}
		}
	}

	logger.Info().Str("path", path).Msg("SQLite store initialized")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveReport(ctx context.Context, snapshot *types.ReportSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return &StorageError{Op: "save report", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, generated_at, snapshot) VALUES (?, ?, ?)`,
		snapshot.RunID, snapshot.GeneratedAt.UTC(), string(payload))
	if err != nil {
		return &StorageError{Op: "save report", Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetLatestReport(ctx context.Context) (*types.ReportSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM reports ORDER BY generated_at DESC, id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get latest report", Err: err}
	}

	var snapshot types.ReportSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, &StorageError{Op: "get latest report", Err: err}
	}
	return &snapshot, nil
}

func (s *SQLiteStore) SaveAssignments(ctx context.Context, assignments []types.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "save assignments", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO assignments (id, beneficiary, operator, commune, phones, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &StorageError{Op: "save assignments", Err: err}
	}
	defer stmt.Close()

	for _, a := range assignments {
		phones, err := json.Marshal(a.Phones)
		if err != nil {
			return &StorageError{Op: "save assignments", Err: err}
		}
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.Beneficiary, a.Operator, a.Commune, string(phones), createdAt.UTC()); err != nil {
			return &StorageError{Op: "save assignments", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "save assignments", Err: err}
	}
	return nil
}

func (s *SQLiteStore) ListAssignments(ctx context.Context) ([]types.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, beneficiary, operator, commune, phones, created_at FROM assignments ORDER BY created_at`)
	if err != nil {
		return nil, &StorageError{Op: "list assignments", Err: err}
	}
	defer rows.Close()

	var assignments []types.Assignment
	for rows.Next() {
		var a types.Assignment
		var commune sql.NullString
		var phones string
		if err := rows.Scan(&a.ID, &a.Beneficiary, &a.Operator, &commune, &phones, &a.CreatedAt); err != nil {
			return nil, &StorageError{Op: "list assignments", Err: err}
		}
		a.Commune = commune.String
		if err := json.Unmarshal([]byte(phones), &a.Phones); err != nil {
			return nil, &StorageError{Op: "list assignments", Err: err}
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list assignments", Err: err}
	}
	return assignments, nil
}

func (s *SQLiteStore) TruncateAll(ctx context.Context) error {
	for _, table := range []string{"reports", "assignments"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return &StorageError{Op: "truncate " + table, Err: err}
		}
	}
	s.logger.Info().Msg("all tables truncated")
	return nil
}
