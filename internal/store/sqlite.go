// Package store provides the session archive.
//
// This file implements the SQLite-backed archive.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/Riter/itmo-megaschool/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the permissions for created database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates an SQLite-backed archive. The DSN is a file path;
// missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore: ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddSessionRecord(rec SessionRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO interview_sessions
		 (id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ParticipantName, rec.Role, rec.GradeTarget, rec.Difficulty,
		rec.AverageScore, rec.TurnCount, rec.FinalFeedback, rec.ArtifactJSON, rec.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.AddSessionRecord failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert session record %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore.AddSessionRecord succeeded", "id", rec.ID)
	return nil
}

func (s *SQLiteStore) GetSessionRecords() ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at
		 FROM interview_sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore.GetSessionRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query session records: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			slog.Error("SQLiteStore.GetSessionRecords scan failed", "error", err)
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session records: %w", err)
	}
	slog.Debug("SQLiteStore.GetSessionRecords succeeded", "count", len(records))
	return records, nil
}

func (s *SQLiteStore) GetSessionRecord(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at
		 FROM interview_sessions WHERE id = ?`, id)
	rec, err := scanSessionRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
