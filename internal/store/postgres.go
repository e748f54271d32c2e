// Package store provides the session archive.
//
// This file implements the PostgreSQL-backed archive.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/Riter/itmo-megaschool/internal/models"
	_ "github.com/lib/pq"
)

// Connection pool configuration.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed archive from the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore: failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore: ready")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddSessionRecord(rec SessionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO interview_sessions
		 (id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   final_feedback = EXCLUDED.final_feedback,
		   artifact_json = EXCLUDED.artifact_json,
		   turn_count = EXCLUDED.turn_count,
		   average_score = EXCLUDED.average_score,
		   difficulty = EXCLUDED.difficulty`,
		rec.ID, rec.ParticipantName, rec.Role, rec.GradeTarget, rec.Difficulty,
		rec.AverageScore, rec.TurnCount, rec.FinalFeedback, rec.ArtifactJSON, rec.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore.AddSessionRecord failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert session record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSessionRecords() ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at
		 FROM interview_sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore.GetSessionRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query session records: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			slog.Error("PostgresStore.GetSessionRecords scan failed", "error", err)
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) GetSessionRecord(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, participant_name, role, grade_target, difficulty, average_score, turn_count, final_feedback, artifact_json, created_at
		 FROM interview_sessions WHERE id = $1`, id)
	rec, err := scanSessionRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
