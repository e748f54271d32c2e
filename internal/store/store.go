// Package store provides the session archive: finished interviews are
// recorded so results survive process restarts and can be listed later.
//
// Backends: in-memory (default), SQLite and PostgreSQL, selected by DSN.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Riter/itmo-megaschool/internal/models"
)

// SessionRecord is one archived interview.
type SessionRecord struct {
	ID              string    `json:"id"`
	ParticipantName string    `json:"participant_name"`
	Role            string    `json:"role"`
	GradeTarget     string    `json:"grade_target"`
	Difficulty      int       `json:"difficulty"`
	AverageScore    float64   `json:"average_score"`
	TurnCount       int       `json:"turn_count"`
	FinalFeedback   string    `json:"final_feedback"`
	ArtifactJSON    string    `json:"artifact_json,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the session archive contract shared by all backends.
type Store interface {
	AddSessionRecord(rec SessionRecord) error
	GetSessionRecords() ([]SessionRecord, error)
	GetSessionRecord(id string) (*SessionRecord, error)
	Close() error
}

// Opts holds configuration for persistent store backends.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the database DSN.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// for everything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is the default archive backend. Safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]SessionRecord
}

// NewInMemoryStore creates an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]SessionRecord)}
}

func (s *InMemoryStore) AddSessionRecord(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) GetSessionRecords() ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (s *InMemoryStore) GetSessionRecord(id string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return &rec, nil
}

func (s *InMemoryStore) Close() error { return nil }
