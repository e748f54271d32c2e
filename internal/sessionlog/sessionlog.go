// Package sessionlog accumulates the per-turn interview trace and persists
// it as a JSON artifact once the session ends.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/Riter/itmo-megaschool/internal/models"
)

// logFileRe matches previously written artifacts so Save can pick the next
// free index.
var logFileRe = regexp.MustCompile(`^interview_log_(\d+)\.json$`)

// Artifact is the persisted session log. participant_name, turns and
// final_feedback form the stable core of the format; the metadata fields
// are informational.
type Artifact struct {
	ParticipantName string        `json:"participant_name"`
	Role            string        `json:"role,omitempty"`
	GradeTarget     string        `json:"grade_target,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	Turns           []models.Turn `json:"turns"`
	FinalFeedback   string        `json:"final_feedback"`
}

// Logger records one interview session turn by turn. Not safe for concurrent
// use; each session owns its logger.
type Logger struct {
	profile       models.CandidateProfile
	startedAt     time.Time
	finishedAt    *time.Time
	turns         []models.Turn
	finalFeedback string
}

// New creates a logger for one candidate.
func New(profile models.CandidateProfile) *Logger {
	return &Logger{profile: profile, startedAt: time.Now().UTC()}
}

// LogTurn appends one exchange to the trace. Turn ids are assigned
// sequentially starting from 1.
func (l *Logger) LogTurn(agentVisibleMessage, userMessage, internalThoughts, topic string, score *float64) models.Turn {
	turn := models.Turn{
		TurnID:              len(l.turns) + 1,
		AgentVisibleMessage: agentVisibleMessage,
		UserMessage:         userMessage,
		InternalThoughts:    internalThoughts,
		Topic:               topic,
		Score:               score,
	}
	l.turns = append(l.turns, turn)
	return turn
}

// SetFinalFeedback records the wrap-up report and stamps the finish time.
func (l *Logger) SetFinalFeedback(feedback string) {
	l.finalFeedback = feedback
	now := time.Now().UTC()
	l.finishedAt = &now
}

// TurnCount returns the number of logged turns.
func (l *Logger) TurnCount() int { return len(l.turns) }

// Artifact builds the serializable snapshot of the session.
func (l *Logger) Artifact() Artifact {
	turns := make([]models.Turn, len(l.turns))
	copy(turns, l.turns)
	return Artifact{
		ParticipantName: l.profile.Name,
		Role:            l.profile.Role,
		GradeTarget:     l.profile.GradeTarget,
		StartedAt:       l.startedAt,
		FinishedAt:      l.finishedAt,
		Turns:           turns,
		FinalFeedback:   l.finalFeedback,
	}
}

// Save writes the artifact into dir as interview_log_N.json, where N is one
// above the highest existing index. The directory is created when missing.
// It returns the full path of the written file.
func (l *Logger) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("interview_log_%d.json", nextIndex(dir)))

	data, err := json.MarshalIndent(l.Artifact(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode session log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write session log: %w", err)
	}
	slog.Info("Logger.Save: session log written", "path", path, "turns", len(l.turns))
	return path, nil
}

// nextIndex scans dir for existing artifacts and returns max index + 1,
// starting at 1 for an empty directory.
func nextIndex(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	max := 0
	for _, e := range entries {
		m := logFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
