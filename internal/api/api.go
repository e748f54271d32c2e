package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Riter/itmo-megaschool/internal/interview"
	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/sessionlog"
	"github.com/Riter/itmo-megaschool/internal/store"
)

// SessionFactory builds a fully wired interview session for a profile.
type SessionFactory func(profile models.CandidateProfile) (*interview.Session, error)

// sessionEntry pairs a session with its own lock: the orchestrator is not
// concurrency-safe, so message handling is serialized per session.
type sessionEntry struct {
	mu      sync.Mutex
	session *interview.Session
}

// Server exposes interview sessions over HTTP and archives finished ones.
type Server struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionEntry
	newSession SessionFactory
	archive    store.Store
	logDir     string
}

// NewServer creates the HTTP surface. logDir is where session artifacts are
// written on save.
func NewServer(factory SessionFactory, archive store.Store, logDir string) *Server {
	return &Server{
		sessions:   make(map[string]*sessionEntry),
		newSession: factory,
		archive:    archive,
		logDir:     logDir,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions", s.listSessionsHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("GET /sessions/{id}/report", s.reportHandler)
	mux.HandleFunc("POST /sessions/{id}/save", s.saveHandler)
	return mux
}

func (s *Server) entry(id string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	return entry, ok
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Role        string `json:"role"`
		GradeTarget string `json:"grade_target"`
		Experience  string `json:"experience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	profile := models.CandidateProfile{Name: req.Name, Role: req.Role, GradeTarget: req.GradeTarget, Experience: req.Experience}
	session, err := s.newSession(profile)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: session}
	s.mu.Unlock()

	slog.Info("Server.createSessionHandler: session created", "session_id", id, "candidate", profile.Name)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"session_id": id}))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}

	entry.mu.Lock()
	reply, err := entry.session.ProcessMessage(r.Context(), req.Message)
	finished := entry.session.IsFinished()
	report, _ := entry.session.FinalReport()
	entry.mu.Unlock()

	switch {
	case errors.Is(err, models.ErrSessionFinished):
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		return
	case errors.Is(err, models.ErrEmptyMessage):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	case err != nil:
		slog.Error("Server.messageHandler: turn failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to process message"))
		return
	}

	result := map[string]interface{}{"reply": reply, "finished": finished}
	if finished {
		result["final_feedback"] = report
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}

	entry.mu.Lock()
	state := entry.session.State()
	result := map[string]interface{}{
		"participant_name": state.Profile.Name,
		"role":             state.Profile.Role,
		"grade_target":     state.Profile.GradeTarget,
		"difficulty":       state.Difficulty,
		"turns":            len(state.Turns),
		"questions_asked":  state.Flags.QuestionsAskedCount,
		"phase":            string(entry.session.Phase()),
		"finished":         entry.session.IsFinished(),
	}
	entry.mu.Unlock()

	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entry(r.PathValue("id"))
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}

	entry.mu.Lock()
	report, ready := entry.session.FinalReport()
	entry.mu.Unlock()

	if !ready {
		writeJSONResponse(w, http.StatusConflict, models.Error(models.ErrReportNotReady.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"final_feedback": report}))
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, ok := s.entry(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}

	entry.mu.Lock()
	path, err := entry.session.Persist(s.logDir)
	state := entry.session.State()
	report, _ := entry.session.FinalReport()
	entry.mu.Unlock()

	if err != nil {
		slog.Error("Server.saveHandler: failed to persist session log", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to persist session log"))
		return
	}

	if s.archive != nil {
		artifact, marshalErr := json.Marshal(sessionlog.Artifact{
			ParticipantName: state.Profile.Name,
			Role:            state.Profile.Role,
			GradeTarget:     state.Profile.GradeTarget,
			Turns:           state.Turns,
			FinalFeedback:   report,
		})
		if marshalErr != nil {
			artifact = nil
		}
		rec := store.SessionRecord{
			ID:              id,
			ParticipantName: state.Profile.Name,
			Role:            state.Profile.Role,
			GradeTarget:     state.Profile.GradeTarget,
			Difficulty:      state.Difficulty,
			AverageScore:    state.AverageAnswerScore(),
			TurnCount:       len(state.Turns),
			FinalFeedback:   report,
			ArtifactJSON:    string(artifact),
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.archive.AddSessionRecord(rec); err != nil {
			slog.Error("Server.saveHandler: failed to archive session", "error", err, "session_id", id)
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"path": path}))
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSONResponse(w, http.StatusOK, models.Success([]store.SessionRecord{}))
		return
	}
	records, err := s.archive.GetSessionRecords()
	if err != nil {
		slog.Error("Server.listSessionsHandler: failed to list sessions", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list sessions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}
