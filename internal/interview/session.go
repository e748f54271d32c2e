package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/sessionlog"
)

// Phase is the orchestrator's observable position in the turn loop.
type Phase string

const (
	PhaseAwaitingInput Phase = "AWAITING_INPUT"
	PhaseAnalyzing     Phase = "ANALYZING"
	PhaseResponding    Phase = "RESPONDING"
	PhaseReporting     Phase = "REPORTING"
	PhaseDone          Phase = "DONE"
)

// evasiveScoreCeiling marks an answer as evasive for the flags counter.
const evasiveScoreCeiling = 0.2

// Analyzer produces the directive for one candidate message.
type Analyzer interface {
	Analyze(ctx context.Context, state *models.SessionState, message string) models.Directive
}

// Responder generates the visible reply for a finalized directive.
type Responder interface {
	Respond(ctx context.Context, state *models.SessionState, d models.Directive) string
}

// Reporter produces the final feedback for a finished session.
type Reporter interface {
	Report(ctx context.Context, state *models.SessionState) string
}

// Session is the turn orchestrator for one interview. It owns the session
// state exclusively; pipeline stages receive it read-only. Not safe for
// concurrent use; callers serialize access per session.
type Session struct {
	state       *models.SessionState
	analyzer    Analyzer
	interviewer Responder
	manager     Reporter
	logger      *sessionlog.Logger
	phase       Phase
}

// NewSession validates the profile and creates a fresh session in
// AWAITING_INPUT.
func NewSession(profile models.CandidateProfile, analyzer Analyzer, interviewer Responder, manager Reporter) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candidate profile: %w", err)
	}
	return &Session{
		state:       models.NewSessionState(profile),
		analyzer:    analyzer,
		interviewer: interviewer,
		manager:     manager,
		logger:      sessionlog.New(profile),
		phase:       PhaseAwaitingInput,
	}, nil
}

// ProcessMessage runs one full turn: analyze, respond, mutate, log, and on
// WRAP_UP generate the final report and terminate. Side effects follow a
// strict order: state mutation happens only after the visible response
// exists, logging only after the mutation.
func (s *Session) ProcessMessage(ctx context.Context, message string) (string, error) {
	if s.phase == PhaseDone {
		return "", models.ErrSessionFinished
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", models.ErrEmptyMessage
	}

	s.phase = PhaseAnalyzing
	directive := s.analyzer.Analyze(ctx, s.state, message)
	if err := directive.Validate(); err != nil {
		// The pipeline guarantees a valid action; treat a violation as a
		// plain ASK rather than losing the turn.
		slog.Error("Session.ProcessMessage: invalid directive from pipeline", "next_action", directive.NextAction, "error", err)
		directive.NextAction = models.ActionAsk
	}

	s.phase = PhaseResponding
	reply := s.interviewer.Respond(ctx, s.state, directive)

	s.applyDirective(directive)
	s.logTurn(reply, message, directive)

	if directive.NextAction == models.ActionWrapUp {
		s.phase = PhaseReporting
		report := s.manager.Report(ctx, s.state)
		s.state.FinalFeedback = report
		s.state.Finished = true
		s.logger.SetFinalFeedback(report)
		s.phase = PhaseDone
		slog.Info("Session.ProcessMessage: session finished", "candidate", s.state.Profile.Name, "turns", s.logger.TurnCount())
	} else {
		s.phase = PhaseAwaitingInput
	}
	return reply, nil
}

// applyDirective is the single place session state mutates during a turn.
func (s *Session) applyDirective(d models.Directive) {
	for _, entity := range d.DetectedEntities {
		s.state.AddFact("упоминал: " + entity)
	}

	switch d.InputType {
	case models.InputTypeAnswer:
		topic := d.NextTopic
		if s.state.CurrentTopic != "" {
			topic = s.state.CurrentTopic
		}
		s.state.UpdateTopicScore(topic, d.AnswerScore, d.GapsFound, d.CorrectAnswerForGaps, lastQuestion(s.state))
		s.state.SoftScores = append(s.state.SoftScores, d.SoftSignals)
		if d.AnswerScore <= evasiveScoreCeiling {
			s.state.Flags.Evasiveness++
		}
	case models.InputTypeOffTopic:
		s.state.Flags.OffTopicCount++
	}
	if d.IsHallucination {
		s.state.Flags.HallucinationClaims++
	}

	if d.DifficultyDelta != 0 {
		s.state.ApplyDifficultyDelta(d.DifficultyDelta)
	}
	if d.NextTopic != "" {
		s.state.CurrentTopic = d.NextTopic
	}
	switch d.NextAction {
	case models.ActionAsk, models.ActionFollowUp:
		s.state.Flags.QuestionsAskedCount++
		s.state.RememberQuestion(d.QuestionBlueprint)
	}
}

// logTurn appends the exchange to the artifact trace and the in-state
// history.
func (s *Session) logTurn(reply, message string, d models.Directive) {
	var score *float64
	if d.InputType == models.InputTypeAnswer {
		v := d.AnswerScore
		score = &v
	}
	turn := s.logger.LogTurn(reply, message, d.InternalThoughts, s.state.CurrentTopic, score)
	s.state.Turns = append(s.state.Turns, turn)
}

// lastQuestion returns the most recently asked question blueprint, which is
// what the current answer responds to.
func lastQuestion(state *models.SessionState) string {
	if len(state.LastQuestions) == 0 {
		return ""
	}
	return state.LastQuestions[len(state.LastQuestions)-1]
}

// IsFinished reports whether the session reached DONE.
func (s *Session) IsFinished() bool { return s.phase == PhaseDone }

// Phase returns the current orchestration phase.
func (s *Session) Phase() Phase { return s.phase }

// FinalReport returns the final feedback once the session has finished.
func (s *Session) FinalReport() (string, bool) {
	if !s.state.Finished {
		return "", false
	}
	return s.state.FinalFeedback, true
}

// State exposes the session state for read-only inspection.
func (s *Session) State() *models.SessionState { return s.state }

// Persist writes the session log artifact into dir and returns the path.
func (s *Session) Persist(dir string) (string, error) {
	return s.logger.Save(dir)
}
