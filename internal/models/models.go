// Package models defines the core data structures for the interview coach.
//
// It includes the candidate profile, the analysis results exchanged between
// pipeline stages, the observer directive, and per-turn records. These types
// are shared across modules.
package models

import (
	"errors"
	"strings"
)

// InputType classifies a candidate message into one of a fixed closed set.
type InputType string

const (
	// InputTypeAnswer is a response to an interview question.
	InputTypeAnswer InputType = "ANSWER"
	// InputTypeCandidateQuestion is the candidate asking about the job, company or tasks.
	InputTypeCandidateQuestion InputType = "CANDIDATE_QUESTION"
	// InputTypeOffTopic is content unrelated to the interview.
	InputTypeOffTopic InputType = "OFF_TOPIC"
	// InputTypeStop is an interview termination request.
	InputTypeStop InputType = "STOP"
	// InputTypeGreeting is the candidate's very first introduction message.
	InputTypeGreeting InputType = "GREETING"
)

// IsValidInputType checks if the given input type is supported.
func IsValidInputType(it InputType) bool {
	switch it {
	case InputTypeAnswer, InputTypeCandidateQuestion, InputTypeOffTopic, InputTypeStop, InputTypeGreeting:
		return true
	default:
		return false
	}
}

// NextAction is the instruction the interviewer executes for a turn.
type NextAction string

const (
	// ActionAsk asks a new question.
	ActionAsk NextAction = "ASK"
	// ActionFollowUp asks a deeper follow-up on the same topic.
	ActionFollowUp NextAction = "FOLLOW_UP"
	// ActionGiveHint gives a hint without revealing the answer.
	ActionGiveHint NextAction = "GIVE_HINT"
	// ActionAnswerCandidate answers the candidate's own question briefly.
	ActionAnswerCandidate NextAction = "ANSWER_CANDIDATE"
	// ActionCorrectHallucination politely corrects a false claim.
	ActionCorrectHallucination NextAction = "CORRECT_HALLUCINATION"
	// ActionRedirectToInterview redirects an off-topic exchange back to the interview.
	ActionRedirectToInterview NextAction = "REDIRECT_TO_INTERVIEW"
	// ActionWrapUp thanks the candidate and ends the interview.
	ActionWrapUp NextAction = "WRAP_UP"
)

// IsValidNextAction checks if the given next action is supported.
func IsValidNextAction(na NextAction) bool {
	switch na {
	case ActionAsk, ActionFollowUp, ActionGiveHint, ActionAnswerCandidate,
		ActionCorrectHallucination, ActionRedirectToInterview, ActionWrapUp:
		return true
	default:
		return false
	}
}

// Difficulty bounds for the 1-5 interview difficulty scale.
const (
	DifficultyMin     = 1
	DifficultyMax     = 5
	DifficultyDefault = 2
)

// LastQuestionsLimit bounds the ring of recently asked question blueprints.
const LastQuestionsLimit = 5

// Error variables for better error handling and testability
var (
	ErrSessionFinished  = errors.New("session already finished")
	ErrEmptyMessage     = errors.New("message cannot be empty")
	ErrEmptyName        = errors.New("candidate name cannot be empty")
	ErrEmptyRole        = errors.New("candidate role cannot be empty")
	ErrInvalidGrade     = errors.New("grade target must be Junior, Middle or Senior")
	ErrSessionNotFound  = errors.New("session not found")
	ErrReportNotReady   = errors.New("final report not available until the session finishes")
	ErrInvalidDirective = errors.New("directive next_action is not in the allowed set")
)

// CandidateProfile is the immutable identity of the interview candidate.
// Created once at session start; never mutated.
type CandidateProfile struct {
	Name        string `json:"name"`
	Role        string `json:"role"`         // e.g. "Backend Developer", "ML Engineer"
	GradeTarget string `json:"grade_target"` // "Junior", "Middle", "Senior"
	Experience  string `json:"experience"`   // free-form background
}

// Validate performs validation on a CandidateProfile.
func (p *CandidateProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.Role) == "" {
		return ErrEmptyRole
	}
	switch p.GradeTarget {
	case "Junior", "Middle", "Senior":
		return nil
	default:
		return ErrInvalidGrade
	}
}

// SoftSignals holds three bounded [0,1] soft-skill scores for a single turn.
// Immutable once produced.
type SoftSignals struct {
	Clarity    float64 `json:"clarity"`
	Honesty    float64 `json:"honesty"`
	Engagement float64 `json:"engagement"`
}

// DefaultSoftSignals returns the neutral soft-skill scores used when no
// assessment is available.
func DefaultSoftSignals() SoftSignals {
	return SoftSignals{Clarity: 0.5, Honesty: 0.5, Engagement: 0.5}
}

// Clamp bounds all three scores to [0,1].
func (s *SoftSignals) Clamp() {
	s.Clarity = clampUnit(s.Clarity)
	s.Honesty = clampUnit(s.Honesty)
	s.Engagement = clampUnit(s.Engagement)
}

// InputClassification is the result of the input classifier stage.
// Produced once per message; consumed only by the grader/planner.
type InputClassification struct {
	InputType        InputType `json:"input_type"`
	DetectedEntities []string  `json:"detected_entities,omitempty"`
	Confidence       float64   `json:"confidence"`
	Reasoning        string    `json:"reasoning,omitempty"`
	// Fallback marks a deterministic fallback result produced after a
	// service or parse failure. The reason is recorded in Reasoning.
	Fallback bool `json:"fallback,omitempty"`
}

// HallucinationResult is the result of the hallucination guard stage.
type HallucinationResult struct {
	IsHallucination bool    `json:"is_hallucination"`
	DetectedClaim   string  `json:"detected_claim,omitempty"`
	Correction      string  `json:"correction,omitempty"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning,omitempty"`
	Fallback        bool    `json:"fallback,omitempty"`
}

// Directive is the single contract object passed from the analysis pipeline
// to response generation and back into orchestration. It is created once per
// message and treated as immutable after the difficulty adapter finalizes it.
type Directive struct {
	// Classification
	InputType        InputType `json:"input_type"`
	DetectedIssue    string    `json:"detected_issue,omitempty"`
	DetectedEntities []string  `json:"detected_entities,omitempty"`

	// Hallucination handling
	IsHallucination           bool   `json:"is_hallucination"`
	HallucinationCorrection   string `json:"hallucination_correction,omitempty"`
	CandidateQuestionToAnswer string `json:"candidate_question_to_answer,omitempty"`

	// Next action planning
	NextAction        NextAction `json:"next_action"`
	NextTopic         string     `json:"next_topic,omitempty"`
	DifficultyDelta   int        `json:"difficulty_delta"` // -1, 0, or +1
	QuestionBlueprint string     `json:"question_blueprint,omitempty"`

	// Context awareness
	DoNotAsk []string `json:"do_not_ask,omitempty"`

	// Scoring
	AnswerScore          float64  `json:"answer_score"`
	GapsFound            []string `json:"gaps_found,omitempty"`
	CorrectAnswerForGaps string   `json:"correct_answer_for_gaps,omitempty"`

	// Soft skills
	SoftSignals SoftSignals `json:"soft_signals"`

	// Logging
	InternalThoughts string `json:"internal_thoughts"`

	Fallback bool `json:"fallback,omitempty"`
}

// Validate checks the directive's closed-set and range invariants.
func (d *Directive) Validate() error {
	if !IsValidNextAction(d.NextAction) {
		return ErrInvalidDirective
	}
	return nil
}

// AppendThought appends a machine-readable audit note to the reasoning trace
// without discarding prior content.
func (d *Directive) AppendThought(note string) {
	if d.InternalThoughts == "" {
		d.InternalThoughts = note
		return
	}
	d.InternalThoughts += "\n" + note
}

// Turn is one logged exchange. Append-only: never mutated or removed.
type Turn struct {
	TurnID              int      `json:"turn_id"`
	AgentVisibleMessage string   `json:"agent_visible_message"`
	UserMessage         string   `json:"user_message"`
	InternalThoughts    string   `json:"internal_thoughts"`
	Topic               string   `json:"topic,omitempty"`
	Score               *float64 `json:"score,omitempty"`
}

// InterviewFlags tracks special events during the interview.
// All counters are monotonically non-decreasing.
type InterviewFlags struct {
	OffTopicCount       int `json:"off_topic_count"`
	HallucinationClaims int `json:"hallucination_claims"`
	Evasiveness         int `json:"evasiveness"`
	QuestionsAskedCount int `json:"questions_asked_count"`
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampScore bounds an answer score to [0,1].
func ClampScore(v float64) float64 { return clampUnit(v) }

// ClampDifficulty bounds a difficulty level to [DifficultyMin, DifficultyMax].
func ClampDifficulty(d int) int {
	if d < DifficultyMin {
		return DifficultyMin
	}
	if d > DifficultyMax {
		return DifficultyMax
	}
	return d
}
