// Package models defines session state structures for the interview coach.
package models

import (
	"fmt"
	"strings"
)

// TopicScore tracks the aggregate score and details for a single topic.
// Created lazily on first score for a topic; mutated additively, never
// replaced and never deleted.
type TopicScore struct {
	AskedCount     int      `json:"asked_count"`
	TotalScore     float64  `json:"total_score"`
	LastScore      float64  `json:"last_score"`
	Gaps           []string `json:"gaps,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	QuestionsAsked []string `json:"questions_asked,omitempty"`
}

// AverageScore returns TotalScore/AskedCount, or 0 when nothing was asked.
func (ts *TopicScore) AverageScore() float64 {
	if ts.AskedCount == 0 {
		return 0
	}
	return ts.TotalScore / float64(ts.AskedCount)
}

// SessionState is the complete state of an interview session. It is owned
// exclusively by the orchestrator; pipeline stages receive it as a read-only
// view and all mutations go through the methods below on the owning side.
type SessionState struct {
	Profile CandidateProfile `json:"profile"`

	// Conversation history
	Turns []Turn `json:"turns"`

	// Interview progress
	CurrentTopic string                 `json:"current_topic,omitempty"`
	Difficulty   int                    `json:"difficulty"`
	Topics       map[string]*TopicScore `json:"topics"`

	// Context tracking
	Facts         []string `json:"facts_about_candidate,omitempty"`
	LastQuestions []string `json:"last_questions,omitempty"` // bounded ring, most recent last

	// Flags and soft scores
	Flags      InterviewFlags `json:"flags"`
	SoftScores []SoftSignals  `json:"soft_scores,omitempty"`

	// State control
	Finished      bool   `json:"is_finished"`
	FinalFeedback string `json:"final_feedback,omitempty"`
}

// NewSessionState creates the session state for a candidate profile with
// default difficulty.
func NewSessionState(profile CandidateProfile) *SessionState {
	return &SessionState{
		Profile:    profile,
		Difficulty: DifficultyDefault,
		Topics:     make(map[string]*TopicScore),
	}
}

// RecentScores returns up to the last n recorded answer scores, oldest first.
func (s *SessionState) RecentScores(n int) []float64 {
	var scores []float64
	for i := len(s.Turns) - 1; i >= 0 && len(scores) < n; i-- {
		if s.Turns[i].Score != nil {
			scores = append(scores, *s.Turns[i].Score)
		}
	}
	// Collected newest-first; reverse to oldest-first.
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}
	return scores
}

// AddFact records a fact about the candidate if not already known.
func (s *SessionState) AddFact(fact string) {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return
	}
	for _, f := range s.Facts {
		if strings.EqualFold(f, fact) {
			return
		}
	}
	s.Facts = append(s.Facts, fact)
}

// RememberQuestion appends a question blueprint to the last-asked ring,
// keeping at most LastQuestionsLimit entries, most recent last.
func (s *SessionState) RememberQuestion(blueprint string) {
	if blueprint == "" {
		return
	}
	s.LastQuestions = append(s.LastQuestions, blueprint)
	if len(s.LastQuestions) > LastQuestionsLimit {
		s.LastQuestions = s.LastQuestions[len(s.LastQuestions)-LastQuestionsLimit:]
	}
}

// UpdateTopicScore applies one answer's result to a topic aggregate.
func (s *SessionState) UpdateTopicScore(topic string, score float64, gaps []string, correctAnswer, question string) {
	if s.Topics == nil {
		s.Topics = make(map[string]*TopicScore)
	}
	ts, ok := s.Topics[topic]
	if !ok {
		ts = &TopicScore{}
		s.Topics[topic] = ts
	}
	ts.AskedCount++
	ts.TotalScore += score
	ts.LastScore = score
	if len(gaps) > 0 {
		ts.Gaps = append(ts.Gaps, gaps...)
	}
	if correctAnswer != "" {
		ts.CorrectAnswers = append(ts.CorrectAnswers, correctAnswer)
	}
	if question != "" {
		ts.QuestionsAsked = append(ts.QuestionsAsked, question)
	}
}

// ApplyDifficultyDelta shifts the difficulty and clamps it to the valid range.
func (s *SessionState) ApplyDifficultyDelta(delta int) {
	s.Difficulty = ClampDifficulty(s.Difficulty + delta)
}

// ContextSummary builds a compact interview context block for LLM prompts.
func (s *SessionState) ContextSummary() string {
	parts := []string{
		fmt.Sprintf("Candidate: %s", s.Profile.Name),
		fmt.Sprintf("Position: %s (%s)", s.Profile.Role, s.Profile.GradeTarget),
		fmt.Sprintf("Experience: %s", s.Profile.Experience),
		fmt.Sprintf("Current difficulty: %d/5", s.Difficulty),
		fmt.Sprintf("Questions asked: %d", s.Flags.QuestionsAskedCount),
	}
	if len(s.Facts) > 0 {
		limit := len(s.Facts)
		if limit > 5 {
			limit = 5
		}
		parts = append(parts, fmt.Sprintf("Known facts: %s", strings.Join(s.Facts[:limit], ", ")))
	}
	if len(s.LastQuestions) > 0 {
		parts = append(parts, fmt.Sprintf("Recent questions: %s", strings.Join(s.LastQuestions, "; ")))
	}
	if len(s.Topics) > 0 {
		var topicSummary []string
		for topic, ts := range s.Topics {
			topicSummary = append(topicSummary, fmt.Sprintf("%s: %.1f (%d q)", topic, ts.AverageScore(), ts.AskedCount))
		}
		parts = append(parts, fmt.Sprintf("Topics: %s", strings.Join(topicSummary, ", ")))
	}
	return strings.Join(parts, "\n")
}

// ConversationHistory renders the last n turns as an interviewer/candidate
// transcript for LLM prompts.
func (s *SessionState) ConversationHistory(lastN int) string {
	if len(s.Turns) == 0 {
		return "No conversation yet."
	}
	start := len(s.Turns) - lastN
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, turn := range s.Turns[start:] {
		fmt.Fprintf(&b, "Interviewer: %s\n", turn.AgentVisibleMessage)
		fmt.Fprintf(&b, "Candidate: %s\n", turn.UserMessage)
	}
	return strings.TrimRight(b.String(), "\n")
}

// AverageSoftSignals computes the session-level soft-skill averages,
// falling back to the neutral defaults when no turns were scored.
func (s *SessionState) AverageSoftSignals() SoftSignals {
	if len(s.SoftScores) == 0 {
		return DefaultSoftSignals()
	}
	var sum SoftSignals
	for _, sc := range s.SoftScores {
		sum.Clarity += sc.Clarity
		sum.Honesty += sc.Honesty
		sum.Engagement += sc.Engagement
	}
	n := float64(len(s.SoftScores))
	return SoftSignals{Clarity: sum.Clarity / n, Honesty: sum.Honesty / n, Engagement: sum.Engagement / n}
}

// AverageAnswerScore computes the mean of all recorded answer scores, or 0.
func (s *SessionState) AverageAnswerScore() float64 {
	var sum float64
	var count int
	for _, t := range s.Turns {
		if t.Score != nil {
			sum += *t.Score
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
