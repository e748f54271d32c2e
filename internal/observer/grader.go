package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/topics"
)

// Score thresholds used by the planner and the difficulty adapter.
const (
	// GoodScoreThreshold is the bar below which gaps and a correct answer
	// become mandatory parts of the directive.
	GoodScoreThreshold = 0.7
	// HighScoreThreshold feeds the difficulty increase rule.
	HighScoreThreshold = 0.8
	// LowScoreThreshold feeds the difficulty decrease rule.
	LowScoreThreshold = 0.4
	// HintScoreThreshold converts a planned ASK into GIVE_HINT.
	HintScoreThreshold = 0.3
)

// GraderPlanner is the joining stage: it scores the answer, evaluates soft
// skills and plans the next action, merging the classifier and guard results
// into one directive.
type GraderPlanner struct {
	client genai.ClientInterface
	model  string
}

// NewGraderPlanner creates the scoring and planning stage.
func NewGraderPlanner(client genai.ClientInterface, model string) *GraderPlanner {
	return &GraderPlanner{client: client, model: model}
}

// Plan produces the directive for one turn. The LLM proposes, but the
// deterministic priority table always decides the final next_action, so a
// misbehaving model cannot break the turn invariants.
func (p *GraderPlanner) Plan(ctx context.Context, state *models.SessionState, message string, cls models.InputClassification, hal models.HallucinationResult) models.Directive {
	raw, err := p.client.GenerateWithModel(ctx, graderSystemPrompt, p.buildContext(state, message, cls, hal), p.model, true)
	if err != nil {
		slog.Warn("GraderPlanner.Plan: generation failed, using fallback", "error", err)
		return p.fallbackDirective(state, message, cls, hal, fmt.Sprintf("planning error: %v", err))
	}
	directive, err := parseDirective(raw)
	if err != nil {
		slog.Warn("GraderPlanner.Plan: parse failed, using fallback", "error", err)
		return p.fallbackDirective(state, message, cls, hal, fmt.Sprintf("planning parse error: %v", err))
	}
	return p.finalize(state, message, directive, cls, hal)
}

func (p *GraderPlanner) buildContext(state *models.SessionState, message string, cls models.InputClassification, hal models.HallucinationResult) string {
	var b strings.Builder

	b.WriteString("## Classification result:\n")
	fmt.Fprintf(&b, "- input_type: %s\n", cls.InputType)
	fmt.Fprintf(&b, "- detected_entities: %s\n", strings.Join(cls.DetectedEntities, ", "))
	fmt.Fprintf(&b, "- confidence: %.2f\n\n", cls.Confidence)

	b.WriteString("## Hallucination check:\n")
	fmt.Fprintf(&b, "- is_hallucination: %t\n", hal.IsHallucination)
	if hal.IsHallucination {
		fmt.Fprintf(&b, "- detected_claim: %s\n", hal.DetectedClaim)
		fmt.Fprintf(&b, "- correction: %s\n", hal.Correction)
	}
	b.WriteString("\n## Interview context:\n")
	b.WriteString(state.ContextSummary())
	b.WriteString("\n\n## Conversation history:\n")
	b.WriteString(state.ConversationHistory(6))

	b.WriteString("\n\n## Question bank suggestions:\n")
	suggested := p.suggestTopic(state)
	fmt.Fprintf(&b, "- suggested_next_topic: %s (%s)\n", suggested, topics.Describe(suggested))
	if examples := topics.ForTopic(suggested, state.Difficulty); len(examples) > 0 {
		limit := len(examples)
		if limit > 3 {
			limit = 3
		}
		fmt.Fprintf(&b, "- example_questions: %s\n", strings.Join(examples[:limit], " | "))
	}
	if len(state.LastQuestions) > 0 {
		fmt.Fprintf(&b, "- do_not_ask (already asked): %s\n", strings.Join(state.LastQuestions, " | "))
	}

	b.WriteString("\n## Candidate message:\n")
	b.WriteString(message)
	return b.String()
}

// suggestTopic picks the next uncovered topic for the candidate's role and
// grade, falling back to the current topic once everything was touched.
func (p *GraderPlanner) suggestTopic(state *models.SessionState) string {
	covered := make(map[string]bool, len(state.Topics))
	for topic := range state.Topics {
		covered[topic] = true
	}
	if next := topics.NextUncovered(state.Profile.Role, state.Profile.GradeTarget, covered); next != "" {
		return next
	}
	if state.CurrentTopic != "" {
		return state.CurrentTopic
	}
	return topics.NextUncovered(state.Profile.Role, state.Profile.GradeTarget, nil)
}

func parseDirective(raw string) (models.Directive, error) {
	var payload struct {
		NextAction           string              `json:"next_action"`
		NextTopic            string              `json:"next_topic"`
		QuestionBlueprint    json.RawMessage     `json:"question_blueprint"`
		AnswerScore          float64             `json:"answer_score"`
		GapsFound            []string            `json:"gaps_found"`
		CorrectAnswerForGaps string              `json:"correct_answer_for_gaps"`
		DoNotAsk             []string            `json:"do_not_ask"`
		SoftSignals          *models.SoftSignals `json:"soft_signals"`
		DifficultyDelta      int                 `json:"difficulty_delta"`
		InternalThoughts     string              `json:"internal_thoughts"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return models.Directive{}, fmt.Errorf("failed to decode directive: %w", err)
	}
	soft := models.DefaultSoftSignals()
	if payload.SoftSignals != nil {
		soft = *payload.SoftSignals
		soft.Clamp()
	}
	d := models.Directive{
		NextAction:           models.NextAction(payload.NextAction),
		NextTopic:            payload.NextTopic,
		QuestionBlueprint:    flattenBlueprint(payload.QuestionBlueprint),
		AnswerScore:          models.ClampScore(payload.AnswerScore),
		GapsFound:            payload.GapsFound,
		CorrectAnswerForGaps: payload.CorrectAnswerForGaps,
		DoNotAsk:             payload.DoNotAsk,
		SoftSignals:          soft,
		DifficultyDelta:      payload.DifficultyDelta,
		InternalThoughts:     payload.InternalThoughts,
	}
	if d.DifficultyDelta < -1 {
		d.DifficultyDelta = -1
	} else if d.DifficultyDelta > 1 {
		d.DifficultyDelta = 1
	}
	return d, nil
}

// flattenBlueprint accepts the blueprint as either a plain string or, when
// the model ignores instructions, a JSON object whose values are joined into
// a single descriptive string.
func flattenBlueprint(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(parts, "; ")
}

// finalize merges stage-A facts into the directive and enforces the
// deterministic priority table over next_action.
func (p *GraderPlanner) finalize(state *models.SessionState, message string, d models.Directive, cls models.InputClassification, hal models.HallucinationResult) models.Directive {
	d.InputType = cls.InputType
	d.DetectedEntities = cls.DetectedEntities
	d.IsHallucination = hal.IsHallucination
	d.HallucinationCorrection = hal.Correction
	if cls.InputType == models.InputTypeCandidateQuestion {
		d.CandidateQuestionToAnswer = message
	}
	d.NextAction = resolveNextAction(cls, hal, d.NextAction)

	if cls.InputType == models.InputTypeAnswer && d.AnswerScore < GoodScoreThreshold {
		if len(d.GapsFound) == 0 {
			d.GapsFound = []string{"ответ неполный: ключевые детали темы не раскрыты"}
		}
		if d.CorrectAnswerForGaps == "" {
			d.CorrectAnswerForGaps = "Полный ответ должен раскрывать тему " + topics.Describe(p.topicOrCurrent(state, d)) + " с примерами."
		}
	}

	// Refuse a repeated question up front instead of trusting the model.
	if d.QuestionBlueprint != "" {
		for _, asked := range state.LastQuestions {
			if strings.EqualFold(asked, d.QuestionBlueprint) {
				d.QuestionBlueprint = p.substituteBlueprint(state, d)
				d.AppendThought("[GraderPlanner] repeated blueprint replaced from question bank")
				break
			}
		}
	}
	if d.NextTopic == "" {
		d.NextTopic = p.topicOrCurrent(state, d)
	}
	return d
}

func (p *GraderPlanner) topicOrCurrent(state *models.SessionState, d models.Directive) string {
	if d.NextTopic != "" {
		return d.NextTopic
	}
	if state.CurrentTopic != "" {
		return state.CurrentTopic
	}
	return p.suggestTopic(state)
}

// substituteBlueprint picks a bank question for the directive's topic that is
// not in the recently asked ring.
func (p *GraderPlanner) substituteBlueprint(state *models.SessionState, d models.Directive) string {
	topic := p.topicOrCurrent(state, d)
	for _, q := range topics.ForTopic(topic, state.Difficulty) {
		repeated := false
		for _, asked := range state.LastQuestions {
			if strings.EqualFold(asked, q) {
				repeated = true
				break
			}
		}
		if !repeated {
			return q
		}
	}
	return "Задай новый вопрос по теме " + topics.Describe(topic)
}

// resolveNextAction applies the fixed priority table. The model's proposal
// only survives for plain answers, and even then only within the allowed set.
func resolveNextAction(cls models.InputClassification, hal models.HallucinationResult, proposed models.NextAction) models.NextAction {
	switch {
	case cls.InputType == models.InputTypeStop:
		return models.ActionWrapUp
	case hal.IsHallucination:
		return models.ActionCorrectHallucination
	case cls.InputType == models.InputTypeCandidateQuestion:
		return models.ActionAnswerCandidate
	case cls.InputType == models.InputTypeOffTopic:
		return models.ActionRedirectToInterview
	case cls.InputType == models.InputTypeGreeting:
		return models.ActionAsk
	}
	switch proposed {
	case models.ActionAsk, models.ActionFollowUp, models.ActionGiveHint:
		return proposed
	default:
		return models.ActionAsk
	}
}

// fallbackDirective builds a deterministic directive straight from stage-A
// results when the planner LLM is unavailable.
func (p *GraderPlanner) fallbackDirective(state *models.SessionState, message string, cls models.InputClassification, hal models.HallucinationResult, reason string) models.Directive {
	d := models.Directive{
		NextAction:       resolveNextAction(cls, hal, models.ActionAsk),
		SoftSignals:      models.DefaultSoftSignals(),
		InternalThoughts: "[Fallback] " + reason,
		Fallback:         true,
	}
	d.InputType = cls.InputType
	d.DetectedEntities = cls.DetectedEntities
	d.IsHallucination = hal.IsHallucination
	d.HallucinationCorrection = hal.Correction
	if cls.InputType == models.InputTypeCandidateQuestion {
		d.CandidateQuestionToAnswer = message
	}
	if cls.InputType == models.InputTypeAnswer {
		// Without a grader there is no basis for scoring; stay neutral.
		d.AnswerScore = 0.5
	}
	d.NextTopic = p.topicOrCurrent(state, d)
	d.QuestionBlueprint = p.substituteBlueprint(state, d)
	return d
}
