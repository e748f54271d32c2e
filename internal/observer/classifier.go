package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
)

// stopCommandRe matches termination keywords on word boundaries, case
// insensitively. RE2's \b is ASCII-only, so boundaries are spelled out with
// Unicode letter/digit classes to work for Cyrillic keywords.
var stopCommandRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:стоп(?:\s+(?:игра|интервью))?|stop|хватит|завершить|закончить|давай\s+(?:фидбэк|feedback))(?:$|[^\p{L}\p{N}])`)

// DetectStopCommand reports whether the message contains an explicit request
// to end the interview.
func DetectStopCommand(message string) bool {
	return stopCommandRe.MatchString(message)
}

// Classifier categorizes each candidate message into one input type.
type Classifier struct {
	client genai.ClientInterface
	model  string
}

// NewClassifier creates a classifier stage. An empty model falls back to the
// client default.
func NewClassifier(client genai.ClientInterface, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

// Classify runs the classification stage for one message. It never fails:
// on any error the deterministic fallback result is returned with the
// Fallback flag set.
func (c *Classifier) Classify(ctx context.Context, state *models.SessionState, message string) models.InputClassification {
	raw, err := c.client.GenerateWithModel(ctx, classifierSystemPrompt, c.buildContext(state, message), c.model, true)
	if err != nil {
		slog.Warn("Classifier.Classify: generation failed, using fallback", "error", err)
		return c.fallback(message, fmt.Sprintf("classification error: %v", err))
	}
	result, err := parseClassification(raw)
	if err != nil {
		slog.Warn("Classifier.Classify: parse failed, using fallback", "error", err)
		return c.fallback(message, fmt.Sprintf("classification parse error: %v", err))
	}
	return c.normalize(state, result)
}

func (c *Classifier) buildContext(state *models.SessionState, message string) string {
	firstMessage := len(state.Turns) == 0 && state.Flags.QuestionsAskedCount == 0
	return fmt.Sprintf(`## Interview state:
- questions_asked: %d
- is_first_message: %t
- current_topic: %s

## Candidate message:
%s`, state.Flags.QuestionsAskedCount, firstMessage, state.CurrentTopic, message)
}

func parseClassification(raw string) (models.InputClassification, error) {
	var payload struct {
		InputType        string   `json:"input_type"`
		DetectedEntities []string `json:"detected_entities"`
		Confidence       *float64 `json:"confidence"`
		Reasoning        string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return models.InputClassification{}, fmt.Errorf("failed to decode classification: %w", err)
	}
	inputType := models.InputType(payload.InputType)
	if !models.IsValidInputType(inputType) {
		return models.InputClassification{}, fmt.Errorf("unknown input type %q", payload.InputType)
	}
	confidence := 0.9
	if payload.Confidence != nil {
		confidence = models.ClampScore(*payload.Confidence)
	}
	return models.InputClassification{
		InputType:        inputType,
		DetectedEntities: payload.DetectedEntities,
		Confidence:       confidence,
		Reasoning:        payload.Reasoning,
	}, nil
}

// normalize downgrades GREETING to OFF_TOPIC when it is not the first
// message of the session. Models occasionally mislabel mid-interview
// pleasantries.
func (c *Classifier) normalize(state *models.SessionState, result models.InputClassification) models.InputClassification {
	if result.InputType == models.InputTypeGreeting && (len(state.Turns) > 0 || state.Flags.QuestionsAskedCount > 0) {
		result.InputType = models.InputTypeOffTopic
		result.Reasoning = "greeting outside of first message treated as off-topic; " + result.Reasoning
	}
	return result
}

// fallback classifies with the stop-keyword scan alone. Everything that is
// not a stop command is treated as an answer at half confidence, which keeps
// the interview moving.
func (c *Classifier) fallback(message, reason string) models.InputClassification {
	inputType := models.InputTypeAnswer
	if DetectStopCommand(message) {
		inputType = models.InputTypeStop
	}
	return models.InputClassification{
		InputType:  inputType,
		Confidence: 0.5,
		Reasoning:  "[Fallback] " + reason,
		Fallback:   true,
	}
}
