package observer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
)

// Config selects the model for each pipeline stage. Empty fields fall back
// to the client default; the classifier and guard are cheap per-message
// calls, so a faster model is usually configured for them.
type Config struct {
	ClassifierModel    string
	HallucinationModel string
	GraderModel        string
}

// Observer runs the full analysis pipeline for one candidate message:
// classification and hallucination detection in parallel, then the
// grader/planner join, then the difficulty adapter.
type Observer struct {
	classifier *Classifier
	guard      *HallucinationGuard
	planner    *GraderPlanner
}

// New creates an observer pipeline backed by one GenAI client.
func New(client genai.ClientInterface, cfg Config) *Observer {
	return &Observer{
		classifier: NewClassifier(client, cfg.ClassifierModel),
		guard:      NewHallucinationGuard(client, cfg.HallucinationModel),
		planner:    NewGraderPlanner(client, cfg.GraderModel),
	}
}

// Analyze produces the directive for one message. It never returns an
// error: every stage degrades to its deterministic fallback, so a directive
// with a valid next_action always comes back.
func (o *Observer) Analyze(ctx context.Context, state *models.SessionState, message string) models.Directive {
	start := time.Now()

	var cls models.InputClassification
	var hal models.HallucinationResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cls = o.classifier.Classify(gctx, state, message)
		return nil
	})
	g.Go(func() error {
		hal = o.guard.Check(gctx, state, message)
		return nil
	})
	// Stages resolve failures internally, the group never carries an error.
	_ = g.Wait()

	directive := o.planner.Plan(ctx, state, message, cls, hal)
	directive.InternalThoughts = structuredThoughts(cls, hal, directive.InternalThoughts)
	AdaptDifficulty(state.Difficulty, scoreWindow(state, directive), &directive)

	slog.Debug("Observer.Analyze: directive ready",
		"input_type", directive.InputType,
		"next_action", directive.NextAction,
		"answer_score", directive.AnswerScore,
		"difficulty_delta", directive.DifficultyDelta,
		"fallback", directive.Fallback,
		"duration_ms", time.Since(start).Milliseconds())
	return directive
}

// scoreWindow builds the two-score window for the difficulty adapter: the
// previously recorded scores plus, for answers, the score just produced for
// the current turn.
func scoreWindow(state *models.SessionState, d models.Directive) []float64 {
	window := state.RecentScores(2)
	if d.InputType == models.InputTypeAnswer {
		window = append(window, d.AnswerScore)
		if len(window) > 2 {
			window = window[len(window)-2:]
		}
	}
	return window
}

// structuredThoughts renders the per-stage results as one JSON document so
// the logged trace shows which stage produced which conclusion.
func structuredThoughts(cls models.InputClassification, hal models.HallucinationResult, plannerThoughts string) string {
	trace := struct {
		InputClassifier    models.InputClassification `json:"InputClassifier"`
		HallucinationGuard models.HallucinationResult `json:"HallucinationGuard"`
		GraderPlanner      string                     `json:"GraderPlanner"`
	}{
		InputClassifier:    cls,
		HallucinationGuard: hal,
		GraderPlanner:      truncateRunes(plannerThoughts, 500),
	}
	trace.InputClassifier.Reasoning = truncateRunes(cls.Reasoning, 300)
	trace.HallucinationGuard.Reasoning = truncateRunes(hal.Reasoning, 300)
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return plannerThoughts
	}
	return string(data)
}
