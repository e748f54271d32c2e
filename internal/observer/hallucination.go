package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
)

// HallucinationGuard checks candidate messages for confidently stated false
// technical claims.
type HallucinationGuard struct {
	client genai.ClientInterface
	model  string
}

// NewHallucinationGuard creates the fact-checking stage.
func NewHallucinationGuard(client genai.ClientInterface, model string) *HallucinationGuard {
	return &HallucinationGuard{client: client, model: model}
}

// Check runs the guard for one message. Failures resolve to the safe
// default of "no hallucination" so a flaky fact-checker can never block an
// honest answer.
func (g *HallucinationGuard) Check(ctx context.Context, state *models.SessionState, message string) models.HallucinationResult {
	raw, err := g.client.GenerateWithModel(ctx, hallucinationSystemPrompt, g.buildContext(state, message), g.model, true)
	if err != nil {
		slog.Warn("HallucinationGuard.Check: generation failed, using fallback", "error", err)
		return g.fallback(fmt.Sprintf("hallucination check error: %v", err))
	}
	result, err := parseHallucination(raw)
	if err != nil {
		slog.Warn("HallucinationGuard.Check: parse failed, using fallback", "error", err)
		return g.fallback(fmt.Sprintf("hallucination parse error: %v", err))
	}
	return result
}

func (g *HallucinationGuard) buildContext(state *models.SessionState, message string) string {
	return fmt.Sprintf(`## Current interview topic: %s

## Candidate message:
%s`, state.CurrentTopic, message)
}

func parseHallucination(raw string) (models.HallucinationResult, error) {
	var payload struct {
		IsHallucination bool     `json:"is_hallucination"`
		DetectedClaim   string   `json:"detected_claim"`
		Correction      string   `json:"correction"`
		Confidence      *float64 `json:"confidence"`
		Reasoning       string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return models.HallucinationResult{}, fmt.Errorf("failed to decode hallucination result: %w", err)
	}
	confidence := 0.9
	if payload.Confidence != nil {
		confidence = models.ClampScore(*payload.Confidence)
	}
	result := models.HallucinationResult{
		IsHallucination: payload.IsHallucination,
		DetectedClaim:   payload.DetectedClaim,
		Correction:      payload.Correction,
		Confidence:      confidence,
		Reasoning:       payload.Reasoning,
	}
	// A positive verdict without the claim or correction is unusable for
	// the correction response, treat it as no detection.
	if result.IsHallucination && (result.DetectedClaim == "" || result.Correction == "") {
		result.IsHallucination = false
		result.Reasoning = "incomplete hallucination verdict discarded; " + result.Reasoning
	}
	return result, nil
}

func (g *HallucinationGuard) fallback(reason string) models.HallucinationResult {
	return models.HallucinationResult{
		IsHallucination: false,
		Confidence:      0.5,
		Reasoning:       "[Fallback] " + reason,
		Fallback:        true,
	}
}
