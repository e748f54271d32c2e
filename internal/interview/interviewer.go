// Package interview orchestrates sessions: it runs the analysis pipeline,
// generates the visible interviewer responses, mutates session state in a
// fixed order and produces the final hiring report.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
)

const interviewerSystemPrompt = `Ты — дружелюбный, но профессиональный технический интервьюер.
Ты проводишь собеседование на русском языке.

## Твой стиль:
- Обращайся к кандидату по имени
- Короткие, естественные реплики (2-4 предложения)
- Никогда не раскрывай правильный ответ, если не просят дать фидбэк
- Не упоминай внутренние оценки, баллы или уровень сложности

## Тебе дают инструкцию, что сделать в этом ходе. Выполни её точно.`

// actionInstructions maps each directive action to the instruction block of
// the generation prompt.
var actionInstructions = map[models.NextAction]string{
	models.ActionAsk:                  `Задай следующий вопрос по плану ниже. Сформулируй его естественно, одним вопросом.`,
	models.ActionFollowUp:             `Задай уточняющий вопрос по той же теме, копни глубже в ответ кандидата.`,
	models.ActionGiveHint:             `Кандидат затрудняется. Дай небольшую подсказку по текущему вопросу, не раскрывая ответ, и предложи попробовать ещё раз.`,
	models.ActionAnswerCandidate:      `Кандидат задал свой вопрос. Ответь на него коротко и честно, затем плавно верни разговор к интервью.`,
	models.ActionCorrectHallucination: `Кандидат уверенно сказал неверный факт. Вежливо поправь его, используя данное тебе исправление, затем продолжи интервью.`,
	models.ActionRedirectToInterview:  `Кандидат ушёл от темы. Мягко, без упрёка, верни разговор к интервью и повтори или переформулируй текущий вопрос.`,
	models.ActionWrapUp:               `Интервью завершается. Поблагодари кандидата за время, скажи пару тёплых слов и сообщи, что сейчас будет обратная связь.`,
}

// fallbackResponses keeps the interview alive when the generation call
// fails: every action has a canned reply.
var fallbackResponses = map[models.NextAction]string{
	models.ActionAsk:                  "Давай продолжим. Расскажи, пожалуйста, подробнее о своём опыте с основными инструментами для этой позиции.",
	models.ActionFollowUp:             "Интересно. А можешь раскрыть эту мысль подробнее, с примером из практики?",
	models.ActionGiveHint:             "Не переживай, вопрос непростой. Подумай о базовых принципах этой темы и попробуй ещё раз.",
	models.ActionAnswerCandidate:      "Хороший вопрос! Я вернусь к нему в конце интервью, а пока давай продолжим.",
	models.ActionCorrectHallucination: "Здесь есть неточность, стоит перепроверить этот факт. Давай продолжим интервью.",
	models.ActionRedirectToInterview:  "Давай вернёмся к интервью. Продолжим с того места, где остановились.",
	models.ActionWrapUp:               "Спасибо за интервью! Было приятно пообщаться. Сейчас подготовлю обратную связь.",
}

// difficultyGuidance phrases each difficulty level for the prompt.
var difficultyGuidance = map[int]string{
	1: "очень простые вопросы, самые основы",
	2: "простые вопросы для начинающих",
	3: "вопросы среднего уровня с практическими деталями",
	4: "сложные вопросы, требующие глубокого понимания",
	5: "очень сложные вопросы уровня эксперта",
}

// Interviewer turns a finalized directive into the message the candidate
// sees.
type Interviewer struct {
	client genai.ClientInterface
	model  string
}

// NewInterviewer creates the visible-response generator.
func NewInterviewer(client genai.ClientInterface, model string) *Interviewer {
	return &Interviewer{client: client, model: model}
}

// Respond generates the visible reply for one turn. It never fails: a
// generation error resolves to the per-action canned response.
func (iv *Interviewer) Respond(ctx context.Context, state *models.SessionState, d models.Directive) string {
	reply, err := iv.client.GenerateWithModel(ctx, interviewerSystemPrompt, iv.buildPrompt(state, d), iv.model, false)
	if err != nil || strings.TrimSpace(reply) == "" {
		slog.Warn("Interviewer.Respond: generation failed, using canned response", "action", d.NextAction, "error", err)
		return iv.fallback(state, d)
	}
	return reply
}

func (iv *Interviewer) buildPrompt(state *models.SessionState, d models.Directive) string {
	var b strings.Builder
	b.WriteString("## Кандидат:\n")
	fmt.Fprintf(&b, "Имя: %s, позиция: %s (%s)\n\n", state.Profile.Name, state.Profile.Role, state.Profile.GradeTarget)

	b.WriteString("## История разговора:\n")
	b.WriteString(state.ConversationHistory(6))
	b.WriteString("\n\n## Инструкция на этот ход:\n")
	b.WriteString(actionInstructions[d.NextAction])
	b.WriteString("\n")

	switch d.NextAction {
	case models.ActionAsk, models.ActionFollowUp:
		if d.QuestionBlueprint != "" {
			fmt.Fprintf(&b, "\nПлан вопроса: %s\n", d.QuestionBlueprint)
		}
		fmt.Fprintf(&b, "Уровень сложности: %s.\n", difficultyGuidance[models.ClampDifficulty(state.Difficulty)])
	case models.ActionCorrectHallucination:
		fmt.Fprintf(&b, "\nИсправление: %s\n", d.HallucinationCorrection)
	case models.ActionAnswerCandidate:
		fmt.Fprintf(&b, "\nВопрос кандидата: %s\n", d.CandidateQuestionToAnswer)
	case models.ActionGiveHint:
		if len(state.LastQuestions) > 0 {
			fmt.Fprintf(&b, "\nТекущий вопрос: %s\n", state.LastQuestions[len(state.LastQuestions)-1])
		}
	}
	if d.InputType == models.InputTypeGreeting {
		b.WriteString("\nЭто первое сообщение кандидата: сначала коротко поздоровайся и представься как интервьюер.\n")
	}
	return b.String()
}

func (iv *Interviewer) fallback(state *models.SessionState, d models.Directive) string {
	reply, ok := fallbackResponses[d.NextAction]
	if !ok {
		reply = fallbackResponses[models.ActionAsk]
	}
	// The correction itself came from the guard, it survives a generator
	// outage.
	if d.NextAction == models.ActionCorrectHallucination && d.HallucinationCorrection != "" {
		reply = "Небольшая поправка: " + d.HallucinationCorrection + " Давай продолжим интервью."
	}
	if d.InputType == models.InputTypeGreeting {
		reply = fmt.Sprintf("Привет, %s! Я твой интервьюер на позицию %s. %s", state.Profile.Name, state.Profile.Role, reply)
	}
	return reply
}
