package interview

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/topics"
)

const hiringManagerSystemPrompt = `Ты — нанимающий менеджер, который пишет финальную обратную связь по техническому интервью.
Пиши на русском языке, в формате markdown.

## Структура отчёта:
1. **Общее впечатление** - 2-3 предложения
2. **Сильные стороны** - конкретные темы, где кандидат показал себя хорошо
3. **Зоны роста** - темы с пробелами и правильные ответы на упущенное
4. **Soft skills** - ясность изложения, честность, вовлечённость
5. **Вердикт** - соответствие заявленному грейду и рекомендация

## Правила:
- Опирайся ТОЛЬКО на данные из контекста, ничего не выдумывай
- Будь конструктивным: и честным, и доброжелательным
- Для каждого пробела приводи правильный ответ, это обучающий фидбэк`

// hallucinationPenalty is subtracted from the average score per confidently
// false claim when estimating the grade fit.
const hallucinationPenalty = 0.1

// HiringManager produces the final feedback report when a session
// terminates.
type HiringManager struct {
	client genai.ClientInterface
	model  string
}

// NewHiringManager creates the report generator.
func NewHiringManager(client genai.ClientInterface, model string) *HiringManager {
	return &HiringManager{client: client, model: model}
}

// Report builds the final feedback for a finished session. It never fails:
// on a generation error the deterministic aggregate report is returned, so
// termination always yields a non-empty report.
func (hm *HiringManager) Report(ctx context.Context, state *models.SessionState) string {
	report, err := hm.client.GenerateWithModel(ctx, hiringManagerSystemPrompt, hm.buildSummary(state), hm.model, false)
	if err != nil || strings.TrimSpace(report) == "" {
		slog.Warn("HiringManager.Report: generation failed, using aggregate report", "error", err)
		return hm.aggregateReport(state)
	}
	return report
}

func (hm *HiringManager) buildSummary(state *models.SessionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Кандидат: %s\n", state.Profile.Name)
	fmt.Fprintf(&b, "Позиция: %s, целевой грейд: %s\n", state.Profile.Role, state.Profile.GradeTarget)
	fmt.Fprintf(&b, "Опыт: %s\n\n", state.Profile.Experience)

	b.WriteString("## Оценки по темам:\n")
	for _, topic := range sortedTopics(state) {
		ts := state.Topics[topic]
		fmt.Fprintf(&b, "- %s: средний балл %.2f (%d вопросов)\n", topics.Describe(topic), ts.AverageScore(), ts.AskedCount)
		for _, gap := range ts.Gaps {
			fmt.Fprintf(&b, "  - пробел: %s\n", gap)
		}
		for _, ca := range ts.CorrectAnswers {
			fmt.Fprintf(&b, "  - правильный ответ: %s\n", ca)
		}
	}
	if len(state.Topics) == 0 {
		b.WriteString("- технические вопросы не задавались\n")
	}

	soft := state.AverageSoftSignals()
	fmt.Fprintf(&b, "\n## Soft skills (0-1):\nясность %.2f, честность %.2f, вовлечённость %.2f\n", soft.Clarity, soft.Honesty, soft.Engagement)

	fmt.Fprintf(&b, "\n## Флаги:\nуходов от темы: %d, ложных утверждений: %d, уклончивых ответов: %d\n",
		state.Flags.OffTopicCount, state.Flags.HallucinationClaims, state.Flags.Evasiveness)
	fmt.Fprintf(&b, "\n## Средний балл по ответам: %.2f\n", state.AverageAnswerScore())
	fmt.Fprintf(&b, "## Оценка соответствия грейду: %s\n", hm.estimateGradeFit(state))
	return b.String()
}

// estimateGradeFit applies the score-threshold heuristic with a penalty per
// confidently false claim.
func (hm *HiringManager) estimateGradeFit(state *models.SessionState) string {
	adjusted := state.AverageAnswerScore() - hallucinationPenalty*float64(state.Flags.HallucinationClaims)
	switch {
	case adjusted >= 0.75:
		return fmt.Sprintf("соответствует грейду %s, возможно выше", state.Profile.GradeTarget)
	case adjusted >= 0.5:
		return fmt.Sprintf("близко к грейду %s", state.Profile.GradeTarget)
	case adjusted >= 0.3:
		return fmt.Sprintf("пока ниже грейда %s", state.Profile.GradeTarget)
	default:
		return fmt.Sprintf("значительно ниже грейда %s", state.Profile.GradeTarget)
	}
}

// aggregateReport renders the deterministic plain report straight from
// session aggregates.
func (hm *HiringManager) aggregateReport(state *models.SessionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Обратная связь по интервью: %s\n\n", state.Profile.Name)
	fmt.Fprintf(&b, "Позиция: %s (%s)\n\n", state.Profile.Role, state.Profile.GradeTarget)

	b.WriteString("## Результаты по темам\n")
	if len(state.Topics) == 0 {
		b.WriteString("Технические вопросы не задавались.\n")
	}
	for _, topic := range sortedTopics(state) {
		ts := state.Topics[topic]
		fmt.Fprintf(&b, "- %s: %.2f из 1.00 (%d вопросов)\n", topics.Describe(topic), ts.AverageScore(), ts.AskedCount)
	}

	var gaps []string
	for _, topic := range sortedTopics(state) {
		ts := state.Topics[topic]
		for i, gap := range ts.Gaps {
			entry := gap
			if i < len(ts.CorrectAnswers) {
				entry += " Правильный ответ: " + ts.CorrectAnswers[i]
			}
			gaps = append(gaps, entry)
		}
	}
	if len(gaps) > 0 {
		b.WriteString("\n## Зоны роста\n")
		for _, gap := range gaps {
			fmt.Fprintf(&b, "- %s\n", gap)
		}
	}

	soft := state.AverageSoftSignals()
	fmt.Fprintf(&b, "\n## Soft skills\nЯсность: %.2f, честность: %.2f, вовлечённость: %.2f\n", soft.Clarity, soft.Honesty, soft.Engagement)
	if state.Flags.HallucinationClaims > 0 {
		fmt.Fprintf(&b, "\nЗамечено уверенных ложных утверждений: %d.\n", state.Flags.HallucinationClaims)
	}
	fmt.Fprintf(&b, "\n## Вердикт\nСредний балл: %.2f. Уровень: %s.\n", state.AverageAnswerScore(), hm.estimateGradeFit(state))
	b.WriteString("Спасибо за интервью!\n")
	return b.String()
}

func sortedTopics(state *models.SessionState) []string {
	keys := make([]string, 0, len(state.Topics))
	for topic := range state.Topics {
		keys = append(keys, topic)
	}
	sort.Strings(keys)
	return keys
}
