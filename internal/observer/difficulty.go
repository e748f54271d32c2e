package observer

import (
	"fmt"

	"github.com/Riter/itmo-megaschool/internal/models"
)

// AdaptDifficulty applies the hysteresis rules to a finalized directive.
// recentScores is the two-score window, oldest first, already including the
// current turn's score when the message was an answer. The function only
// writes DifficultyDelta, NextAction and the audit trail; the orchestrator
// applies the delta to session state afterwards.
//
// Rules, in order:
//  1. fewer than two scores: no change
//  2. both scores high and difficulty below max: +1
//  3. both scores low and difficulty above min: -1
//  4. current score very low and a plain ASK planned: hint instead
func AdaptDifficulty(difficulty int, recentScores []float64, d *models.Directive) {
	d.DifficultyDelta = 0
	if d.InputType != models.InputTypeAnswer && d.InputType != models.InputTypeGreeting {
		return
	}
	if len(recentScores) < 2 {
		return
	}
	prev, curr := recentScores[len(recentScores)-2], recentScores[len(recentScores)-1]
	switch {
	case prev >= HighScoreThreshold && curr >= HighScoreThreshold && difficulty < models.DifficultyMax:
		d.DifficultyDelta = 1
		d.AppendThought(fmt.Sprintf("[DifficultyAdapter] delta=+1 difficulty=%d->%d scores=[%.2f %.2f] reason=two_consecutive_high_scores", difficulty, difficulty+1, prev, curr))
	case prev <= LowScoreThreshold && curr <= LowScoreThreshold && difficulty > models.DifficultyMin:
		d.DifficultyDelta = -1
		d.AppendThought(fmt.Sprintf("[DifficultyAdapter] delta=-1 difficulty=%d->%d scores=[%.2f %.2f] reason=two_consecutive_low_scores", difficulty, difficulty-1, prev, curr))
	case d.AnswerScore <= HintScoreThreshold && d.NextAction == models.ActionAsk:
		d.NextAction = models.ActionGiveHint
		d.AppendThought(fmt.Sprintf("[DifficultyAdapter] action=GIVE_HINT score=%.2f reason=very_low_score", d.AnswerScore))
	}
}
