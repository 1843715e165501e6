package services

import (
	"strings"

	"github.com/soaringjerry/Assay/internal/models"
)

// Grade scores a completed questionnaire response. It never mutates its inputs.
func Grade(survey *models.Survey, resp *models.Response) (models.Grade, error) {
	if survey == nil || resp == nil {
		return models.Grade{}, NewInvalidError("survey and response required")
	}
	if !survey.IsQuestionnaire() {
		return models.Grade{}, NewStateError("survey is not a questionnaire")
	}
	if !resp.Completed {
		return models.Grade{}, NewStateError("response not completed")
	}
	g := models.Grade{MaxScore: MaxScore(survey)}
	for _, q := range survey.Questions {
		answer, ok := resp.Answers[q.ID]
		if !ok || q.CorrectAnswer == nil {
			continue
		}
		if AnswerMatches(q, answer) {
			g.Score += q.Points
		}
	}
	if g.MaxScore > 0 {
		g.Percent = float64(g.Score) / float64(g.MaxScore) * 100
	}
	g.Passed = g.Percent >= float64(survey.Questionnaire.PassingScore)
	return g, nil
}

// MaxScore sums the point values of every question, graded or not.
func MaxScore(survey *models.Survey) int {
	total := 0
	for _, q := range survey.Questions {
		total += q.Points
	}
	return total
}

// AnswerMatches applies the kind-specific comparison against the correct answer.
// Long text answers never match.
func AnswerMatches(q models.Question, answer string) bool {
	if q.CorrectAnswer == nil {
		return false
	}
	want := *q.CorrectAnswer
	switch q.Kind {
	case models.KindSingleChoice:
		return answer == want
	case models.KindBoolean:
		return strings.EqualFold(answer, want)
	case models.KindShortText:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(want))
	default:
		return false
	}
}
