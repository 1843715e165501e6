package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

// ExportResponsesCSV renders one row per answer in long format. Completed
// responses of questionnaires carry their grade on every row.
func (e *Engine) ExportResponsesCSV(surveyID int) ([]byte, error) {
	s, err := e.Catalog.Get(surveyID)
	if err != nil {
		return nil, err
	}
	return ExportLongCSV(s, e.Responses.ListForSurvey(surveyID))
}

func ExportLongCSV(s *models.Survey, responses []*models.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "respondent", "question_id", "kind", "answer", "correct", "completed", "completed_at", "score", "percent", "passed", "moderation"})
	for _, r := range responses {
		qids := make([]int, 0, len(r.Answers))
		for qid := range r.Answers {
			qids = append(qids, qid)
		}
		sort.Ints(qids)
		for _, qid := range qids {
			q := s.Question(qid)
			if q == nil {
				continue
			}
			if err := w.Write(longRow(s, r, *q)); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func longRow(s *models.Survey, r *models.Response, q models.Question) []string {
	correct := ""
	if s.IsQuestionnaire() && q.CorrectAnswer != nil && q.Kind != models.KindLongText {
		correct = strconv.FormatBool(AnswerMatches(q, r.Answers[q.ID]))
	}
	completedAt := ""
	if r.CompletedAt != nil {
		completedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	score, percent, passed := "", "", ""
	if r.Grade != nil {
		score = strconv.Itoa(r.Grade.Score)
		percent = strconv.FormatFloat(r.Grade.Percent, 'f', 2, 64)
		passed = strconv.FormatBool(r.Grade.Passed)
	}
	return []string{
		strconv.Itoa(r.ID),
		r.Respondent,
		strconv.Itoa(q.ID),
		string(q.Kind),
		r.Answers[q.ID],
		correct,
		strconv.FormatBool(r.Completed),
		completedAt,
		score,
		percent,
		passed,
		string(r.Moderation),
	}
}
