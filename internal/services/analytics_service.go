package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/soaringjerry/Assay/internal/models"
)

const maxSampleAnswers = 3

type QuestionStats struct {
	QuestionID   int                 `json:"question_id"`
	Text         string              `json:"text"`
	Kind         models.QuestionKind `json:"kind"`
	Answered     int                 `json:"answered"`
	Correct      int                 `json:"correct,omitempty"`
	Options      []string            `json:"options,omitempty"`
	OptionCounts []int               `json:"option_counts,omitempty"`
	TrueCount    int                 `json:"true_count,omitempty"`
	FalseCount   int                 `json:"false_count,omitempty"`
	Samples      []string            `json:"samples,omitempty"`
}

type ReportDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type SurveyReport struct {
	SurveyID       int             `json:"survey_id"`
	Title          string          `json:"title"`
	Questionnaire  bool            `json:"questionnaire"`
	TotalResponses int             `json:"total_responses"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending,omitempty"`
	Approved       int             `json:"approved,omitempty"`
	Rejected       int             `json:"rejected,omitempty"`
	Graded         int             `json:"graded,omitempty"`
	Passed         int             `json:"passed,omitempty"`
	PassRate       float64         `json:"pass_rate,omitempty"`
	AverageScore   float64         `json:"average_score,omitempty"`
	AveragePercent float64         `json:"average_percent,omitempty"`
	Questions      []QuestionStats `json:"questions"`
	Timeseries     []ReportDay     `json:"timeseries"`
}

// Report summarizes every completed response of a survey.
func (e *Engine) Report(surveyID int) (*SurveyReport, error) {
	s, err := e.Catalog.Get(surveyID)
	if err != nil {
		return nil, err
	}
	return BuildReport(s, e.Responses.ListForSurvey(surveyID)), nil
}

// BuildReport aggregates answers per question. In-progress responses count
// toward TotalResponses only.
func BuildReport(s *models.Survey, responses []*models.Response) *SurveyReport {
	rep := &SurveyReport{
		SurveyID:       s.ID,
		Title:          s.Title,
		Questionnaire:  s.IsQuestionnaire(),
		TotalResponses: len(responses),
	}
	stats, index := newQuestionStats(s.Questions)
	countsByDay := map[string]int{}
	scoreSum, percentSum := 0, 0.0
	for _, r := range responses {
		if !r.Completed {
			continue
		}
		rep.Completed++
		switch r.Moderation {
		case models.ModerationPending:
			rep.Pending++
		case models.ModerationApproved:
			rep.Approved++
		case models.ModerationRejected:
			rep.Rejected++
		}
		if r.Grade != nil {
			rep.Graded++
			scoreSum += r.Grade.Score
			percentSum += r.Grade.Percent
			if r.Grade.Passed {
				rep.Passed++
			}
		}
		if r.CompletedAt != nil {
			countsByDay[r.CompletedAt.UTC().Format("2006-01-02")]++
		}
		for qid, answer := range r.Answers {
			i, ok := index[qid]
			if !ok || strings.TrimSpace(answer) == "" {
				continue
			}
			tally(&stats[i], s.Questions[i], answer)
		}
	}
	if rep.Graded > 0 {
		rep.PassRate = float64(rep.Passed) / float64(rep.Graded) * 100
		rep.AverageScore = float64(scoreSum) / float64(rep.Graded)
		rep.AveragePercent = percentSum / float64(rep.Graded)
	}
	rep.Questions = stats
	rep.Timeseries = buildTimeseries(countsByDay)
	return rep
}

func newQuestionStats(qs []models.Question) ([]QuestionStats, map[int]int) {
	stats := make([]QuestionStats, 0, len(qs))
	index := make(map[int]int, len(qs))
	for i, q := range qs {
		st := QuestionStats{QuestionID: q.ID, Text: q.Text, Kind: q.Kind}
		if q.Kind == models.KindSingleChoice {
			st.Options = append([]string(nil), q.Options...)
			st.OptionCounts = make([]int, len(q.Options))
		}
		stats = append(stats, st)
		index[q.ID] = i
	}
	return stats, index
}

func tally(st *QuestionStats, q models.Question, answer string) {
	st.Answered++
	if AnswerMatches(q, answer) {
		st.Correct++
	}
	switch q.Kind {
	case models.KindSingleChoice:
		if idx, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil && idx >= 0 && idx < len(st.OptionCounts) {
			st.OptionCounts[idx]++
		}
	case models.KindBoolean:
		if strings.EqualFold(answer, "true") {
			st.TrueCount++
		} else {
			st.FalseCount++
		}
	default:
		if len(st.Samples) < maxSampleAnswers {
			st.Samples = append(st.Samples, answer)
		}
	}
}

func buildTimeseries(counts map[string]int) []ReportDay {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]ReportDay, 0, len(days))
	for _, d := range days {
		out = append(out, ReportDay{Date: d, Count: counts[d]})
	}
	return out
}
