package services

import (
	"math"
	"testing"

	"github.com/soaringjerry/Assay/internal/models"
)

func twoChoiceQuiz(passing int) *models.Survey {
	s := models.NewQuestionnaire("Quiz", "", "admin")
	s.Questionnaire.PassingScore = passing
	q1 := models.NewQuestion("first", models.KindSingleChoice, "a", "b").WithAnswer("0")
	q1.ID = 1
	q2 := models.NewQuestion("second", models.KindSingleChoice, "a", "b").WithAnswer("1")
	q2.ID = 2
	q2.Points = 2
	s.Questions = []models.Question{q1, q2}
	return s
}

func completed(answers map[int]string) *models.Response {
	return &models.Response{ID: 1, SurveyID: 1, Answers: answers, Completed: true}
}

func TestGradeAllCorrect(t *testing.T) {
	for _, passing := range []int{0, 60, 100} {
		g, err := Grade(twoChoiceQuiz(passing), completed(map[int]string{1: "0", 2: "1"}))
		if err != nil {
			t.Fatalf("Grade returned error: %v", err)
		}
		if g.Score != 3 || g.MaxScore != 3 || g.Percent != 100 || !g.Passed {
			t.Fatalf("grade = %+v, want score 3/3, 100%%, passed (passing %d)", g, passing)
		}
	}
}

func TestGradePartial(t *testing.T) {
	cases := []struct {
		passing int
		passed  bool
	}{
		{50, true},
		{66, true},
		{67, false},
		{100, false},
	}
	for _, c := range cases {
		g, err := Grade(twoChoiceQuiz(c.passing), completed(map[int]string{1: "1", 2: "1"}))
		if err != nil {
			t.Fatalf("Grade returned error: %v", err)
		}
		if g.Score != 2 || g.MaxScore != 3 {
			t.Fatalf("score = %d/%d, want 2/3", g.Score, g.MaxScore)
		}
		if math.Abs(g.Percent-66.6667) > 0.01 {
			t.Fatalf("percent = %v, want ~66.67", g.Percent)
		}
		if g.Passed != c.passed {
			t.Fatalf("passed = %v at passing %d, want %v", g.Passed, c.passing, c.passed)
		}
	}
}

func TestGradeBooleanCaseInsensitive(t *testing.T) {
	s := models.NewQuestionnaire("TF", "", "admin")
	q := models.NewQuestion("sky is blue", models.KindBoolean).WithAnswer("true")
	q.ID = 7
	s.Questions = []models.Question{q}
	g, err := Grade(s, completed(map[int]string{7: "TRUE"}))
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if g.Score != 1 {
		t.Fatalf("score = %d, want 1", g.Score)
	}
}

func TestGradeLongTextNeverScores(t *testing.T) {
	s := models.NewQuestionnaire("Essay", "", "admin")
	q1 := models.NewQuestion("explain", models.KindLongText).WithAnswer("anything")
	q1.ID = 1
	q1.Points = 4
	q2 := models.NewQuestion("discuss", models.KindLongText)
	q2.ID = 2
	s.Questions = []models.Question{q1, q2}
	g, err := Grade(s, completed(map[int]string{1: "anything", 2: "whatever"}))
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if g.MaxScore != 5 || g.Score != 0 {
		t.Fatalf("grade = %d/%d, want 0/5", g.Score, g.MaxScore)
	}
}

func TestGradeRejectsIncomplete(t *testing.T) {
	r := completed(map[int]string{1: "0"})
	r.Completed = false
	if _, err := Grade(twoChoiceQuiz(60), r); !IsCode(err, ErrorState) {
		t.Fatalf("err = %v, want state error", err)
	}
	plain := models.NewSurvey("plain", "", "admin")
	if _, err := Grade(plain, completed(nil)); !IsCode(err, ErrorState) {
		t.Fatalf("err = %v, want state error for plain survey", err)
	}
}

func TestGradeEmptyQuestionnaire(t *testing.T) {
	s := models.NewQuestionnaire("empty", "", "admin")
	g, err := Grade(s, completed(nil))
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if g.Percent != 0 || g.MaxScore != 0 {
		t.Fatalf("grade = %+v, want zero percent", g)
	}
}

func TestAnswerMatches(t *testing.T) {
	cases := []struct {
		kind   models.QuestionKind
		want   string
		answer string
		match  bool
	}{
		{models.KindSingleChoice, "1", "1", true},
		{models.KindSingleChoice, "1", " 1", false},
		{models.KindBoolean, "false", "False", true},
		{models.KindShortText, " Paris ", "paris", true},
		{models.KindShortText, "Paris", "Lyon", false},
		{models.KindLongText, "x", "x", false},
	}
	for _, c := range cases {
		q := models.NewQuestion("q", c.kind).WithAnswer(c.want)
		if got := AnswerMatches(q, c.answer); got != c.match {
			t.Fatalf("AnswerMatches(%s, %q, %q) = %v, want %v", c.kind, c.want, c.answer, got, c.match)
		}
	}
}
