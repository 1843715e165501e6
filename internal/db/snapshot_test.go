package db

import (
	"reflect"
	"testing"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

func sampleSnapshot() *models.Snapshot {
	created := time.Date(2025, 9, 18, 8, 30, 0, 0, time.UTC)
	closes := created.Add(72 * time.Hour)
	deadline := created.Add(30 * time.Minute)
	done := created.Add(10 * time.Minute)
	answer := "1"
	survey := models.Survey{
		ID: 1, Title: "Feedback", Description: "tell us", Creator: "admin", CreatedAt: created,
		ClosesAt: &closes, Active: true, AllowedRoles: []string{"student", "librarian"},
		Questions: []models.Question{
			{ID: 1, Text: "Rate", Kind: models.KindSingleChoice, Required: true, Options: []string{"good", "bad"}, Points: 1},
			{ID: 2, Text: "Comments", Kind: models.KindLongText, Points: 1},
		},
	}
	quiz := models.Survey{
		ID: 2, Title: "Quiz", Creator: "admin", CreatedAt: created, Active: true,
		Questionnaire: &models.QuestionnaireParams{TimeLimitMinutes: 30, PassingScore: 60, RevealImmediately: true},
		Questions: []models.Question{
			{ID: 3, Text: "Pick", Kind: models.KindSingleChoice, Required: true, Options: []string{"a", "b"}, CorrectAnswer: &answer, Points: 2},
		},
	}
	return &models.Snapshot{
		Surveys: []models.Survey{survey, quiz},
		Responses: []models.Response{
			{ID: 1, SurveyID: 1, Respondent: "ana", CreatedAt: created, Answers: map[int]string{1: "0", 2: "more books"},
				Completed: true, CompletedAt: &done, FinalizedBy: models.FinalizedByRespondent, Moderation: models.ModerationPending},
			{ID: 2, SurveyID: 2, Respondent: "ben", CreatedAt: created, Deadline: &deadline, Answers: map[int]string{3: "1"},
				Completed: true, CompletedAt: &done, FinalizedBy: models.FinalizedByDeadline,
				Grade: &models.Grade{Score: 2, MaxScore: 2, Percent: 100, Passed: true}},
			{ID: 3, SurveyID: 2, Respondent: "cy", CreatedAt: created, Deadline: &deadline, Answers: map[int]string{}},
		},
		NextSurveyID:   3,
		NextResponseID: 4,
		NextQuestionID: 4,
		Audit: []models.AuditEntry{
			{ID: "a1", Time: created, Actor: "admin", Action: "create_survey", Target: "survey:1", Note: "Feedback"},
			{ID: "a2", Time: done, Actor: "ben", Action: "finalize", Target: "response:2", Note: "deadline 2/2"},
		},
	}
}

func assertSnapshotsEqual(t *testing.T, got, want *models.Snapshot) {
	t.Helper()
	if got == nil {
		t.Fatalf("snapshot is nil")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot mismatch\n got: %+v\nwant: %+v", got, want)
	}
}
