package models

import (
	"strings"
	"time"
)

// QuestionKind selects how a question is answered and graded.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindBoolean      QuestionKind = "boolean"
	KindShortText    QuestionKind = "short_text"
	KindLongText     QuestionKind = "long_text"
)

// Question belongs to exactly one survey; its ID is unique within that survey.
type Question struct {
	ID            int          `json:"id"`
	Text          string       `json:"text" validate:"required"`
	Kind          QuestionKind `json:"kind" validate:"oneof=single_choice boolean short_text long_text"`
	Required      bool         `json:"required"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Points        int          `json:"points" validate:"gte=1"`
}

// NewQuestion returns a required question worth one point.
func NewQuestion(text string, kind QuestionKind, options ...string) Question {
	return Question{Text: text, Kind: kind, Required: true, Options: options, Points: 1}
}

// WithAnswer sets the correct answer used for auto-grading.
func (q Question) WithAnswer(answer string) Question {
	q.CorrectAnswer = &answer
	return q
}

// QuestionnaireParams turns a Survey into a timed, auto-graded questionnaire.
type QuestionnaireParams struct {
	TimeLimitMinutes  int  `json:"time_limit_minutes" validate:"gt=0"`
	PassingScore      int  `json:"passing_score" validate:"min=0,max=100"`
	RevealImmediately bool `json:"reveal_immediately"`
	Randomize         bool `json:"randomize,omitempty"`
}

// DefaultQuestionnaire mirrors the defaults the authoring flow offers.
func DefaultQuestionnaire() *QuestionnaireParams {
	return &QuestionnaireParams{TimeLimitMinutes: 30, PassingScore: 60, RevealImmediately: true}
}

// Survey is either a plain survey or, when Questionnaire is set, a questionnaire.
type Survey struct {
	ID            int                  `json:"id"`
	Title         string               `json:"title" validate:"required"`
	Description   string               `json:"description,omitempty"`
	Creator       string               `json:"creator,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	ClosesAt      *time.Time           `json:"closes_at,omitempty"`
	Active        bool                 `json:"active"`
	AllowedRoles  []string             `json:"allowed_roles,omitempty"`
	Questions     []Question           `json:"questions" validate:"dive"`
	Questionnaire *QuestionnaireParams `json:"questionnaire,omitempty"`
}

// NewSurvey returns an active plain survey.
func NewSurvey(title, description, creator string) *Survey {
	return &Survey{Title: title, Description: description, Creator: creator, Active: true}
}

// NewQuestionnaire returns an active questionnaire with default parameters.
func NewQuestionnaire(title, description, creator string) *Survey {
	s := NewSurvey(title, description, creator)
	s.Questionnaire = DefaultQuestionnaire()
	return s
}

func (s *Survey) IsQuestionnaire() bool { return s.Questionnaire != nil }

// Question returns the question with the given id, or nil.
func (s *Survey) Question(id int) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with a store.
func (s *Survey) Clone() *Survey {
	if s == nil {
		return nil
	}
	cp := *s
	if s.ClosesAt != nil {
		t := *s.ClosesAt
		cp.ClosesAt = &t
	}
	cp.AllowedRoles = append([]string(nil), s.AllowedRoles...)
	cp.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		if q.CorrectAnswer != nil {
			a := *q.CorrectAnswer
			q.CorrectAnswer = &a
		}
		cp.Questions[i] = q
	}
	if s.Questionnaire != nil {
		qp := *s.Questionnaire
		cp.Questionnaire = &qp
	}
	return &cp
}

// ModerationState is only meaningful for completed plain-survey responses.
type ModerationState string

const (
	ModerationNone     ModerationState = ""
	ModerationPending  ModerationState = "pending"
	ModerationApproved ModerationState = "approved"
	ModerationRejected ModerationState = "rejected"
)

// FinalizeReason records which path completed a response.
type FinalizeReason string

const (
	FinalizedByRespondent FinalizeReason = "completed"
	FinalizedByDeadline   FinalizeReason = "deadline"
)

// Grade is the outcome of auto-grading a questionnaire response.
type Grade struct {
	Score    int     `json:"score"`
	MaxScore int     `json:"max_score"`
	Percent  float64 `json:"percent"`
	Passed   bool    `json:"passed"`
}

// Response is one respondent's attempt at a survey.
type Response struct {
	ID          int             `json:"id"`
	SurveyID    int             `json:"survey_id"`
	Respondent  string          `json:"respondent"`
	CreatedAt   time.Time       `json:"created_at"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Answers     map[int]string  `json:"answers"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FinalizedBy FinalizeReason  `json:"finalized_by,omitempty"`
	Grade       *Grade          `json:"grade,omitempty"`
	Moderation  ModerationState `json:"moderation,omitempty"`
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Answers = make(map[int]string, len(r.Answers))
	for k, v := range r.Answers {
		cp.Answers[k] = v
	}
	if r.Deadline != nil {
		t := *r.Deadline
		cp.Deadline = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	if r.Grade != nil {
		g := *r.Grade
		cp.Grade = &g
	}
	return &cp
}

// CompletionPercent is the share of questions with a non-empty answer, truncated to an int.
func (r *Response) CompletionPercent(totalQuestions int) int {
	if totalQuestions == 0 {
		return 0
	}
	answered := 0
	for _, v := range r.Answers {
		if strings.TrimSpace(v) != "" {
			answered++
		}
	}
	return int(float64(answered) / float64(totalQuestions) * 100)
}

// AuditEntry records an authoring or moderation action.
type AuditEntry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

// Snapshot is the full persisted state of the engine.
type Snapshot struct {
	Surveys        []Survey     `json:"surveys"`
	Responses      []Response   `json:"responses"`
	NextSurveyID   int          `json:"next_survey_id"`
	NextResponseID int          `json:"next_response_id"`
	NextQuestionID int          `json:"next_question_id"`
	Audit          []AuditEntry `json:"audit,omitempty"`
}

// EmptySnapshot is the valid initial state: no data, all counters at 1.
func EmptySnapshot() *Snapshot {
	return &Snapshot{NextSurveyID: 1, NextResponseID: 1, NextQuestionID: 1}
}
