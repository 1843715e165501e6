package services

import (
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

// SurveyLookup is the read side of SurveyCatalog used by ResponseStore.
type SurveyLookup interface {
	Get(id int) (*models.Survey, error)
	KnownRole(role string) bool
	QuestionOwner(questionID int) (int, bool)
}

// ResponseStore keeps every response keyed by survey and response id. Ids
// come from one global counter so a response id alone is unambiguous.
type ResponseStore struct {
	mu        sync.RWMutex
	bySurvey  map[int]map[int]*models.Response
	index     map[int]int
	nextID    int
	surveys   SurveyLookup
	deadlines *DeadlineScheduler
	audit     *AuditLog
	now       func() time.Time
	onChange  func()
}

func NewResponseStore(deadlines *DeadlineScheduler) *ResponseStore {
	return &ResponseStore{
		bySurvey:  map[int]map[int]*models.Response{},
		index:     map[int]int{},
		nextID:    1,
		deadlines: deadlines,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func responseTarget(id int) string { return "response:" + strconv.Itoa(id) }

func (s *ResponseStore) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Begin opens a response for respondent. Questionnaires get a deadline armed
// under the new response id.
func (s *ResponseStore) Begin(surveyID int, respondent, role string) (int, error) {
	if s.surveys == nil {
		return 0, NewStateError("response store not attached to a catalog")
	}
	if !s.surveys.KnownRole(role) {
		return 0, NewInvalidError("unknown role: " + role)
	}
	survey, err := s.surveys.Get(surveyID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	if !survey.Active {
		return 0, NewStateError("survey is not active")
	}
	if survey.ClosesAt != nil && !survey.ClosesAt.After(now) {
		return 0, NewStateError("survey is closed")
	}
	if !Visible(survey, role) {
		return 0, NewStateError("survey not available for role " + role)
	}
	if len(survey.Questions) == 0 {
		return 0, NewStateError("survey has no questions")
	}

	s.mu.Lock()
	for _, r := range s.bySurvey[surveyID] {
		if r.Respondent != respondent {
			continue
		}
		completed, open := r.Completed, r.ID
		s.mu.Unlock()
		if completed {
			return 0, NewStateError("survey already completed")
		}
		return 0, NewStateError("response " + strconv.Itoa(open) + " already in progress")
	}
	resp := &models.Response{
		ID:         s.nextID,
		SurveyID:   surveyID,
		Respondent: respondent,
		CreatedAt:  now,
		Answers:    map[int]string{},
	}
	s.nextID++
	if survey.IsQuestionnaire() {
		due := now.Add(time.Duration(survey.Questionnaire.TimeLimitMinutes) * time.Minute)
		resp.Deadline = &due
	}
	if s.bySurvey[surveyID] == nil {
		s.bySurvey[surveyID] = map[int]*models.Response{}
	}
	s.bySurvey[surveyID][resp.ID] = resp
	s.index[resp.ID] = surveyID
	id := resp.ID
	if survey.IsQuestionnaire() && s.deadlines != nil {
		if err := s.deadlines.Arm(id, survey.Questionnaire.TimeLimitMinutes, s.expire(id)); err != nil {
			log.Printf("responses: arm deadline %d: %v", id, err)
		}
	}
	s.mu.Unlock()

	s.changed()
	return id, nil
}

func (s *ResponseStore) expire(responseID int) func() {
	return func() {
		if err := s.finalize(responseID, models.FinalizedByDeadline); err != nil {
			log.Printf("responses: deadline finalize %d: %v", responseID, err)
		}
	}
}

// WriteAnswer upserts one answer. Writes after completion, including a fired
// deadline, are rejected and leave the response unchanged.
func (s *ResponseStore) WriteAnswer(responseID, questionID int, text string) error {
	surveyID, err := s.surveyOf(responseID)
	if err != nil {
		return err
	}
	survey, err := s.surveys.Get(surveyID)
	if err != nil {
		return err
	}
	if survey.Question(questionID) == nil {
		if _, ok := s.surveys.QuestionOwner(questionID); ok {
			return NewStateError("question does not belong to this survey")
		}
		return NewNotFoundError("question not found")
	}

	s.mu.Lock()
	resp, ok := s.bySurvey[surveyID][responseID]
	if !ok {
		s.mu.Unlock()
		return NewNotFoundError("response not found")
	}
	if resp.Completed {
		s.mu.Unlock()
		return NewStateError("response already completed")
	}
	resp.Answers[questionID] = text
	s.mu.Unlock()

	s.changed()
	return nil
}

// Finalize completes a response. Finalizing an already completed response is a no-op.
func (s *ResponseStore) Finalize(responseID int) error {
	return s.finalize(responseID, models.FinalizedByRespondent)
}

func (s *ResponseStore) finalize(responseID int, reason models.FinalizeReason) error {
	surveyID, err := s.surveyOf(responseID)
	if err != nil {
		return err
	}
	survey, err := s.surveys.Get(surveyID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	resp, ok := s.bySurvey[surveyID][responseID]
	if !ok {
		s.mu.Unlock()
		return NewNotFoundError("response not found")
	}
	if resp.Completed {
		s.mu.Unlock()
		s.cancelDeadline(responseID)
		return nil
	}
	now := s.now()
	resp.Completed = true
	resp.CompletedAt = &now
	resp.FinalizedBy = reason
	note := string(reason)
	if survey.IsQuestionnaire() {
		g, err := Grade(survey, resp)
		if err != nil {
			log.Printf("responses: grade %d: %v", responseID, err)
		} else {
			resp.Grade = &g
			note += " " + strconv.Itoa(g.Score) + "/" + strconv.Itoa(g.MaxScore)
		}
	} else {
		resp.Moderation = models.ModerationPending
	}
	respondent := resp.Respondent
	s.mu.Unlock()

	s.cancelDeadline(responseID)
	s.audit.Record(respondent, "finalize", responseTarget(responseID), note)
	s.changed()
	return nil
}

func (s *ResponseStore) cancelDeadline(responseID int) {
	if s.deadlines != nil {
		s.deadlines.Cancel(responseID)
	}
}

// ListForSurvey returns responses ordered by id.
func (s *ResponseStore) ListForSurvey(surveyID int) []*models.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Response, 0, len(s.bySurvey[surveyID]))
	for _, r := range s.bySurvey[surveyID] {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *ResponseStore) Get(surveyID, responseID int) (*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.bySurvey[surveyID][responseID]
	if !ok {
		return nil, NewNotFoundError("response not found")
	}
	return r.Clone(), nil
}

// ByID looks a response up by its global id.
func (s *ResponseStore) ByID(responseID int) (*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	surveyID, ok := s.index[responseID]
	if !ok {
		return nil, NewNotFoundError("response not found")
	}
	return s.bySurvey[surveyID][responseID].Clone(), nil
}

// DeleteAllForSurvey drops every response of a survey and disarms their deadlines.
func (s *ResponseStore) DeleteAllForSurvey(surveyID int) int {
	s.mu.Lock()
	rs := s.bySurvey[surveyID]
	ids := make([]int, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
		delete(s.index, id)
	}
	delete(s.bySurvey, surveyID)
	s.mu.Unlock()

	for _, id := range ids {
		s.cancelDeadline(id)
	}
	if len(ids) > 0 {
		s.changed()
	}
	return len(ids)
}

// AnsweredQuestions returns the question ids holding at least one answer.
func (s *ResponseStore) AnsweredQuestions(surveyID int) map[int]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[int]bool{}
	for _, r := range s.bySurvey[surveyID] {
		for qid := range r.Answers {
			out[qid] = true
		}
	}
	return out
}

// RequiredAnswered reports whether every required question has a non-empty answer.
func (s *ResponseStore) RequiredAnswered(responseID int) (bool, error) {
	resp, err := s.ByID(responseID)
	if err != nil {
		return false, err
	}
	survey, err := s.surveys.Get(resp.SurveyID)
	if err != nil {
		return false, err
	}
	for _, q := range survey.Questions {
		if q.Required && resp.Answers[q.ID] == "" {
			return false, nil
		}
	}
	return true, nil
}

// OpenFor returns the in-progress response of respondent for a survey, if any.
func (s *ResponseStore) OpenFor(surveyID int, respondent string) (*models.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Response
	for _, r := range s.bySurvey[surveyID] {
		if r.Respondent == respondent && !r.Completed && (found == nil || r.ID > found.ID) {
			found = r
		}
	}
	if found == nil {
		return nil, false
	}
	return found.Clone(), true
}

// HasCompleted reports whether respondent already completed the survey.
func (s *ResponseStore) HasCompleted(surveyID int, respondent string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.bySurvey[surveyID] {
		if r.Respondent == respondent && r.Completed {
			return true
		}
	}
	return false
}

// ListByRespondent returns every response of respondent ordered by id.
func (s *ResponseStore) ListByRespondent(respondent string) []*models.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Response{}
	for _, rs := range s.bySurvey {
		for _, r := range rs {
			if r.Respondent == respondent {
				out = append(out, r.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// transition moves a completed response's moderation state from pending to to.
func (s *ResponseStore) transition(responseID int, to models.ModerationState) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	surveyID, ok := s.index[responseID]
	if !ok {
		return nil, NewNotFoundError("response not found")
	}
	r := s.bySurvey[surveyID][responseID]
	if !r.Completed {
		return nil, NewStateError("response not completed")
	}
	if r.Moderation != models.ModerationPending {
		return nil, NewStateError("response is not pending moderation")
	}
	r.Moderation = to
	return r.Clone(), nil
}

func (s *ResponseStore) surveyOf(responseID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	surveyID, ok := s.index[responseID]
	if !ok {
		return 0, NewNotFoundError("response not found")
	}
	return surveyID, nil
}

func (s *ResponseStore) export() ([]models.Response, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]models.Response, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.bySurvey[s.index[id]][id].Clone())
	}
	return out, s.nextID
}

func (s *ResponseStore) restore(responses []models.Response, nextID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySurvey = map[int]map[int]*models.Response{}
	s.index = map[int]int{}
	s.nextID = max(nextID, 1)
	for i := range responses {
		r := responses[i].Clone()
		if r.Answers == nil {
			r.Answers = map[int]string{}
		}
		if s.bySurvey[r.SurveyID] == nil {
			s.bySurvey[r.SurveyID] = map[int]*models.Response{}
		}
		s.bySurvey[r.SurveyID][r.ID] = r
		s.index[r.ID] = r.SurveyID
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
	}
}
