package services

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

// ResponseIndex is the slice of ResponseStore the catalog needs for cascades.
type ResponseIndex interface {
	DeleteAllForSurvey(surveyID int) int
	AnsweredQuestions(surveyID int) map[int]bool
}

// SurveyCatalog owns survey definitions. Survey and question ids come from
// monotonic counters and are never reused.
type SurveyCatalog struct {
	mu             sync.RWMutex
	surveys        map[int]*models.Survey
	order          []int
	nextSurveyID   int
	nextQuestionID int
	roles          map[string]bool
	roleList       []string

	responses ResponseIndex
	audit     *AuditLog
	now       func() time.Time
	onChange  func()
}

func NewSurveyCatalog(roles []string, responses ResponseIndex) *SurveyCatalog {
	c := &SurveyCatalog{
		surveys:        map[int]*models.Survey{},
		nextSurveyID:   1,
		nextQuestionID: 1,
		roles:          map[string]bool{},
		responses:      responses,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, r := range roles {
		if r == "" || c.roles[r] {
			continue
		}
		c.roles[r] = true
		c.roleList = append(c.roleList, r)
	}
	return c
}

func surveyTarget(id int) string { return "survey:" + strconv.Itoa(id) }

func (c *SurveyCatalog) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *SurveyCatalog) KnownRole(role string) bool { return c.roles[role] }

func (c *SurveyCatalog) Roles() []string { return append([]string(nil), c.roleList...) }

// Create stores a new survey. Ids of zero are assigned; the caller's value
// is updated with the assigned survey and question ids and defaulted points.
// An explicit id must not have been handed out before.
func (c *SurveyCatalog) Create(s *models.Survey) (int, error) {
	defaultPoints(s.Questions)
	if err := validateSurvey(s, c.roles); err != nil {
		return 0, err
	}
	cp := s.Clone()
	c.mu.Lock()
	if cp.ID != 0 {
		if _, exists := c.surveys[cp.ID]; exists {
			c.mu.Unlock()
			return 0, NewInvalidError("survey id already in use")
		}
		if cp.ID < c.nextSurveyID {
			c.mu.Unlock()
			return 0, NewInvalidError("survey id " + strconv.Itoa(cp.ID) + " was already used")
		}
	}
	if err := c.checkQuestionOwnersLocked(cp.ID, cp.Questions); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	if cp.ID == 0 {
		cp.ID = c.nextSurveyID
	}
	if cp.ID >= c.nextSurveyID {
		c.nextSurveyID = cp.ID + 1
	}
	c.assignQuestionIDsLocked(cp.Questions)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = c.now()
	}
	c.surveys[cp.ID] = cp
	c.order = append(c.order, cp.ID)
	s.ID = cp.ID
	for i := range s.Questions {
		s.Questions[i].ID = cp.Questions[i].ID
	}
	c.mu.Unlock()

	c.audit.Record(cp.Creator, "create_survey", surveyTarget(cp.ID), cp.Title)
	c.changed()
	return cp.ID, nil
}

// Publish activates a survey; a survey without questions cannot be published.
func (c *SurveyCatalog) Publish(id int) error {
	c.mu.Lock()
	s, ok := c.surveys[id]
	if !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	if len(s.Questions) == 0 {
		c.mu.Unlock()
		return NewInvalidError("survey has no questions")
	}
	s.Active = true
	actor := s.Creator
	c.mu.Unlock()

	c.audit.Record(actor, "publish_survey", surveyTarget(id), "")
	c.changed()
	return nil
}

// Close deactivates a survey so no new responses can begin.
func (c *SurveyCatalog) Close(id int, actor string) error {
	c.mu.Lock()
	s, ok := c.surveys[id]
	if !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	s.Active = false
	c.mu.Unlock()

	c.audit.Record(actor, "close_survey", surveyTarget(id), "")
	c.changed()
	return nil
}

// Update replaces a survey definition. Removing a question that already has
// recorded answers is a state error.
func (c *SurveyCatalog) Update(s *models.Survey) error {
	defaultPoints(s.Questions)
	if err := validateSurvey(s, c.roles); err != nil {
		return err
	}
	answered := c.answered(s.ID)
	cp := s.Clone()
	c.mu.Lock()
	existing, ok := c.surveys[cp.ID]
	if !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	keep := map[int]bool{}
	for _, q := range cp.Questions {
		if q.ID != 0 {
			keep[q.ID] = true
		}
	}
	for _, q := range existing.Questions {
		if !keep[q.ID] && answered[q.ID] {
			c.mu.Unlock()
			return NewStateError("question " + strconv.Itoa(q.ID) + " has recorded answers")
		}
	}
	if err := c.checkQuestionOwnersLocked(cp.ID, cp.Questions); err != nil {
		c.mu.Unlock()
		return err
	}
	c.assignQuestionIDsLocked(cp.Questions)
	cp.CreatedAt = existing.CreatedAt
	if cp.Creator == "" {
		cp.Creator = existing.Creator
	}
	c.surveys[cp.ID] = cp
	for i := range s.Questions {
		s.Questions[i].ID = cp.Questions[i].ID
	}
	c.mu.Unlock()

	c.audit.Record(cp.Creator, "update_survey", surveyTarget(cp.ID), cp.Title)
	c.changed()
	return nil
}

// Delete removes a survey and then its responses. The two steps are not atomic.
func (c *SurveyCatalog) Delete(id int, actor string) error {
	c.mu.Lock()
	if _, ok := c.surveys[id]; !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	delete(c.surveys, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	removed := 0
	if c.responses != nil {
		removed = c.responses.DeleteAllForSurvey(id)
	}
	c.audit.Record(actor, "delete_survey", surveyTarget(id), strconv.Itoa(removed))
	c.changed()
	return nil
}

func (c *SurveyCatalog) Get(id int) (*models.Survey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.surveys[id]
	if !ok {
		return nil, NewNotFoundError("survey not found")
	}
	return s.Clone(), nil
}

// ListAll returns every survey in creation order.
func (c *SurveyCatalog) ListAll() []*models.Survey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.Survey, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.surveys[id].Clone())
	}
	return out
}

// ListForRole returns the active surveys visible to role.
func (c *SurveyCatalog) ListForRole(role string) ([]*models.Survey, error) {
	if !c.roles[role] {
		return nil, NewInvalidError("unknown role: " + role)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []*models.Survey{}
	for _, id := range c.order {
		s := c.surveys[id]
		if s.Active && Visible(s, role) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (c *SurveyCatalog) AddQuestion(surveyID int, q models.Question) (int, error) {
	if q.Points == 0 {
		q.Points = 1
	}
	if err := validateQuestion(q); err != nil {
		return 0, err
	}
	c.mu.Lock()
	s, ok := c.surveys[surveyID]
	if !ok {
		c.mu.Unlock()
		return 0, NewNotFoundError("survey not found")
	}
	if q.ID != 0 && s.Question(q.ID) != nil {
		c.mu.Unlock()
		return 0, NewInvalidError("duplicate question id " + strconv.Itoa(q.ID))
	}
	qs := []models.Question{q}
	if err := c.checkQuestionOwnersLocked(surveyID, qs); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.assignQuestionIDsLocked(qs)
	s.Questions = append(s.Questions, cloneQuestion(qs[0]))
	actor := s.Creator
	c.mu.Unlock()

	c.audit.Record(actor, "add_question", surveyTarget(surveyID), strconv.Itoa(qs[0].ID))
	c.changed()
	return qs[0].ID, nil
}

func (c *SurveyCatalog) UpdateQuestion(surveyID int, q models.Question) error {
	if q.Points == 0 {
		q.Points = 1
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	c.mu.Lock()
	s, ok := c.surveys[surveyID]
	if !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	existing := s.Question(q.ID)
	if existing == nil {
		c.mu.Unlock()
		return NewNotFoundError("question not found")
	}
	*existing = cloneQuestion(q)
	actor := s.Creator
	c.mu.Unlock()

	c.audit.Record(actor, "update_question", surveyTarget(surveyID), strconv.Itoa(q.ID))
	c.changed()
	return nil
}

func (c *SurveyCatalog) RemoveQuestion(surveyID, questionID int) error {
	if c.answered(surveyID)[questionID] {
		return NewStateError("question " + strconv.Itoa(questionID) + " has recorded answers")
	}
	c.mu.Lock()
	s, ok := c.surveys[surveyID]
	if !ok {
		c.mu.Unlock()
		return NewNotFoundError("survey not found")
	}
	idx := -1
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return NewNotFoundError("question not found")
	}
	s.Questions = append(s.Questions[:idx], s.Questions[idx+1:]...)
	actor := s.Creator
	c.mu.Unlock()

	c.audit.Record(actor, "remove_question", surveyTarget(surveyID), strconv.Itoa(questionID))
	c.changed()
	return nil
}

// QuestionOwner returns the survey holding a question id.
func (c *SurveyCatalog) QuestionOwner(questionID int) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ownerLocked(questionID)
}

// CloseExpired deactivates active surveys whose closing time is at or before now.
func (c *SurveyCatalog) CloseExpired(now time.Time) []int {
	c.mu.Lock()
	closed := []int{}
	for _, id := range c.order {
		s := c.surveys[id]
		if s.Active && s.ClosesAt != nil && !s.ClosesAt.After(now) {
			s.Active = false
			closed = append(closed, id)
		}
	}
	c.mu.Unlock()
	if len(closed) == 0 {
		return closed
	}
	for _, id := range closed {
		c.audit.Record("scheduler", "close_survey", surveyTarget(id), "expired")
	}
	c.changed()
	return closed
}

func (c *SurveyCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.surveys)
}

func (c *SurveyCatalog) answered(surveyID int) map[int]bool {
	if c.responses == nil {
		return nil
	}
	return c.responses.AnsweredQuestions(surveyID)
}

func (c *SurveyCatalog) ownerLocked(questionID int) (int, bool) {
	for _, id := range c.order {
		if c.surveys[id].Question(questionID) != nil {
			return id, true
		}
	}
	return 0, false
}

// checkQuestionOwnersLocked accepts an explicit question id only when it is
// already part of surveyID or has never been handed out.
func (c *SurveyCatalog) checkQuestionOwnersLocked(surveyID int, qs []models.Question) error {
	for _, q := range qs {
		if q.ID == 0 {
			continue
		}
		owner, ok := c.ownerLocked(q.ID)
		if ok && owner != surveyID {
			return NewInvalidError("question id " + strconv.Itoa(q.ID) + " belongs to another survey")
		}
		if !ok && q.ID < c.nextQuestionID {
			return NewInvalidError("question id " + strconv.Itoa(q.ID) + " was already used")
		}
	}
	return nil
}

// defaultPoints gives unscored questions the default weight of one.
func defaultPoints(qs []models.Question) {
	for i := range qs {
		if qs[i].Points == 0 {
			qs[i].Points = 1
		}
	}
}

func (c *SurveyCatalog) assignQuestionIDsLocked(qs []models.Question) {
	for i := range qs {
		if qs[i].ID == 0 {
			qs[i].ID = c.nextQuestionID
		}
		if qs[i].ID >= c.nextQuestionID {
			c.nextQuestionID = qs[i].ID + 1
		}
	}
}

func (c *SurveyCatalog) export() ([]models.Survey, int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Survey, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.surveys[id].Clone())
	}
	return out, c.nextSurveyID, c.nextQuestionID
}

func (c *SurveyCatalog) restore(surveys []models.Survey, nextSurveyID, nextQuestionID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surveys = map[int]*models.Survey{}
	c.order = nil
	c.nextSurveyID = max(nextSurveyID, 1)
	c.nextQuestionID = max(nextQuestionID, 1)
	sorted := append([]models.Survey(nil), surveys...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i := range sorted {
		s := sorted[i].Clone()
		c.surveys[s.ID] = s
		c.order = append(c.order, s.ID)
		if s.ID >= c.nextSurveyID {
			c.nextSurveyID = s.ID + 1
		}
		for _, q := range s.Questions {
			if q.ID >= c.nextQuestionID {
				c.nextQuestionID = q.ID + 1
			}
		}
	}
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = append([]string(nil), q.Options...)
	if q.CorrectAnswer != nil {
		a := *q.CorrectAnswer
		q.CorrectAnswer = &a
	}
	return q
}
