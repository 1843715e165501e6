package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

// PersistenceGateway loads and atomically replaces the whole engine state.
type PersistenceGateway interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
}

var DefaultRoles = []string{"admin", "librarian", "student"}

// Engine wires the catalog, response store, deadlines and moderation around
// one persistence gateway. Build one per process and pass it down.
type Engine struct {
	Catalog    *SurveyCatalog
	Responses  *ResponseStore
	Deadlines  *DeadlineScheduler
	Moderation *ModerationWorkflow

	gateway     PersistenceGateway
	audit       *AuditLog
	saveMu      sync.Mutex
	saveTimeout time.Duration
	now         func() time.Time
}

// Result is what a respondent or moderator sees for a completed response.
type Result struct {
	ResponseID        int
	SurveyID          int
	SurveyTitle       string
	Respondent        string
	Questionnaire     bool
	Revealed          bool
	Grade             *models.Grade
	Moderation        models.ModerationState
	FinalizedBy       models.FinalizeReason
	CompletionPercent int
}

func NewEngine(gateway PersistenceGateway, roles []string) *Engine {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	audit := NewAuditLog()
	deadlines := NewDeadlineScheduler()
	responses := NewResponseStore(deadlines)
	catalog := NewSurveyCatalog(roles, responses)
	responses.surveys = catalog
	moderation := NewModerationWorkflow(responses, catalog)

	e := &Engine{
		Catalog:     catalog,
		Responses:   responses,
		Deadlines:   deadlines,
		Moderation:  moderation,
		gateway:     gateway,
		audit:       audit,
		saveTimeout: 10 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	catalog.audit = audit
	responses.audit = audit
	moderation.audit = audit
	catalog.onChange = e.persist
	responses.onChange = e.persist
	moderation.onChange = e.persist
	return e
}

// SetClock replaces the time source of every component.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.Catalog.now = now
	e.Responses.now = now
	e.Deadlines.now = now
	e.audit.now = now
}

// Load restores state from the gateway. On failure the engine starts empty
// and the error is returned for logging only.
func (e *Engine) Load(ctx context.Context) error {
	e.Deadlines.Stop()
	if e.gateway == nil {
		e.restore(models.EmptySnapshot())
		return nil
	}
	snap, err := e.gateway.LoadSnapshot(ctx)
	if err != nil {
		log.Printf("engine: load snapshot: %v", err)
		e.restore(models.EmptySnapshot())
		return NewPersistenceError("load snapshot: " + err.Error())
	}
	if snap == nil {
		snap = models.EmptySnapshot()
	}
	e.restore(snap)
	e.rearm()
	return nil
}

func (e *Engine) restore(snap *models.Snapshot) {
	e.Catalog.restore(snap.Surveys, snap.NextSurveyID, snap.NextQuestionID)
	e.Responses.restore(snap.Responses, snap.NextResponseID)
	e.audit.restore(snap.Audit)
}

// rearm resumes deadlines of in-progress questionnaire responses. Deadlines
// that passed while the process was down finalize immediately.
func (e *Engine) rearm() {
	now := e.now()
	for _, s := range e.Catalog.ListAll() {
		if !s.IsQuestionnaire() {
			continue
		}
		for _, r := range e.Responses.ListForSurvey(s.ID) {
			if r.Completed || r.Deadline == nil {
				continue
			}
			remaining := r.Deadline.Sub(now)
			if remaining <= 0 {
				if err := e.Responses.finalize(r.ID, models.FinalizedByDeadline); err != nil {
					log.Printf("engine: finalize expired %d: %v", r.ID, err)
				}
				continue
			}
			if err := e.Deadlines.ArmAfter(r.ID, remaining, e.Responses.expire(r.ID)); err != nil {
				log.Printf("engine: rearm %d: %v", r.ID, err)
			}
		}
	}
}

// Snapshot captures the current state. Stores are read one at a time.
func (e *Engine) Snapshot() *models.Snapshot {
	surveys, nextSurvey, nextQuestion := e.Catalog.export()
	responses, nextResponse := e.Responses.export()
	return &models.Snapshot{
		Surveys:        surveys,
		Responses:      responses,
		NextSurveyID:   nextSurvey,
		NextResponseID: nextResponse,
		NextQuestionID: nextQuestion,
		Audit:          e.audit.Entries(),
	}
}

// Save writes the current state. Saves are serialized and always capture
// the state as of the moment they run.
func (e *Engine) Save(ctx context.Context) error {
	if e.gateway == nil {
		return nil
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if err := e.gateway.SaveSnapshot(ctx, e.Snapshot()); err != nil {
		return NewPersistenceError("save snapshot: " + err.Error())
	}
	return nil
}

func (e *Engine) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
	defer cancel()
	if err := e.Save(ctx); err != nil {
		log.Printf("engine: %v", err)
	}
}

// Shutdown disarms every deadline and writes a final snapshot.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Deadlines.Stop()
	return e.Save(ctx)
}

func (e *Engine) ListForRole(role string) ([]*models.Survey, error) {
	return e.Catalog.ListForRole(role)
}

func (e *Engine) Begin(surveyID int, respondent, role string) (int, error) {
	return e.Responses.Begin(surveyID, respondent, role)
}

// BeginAs starts a response for the signed-in user of auth.
func (e *Engine) BeginAs(auth AuthManager, surveyID int) (int, error) {
	identity, role, ok := auth.CurrentUser()
	if !ok {
		return 0, NewStateError("not signed in")
	}
	return e.Responses.Begin(surveyID, identity, role)
}

func (e *Engine) WriteAnswer(responseID, questionID int, text string) error {
	return e.Responses.WriteAnswer(responseID, questionID, text)
}

func (e *Engine) Finalize(responseID int) error {
	return e.Responses.Finalize(responseID)
}

// IsCompleted is polled by respondent flows between questions.
func (e *Engine) IsCompleted(responseID int) (bool, error) {
	r, err := e.Responses.ByID(responseID)
	if err != nil {
		return false, err
	}
	return r.Completed, nil
}

// OpenResponse returns the respondent's in-progress response for resuming.
func (e *Engine) OpenResponse(surveyID int, respondent string) (int, bool) {
	r, ok := e.Responses.OpenFor(surveyID, respondent)
	if !ok {
		return 0, false
	}
	return r.ID, true
}

// GetResult reports a completed response to its respondent. A held
// questionnaire result carries no grade; moderators read it from the response.
func (e *Engine) GetResult(responseID int) (*Result, error) {
	r, err := e.Responses.ByID(responseID)
	if err != nil {
		return nil, err
	}
	if !r.Completed {
		return nil, NewStateError("response not completed")
	}
	s, err := e.Catalog.Get(r.SurveyID)
	if err != nil {
		return nil, err
	}
	res := &Result{
		ResponseID:        r.ID,
		SurveyID:          s.ID,
		SurveyTitle:       s.Title,
		Respondent:        r.Respondent,
		Questionnaire:     s.IsQuestionnaire(),
		Revealed:          true,
		Moderation:        r.Moderation,
		FinalizedBy:       r.FinalizedBy,
		CompletionPercent: r.CompletionPercent(len(s.Questions)),
	}
	if s.IsQuestionnaire() {
		res.Revealed = s.Questionnaire.RevealImmediately
		if res.Revealed && r.Grade != nil {
			g := *r.Grade
			res.Grade = &g
		}
	}
	return res, nil
}

func (e *Engine) Approve(responseID int, moderator string) error {
	return e.Moderation.Approve(responseID, moderator)
}

func (e *Engine) Reject(responseID int, moderator string) error {
	return e.Moderation.Reject(responseID, moderator)
}

// CloseExpired deactivates surveys past their closing time and returns how many closed.
func (e *Engine) CloseExpired(now time.Time) int {
	return len(e.Catalog.CloseExpired(now))
}

func (e *Engine) Audit() []models.AuditEntry {
	return e.audit.Entries()
}
