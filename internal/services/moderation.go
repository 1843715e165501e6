package services

import (
	"sort"

	"github.com/soaringjerry/Assay/internal/models"
)

// ModerationWorkflow reviews completed plain-survey responses. Approved and
// rejected are terminal.
type ModerationWorkflow struct {
	responses *ResponseStore
	surveys   SurveyLookup
	audit     *AuditLog
	onChange  func()
}

func NewModerationWorkflow(responses *ResponseStore, surveys SurveyLookup) *ModerationWorkflow {
	return &ModerationWorkflow{responses: responses, surveys: surveys}
}

func (m *ModerationWorkflow) Approve(responseID int, moderator string) error {
	return m.decide(responseID, moderator, models.ModerationApproved)
}

func (m *ModerationWorkflow) Reject(responseID int, moderator string) error {
	return m.decide(responseID, moderator, models.ModerationRejected)
}

func (m *ModerationWorkflow) decide(responseID int, moderator string, to models.ModerationState) error {
	resp, err := m.responses.ByID(responseID)
	if err != nil {
		return err
	}
	survey, err := m.surveys.Get(resp.SurveyID)
	if err != nil {
		return err
	}
	if survey.IsQuestionnaire() {
		return NewStateError("questionnaire responses are graded, not moderated")
	}
	if _, err := m.responses.transition(responseID, to); err != nil {
		return err
	}
	action := "approve"
	if to == models.ModerationRejected {
		action = "reject"
	}
	m.audit.Record(moderator, action, responseTarget(responseID), "")
	if m.onChange != nil {
		m.onChange()
	}
	return nil
}

// ListPending returns pending responses of one survey, or of all surveys when surveyID is 0.
func (m *ModerationWorkflow) ListPending(surveyID int) []*models.Response {
	s := m.responses
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Response{}
	for sid, rs := range s.bySurvey {
		if surveyID != 0 && sid != surveyID {
			continue
		}
		for _, r := range rs {
			if r.Completed && r.Moderation == models.ModerationPending {
				out = append(out, r.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
