package console

import (
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

const closesAtLayout = "2006-01-02 15:04"

var questionKinds = []models.QuestionKind{
	models.KindSingleChoice,
	models.KindBoolean,
	models.KindShortText,
	models.KindLongText,
}

// readField prompts for a value; when editing, the current value is shown and
// kept on a blank answer.
func (s *Session) readField(key, current string, editing bool) (string, error) {
	prompt := s.t(key)
	if editing && current != "" {
		prompt += "[" + current + "] "
	}
	line, err := s.Prompt.ReadLine(prompt)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" && editing {
		return current, nil
	}
	return line, nil
}

func (s *Session) readIntField(key string, current int) (int, error) {
	line, err := s.readField(key, strconv.Itoa(current), true)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, errBadInput
	}
	return n, nil
}

func (s *Session) readYesNo(key string, current bool) (bool, error) {
	line, err := s.Prompt.ReadLine(s.t(key))
	if err != nil {
		return false, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	v, ok := parseBoolAnswer(line)
	if !ok {
		return false, errBadInput
	}
	return v == "true", nil
}

func splitList(line string) []string {
	var out []string
	for _, part := range strings.Split(line, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func createSurvey(s *Session) error { return createWith(s, false) }

func createQuestionnaire(s *Session) error { return createWith(s, true) }

// createWith stores a draft and then collects questions until a blank text.
// The draft is published separately once it has questions.
func createWith(s *Session, quiz bool) error {
	creator, _, _ := s.Auth.CurrentUser()
	title, err := s.readField("author.title", "", false)
	if err != nil {
		return err
	}
	desc, err := s.readField("author.description", "", false)
	if err != nil {
		return err
	}
	sv := models.NewSurvey(title, desc, creator)
	if quiz {
		sv.Questionnaire = models.DefaultQuestionnaire()
		if err := s.readQuestionnaire(sv.Questionnaire); err != nil {
			return err
		}
	}
	sv.Active = false
	id, err := s.Engine.Catalog.Create(sv)
	if err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.created")+"\n", id)

	s.Prompt.Println(s.t("author.more"))
	for {
		q, done, err := s.readQuestion(quiz, nil)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		qid, err := s.Engine.Catalog.AddQuestion(id, q)
		if err != nil {
			s.Prompt.Printf(s.t("error.prefix")+"\n", err)
			continue
		}
		s.Prompt.Printf(s.t("author.question_added")+"\n", qid)
	}
}

func (s *Session) readQuestionnaire(qp *models.QuestionnaireParams) error {
	var err error
	if qp.TimeLimitMinutes, err = s.readIntField("author.time_limit", qp.TimeLimitMinutes); err != nil {
		return err
	}
	if qp.PassingScore, err = s.readIntField("author.passing", qp.PassingScore); err != nil {
		return err
	}
	if qp.RevealImmediately, err = s.readYesNo("author.reveal", qp.RevealImmediately); err != nil {
		return err
	}
	qp.Randomize, err = s.readYesNo("author.randomize", qp.Randomize)
	return err
}

// readQuestion collects one question. With current nil a blank text reports
// done; otherwise blank answers keep the current values.
func (s *Session) readQuestion(quiz bool, current *models.Question) (models.Question, bool, error) {
	editing := current != nil
	q := models.NewQuestion("", models.KindSingleChoice)
	if editing {
		q = *current
	}
	text, err := s.readField("author.question_text", q.Text, editing)
	if err != nil {
		return q, false, err
	}
	if text == "" {
		return q, true, nil
	}
	q.Text = text

	kindLine, err := s.readField("author.kind", kindNumber(q.Kind), editing)
	if err != nil {
		return q, false, err
	}
	n, err := strconv.Atoi(kindLine)
	if err != nil || n < 1 || n > len(questionKinds) {
		return q, false, errBadInput
	}
	if kind := questionKinds[n-1]; kind != q.Kind {
		q.Kind = kind
		q.Options = nil
		q.CorrectAnswer = nil
	}
	if q.Kind == models.KindSingleChoice {
		line, err := s.readField("author.options", strings.Join(q.Options, ", "), editing)
		if err != nil {
			return q, false, err
		}
		q.Options = splitList(line)
	}
	if q.Required, err = s.readYesNo("author.required", q.Required); err != nil {
		return q, false, err
	}
	if !quiz {
		return q, false, nil
	}
	if q.Points, err = s.readIntField("author.points", q.Points); err != nil {
		return q, false, err
	}
	answer, err := s.readField("author.correct", displayCorrect(q), editing)
	if err != nil {
		return q, false, err
	}
	if answer == "" {
		q.CorrectAnswer = nil
		return q, false, nil
	}
	stored, err := storedAnswer(q, answer)
	if err != nil {
		return q, false, err
	}
	q = q.WithAnswer(stored)
	return q, false, nil
}

func kindNumber(k models.QuestionKind) string {
	for i, kind := range questionKinds {
		if kind == k {
			return strconv.Itoa(i + 1)
		}
	}
	return ""
}

// displayCorrect shows a stored correct answer the way an author types it.
func displayCorrect(q models.Question) string {
	if q.CorrectAnswer == nil {
		return ""
	}
	if q.Kind == models.KindSingleChoice {
		if i, err := strconv.Atoi(*q.CorrectAnswer); err == nil {
			return strconv.Itoa(i + 1)
		}
	}
	return *q.CorrectAnswer
}

// storedAnswer converts an authored answer to the stored form used by grading.
func storedAnswer(q models.Question, answer string) (string, error) {
	switch q.Kind {
	case models.KindSingleChoice:
		i, err := strconv.Atoi(answer)
		if err != nil || i < 1 || i > len(q.Options) {
			return "", errBadInput
		}
		return strconv.Itoa(i - 1), nil
	case models.KindBoolean:
		v, ok := parseBoolAnswer(answer)
		if !ok {
			return "", errBadInput
		}
		return v, nil
	}
	return answer, nil
}

func (s *Session) pickSurvey() (*models.Survey, error) {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return nil, err
	}
	return s.Engine.Catalog.Get(id)
}

func editDetails(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	s.Prompt.Println(s.t("author.keep"))
	if sv.Title, err = s.readField("author.title", sv.Title, true); err != nil {
		return err
	}
	if sv.Description, err = s.readField("author.description", sv.Description, true); err != nil {
		return err
	}
	current := ""
	if sv.ClosesAt != nil {
		current = sv.ClosesAt.UTC().Format(closesAtLayout)
	}
	line, err := s.readField("author.closes_at", current, true)
	if err != nil {
		return err
	}
	switch line {
	case current:
	case "-":
		sv.ClosesAt = nil
	default:
		at, err := time.ParseInLocation(closesAtLayout, line, time.UTC)
		if err != nil {
			return errBadInput
		}
		sv.ClosesAt = &at
	}
	if sv.IsQuestionnaire() {
		if err := s.readQuestionnaire(sv.Questionnaire); err != nil {
			return err
		}
	}
	if err := s.Engine.Catalog.Update(sv); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.updated")+"\n", sv.ID)
	return nil
}

func addQuestion(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	q, done, err := s.readQuestion(sv.IsQuestionnaire(), nil)
	if err != nil {
		return err
	}
	if done {
		return errBadInput
	}
	qid, err := s.Engine.Catalog.AddQuestion(sv.ID, q)
	if err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.question_added")+"\n", qid)
	return nil
}

// pickQuestion lists the survey's questions and reads one id.
func (s *Session) pickQuestion(sv *models.Survey) (*models.Question, error) {
	for _, q := range sv.Questions {
		s.Prompt.Printf("%d. %s (%s)\n", q.ID, q.Text, q.Kind)
	}
	id, err := s.readInt("question.pick")
	if err != nil {
		return nil, err
	}
	q := sv.Question(id)
	if q == nil {
		return nil, errBadInput
	}
	return q, nil
}

func editQuestion(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	current, err := s.pickQuestion(sv)
	if err != nil {
		return err
	}
	s.Prompt.Println(s.t("author.keep"))
	q, _, err := s.readQuestion(sv.IsQuestionnaire(), current)
	if err != nil {
		return err
	}
	q.ID = current.ID
	if err := s.Engine.Catalog.UpdateQuestion(sv.ID, q); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.question_updated")+"\n", q.ID)
	return nil
}

func removeQuestion(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	q, err := s.pickQuestion(sv)
	if err != nil {
		return err
	}
	if err := s.Engine.Catalog.RemoveQuestion(sv.ID, q.ID); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.question_removed")+"\n", q.ID)
	return nil
}

func setRoles(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.available")+"\n", strings.Join(s.Engine.Catalog.Roles(), ", "))
	line, err := s.Prompt.ReadLine(s.t("author.roles"))
	if err != nil {
		return err
	}
	sv.AllowedRoles = splitList(line)
	if err := s.Engine.Catalog.Update(sv); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.updated")+"\n", sv.ID)
	return nil
}

func publishSurvey(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	if err := s.Engine.Catalog.Publish(id); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.published")+"\n", id)
	return nil
}

func deleteSurvey(s *Session) error {
	sv, err := s.pickSurvey()
	if err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.delete_warning")+"\n", sv.Title, len(s.Engine.Responses.ListForSurvey(sv.ID)))
	ok, err := s.readYesNo("author.confirm", false)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	actor, _, _ := s.Auth.CurrentUser()
	if err := s.Engine.Catalog.Delete(sv.ID, actor); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("author.deleted")+"\n", sv.ID)
	return nil
}
