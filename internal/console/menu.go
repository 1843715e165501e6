package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/soaringjerry/Assay/internal/auth"
	"github.com/soaringjerry/Assay/internal/models"
	"github.com/soaringjerry/Assay/internal/services"
	"github.com/soaringjerry/Assay/internal/utils"
)

// Session carries what the menus need for one signed-in console user.
type Session struct {
	Engine *services.Engine
	Auth   *auth.Manager
	Prompt Prompter
	Locale string
}

func (s *Session) t(key string) string { return utils.T(s.Locale, key) }

// Action is one numbered menu entry; Key is its i18n label.
type Action struct {
	Key string
	Run func(*Session) error
}

// MenuFunc builds the entries offered to a role.
type MenuFunc func(*Session) []Action

// Menus maps roles to their menu. Roles without an entry get the respondent menu.
var Menus = map[string]MenuFunc{
	"admin": adminMenu,
}

func MenuFor(role string) MenuFunc {
	if f, ok := Menus[role]; ok {
		return f
	}
	return respondentMenu
}

func respondentMenu(s *Session) []Action {
	actions := []Action{
		{"menu.list", listVisible},
		{"menu.take", takeSurvey},
		{"menu.mine", myResponses},
	}
	return withRoleSwitch(s, actions)
}

func adminMenu(s *Session) []Action {
	actions := []Action{
		{"menu.list", listAll},
		{"menu.take", takeSurvey},
		{"menu.report", showReport},
		{"menu.moderate", moderate},
		{"menu.export_csv", exportCSV},
		{"menu.export_pdf", exportPDF},
		{"menu.close", closeSurvey},
		{"menu.audit", showAudit},
		{"menu.create", createSurvey},
		{"menu.create_quiz", createQuestionnaire},
		{"menu.edit", editDetails},
		{"menu.add_question", addQuestion},
		{"menu.edit_question", editQuestion},
		{"menu.remove_question", removeQuestion},
		{"menu.roles", setRoles},
		{"menu.publish", publishSurvey},
		{"menu.delete", deleteSurvey},
	}
	return withRoleSwitch(s, actions)
}

func withRoleSwitch(s *Session, actions []Action) []Action {
	id, _, ok := s.Auth.CurrentUser()
	if ok && len(s.Auth.RolesOf(id)) > 1 {
		actions = append(actions, Action{"menu.role", switchRole})
	}
	return actions
}

// Login prompts for credentials until one succeeds, the limiter refuses, or
// attempts run out.
func Login(s *Session, attempts int) error {
	var last error
	for i := 0; i < attempts; i++ {
		user, err := s.Prompt.ReadLine(s.t("login.username"))
		if err != nil {
			return err
		}
		pass, err := s.Prompt.ReadSecret(s.t("login.password"))
		if err != nil {
			return err
		}
		sess, err := s.Auth.Login(user, pass)
		if err == nil {
			s.Prompt.Printf(s.t("login.welcome")+"\n", sess.Username, sess.Role)
			return nil
		}
		last = err
		if services.IsCode(err, services.ErrorState) {
			s.Prompt.Println(s.t("login.throttled"))
			return err
		}
		s.Prompt.Println(s.t("login.failed"))
	}
	return last
}

// Run shows the menu of the active role until the user exits. The role is
// resolved again on every pass, so switching roles takes effect immediately.
func Run(s *Session) error {
	for {
		_, role, ok := s.Auth.CurrentUser()
		if !ok {
			return services.NewStateError("not signed in")
		}
		actions := MenuFor(role)(s)
		s.Prompt.Println()
		s.Prompt.Printf("%s [%s]\n", s.t("menu.title"), role)
		for i, a := range actions {
			s.Prompt.Printf("%d) %s\n", i+1, s.t(a.Key))
		}
		s.Prompt.Printf("0) %s\n", s.t("menu.exit"))
		line, err := s.Prompt.ReadLine(s.t("menu.choice"))
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 0 || n > len(actions) {
			s.Prompt.Println(s.t("menu.invalid"))
			continue
		}
		if n == 0 {
			return nil
		}
		if err := actions[n-1].Run(s); err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			s.Prompt.Printf(s.t("error.prefix")+"\n", err)
		}
	}
}

var errBadInput = errors.New("invalid input")

func (s *Session) readInt(key string) (int, error) {
	line, err := s.Prompt.ReadLine(s.t(key))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, errBadInput
	}
	return n, nil
}

func (s *Session) describe(sv *models.Survey) string {
	kind := s.t("survey.plain")
	if sv.IsQuestionnaire() {
		kind = fmt.Sprintf(s.t("survey.quiz"), sv.Questionnaire.TimeLimitMinutes, sv.Questionnaire.PassingScore)
	}
	return fmt.Sprintf("%d. %s (%s)", sv.ID, sv.Title, kind)
}

func listVisible(s *Session) error {
	_, role, _ := s.Auth.CurrentUser()
	surveys, err := s.Engine.ListForRole(role)
	if err != nil {
		return err
	}
	if len(surveys) == 0 {
		s.Prompt.Println(s.t("survey.none"))
	}
	for _, sv := range surveys {
		s.Prompt.Println(s.describe(sv))
	}
	return nil
}

func listAll(s *Session) error {
	surveys := s.Engine.Catalog.ListAll()
	if len(surveys) == 0 {
		s.Prompt.Println(s.t("survey.none"))
	}
	for _, sv := range surveys {
		state := "active"
		if !sv.Active {
			state = "closed"
		}
		s.Prompt.Printf("%s [%s] %d\n", s.describe(sv), state, len(s.Engine.Responses.ListForSurvey(sv.ID)))
	}
	return nil
}

func takeSurvey(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	identity, role, _ := s.Auth.CurrentUser()
	_, err = Take(s.Engine, s.Prompt, s.Locale, id, identity, role)
	return err
}

func myResponses(s *Session) error {
	identity, _, _ := s.Auth.CurrentUser()
	responses := s.Engine.Responses.ListByRespondent(identity)
	if len(responses) == 0 {
		s.Prompt.Println(s.t("mine.none"))
	}
	for _, r := range responses {
		sv, err := s.Engine.Catalog.Get(r.SurveyID)
		if err != nil {
			continue
		}
		if !r.Completed {
			s.Prompt.Printf("#%d %s: %d%%\n", r.ID, sv.Title, r.CompletionPercent(len(sv.Questions)))
			continue
		}
		res, err := s.Engine.GetResult(r.ID)
		if err != nil {
			return err
		}
		s.Prompt.Printf("#%d %s\n", r.ID, sv.Title)
		printResult(s.Prompt, s.Locale, res)
	}
	return nil
}

func showReport(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	rep, err := s.Engine.Report(id)
	if err != nil {
		return err
	}
	s.Prompt.Printf(s.t("report.header")+"\n", rep.Title, rep.TotalResponses, rep.Completed)
	if rep.Questionnaire {
		s.Prompt.Printf(s.t("report.pass_rate")+"\n", rep.PassRate, rep.AveragePercent)
	} else {
		s.Prompt.Printf(s.t("report.moderation")+"\n", rep.Pending, rep.Approved, rep.Rejected)
	}
	for _, q := range rep.Questions {
		s.Prompt.Printf("- %s (%d)\n", q.Text, q.Answered)
		switch q.Kind {
		case models.KindSingleChoice:
			for i, o := range q.Options {
				s.Prompt.Printf("    %s: %d\n", o, q.OptionCounts[i])
			}
		case models.KindBoolean:
			s.Prompt.Printf("    true: %d, false: %d\n", q.TrueCount, q.FalseCount)
		default:
			for _, a := range q.Samples {
				s.Prompt.Printf("    \"%s\"\n", a)
			}
		}
	}
	return nil
}

func moderate(s *Session) error {
	moderator, _, _ := s.Auth.CurrentUser()
	pending := s.Engine.Moderation.ListPending(0)
	if len(pending) == 0 {
		s.Prompt.Println(s.t("moderate.none"))
		return nil
	}
	for _, r := range pending {
		sv, err := s.Engine.Catalog.Get(r.SurveyID)
		if err != nil {
			continue
		}
		s.Prompt.Printf("#%d %s, %s\n", r.ID, sv.Title, r.Respondent)
		for _, q := range sv.Questions {
			if a, ok := r.Answers[q.ID]; ok {
				s.Prompt.Printf("  %s: %s\n", q.Text, displayAnswer(q, a))
			}
		}
		choice, err := s.Prompt.ReadLine(s.t("moderate.prompt"))
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "a":
			err = s.Engine.Approve(r.ID, moderator)
		case "r":
			err = s.Engine.Reject(r.ID, moderator)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// displayAnswer turns stored option indexes back into option text.
func displayAnswer(q models.Question, a string) string {
	if q.Kind == models.KindSingleChoice {
		if i, err := strconv.Atoi(a); err == nil && i >= 0 && i < len(q.Options) {
			return q.Options[i]
		}
	}
	return a
}

func exportCSV(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	data, err := s.Engine.ExportResponsesCSV(id)
	if err != nil {
		return err
	}
	path, err := s.Prompt.ReadLine(s.t("export.path"))
	if err != nil {
		return err
	}
	if err := os.WriteFile(strings.TrimSpace(path), data, 0o644); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("export.written")+"\n", strings.TrimSpace(path))
	return nil
}

func exportPDF(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	rep, err := s.Engine.Report(id)
	if err != nil {
		return err
	}
	path, err := s.Prompt.ReadLine(s.t("export.path"))
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := services.ExportReportPDF(rep, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("export.written")+"\n", path)
	return nil
}

func closeSurvey(s *Session) error {
	id, err := s.readInt("survey.pick")
	if err != nil {
		return err
	}
	actor, _, _ := s.Auth.CurrentUser()
	if err := s.Engine.Catalog.Close(id, actor); err != nil {
		return err
	}
	s.Prompt.Printf(s.t("survey.closed")+"\n", id)
	return nil
}

const auditTail = 20

func showAudit(s *Session) error {
	entries := s.Engine.Audit()
	if len(entries) > auditTail {
		entries = entries[len(entries)-auditTail:]
	}
	for _, a := range entries {
		s.Prompt.Printf("%s %-10s %-14s %-12s %s\n", a.Time.Format("2006-01-02 15:04:05"), a.Actor, a.Action, a.Target, a.Note)
	}
	return nil
}

func switchRole(s *Session) error {
	identity, _, _ := s.Auth.CurrentUser()
	s.Prompt.Println(strings.Join(s.Auth.RolesOf(identity), ", "))
	role, err := s.Prompt.ReadLine(s.t("role.pick"))
	if err != nil {
		return err
	}
	return s.Auth.SwitchRole(strings.TrimSpace(role))
}
