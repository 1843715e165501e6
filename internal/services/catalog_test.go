package services

import (
	"testing"

	"github.com/soaringjerry/Assay/internal/models"
)

func TestCatalogCreateAssignsIDs(t *testing.T) {
	e, _ := newTestEngine(t)
	s := models.NewSurvey("Intro", "", "admin")
	s.Questions = []models.Question{
		models.NewQuestion("a", models.KindBoolean),
		models.NewQuestion("b", models.KindShortText),
	}
	id, err := e.Catalog.Create(s)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id != 1 || s.ID != 1 {
		t.Fatalf("id = %d (caller %d), want 1", id, s.ID)
	}
	if s.Questions[0].ID != 1 || s.Questions[1].ID != 2 {
		t.Fatalf("question ids = %d,%d, want 1,2", s.Questions[0].ID, s.Questions[1].ID)
	}
	got, _ := e.Catalog.Get(id)
	if got.CreatedAt != fixedNow {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, fixedNow)
	}
	other := models.NewSurvey("Other", "", "admin")
	other.Questions = []models.Question{models.NewQuestion("c", models.KindBoolean)}
	if _, err := e.Catalog.Create(other); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if other.Questions[0].ID != 3 {
		t.Fatalf("question id = %d, want 3 (catalog-wide counter)", other.Questions[0].ID)
	}
}

func TestCatalogValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	cases := []struct {
		name  string
		build func() *models.Survey
	}{
		{"empty title", func() *models.Survey { return models.NewSurvey("  ", "", "admin") }},
		{"zero time limit", func() *models.Survey {
			s := models.NewQuestionnaire("Q", "", "admin")
			s.Questionnaire.TimeLimitMinutes = 0
			return s
		}},
		{"passing above 100", func() *models.Survey {
			s := models.NewQuestionnaire("Q", "", "admin")
			s.Questionnaire.PassingScore = 101
			return s
		}},
		{"negative passing", func() *models.Survey {
			s := models.NewQuestionnaire("Q", "", "admin")
			s.Questionnaire.PassingScore = -1
			return s
		}},
		{"unknown role", func() *models.Survey {
			s := models.NewSurvey("S", "", "admin")
			s.AllowedRoles = []string{"janitor"}
			return s
		}},
		{"single choice with one option", func() *models.Survey {
			s := models.NewSurvey("S", "", "admin")
			s.Questions = []models.Question{models.NewQuestion("pick", models.KindSingleChoice, "only")}
			return s
		}},
		{"answer outside options", func() *models.Survey {
			s := models.NewSurvey("S", "", "admin")
			s.Questions = []models.Question{models.NewQuestion("pick", models.KindSingleChoice, "a", "b").WithAnswer("2")}
			return s
		}},
		{"unknown kind", func() *models.Survey {
			s := models.NewSurvey("S", "", "admin")
			s.Questions = []models.Question{models.NewQuestion("rate", models.QuestionKind("likert"))}
			return s
		}},
		{"negative points", func() *models.Survey {
			s := models.NewSurvey("S", "", "admin")
			q := models.NewQuestion("x", models.KindBoolean)
			q.Points = -1
			s.Questions = []models.Question{q}
			return s
		}},
	}
	for _, c := range cases {
		if _, err := e.Catalog.Create(c.build()); !IsCode(err, ErrorInvalid) {
			t.Fatalf("%s: err = %v, want invalid", c.name, err)
		}
	}
	if n := len(e.Catalog.ListAll()); n != 0 {
		t.Fatalf("surveys after rejected creates = %d, want 0", n)
	}
	id, _ := e.Catalog.Create(models.NewSurvey("ok", "", "admin"))
	if id != 1 {
		t.Fatalf("first accepted id = %d, want 1", id)
	}
}

func TestCatalogIDsNotReusedAfterDelete(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	if err := e.Catalog.Delete(sid, "admin"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	again := models.NewSurvey("Feedback", "", "admin")
	again.ID = sid
	if _, err := e.Catalog.Create(again); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Create with deleted survey id err = %v, want invalid", err)
	}
	stale := models.NewSurvey("Feedback", "", "admin")
	q := models.NewQuestion("Rate us", models.KindBoolean)
	q.ID = qids[0]
	stale.Questions = []models.Question{q}
	if _, err := e.Catalog.Create(stale); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Create with deleted question id err = %v, want invalid", err)
	}
	if n := e.Catalog.Len(); n != 0 {
		t.Fatalf("surveys after rejected creates = %d, want 0", n)
	}

	fresh, freshQids := createPlain(t, e)
	if fresh <= sid || freshQids[0] <= qids[1] {
		t.Fatalf("fresh ids = %d %v, want above %d %v", fresh, freshQids, sid, qids)
	}
	if _, err := e.Catalog.AddQuestion(fresh, q); !IsCode(err, ErrorInvalid) {
		t.Fatalf("AddQuestion with deleted question id err = %v, want invalid", err)
	}
	got, _ := e.Catalog.Get(fresh)
	got.Questions = append(got.Questions, q)
	if err := e.Catalog.Update(got); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Update with deleted question id err = %v, want invalid", err)
	}

	future := models.NewSurvey("Imported", "", "admin")
	future.ID = fresh + 10
	if _, err := e.Catalog.Create(future); err != nil {
		t.Fatalf("Create with unused id returned error: %v", err)
	}
}

func TestCatalogDefaultsPoints(t *testing.T) {
	e, _ := newTestEngine(t)
	s := models.NewQuestionnaire("Quiz", "", "admin")
	q := models.NewQuestion("pick", models.KindSingleChoice, "a", "b").WithAnswer("0")
	q.Points = 0
	s.Questions = []models.Question{q}
	sid, err := e.Catalog.Create(s)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	added := models.NewQuestion("yes?", models.KindBoolean).WithAnswer("true")
	added.Points = 0
	aid, err := e.Catalog.AddQuestion(sid, added)
	if err != nil {
		t.Fatalf("AddQuestion returned error: %v", err)
	}
	got, _ := e.Catalog.Get(sid)
	if p := got.Questions[0].Points; p != 1 {
		t.Fatalf("created question points = %d, want 1", p)
	}
	if p := got.Question(aid).Points; p != 1 {
		t.Fatalf("added question points = %d, want 1", p)
	}
	added.ID = aid
	added.Points = 0
	if err := e.Catalog.UpdateQuestion(sid, added); err != nil {
		t.Fatalf("UpdateQuestion returned error: %v", err)
	}
	got, _ = e.Catalog.Get(sid)
	if p := got.Question(aid).Points; p != 1 {
		t.Fatalf("updated question points = %d, want 1", p)
	}
}

func TestCatalogPublishRequiresQuestions(t *testing.T) {
	e, _ := newTestEngine(t)
	s := models.NewSurvey("Draft", "", "admin")
	s.Active = false
	id, err := e.Catalog.Create(s)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := e.Catalog.Publish(id); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Publish err = %v, want invalid", err)
	}
	if _, err := e.Catalog.AddQuestion(id, models.NewQuestion("q", models.KindBoolean)); err != nil {
		t.Fatalf("AddQuestion returned error: %v", err)
	}
	if err := e.Catalog.Publish(id); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	got, _ := e.Catalog.Get(id)
	if !got.Active {
		t.Fatalf("survey not active after publish")
	}
	if err := e.Catalog.Publish(42); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Publish unknown err = %v, want not found", err)
	}
}

func TestCatalogUpdateAndNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createPlain(t, e)
	s, _ := e.Catalog.Get(sid)
	s.Title = "Renamed"
	s.Questions = append(s.Questions, models.NewQuestion("new", models.KindShortText))
	if err := e.Catalog.Update(s); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	got, _ := e.Catalog.Get(sid)
	if got.Title != "Renamed" || len(got.Questions) != 3 || got.Questions[2].ID == 0 {
		t.Fatalf("updated survey = %+v", got)
	}
	missing := models.NewSurvey("ghost", "", "admin")
	missing.ID = 99
	if err := e.Catalog.Update(missing); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Update unknown err = %v, want not found", err)
	}
	if err := e.Catalog.Delete(99, "admin"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Delete unknown err = %v, want not found", err)
	}
	if _, err := e.Catalog.Get(99); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Get unknown err = %v, want not found", err)
	}
}

func TestCatalogListForRole(t *testing.T) {
	e, _ := newTestEngine(t)
	open, _ := createPlain(t, e)
	staff, _ := createPlain(t, e, "librarian")
	inactive, _ := createPlain(t, e)
	if err := e.Catalog.Close(inactive, "admin"); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	for _, role := range e.Catalog.Roles() {
		list, err := e.Catalog.ListForRole(role)
		if err != nil {
			t.Fatalf("ListForRole(%s) returned error: %v", role, err)
		}
		foundOpen, foundStaff := false, false
		for _, s := range list {
			switch s.ID {
			case open:
				foundOpen = true
			case staff:
				foundStaff = true
			case inactive:
				t.Fatalf("inactive survey listed for %s", role)
			}
		}
		if !foundOpen {
			t.Fatalf("survey without allowed roles hidden from %s", role)
		}
		if foundStaff != (role == "librarian") {
			t.Fatalf("restricted survey visibility for %s = %v", role, foundStaff)
		}
	}
	if _, err := e.Catalog.ListForRole("janitor"); !IsCode(err, ErrorInvalid) {
		t.Fatalf("ListForRole unknown err = %v, want invalid", err)
	}
}

func TestCatalogQuestionAuthoring(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	q := models.NewQuestion("Rate us again", models.KindSingleChoice, "good", "bad", "meh")
	q.ID = qids[0]
	if err := e.Catalog.UpdateQuestion(sid, q); err != nil {
		t.Fatalf("UpdateQuestion returned error: %v", err)
	}
	got, _ := e.Catalog.Get(sid)
	if len(got.Question(qids[0]).Options) != 3 {
		t.Fatalf("options not updated")
	}
	q.ID = 999
	if err := e.Catalog.UpdateQuestion(sid, q); !IsCode(err, ErrorNotFound) {
		t.Fatalf("UpdateQuestion unknown err = %v, want not found", err)
	}

	rid, _ := e.Begin(sid, "ana", "student")
	if err := e.WriteAnswer(rid, qids[0], "0"); err != nil {
		t.Fatalf("WriteAnswer returned error: %v", err)
	}
	if err := e.Catalog.RemoveQuestion(sid, qids[0]); !IsCode(err, ErrorState) {
		t.Fatalf("RemoveQuestion answered err = %v, want state error", err)
	}
	if err := e.Catalog.RemoveQuestion(sid, qids[1]); err != nil {
		t.Fatalf("RemoveQuestion returned error: %v", err)
	}
	if err := e.Catalog.RemoveQuestion(sid, qids[1]); !IsCode(err, ErrorNotFound) {
		t.Fatalf("RemoveQuestion twice err = %v, want not found", err)
	}
}

func TestVisibleEmptyRolesAllowsEveryone(t *testing.T) {
	s := models.NewSurvey("s", "", "admin")
	for _, role := range []string{"admin", "librarian", "student", "anything"} {
		if !Visible(s, role) {
			t.Fatalf("Visible(%s) = false, want true", role)
		}
	}
	s.AllowedRoles = []string{"admin"}
	if Visible(s, "student") || !Visible(s, "admin") {
		t.Fatalf("allow-list not honored")
	}
}
