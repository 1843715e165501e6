package services

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

func TestBeginValidatesSurvey(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Begin(42, "ana", "student"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Begin unknown survey err = %v, want not found", err)
	}
	sid, _ := createPlain(t, e, "admin")
	if _, err := e.Begin(sid, "ana", "janitor"); !IsCode(err, ErrorInvalid) {
		t.Fatalf("Begin unknown role err = %v, want invalid", err)
	}
	if _, err := e.Begin(sid, "ana", "student"); !IsCode(err, ErrorState) {
		t.Fatalf("Begin hidden survey err = %v, want state error", err)
	}
	if got := len(e.Responses.ListForSurvey(sid)); got != 0 {
		t.Fatalf("responses after rejected begins = %d, want 0", got)
	}
}

func TestResponseIDsAreGlobal(t *testing.T) {
	e, _ := newTestEngine(t)
	a, _ := createPlain(t, e)
	b, _ := createPlain(t, e)
	r1, _ := e.Begin(a, "ana", "student")
	r2, _ := e.Begin(b, "ana", "student")
	r3, _ := e.Begin(a, "ben", "student")
	if r1 != 1 || r2 != 2 || r3 != 3 {
		t.Fatalf("response ids = %d,%d,%d, want 1,2,3", r1, r2, r3)
	}
	if _, err := e.Responses.Get(b, r1); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Get with wrong survey err = %v, want not found", err)
	}
}

func TestWriteAnswerKeepsKeysWithinSurvey(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	_, otherQids := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")

	if err := e.WriteAnswer(rid, otherQids[0], "0"); !IsCode(err, ErrorState) {
		t.Fatalf("foreign question err = %v, want state error", err)
	}
	if err := e.WriteAnswer(rid, 999, "0"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("unknown question err = %v, want not found", err)
	}
	if err := e.WriteAnswer(777, qids[0], "0"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("unknown response err = %v, want not found", err)
	}
	if err := e.WriteAnswer(rid, qids[0], "0"); err != nil {
		t.Fatalf("WriteAnswer returned error: %v", err)
	}
	if err := e.WriteAnswer(rid, qids[0], "1"); err != nil {
		t.Fatalf("WriteAnswer overwrite returned error: %v", err)
	}
	r, _ := e.Responses.Get(sid, rid)
	allowed := map[int]bool{qids[0]: true, qids[1]: true}
	for qid := range r.Answers {
		if !allowed[qid] {
			t.Fatalf("answer key %d outside survey", qid)
		}
	}
	if r.Answers[qids[0]] != "1" {
		t.Fatalf("answer = %q, want upserted 1", r.Answers[qids[0]])
	}
}

func TestWriteAnswerPersistsImmediately(t *testing.T) {
	e, gw := newTestEngine(t)
	sid, qids := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	before := gw.saves
	if err := e.WriteAnswer(rid, qids[1], "great"); err != nil {
		t.Fatalf("WriteAnswer returned error: %v", err)
	}
	if gw.saves != before+1 {
		t.Fatalf("saves = %d, want %d", gw.saves, before+1)
	}
	snap := gw.snapshot(t)
	if snap.Responses[0].Answers[qids[1]] != "great" {
		t.Fatalf("persisted answers = %v", snap.Responses[0].Answers)
	}
}

func TestWriteAfterFinalizeRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	_ = e.WriteAnswer(rid, qids[0], "0")
	if err := e.Finalize(rid); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}
	if err := e.WriteAnswer(rid, qids[0], "1"); !IsCode(err, ErrorState) {
		t.Fatalf("write after finalize err = %v, want state error", err)
	}
	r, _ := e.Responses.Get(sid, rid)
	if len(r.Answers) != 1 || r.Answers[qids[0]] != "0" {
		t.Fatalf("answers changed after finalize: %v", r.Answers)
	}
	if err := e.Finalize(rid); err != nil {
		t.Fatalf("second Finalize returned error: %v", err)
	}
	if n := e.audit.Count("finalize"); n != 1 {
		t.Fatalf("finalize audit entries = %d, want 1", n)
	}
}

func TestBeginRejectsRepeatCompletion(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	if open, ok := e.OpenResponse(sid, "ana"); !ok || open != rid {
		t.Fatalf("OpenResponse = %d, %v, want %d", open, ok, rid)
	}
	_ = e.Finalize(rid)
	if _, ok := e.OpenResponse(sid, "ana"); ok {
		t.Fatalf("completed response reported as open")
	}
	if _, err := e.Begin(sid, "ana", "student"); !IsCode(err, ErrorState) {
		t.Fatalf("Begin after completion err = %v, want state error", err)
	}
	if _, err := e.Begin(sid, "ben", "student"); err != nil {
		t.Fatalf("Begin for another respondent returned error: %v", err)
	}
}

func TestBeginRejectsSecondOpenResponse(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createQuiz(t, e, 50)
	rid, err := e.Begin(sid, "ana", "student")
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if _, err := e.Begin(sid, "ana", "student"); !IsCode(err, ErrorState) {
		t.Fatalf("second Begin err = %v, want state error", err)
	}
	if got := len(e.Responses.ListForSurvey(sid)); got != 1 {
		t.Fatalf("responses = %d, want 1", got)
	}
	if open, ok := e.OpenResponse(sid, "ana"); !ok || open != rid {
		t.Fatalf("OpenResponse = %d, %v, want %d", open, ok, rid)
	}
}

func TestRequiredAnswered(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	ok, err := e.Responses.RequiredAnswered(rid)
	if err != nil || ok {
		t.Fatalf("RequiredAnswered empty = %v, %v, want false", ok, err)
	}
	_ = e.WriteAnswer(rid, qids[0], "")
	if ok, _ := e.Responses.RequiredAnswered(rid); ok {
		t.Fatalf("empty answer counted as answered")
	}
	_ = e.WriteAnswer(rid, qids[0], "1")
	if ok, _ := e.Responses.RequiredAnswered(rid); !ok {
		t.Fatalf("RequiredAnswered = false with optional question skipped")
	}
	if _, err := e.Responses.RequiredAnswered(404); !IsCode(err, ErrorNotFound) {
		t.Fatalf("RequiredAnswered unknown err = %v, want not found", err)
	}
}

func TestModerationApproveTwice(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, qids := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	if err := e.Approve(rid, "admin"); !IsCode(err, ErrorState) {
		t.Fatalf("approve in-progress err = %v, want state error", err)
	}
	_ = e.WriteAnswer(rid, qids[0], "0")
	_ = e.Finalize(rid)
	res, _ := e.GetResult(rid)
	if res.Moderation != models.ModerationPending {
		t.Fatalf("moderation = %q, want pending", res.Moderation)
	}
	if got := e.Moderation.ListPending(0); len(got) != 1 || got[0].ID != rid {
		t.Fatalf("pending = %v, want [%d]", got, rid)
	}
	if err := e.Approve(rid, "admin"); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if err := e.Approve(rid, "admin"); !IsCode(err, ErrorState) {
		t.Fatalf("second Approve err = %v, want state error", err)
	}
	if err := e.Reject(rid, "admin"); !IsCode(err, ErrorState) {
		t.Fatalf("Reject after approve err = %v, want state error", err)
	}
	if got := e.Moderation.ListPending(sid); len(got) != 0 {
		t.Fatalf("pending after approve = %d, want 0", len(got))
	}
	if err := e.Approve(999, "admin"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("Approve unknown err = %v, want not found", err)
	}
}

func TestModerationRejectAndQuestionnaire(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createPlain(t, e)
	rid, _ := e.Begin(sid, "ana", "student")
	_ = e.Finalize(rid)
	if err := e.Reject(rid, "admin"); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	r, _ := e.Responses.ByID(rid)
	if r.Moderation != models.ModerationRejected {
		t.Fatalf("moderation = %q, want rejected", r.Moderation)
	}

	qid, _ := createQuiz(t, e, 60)
	qr, _ := e.Begin(qid, "ana", "student")
	_ = e.Finalize(qr)
	if err := e.Approve(qr, "admin"); !IsCode(err, ErrorState) {
		t.Fatalf("Approve questionnaire err = %v, want state error", err)
	}
}

func TestDeleteCascadesResponses(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createQuiz(t, e, 60)
	keep, _ := createPlain(t, e)
	for _, who := range []string{"ana", "ben", "cy"} {
		if _, err := e.Begin(sid, who, "student"); err != nil {
			t.Fatalf("Begin returned error: %v", err)
		}
	}
	kept, _ := e.Begin(keep, "ana", "student")
	if got := e.Deadlines.Armed(); got != 3 {
		t.Fatalf("armed = %d, want 3", got)
	}
	if err := e.Catalog.Delete(sid, "admin"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if got := len(e.Responses.ListForSurvey(sid)); got != 0 {
		t.Fatalf("responses after delete = %d, want 0", got)
	}
	if got := e.Deadlines.Armed(); got != 0 {
		t.Fatalf("armed after delete = %d, want 0", got)
	}
	if _, err := e.Responses.Get(keep, kept); err != nil {
		t.Fatalf("unrelated response removed: %v", err)
	}
}

func TestDeadlineForcesCompletion(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Deadlines.unit = 5 * time.Millisecond
	sid, qids := createQuiz(t, e, 50)
	rid, err := e.Begin(sid, "ana", "student")
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if err := e.WriteAnswer(rid, qids[0], "0"); err != nil {
		t.Fatalf("WriteAnswer returned error: %v", err)
	}
	waitFor(t, func() bool {
		done, _ := e.IsCompleted(rid)
		return done
	})
	if err := e.WriteAnswer(rid, qids[1], "1"); !IsCode(err, ErrorState) {
		t.Fatalf("write after deadline err = %v, want state error", err)
	}
	r, _ := e.Responses.ByID(rid)
	if r.FinalizedBy != models.FinalizedByDeadline {
		t.Fatalf("finalized by %q, want deadline", r.FinalizedBy)
	}
	if r.Grade == nil || r.Grade.Score != 1 || r.Grade.MaxScore != 3 {
		t.Fatalf("grade = %+v, want 1/3", r.Grade)
	}
	if err := e.Finalize(rid); err != nil {
		t.Fatalf("Finalize after deadline returned error: %v", err)
	}
}

func TestFinalizeCancelsDeadline(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createQuiz(t, e, 60)
	rid, _ := e.Begin(sid, "ana", "student")
	if st := e.Deadlines.State(rid); st != DeadlineArmed {
		t.Fatalf("state = %s, want armed", st)
	}
	_ = e.Finalize(rid)
	if st := e.Deadlines.State(rid); st != DeadlineIdle {
		t.Fatalf("state after finalize = %s, want idle", st)
	}
	r, _ := e.Responses.ByID(rid)
	if r.FinalizedBy != models.FinalizedByRespondent {
		t.Fatalf("finalized by %q, want completed", r.FinalizedBy)
	}
}

func TestDeadlineRaceFinalizesOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	sid, _ := createQuiz(t, e, 60)
	const n = 50
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rid, err := e.Begin(sid, "r"+strconv.Itoa(i), "student")
		if err != nil {
			t.Fatalf("Begin returned error: %v", err)
		}
		e.Deadlines.Cancel(rid)
		ids = append(ids, rid)
	}
	var wg sync.WaitGroup
	for _, rid := range ids {
		if err := e.Deadlines.ArmAfter(rid, 0, e.Responses.expire(rid)); err != nil {
			t.Fatalf("ArmAfter returned error: %v", err)
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := e.Finalize(id); err != nil {
				t.Errorf("Finalize(%d) returned error: %v", id, err)
			}
		}(rid)
	}
	wg.Wait()
	waitFor(t, func() bool { return e.Deadlines.Armed() == 0 })
	time.Sleep(10 * time.Millisecond)
	if got := e.audit.Count("finalize"); got != n {
		t.Fatalf("finalize audit entries = %d, want %d", got, n)
	}
	for _, rid := range ids {
		r, _ := e.Responses.ByID(rid)
		if !r.Completed || r.Grade == nil {
			t.Fatalf("response %d = %+v, want completed and graded", rid, r)
		}
	}
}
