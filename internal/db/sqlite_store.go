package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Assay/internal/models"
)

const (
	counterSurvey   = "survey"
	counterResponse = "response"
	counterQuestion = "question"
)

// SQLiteGateway persists snapshots in a SQLite database. Every save replaces
// all rows inside one transaction.
type SQLiteGateway struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path, migrationsDir string) (*SQLiteGateway, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	g, err := NewSQLiteGateway(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db, migrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return g, nil
}

func NewSQLiteGateway(db *sql.DB) (*SQLiteGateway, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteGateway{db: db}, nil
}

func (g *SQLiteGateway) Close() error { return g.db.Close() }

func (g *SQLiteGateway) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func int64ToBool(v int64) bool { return v != 0 }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func toNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		log.Printf("sqlite store: decode list: %v", err)
		return nil
	}
	return out
}

// SaveSnapshot atomically replaces the stored state with snap.
func (g *SQLiteGateway) SaveSnapshot(ctx context.Context, snap *models.Snapshot) (err error) {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			g.logErr("rollback", tx.Rollback())
		}
	}()
	for _, table := range []string{"answers", "responses", "questions", "surveys", "counters", "audit_log"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i := range snap.Surveys {
		if err = insertSurvey(ctx, tx, i, &snap.Surveys[i]); err != nil {
			return err
		}
	}
	for i := range snap.Responses {
		if err = insertResponse(ctx, tx, &snap.Responses[i]); err != nil {
			return err
		}
	}
	counters := map[string]int{
		counterSurvey:   snap.NextSurveyID,
		counterResponse: snap.NextResponseID,
		counterQuestion: snap.NextQuestionID,
	}
	for name, value := range counters {
		if _, err = tx.ExecContext(ctx, `INSERT INTO counters(name, value) VALUES(?, ?)`, name, value); err != nil {
			return fmt.Errorf("save counter %s: %w", name, err)
		}
	}
	for i, a := range snap.Audit {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO audit_log(id, seq, time, actor, action, target, note) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			a.ID, i, formatTime(a.Time), a.Actor, a.Action, a.Target, a.Note); err != nil {
			return fmt.Errorf("save audit %s: %w", a.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertSurvey(ctx context.Context, tx *sql.Tx, position int, s *models.Survey) error {
	roles, err := encodeStrings(s.AllowedRoles)
	if err != nil {
		return err
	}
	var qp models.QuestionnaireParams
	if s.Questionnaire != nil {
		qp = *s.Questionnaire
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO surveys(id, position, title, description, creator, created_at, closes_at,
        active, allowed_roles, is_questionnaire, time_limit_minutes, passing_score, reveal_immediately, randomize)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, position, s.Title, s.Description, s.Creator, formatTime(s.CreatedAt), toNullTime(s.ClosesAt),
		boolToInt64(s.Active), roles, boolToInt64(s.Questionnaire != nil), qp.TimeLimitMinutes, qp.PassingScore,
		boolToInt64(qp.RevealImmediately), boolToInt64(qp.Randomize))
	if err != nil {
		return fmt.Errorf("save survey %d: %w", s.ID, err)
	}
	for i, q := range s.Questions {
		opts, err := encodeStrings(q.Options)
		if err != nil {
			return err
		}
		var correct sql.NullString
		if q.CorrectAnswer != nil {
			correct = sql.NullString{String: *q.CorrectAnswer, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions(id, survey_id, position, text, kind, required, options, correct_answer, points)
            VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, s.ID, i, q.Text, string(q.Kind), boolToInt64(q.Required), opts, correct, q.Points); err != nil {
			return fmt.Errorf("save question %d: %w", q.ID, err)
		}
	}
	return nil
}

func insertResponse(ctx context.Context, tx *sql.Tx, r *models.Response) error {
	var g models.Grade
	if r.Grade != nil {
		g = *r.Grade
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO responses(id, survey_id, respondent, created_at, deadline, completed, completed_at,
        finalized_by, graded, score, max_score, percent, passed, moderation)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SurveyID, r.Respondent, formatTime(r.CreatedAt), toNullTime(r.Deadline), boolToInt64(r.Completed),
		toNullTime(r.CompletedAt), string(r.FinalizedBy), boolToInt64(r.Grade != nil), g.Score, g.MaxScore, g.Percent,
		boolToInt64(g.Passed), string(r.Moderation))
	if err != nil {
		return fmt.Errorf("save response %d: %w", r.ID, err)
	}
	for qid, text := range r.Answers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO answers(response_id, question_id, text) VALUES(?, ?, ?)`,
			r.ID, qid, text); err != nil {
			return fmt.Errorf("save answer %d/%d: %w", r.ID, qid, err)
		}
	}
	return nil
}

// LoadSnapshot rebuilds the full state. An empty database yields an empty snapshot.
func (g *SQLiteGateway) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := models.EmptySnapshot()
	surveys, err := g.loadSurveys(ctx)
	if err != nil {
		return nil, err
	}
	snap.Surveys = surveys
	if snap.Responses, err = g.loadResponses(ctx); err != nil {
		return nil, err
	}
	if err := g.loadCounters(ctx, snap); err != nil {
		return nil, err
	}
	if snap.Audit, err = g.loadAudit(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (g *SQLiteGateway) loadSurveys(ctx context.Context) ([]models.Survey, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, title, description, creator, created_at, closes_at, active, allowed_roles,
        is_questionnaire, time_limit_minutes, passing_score, reveal_immediately, randomize FROM surveys ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()
	var out []models.Survey
	index := map[int]int{}
	for rows.Next() {
		var (
			s                              models.Survey
			createdAt, roles               string
			closesAt                       sql.NullString
			active, isQuiz, reveal, random int64
			limit, passing                 int
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Creator, &createdAt, &closesAt, &active, &roles,
			&isQuiz, &limit, &passing, &reveal, &random); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("survey %d created_at: %w", s.ID, err)
		}
		if s.ClosesAt, err = parseNullTime(closesAt); err != nil {
			return nil, fmt.Errorf("survey %d closes_at: %w", s.ID, err)
		}
		s.Active = int64ToBool(active)
		s.AllowedRoles = decodeStrings(roles)
		if int64ToBool(isQuiz) {
			s.Questionnaire = &models.QuestionnaireParams{
				TimeLimitMinutes:  limit,
				PassingScore:      passing,
				RevealImmediately: int64ToBool(reveal),
				Randomize:         int64ToBool(random),
			}
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := g.db.QueryContext(ctx, `SELECT id, survey_id, text, kind, required, options, correct_answer, points
        FROM questions ORDER BY survey_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var (
			q        models.Question
			surveyID int
			kind     string
			required int64
			opts     string
			correct  sql.NullString
		)
		if err := qrows.Scan(&q.ID, &surveyID, &q.Text, &kind, &required, &opts, &correct, &q.Points); err != nil {
			return nil, err
		}
		q.Kind = models.QuestionKind(kind)
		q.Required = int64ToBool(required)
		q.Options = decodeStrings(opts)
		if correct.Valid {
			a := correct.String
			q.CorrectAnswer = &a
		}
		i, ok := index[surveyID]
		if !ok {
			continue
		}
		out[i].Questions = append(out[i].Questions, q)
	}
	return out, qrows.Err()
}

func (g *SQLiteGateway) loadResponses(ctx context.Context) ([]models.Response, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, survey_id, respondent, created_at, deadline, completed, completed_at,
        finalized_by, graded, score, max_score, percent, passed, moderation FROM responses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()
	var out []models.Response
	index := map[int]int{}
	for rows.Next() {
		var (
			r                         models.Response
			createdAt                 string
			deadline, completedAt     sql.NullString
			completed, graded, passed int64
			finalizedBy, moderation   string
			grade                     models.Grade
		)
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.Respondent, &createdAt, &deadline, &completed, &completedAt,
			&finalizedBy, &graded, &grade.Score, &grade.MaxScore, &grade.Percent, &passed, &moderation); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("response %d created_at: %w", r.ID, err)
		}
		if r.Deadline, err = parseNullTime(deadline); err != nil {
			return nil, fmt.Errorf("response %d deadline: %w", r.ID, err)
		}
		if r.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, fmt.Errorf("response %d completed_at: %w", r.ID, err)
		}
		r.Completed = int64ToBool(completed)
		r.FinalizedBy = models.FinalizeReason(finalizedBy)
		r.Moderation = models.ModerationState(moderation)
		if int64ToBool(graded) {
			grade.Passed = int64ToBool(passed)
			r.Grade = &grade
		}
		r.Answers = map[int]string{}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := g.db.QueryContext(ctx, `SELECT response_id, question_id, text FROM answers`)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var responseID, questionID int
		var text string
		if err := arows.Scan(&responseID, &questionID, &text); err != nil {
			return nil, err
		}
		if i, ok := index[responseID]; ok {
			out[i].Answers[questionID] = text
		}
	}
	return out, arows.Err()
}

func (g *SQLiteGateway) loadCounters(ctx context.Context, snap *models.Snapshot) error {
	rows, err := g.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		switch name {
		case counterSurvey:
			snap.NextSurveyID = value
		case counterResponse:
			snap.NextResponseID = value
		case counterQuestion:
			snap.NextQuestionID = value
		}
	}
	return rows.Err()
}

func (g *SQLiteGateway) loadAudit(ctx context.Context) ([]models.AuditEntry, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, time, actor, action, target, note FROM audit_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var a models.AuditEntry
		var ts string
		if err := rows.Scan(&a.ID, &ts, &a.Actor, &a.Action, &a.Target, &a.Note); err != nil {
			return nil, err
		}
		if a.Time, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("audit %s time: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
