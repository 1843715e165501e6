package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soaringjerry/Assay/internal/models"
)

type surveyRow struct {
	ID                int        `gorm:"primaryKey;autoIncrement:false"`
	Position          int        `gorm:"not null"`
	Title             string     `gorm:"not null"`
	Description       string     `gorm:"not null;default:''"`
	Creator           string     `gorm:"not null;default:''"`
	CreatedAt         time.Time  `gorm:"not null;autoCreateTime:false"`
	ClosesAt          *time.Time
	Active            bool   `gorm:"not null"`
	AllowedRoles      string `gorm:"type:text;not null;default:'[]'"`
	IsQuestionnaire   bool   `gorm:"not null"`
	TimeLimitMinutes  int    `gorm:"not null;default:0"`
	PassingScore      int    `gorm:"not null;default:0"`
	RevealImmediately bool   `gorm:"not null"`
	Randomize         bool   `gorm:"not null"`
}

func (surveyRow) TableName() string { return "assay_surveys" }

type questionRow struct {
	ID            int    `gorm:"primaryKey;autoIncrement:false"`
	SurveyID      int    `gorm:"index;not null"`
	Position      int    `gorm:"not null"`
	Text          string `gorm:"not null"`
	Kind          string `gorm:"not null"`
	Required      bool   `gorm:"not null"`
	Options       string `gorm:"type:text;not null;default:'[]'"`
	CorrectAnswer *string
	Points        int `gorm:"not null;default:1"`
}

func (questionRow) TableName() string { return "assay_questions" }

type responseRow struct {
	ID          int       `gorm:"primaryKey;autoIncrement:false"`
	SurveyID    int       `gorm:"index;not null"`
	Respondent  string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	Deadline    *time.Time
	Completed   bool `gorm:"not null"`
	CompletedAt *time.Time
	FinalizedBy string `gorm:"not null;default:''"`
	Graded      bool   `gorm:"not null"`
	Score       int    `gorm:"not null;default:0"`
	MaxScore    int    `gorm:"not null;default:0"`
	Percent     float64
	Passed      bool   `gorm:"not null"`
	Moderation  string `gorm:"not null;default:''"`
}

func (responseRow) TableName() string { return "assay_responses" }

type answerRow struct {
	ResponseID int    `gorm:"primaryKey;autoIncrement:false"`
	QuestionID int    `gorm:"primaryKey;autoIncrement:false"`
	Text       string `gorm:"not null"`
}

func (answerRow) TableName() string { return "assay_answers" }

type counterRow struct {
	Name  string `gorm:"primaryKey"`
	Value int    `gorm:"not null"`
}

func (counterRow) TableName() string { return "assay_counters" }

type auditRow struct {
	ID     string    `gorm:"primaryKey"`
	Seq    int       `gorm:"not null;index"`
	Time   time.Time `gorm:"not null"`
	Actor  string    `gorm:"not null"`
	Action string    `gorm:"not null"`
	Target string    `gorm:"not null"`
	Note   string    `gorm:"not null;default:''"`
}

func (auditRow) TableName() string { return "assay_audit_log" }

type snapshotRows struct {
	surveys   []surveyRow
	questions []questionRow
	responses []responseRow
	answers   []answerRow
	counters  []counterRow
	audit     []auditRow
}

// PostgresGateway persists snapshots through gorm. Saves replace every row
// inside db.Transaction.
type PostgresGateway struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*PostgresGateway, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresGateway(db)
}

func NewPostgresGateway(db *gorm.DB) (*PostgresGateway, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if err := db.AutoMigrate(&surveyRow{}, &questionRow{}, &responseRow{}, &answerRow{}, &counterRow{}, &auditRow{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresGateway{db: db}, nil
}

func (g *PostgresGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *PostgresGateway) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	rows, err := toRows(snap)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"assay_answers", "assay_responses", "assay_questions", "assay_surveys", "assay_counters", "assay_audit_log"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		inserts := []struct {
			name  string
			n     int
			value any
		}{
			{"surveys", len(rows.surveys), &rows.surveys},
			{"questions", len(rows.questions), &rows.questions},
			{"responses", len(rows.responses), &rows.responses},
			{"answers", len(rows.answers), &rows.answers},
			{"counters", len(rows.counters), &rows.counters},
			{"audit", len(rows.audit), &rows.audit},
		}
		for _, ins := range inserts {
			if ins.n == 0 {
				continue
			}
			if err := tx.CreateInBatches(ins.value, 200).Error; err != nil {
				return fmt.Errorf("save %s: %w", ins.name, err)
			}
		}
		return nil
	})
}

func (g *PostgresGateway) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	db := g.db.WithContext(ctx)
	var rows snapshotRows
	if err := db.Order("position").Find(&rows.surveys).Error; err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}
	if err := db.Order("survey_id, position").Find(&rows.questions).Error; err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if err := db.Order("id").Find(&rows.responses).Error; err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	if err := db.Find(&rows.answers).Error; err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	if err := db.Find(&rows.counters).Error; err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	if err := db.Order("seq").Find(&rows.audit).Error; err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	return fromRows(rows)
}

func toRows(snap *models.Snapshot) (snapshotRows, error) {
	var rows snapshotRows
	for i, s := range snap.Surveys {
		roles, err := encodeStrings(s.AllowedRoles)
		if err != nil {
			return rows, err
		}
		row := surveyRow{
			ID: s.ID, Position: i, Title: s.Title, Description: s.Description, Creator: s.Creator,
			CreatedAt: s.CreatedAt.UTC(), ClosesAt: s.ClosesAt, Active: s.Active, AllowedRoles: roles,
		}
		if s.Questionnaire != nil {
			row.IsQuestionnaire = true
			row.TimeLimitMinutes = s.Questionnaire.TimeLimitMinutes
			row.PassingScore = s.Questionnaire.PassingScore
			row.RevealImmediately = s.Questionnaire.RevealImmediately
			row.Randomize = s.Questionnaire.Randomize
		}
		rows.surveys = append(rows.surveys, row)
		for j, q := range s.Questions {
			opts, err := encodeStrings(q.Options)
			if err != nil {
				return rows, err
			}
			rows.questions = append(rows.questions, questionRow{
				ID: q.ID, SurveyID: s.ID, Position: j, Text: q.Text, Kind: string(q.Kind),
				Required: q.Required, Options: opts, CorrectAnswer: q.CorrectAnswer, Points: q.Points,
			})
		}
	}
	for _, r := range snap.Responses {
		row := responseRow{
			ID: r.ID, SurveyID: r.SurveyID, Respondent: r.Respondent, CreatedAt: r.CreatedAt.UTC(),
			Deadline: r.Deadline, Completed: r.Completed, CompletedAt: r.CompletedAt,
			FinalizedBy: string(r.FinalizedBy), Moderation: string(r.Moderation),
		}
		if r.Grade != nil {
			row.Graded = true
			row.Score, row.MaxScore = r.Grade.Score, r.Grade.MaxScore
			row.Percent, row.Passed = r.Grade.Percent, r.Grade.Passed
		}
		rows.responses = append(rows.responses, row)
		qids := make([]int, 0, len(r.Answers))
		for qid := range r.Answers {
			qids = append(qids, qid)
		}
		sort.Ints(qids)
		for _, qid := range qids {
			rows.answers = append(rows.answers, answerRow{ResponseID: r.ID, QuestionID: qid, Text: r.Answers[qid]})
		}
	}
	rows.counters = []counterRow{
		{Name: counterSurvey, Value: snap.NextSurveyID},
		{Name: counterResponse, Value: snap.NextResponseID},
		{Name: counterQuestion, Value: snap.NextQuestionID},
	}
	for i, a := range snap.Audit {
		rows.audit = append(rows.audit, auditRow{
			ID: a.ID, Seq: i, Time: a.Time.UTC(), Actor: a.Actor, Action: a.Action, Target: a.Target, Note: a.Note,
		})
	}
	return rows, nil
}

func fromRows(rows snapshotRows) (*models.Snapshot, error) {
	snap := models.EmptySnapshot()
	index := map[int]int{}
	for _, row := range rows.surveys {
		s := models.Survey{
			ID: row.ID, Title: row.Title, Description: row.Description, Creator: row.Creator,
			CreatedAt: row.CreatedAt.UTC(), ClosesAt: row.ClosesAt, Active: row.Active,
		}
		if err := json.Unmarshal([]byte(row.AllowedRoles), &s.AllowedRoles); err != nil {
			return nil, fmt.Errorf("survey %d allowed roles: %w", row.ID, err)
		}
		if len(s.AllowedRoles) == 0 {
			s.AllowedRoles = nil
		}
		if row.IsQuestionnaire {
			s.Questionnaire = &models.QuestionnaireParams{
				TimeLimitMinutes:  row.TimeLimitMinutes,
				PassingScore:      row.PassingScore,
				RevealImmediately: row.RevealImmediately,
				Randomize:         row.Randomize,
			}
		}
		index[s.ID] = len(snap.Surveys)
		snap.Surveys = append(snap.Surveys, s)
	}
	for _, row := range rows.questions {
		i, ok := index[row.SurveyID]
		if !ok {
			continue
		}
		snap.Surveys[i].Questions = append(snap.Surveys[i].Questions, models.Question{
			ID: row.ID, Text: row.Text, Kind: models.QuestionKind(row.Kind), Required: row.Required,
			Options: decodeStrings(row.Options), CorrectAnswer: row.CorrectAnswer, Points: row.Points,
		})
	}
	rindex := map[int]int{}
	for _, row := range rows.responses {
		r := models.Response{
			ID: row.ID, SurveyID: row.SurveyID, Respondent: row.Respondent, CreatedAt: row.CreatedAt.UTC(),
			Deadline: row.Deadline, Completed: row.Completed, CompletedAt: row.CompletedAt,
			FinalizedBy: models.FinalizeReason(row.FinalizedBy), Moderation: models.ModerationState(row.Moderation),
			Answers: map[int]string{},
		}
		if row.Graded {
			r.Grade = &models.Grade{Score: row.Score, MaxScore: row.MaxScore, Percent: row.Percent, Passed: row.Passed}
		}
		rindex[r.ID] = len(snap.Responses)
		snap.Responses = append(snap.Responses, r)
	}
	for _, row := range rows.answers {
		if i, ok := rindex[row.ResponseID]; ok {
			snap.Responses[i].Answers[row.QuestionID] = row.Text
		}
	}
	for _, c := range rows.counters {
		switch c.Name {
		case counterSurvey:
			snap.NextSurveyID = c.Value
		case counterResponse:
			snap.NextResponseID = c.Value
		case counterQuestion:
			snap.NextQuestionID = c.Value
		}
	}
	for _, row := range rows.audit {
		snap.Audit = append(snap.Audit, models.AuditEntry{
			ID: row.ID, Time: row.Time.UTC(), Actor: row.Actor, Action: row.Action, Target: row.Target, Note: row.Note,
		})
	}
	return snap, nil
}
