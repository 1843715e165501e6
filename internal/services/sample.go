package services

import "github.com/soaringjerry/Assay/internal/models"

// SeedSample creates a demonstration survey and questionnaire when the
// catalog is empty. It reports whether anything was created.
func (e *Engine) SeedSample() (bool, error) {
	if e.Catalog.Len() > 0 {
		return false, nil
	}
	survey := models.NewSurvey("User satisfaction", "How do you find the application?", "admin")
	survey.Questions = []models.Question{
		models.NewQuestion("How easy is the application to use?", models.KindSingleChoice,
			"Very easy", "Easy", "Average", "Hard", "Very hard"),
		models.NewQuestion("Was the documentation useful?", models.KindBoolean),
		models.NewQuestion("Which new features would you like to see?", models.KindLongText),
	}
	survey.Questions[2].Required = false
	if _, err := e.Catalog.Create(survey); err != nil {
		return false, err
	}

	quiz := models.NewQuestionnaire("Go fundamentals", "A short check of basic Go knowledge", "admin")
	quiz.Questionnaire.TimeLimitMinutes = 15
	quiz.AllowedRoles = []string{"student"}
	quiz.Questions = []models.Question{
		models.NewQuestion("Which keyword declares a new type?", models.KindShortText).WithAnswer("type"),
		models.NewQuestion("Go has garbage collection.", models.KindBoolean).WithAnswer("true"),
		models.NewQuestion("Which of these is not a built-in type?", models.KindSingleChoice,
			"int", "bool", "array", "rune").WithAnswer("2"),
	}
	quiz.Questions[2].Points = 2
	if !e.Catalog.KnownRole("student") {
		quiz.AllowedRoles = nil
	}
	if _, err := e.Catalog.Create(quiz); err != nil {
		return false, err
	}
	return true, nil
}
