package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/soaringjerry/Assay/internal/models"
)

var definitionValidator = validator.New()

// validateSurvey checks a definition before any state changes. roles is the
// set of known role names; allowed roles outside it are rejected.
func validateSurvey(s *models.Survey, roles map[string]bool) error {
	if s == nil {
		return NewInvalidError("survey required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return NewInvalidError("title required")
	}
	if err := definitionValidator.Struct(s); err != nil {
		return fieldError(err)
	}
	for _, r := range s.AllowedRoles {
		if !roles[r] {
			return NewInvalidError("unknown role: " + r)
		}
	}
	seen := map[int]bool{}
	for _, q := range s.Questions {
		if q.ID != 0 {
			if seen[q.ID] {
				return NewInvalidError("duplicate question id " + strconv.Itoa(q.ID))
			}
			seen[q.ID] = true
		}
		if err := validateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return NewInvalidError("question text required")
	}
	if err := definitionValidator.Struct(q); err != nil {
		return fieldError(err)
	}
	switch q.Kind {
	case models.KindSingleChoice:
		if len(q.Options) < 2 {
			return NewInvalidError("single choice question needs at least two options")
		}
		if q.CorrectAnswer != nil {
			idx, err := strconv.Atoi(*q.CorrectAnswer)
			if err != nil || idx < 0 || idx >= len(q.Options) {
				return NewInvalidError("correct answer must be an option index")
			}
		}
	case models.KindBoolean:
		if q.CorrectAnswer != nil {
			if a := strings.ToLower(*q.CorrectAnswer); a != "true" && a != "false" {
				return NewInvalidError("correct answer must be true or false")
			}
		}
	}
	return nil
}

func fieldError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		switch fe.Field() {
		case "TimeLimitMinutes":
			return NewInvalidError("time limit must be greater than zero")
		case "PassingScore":
			return NewInvalidError("passing score must be between 0 and 100")
		case "Points":
			return NewInvalidError("points must be at least 1")
		case "Kind":
			return NewInvalidError(fmt.Sprintf("unknown question kind %q", fe.Value()))
		}
		return NewInvalidError(fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return NewInvalidError(err.Error())
}
