package console

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/soaringjerry/Assay/internal/models"
	"github.com/soaringjerry/Assay/internal/services"
	"github.com/soaringjerry/Assay/internal/utils"
)

// Take runs the respondent flow for one survey. It resumes an in-progress
// response when the respondent has one, checks for completion before every
// question, and finalizes once all required questions are answered. The
// result is nil when the respondent leaves required questions unanswered.
func Take(e *services.Engine, p Prompter, locale string, surveyID int, respondent, role string) (*services.Result, error) {
	s, err := e.Catalog.Get(surveyID)
	if err != nil {
		return nil, err
	}
	id, resumed := e.OpenResponse(surveyID, respondent)
	if resumed {
		p.Println(utils.T(locale, "take.resume"))
	} else if id, err = e.Begin(surveyID, respondent, role); err != nil {
		return nil, err
	}

	p.Println(s.Title)
	if s.Description != "" {
		p.Println(s.Description)
	}
	if s.IsQuestionnaire() {
		p.Printf(utils.T(locale, "take.time_limit")+"\n", s.Questionnaire.TimeLimitMinutes)
	}
	r, err := e.Responses.ByID(id)
	if err != nil {
		return nil, err
	}

	for n, q := range questionOrder(s, id) {
		if strings.TrimSpace(r.Answers[q.ID]) != "" {
			continue
		}
		if done, err := e.IsCompleted(id); err != nil {
			return nil, err
		} else if done {
			return expired(e, p, locale, id)
		}
		answer, err := ask(p, locale, n+1, q)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			continue
		}
		if err := e.WriteAnswer(id, q.ID, answer); err != nil {
			if services.IsCode(err, services.ErrorState) {
				return expired(e, p, locale, id)
			}
			return nil, err
		}
	}

	if done, err := e.IsCompleted(id); err != nil {
		return nil, err
	} else if done {
		return expired(e, p, locale, id)
	}
	ok, err := e.Responses.RequiredAnswered(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.Println(utils.T(locale, "take.incomplete"))
		return nil, nil
	}
	if err := e.Finalize(id); err != nil {
		return nil, err
	}
	p.Println(utils.T(locale, "take.done"))
	return showResult(e, p, locale, id)
}

func expired(e *services.Engine, p Prompter, locale string, responseID int) (*services.Result, error) {
	p.Println(utils.T(locale, "take.expired"))
	return showResult(e, p, locale, responseID)
}

func showResult(e *services.Engine, p Prompter, locale string, responseID int) (*services.Result, error) {
	res, err := e.GetResult(responseID)
	if err != nil {
		return nil, err
	}
	printResult(p, locale, res)
	return res, nil
}

func printResult(p Prompter, locale string, res *services.Result) {
	if !res.Questionnaire {
		p.Printf(utils.T(locale, "result.status")+"\n", res.Moderation)
		return
	}
	if !res.Revealed || res.Grade == nil {
		p.Println(utils.T(locale, "result.hidden"))
		return
	}
	g := res.Grade
	p.Printf(utils.T(locale, "result.score")+"\n", g.Score, g.MaxScore, g.Percent)
	if g.Passed {
		p.Println(utils.T(locale, "result.passed"))
	} else {
		p.Println(utils.T(locale, "result.failed"))
	}
}

// questionOrder shuffles randomized questionnaires with a seed derived from
// the response, so a resumed attempt sees the same order.
func questionOrder(s *models.Survey, responseID int) []models.Question {
	qs := append([]models.Question(nil), s.Questions...)
	if s.IsQuestionnaire() && s.Questionnaire.Randomize {
		rng := rand.New(rand.NewPCG(uint64(responseID), uint64(s.ID)))
		rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
	return qs
}

// ask prompts until the answer fits the question kind. Single choice answers
// are stored as zero-based option indexes, booleans as "true"/"false". An
// empty return means an optional question was skipped.
func ask(p Prompter, locale string, n int, q models.Question) (string, error) {
	header := strconv.Itoa(n) + ". " + q.Text
	if q.Required {
		header += " " + utils.T(locale, "take.required")
	}
	p.Println(header)
	switch q.Kind {
	case models.KindSingleChoice:
		for i, o := range q.Options {
			p.Printf("  %d) %s\n", i+1, o)
		}
	case models.KindBoolean:
		p.Println("  " + utils.T(locale, "take.bool_hint"))
	}
	for {
		line, err := p.ReadLine(utils.T(locale, "take.answer"))
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if q.Required {
				p.Println(utils.T(locale, "take.need_answer"))
				continue
			}
			return "", nil
		}
		switch q.Kind {
		case models.KindSingleChoice:
			i, err := strconv.Atoi(line)
			if err != nil || i < 1 || i > len(q.Options) {
				p.Println(utils.T(locale, "take.bad_option"))
				continue
			}
			return strconv.Itoa(i - 1), nil
		case models.KindBoolean:
			v, ok := parseBoolAnswer(line)
			if !ok {
				p.Println(utils.T(locale, "take.bad_bool"))
				continue
			}
			return v, nil
		default:
			return line, nil
		}
	}
}

func parseBoolAnswer(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "si", "sí", "s", "1":
		return "true", true
	case "false", "f", "no", "n", "0":
		return "false", true
	}
	return "", false
}
