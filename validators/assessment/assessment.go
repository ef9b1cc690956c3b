package assessmentValidator

import (
	"strings"

	"lms/middleware"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

type QuizRequest struct {
	CourseID        uint    `json:"course_id" validate:"required,gt=0"`
	UnitID          *uint   `json:"unit_id" validate:"omitempty,gt=0"`
	Title           string  `json:"title" validate:"required,min=2,max=255"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes" validate:"gte=0"`
	PassingScore    float64 `json:"passing_score" validate:"gte=0"`
}

type OptionRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionRequest struct {
	Text           string          `json:"text" validate:"required"`
	QuestionType   string          `json:"question_type" validate:"omitempty,oneof=multiple_choice true_false text"`
	Score          float64         `json:"score" validate:"gte=0"`
	CorrectBoolean *bool           `json:"correct_boolean"`
	Options        []OptionRequest `json:"options" validate:"dive"`
}

type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required,gt=0"`
}

type GradeAttemptRequest struct {
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	IsPassed *bool    `json:"is_passed"`
}

type AnswerRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required,gt=0"`
	SelectedOptionID *uint   `json:"selected_option_id" validate:"omitempty,gt=0"`
	AnswerText       *string `json:"answer_text"`
	BooleanAnswer    *bool   `json:"boolean_answer"`
}

type AnswersRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

type GradeAnswerRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0"`
}

func CreateQuiz() fiber.Handler {
	return validators.Body("validatedQuiz", func(r *QuizRequest) {
		r.Title = strings.TrimSpace(r.Title)
	})
}

func AddQuestion() fiber.Handler {
	return validators.Body("validatedQuestion", func(r *QuestionRequest) {
		r.Text = strings.TrimSpace(r.Text)
		r.QuestionType = strings.ToLower(strings.TrimSpace(r.QuestionType))
	})
}

func StartAttempt() fiber.Handler {
	return validators.Body[StartAttemptRequest]("validatedStart", nil)
}

func GradeAttempt() fiber.Handler {
	return validators.Body[GradeAttemptRequest]("validatedGrade", nil)
}

// SaveAnswers accepts either {"answers": [...]} or a single answer object.
func SaveAnswers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AnswersRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if len(reqData.Answers) == 0 {
			single := new(AnswerRequest)
			if err := c.BodyParser(single); err == nil && single.QuestionID != 0 {
				reqData.Answers = []AnswerRequest{*single}
			}
		}

		errors := validators.Struct(reqData)
		seen := make(map[uint]bool, len(reqData.Answers))
		for _, a := range reqData.Answers {
			if seen[a.QuestionID] {
				errors["answers"] = "Each question may be answered once per request!"
			}
			seen[a.QuestionID] = true
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAnswers", reqData)
		return c.Next()
	}
}

func GradeAnswer() fiber.Handler {
	return validators.Body[GradeAnswerRequest]("validatedAnswerGrade", nil)
}
