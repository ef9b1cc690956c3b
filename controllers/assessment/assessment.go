package assessmentController

import (
	"strings"

	"lms/logger"
	"lms/middleware"
	"lms/models"
	"lms/repos"
	"lms/services"
	"lms/utils"
	"lms/validators"
	assessmentValidator "lms/validators/assessment"

	"github.com/gofiber/fiber/v2"
)

// Handler serves quiz authoring, attempt and answer endpoints.
type Handler struct {
	svc *services.Services
	log *logger.Logger
}

func New(svc *services.Services, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("controller", "assessment")}
}

func isStaff(role string) bool {
	return role == models.RoleAdmin || role == models.RoleInstructor
}

func unauthorized(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
}

type quizResponse struct {
	Quiz      *models.Quiz       `json:"quiz"`
	Questions []*models.Question `json:"questions"`
}

// hideKeys strips correct answers from questions shown to learners.
func hideKeys(questions []*models.Question) {
	for _, q := range questions {
		q.CorrectBoolean = nil
		for i := range q.Options {
			q.Options[i].IsCorrect = false
		}
	}
}

// Quizzes

func (h *Handler) CreateQuiz(c *fiber.Ctx) error {
	reqData := c.Locals("validatedQuiz").(*assessmentValidator.QuizRequest)
	quiz, err := h.svc.Courses.CreateQuiz(c.UserContext(), services.QuizInput{
		CourseID:        reqData.CourseID,
		UnitID:          reqData.UnitID,
		Title:           reqData.Title,
		Description:     reqData.Description,
		DurationMinutes: reqData.DurationMinutes,
		PassingScore:    reqData.PassingScore,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quiz created successfully!", quiz)
}

func (h *Handler) GetQuiz(c *fiber.Ctx) error {
	_, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	quiz, questions, err := h.svc.Courses.GetQuiz(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !isStaff(role) {
		if quiz.Status != models.QuizStatusPublished {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quiz not found.", nil)
		}
		hideKeys(questions)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz fetched successfully!", quizResponse{Quiz: quiz, Questions: questions})
}

func (h *Handler) AddQuestion(c *fiber.Ctx) error {
	reqData := c.Locals("validatedQuestion").(*assessmentValidator.QuestionRequest)
	in := services.QuestionInput{
		Text:           reqData.Text,
		QuestionType:   reqData.QuestionType,
		Score:          reqData.Score,
		CorrectBoolean: reqData.CorrectBoolean,
	}
	for _, o := range reqData.Options {
		in.Options = append(in.Options, services.OptionInput{Text: strings.TrimSpace(o.Text), IsCorrect: o.IsCorrect})
	}
	q, err := h.svc.Courses.AddQuestion(c.UserContext(), validators.ParamID(c, "id"), in)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Question added successfully!", q)
}

func (h *Handler) PublishQuiz(c *fiber.Ctx) error {
	quiz, err := h.svc.Courses.PublishQuiz(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz published successfully!", quiz)
}

// Attempts

func (h *Handler) StartAttempt(c *fiber.Ctx) error {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	reqData := c.Locals("validatedStart").(*assessmentValidator.StartAttemptRequest)
	attempt, err := h.svc.Attempts.Start(c.UserContext(), reqData.QuizID, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Attempt started successfully!", attempt)
}

// ownAttempt loads the attempt and checks the caller may act on it.
func (h *Handler) ownAttempt(c *fiber.Ctx, id uint) (*models.Attempt, bool, error) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, false, unauthorized(c)
	}
	attempt, err := h.svc.Attempts.Get(c.UserContext(), id)
	if err != nil {
		return nil, false, middleware.ErrorResponse(c, err)
	}
	if attempt.StudentID != userID && !isStaff(role) {
		return nil, false, middleware.JsonResponse(c, fiber.StatusNotFound, false, "Attempt not found.", nil)
	}
	return attempt, true, nil
}

func (h *Handler) GetAttempt(c *fiber.Ctx) error {
	attempt, ok, err := h.ownAttempt(c, validators.ParamID(c, "id"))
	if !ok {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt fetched successfully!", attempt)
}

func (h *Handler) ListAttempts(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	filter := repos.AttemptFilter{
		QuizID:    utils.QueryUint(c, "quiz_id"),
		StudentID: utils.QueryUint(c, "student_id"),
		Status:    strings.ToLower(c.Query("status")),
	}
	if !isStaff(role) {
		filter.StudentID = userID
	}
	page := utils.ParsePage(c)
	rows, total, err := h.svc.Attempts.List(c.UserContext(), filter, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.PaginatedResponse(c, "Attempts fetched successfully!", rows, utils.NewPageMeta(page, total))
}

func (h *Handler) SubmitAttempt(c *fiber.Ctx) error {
	userID, _, _ := middleware.CurrentUser(c)
	id := validators.ParamID(c, "id")
	attempt, ok, err := h.ownAttempt(c, id)
	if !ok {
		return err
	}
	if attempt.StudentID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only the student can submit this attempt!", nil)
	}

	res, err := h.svc.Attempts.Submit(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !res.Applied {
		return middleware.HintResponse(c, "Attempt was not submitted.", res.Message, res.Attempt)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt submitted successfully!", res.Attempt)
}

func (h *Handler) GradeAttempt(c *fiber.Ctx) error {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	reqData := c.Locals("validatedGrade").(*assessmentValidator.GradeAttemptRequest)
	res, err := h.svc.Attempts.Grade(c.UserContext(), validators.ParamID(c, "id"), services.GradeInput{
		Score:    reqData.Score,
		IsPassed: reqData.IsPassed,
	}, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !res.Applied {
		return middleware.HintResponse(c, "Attempt was not graded.", res.Message, res.Attempt)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt graded successfully!", res.Attempt)
}

// Answers

func (h *Handler) SaveAnswers(c *fiber.Ctx) error {
	userID, _, _ := middleware.CurrentUser(c)
	id := validators.ParamID(c, "id")
	attempt, ok, err := h.ownAttempt(c, id)
	if !ok {
		return err
	}
	if attempt.StudentID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only the student can answer this attempt!", nil)
	}

	reqData := c.Locals("validatedAnswers").(*assessmentValidator.AnswersRequest)
	inputs := make([]services.AnswerInput, 0, len(reqData.Answers))
	for _, a := range reqData.Answers {
		inputs = append(inputs, services.AnswerInput{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID,
			AnswerText:       a.AnswerText,
			BooleanAnswer:    a.BooleanAnswer,
		})
	}
	answers, err := h.svc.Answers.SaveMany(c.UserContext(), id, inputs)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	// scores stay hidden until grading
	for _, a := range answers {
		a.IsCorrect = nil
		a.QuestionScore = 0
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answers saved successfully!", answers)
}

func (h *Handler) GradeAnswer(c *fiber.Ctx) error {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	reqData := c.Locals("validatedAnswerGrade").(*assessmentValidator.GradeAnswerRequest)
	answer, err := h.svc.Answers.Grade(c.UserContext(), validators.ParamID(c, "id"), *reqData.Score, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer graded successfully!", answer)
}
