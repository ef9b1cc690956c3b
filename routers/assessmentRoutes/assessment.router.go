package assessmentRoutes

import (
	assessmentController "lms/controllers/assessment"
	"lms/middleware"
	"lms/models"
	"lms/repos"
	"lms/validators"
	assessmentValidator "lms/validators/assessment"

	"github.com/gofiber/fiber/v2"
)

func SetupAssessmentRoutes(app fiber.Router, h *assessmentController.Handler, jwt fiber.Handler, users repos.UserRepo) {
	manage := middleware.CheckPermissionMiddleware(users, models.PermissionManageCourses, models.RoleAdmin, models.RoleInstructor)
	grade := middleware.CheckPermissionMiddleware(users, models.PermissionGradeAttempts, models.RoleAdmin, models.RoleInstructor)
	id := validators.IDParams("id")

	quizGroup := app.Group("/quizzes", jwt)
	quizGroup.Post("/", manage, assessmentValidator.CreateQuiz(), h.CreateQuiz)
	quizGroup.Get("/:id", id, h.GetQuiz)
	quizGroup.Post("/:id/questions", manage, id, assessmentValidator.AddQuestion(), h.AddQuestion)
	quizGroup.Post("/:id/publish", manage, id, h.PublishQuiz)

	attemptGroup := app.Group("/attempts", jwt)
	attemptGroup.Post("/start", assessmentValidator.StartAttempt(), h.StartAttempt)
	attemptGroup.Get("/", validators.Pagination(), h.ListAttempts)
	attemptGroup.Get("/:id", id, h.GetAttempt)
	attemptGroup.Put("/:id/submit", id, h.SubmitAttempt)
	attemptGroup.Put("/:id/grade", grade, id, assessmentValidator.GradeAttempt(), h.GradeAttempt)
	attemptGroup.Put("/:id/answers", id, assessmentValidator.SaveAnswers(), h.SaveAnswers)

	answerGroup := app.Group("/answers", jwt)
	answerGroup.Put("/:id/grade", grade, id, assessmentValidator.GradeAnswer(), h.GradeAnswer)
}
