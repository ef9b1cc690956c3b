package reportingRoutes

import (
	reportingController "lms/controllers/reporting"
	"lms/middleware"
	"lms/models"
	"lms/repos"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

func SetupReportingRoutes(app fiber.Router, h *reportingController.Handler, jwt fiber.Handler, users repos.UserRepo) {
	view := middleware.CheckPermissionMiddleware(users, models.PermissionViewReports, models.RoleAdmin, models.RoleInstructor)
	id := validators.IDParams("id")

	reportGroup := app.Group("/reports", jwt)
	reportGroup.Get("/dashboard", view, h.Dashboard)
	reportGroup.Get("/courses/:id/completion", view, id, h.CourseCompletion)
	reportGroup.Get("/quizzes/:id", view, id, h.QuizStats)
	reportGroup.Get("/learners/:id/progress", id, h.LearnerProgress)
}
