package reportingController

import (
	"lms/logger"
	"lms/middleware"
	"lms/models"
	"lms/services"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	reports *services.ReportingService
	log     *logger.Logger
}

func New(reports *services.ReportingService, log *logger.Logger) *Handler {
	return &Handler{reports: reports, log: log.With("controller", "reporting")}
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	report, err := h.reports.Dashboard(c.UserContext())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard fetched successfully!", report)
}

func (h *Handler) CourseCompletion(c *fiber.Ctx) error {
	report, err := h.reports.CourseCompletion(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course completion fetched successfully!", report)
}

func (h *Handler) QuizStats(c *fiber.Ctx) error {
	report, err := h.reports.QuizStats(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz statistics fetched successfully!", report)
}

// LearnerProgress is open to the learner themself and to staff.
func (h *Handler) LearnerProgress(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	learnerID := validators.ParamID(c, "id")
	if learnerID != userID && role != models.RoleAdmin && role != models.RoleInstructor {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
	report, err := h.reports.LearnerProgress(c.UserContext(), learnerID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Learner progress fetched successfully!", report)
}
