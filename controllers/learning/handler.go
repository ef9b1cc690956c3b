package learningController

import (
	"lms/logger"
	"lms/middleware"
	"lms/models"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// Handler serves course structure, publishing and enrollment endpoints.
type Handler struct {
	svc *services.Services
	log *logger.Logger
}

func New(svc *services.Services, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("controller", "learning")}
}

func isStaff(role string) bool {
	return role == models.RoleAdmin || role == models.RoleInstructor
}

func unauthorized(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
}
