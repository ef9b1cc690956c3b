package authRoutes

import (
	authController "lms/controllers/auth"
	"lms/middleware"
	"lms/models"
	"lms/validators"
	authValidator "lms/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app fiber.Router, h *authController.Handler, jwt fiber.Handler) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", authValidator.Signup(), h.Signup)
	authGroup.Post("/login", authValidator.Login(), h.Login)

	userGroup := app.Group("/users", jwt, middleware.RequireRoles(models.RoleAdmin))
	userGroup.Put("/:id/role", validators.IDParams("id"), h.SetRole)
	userGroup.Post("/:id/permissions", validators.IDParams("id"), h.GrantPermission)
}
