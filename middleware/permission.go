package middleware

import (
	"lms/repos"

	"github.com/gofiber/fiber/v2"
)

// RequireRoles lets the request through when the token role is one of roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, role, ok := CurrentUser(c)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
}

// CheckPermissionMiddleware lets through users holding any of roles or the explicit permission grant.
func CheckPermissionMiddleware(users repos.UserRepo, requiredPermission string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, ok := CurrentUser(c)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}

		allowed, err := users.HasPermission(c.UserContext(), nil, userID, requiredPermission)
		if err != nil {
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}
		if !allowed {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		return c.Next()
	}
}
