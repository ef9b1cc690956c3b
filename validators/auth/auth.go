package authValidator

import (
	"strings"

	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=LEARNER INSTRUCTOR"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Signup validator middleware
func Signup() fiber.Handler {
	return validators.Body("validatedSignup", func(r *SignupRequest) {
		r.Name = strings.TrimSpace(r.Name)
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
		r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	})
}

// Login validator middleware
func Login() fiber.Handler {
	return validators.Body("validatedLogin", func(r *LoginRequest) {
		r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	})
}
