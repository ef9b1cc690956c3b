package middleware

import (
	"lms/apperr"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Status    bool        `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Code      int         `json:"code"`
	ErrorCode string      `json:"error_code,omitempty"`
	Hint      string      `json:"hint,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(Envelope{
		Status:  status,
		Message: message,
		Data:    data,
		Code:    statusCode,
	})
}

// HintResponse is a successful response that carries a hint, e.g. for an operation that was a no-op.
func HintResponse(c *fiber.Ctx, message, hint string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:  true,
		Message: message,
		Data:    data,
		Code:    fiber.StatusOK,
		Hint:    hint,
	})
}

func PaginatedResponse(c *fiber.Ctx, message string, data interface{}, meta interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:  true,
		Message: message,
		Data:    data,
		Code:    fiber.StatusOK,
		Meta:    meta,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(Envelope{
		Status:    false,
		Message:   "Validation failed!",
		Data:      errors,
		Code:      fiber.StatusUnprocessableEntity,
		ErrorCode: apperr.CodeValidation,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindBusinessRule:
		return fiber.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorResponse renders a service error. Internal causes never reach the client.
func ErrorResponse(c *fiber.Ctx, err error) error {
	ae := apperr.Wrap(err)
	status := StatusFor(ae.Kind)
	env := Envelope{
		Status:    false,
		Message:   ae.Message,
		Code:      status,
		ErrorCode: ae.Code,
		Hint:      ae.Hint,
		Details:   ae.Details,
	}
	if ae.Kind == apperr.KindInternal {
		env.Message = apperr.Internal(nil).Message
		env.Hint = ""
		env.Details = nil
	}
	return c.Status(status).JSON(env)
}
