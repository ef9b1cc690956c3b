package middleware

import (
	"time"

	"lms/logger"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger writes one structured line per request, tagged with the request id.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.With("component", "http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		kv := []interface{}{
			"request_id", c.Locals("requestid"),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if userID, _, ok := CurrentUser(c); ok {
			kv = append(kv, "user_id", userID)
		}
		if err != nil {
			log.Warn("request failed", append(kv, "error", err)...)
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			log.Warn("request", kv...)
		} else {
			log.Debug("request", kv...)
		}
		return nil
	}
}
