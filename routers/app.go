package routers

import (
	"errors"

	"lms/config"
	assessmentController "lms/controllers/assessment"
	authController "lms/controllers/auth"
	learningController "lms/controllers/learning"
	reportingController "lms/controllers/reporting"
	"lms/logger"
	"lms/middleware"
	"lms/routers/assessmentRoutes"
	"lms/routers/authRoutes"
	"lms/routers/learningRoutes"
	"lms/routers/reportingRoutes"
	"lms/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// NewApp builds the fiber app with its middleware stack and every route group.
func NewApp(cfg *config.Config, log *logger.Logger, svc *services.Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "lms",
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.LogMode != "test" {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency} ${locals:requestid}\n",
		}))
	}
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "OK", nil)
	})

	jwt := middleware.JWTMiddleware(cfg.JWTKey)

	authRoutes.SetupAuthRoutes(app, authController.New(svc.Users, cfg, log), jwt)
	learningRoutes.SetupLearningRoutes(app, learningController.New(svc, log), jwt, svc.Users)
	assessmentRoutes.SetupAssessmentRoutes(app, assessmentController.New(svc, log), jwt, svc.Users)
	reportingRoutes.SetupReportingRoutes(app, reportingController.New(svc.Reports, log), jwt, svc.Users)

	return app
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return middleware.JsonResponse(c, fe.Code, false, fe.Message, nil)
		}
		log.Error("unhandled request error", "path", c.Path(), "request_id", c.Locals("requestid"), "error", err)
		return middleware.ErrorResponse(c, err)
	}
}
