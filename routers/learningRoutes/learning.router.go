package learningRoutes

import (
	learningController "lms/controllers/learning"
	"lms/middleware"
	"lms/models"
	"lms/repos"
	"lms/validators"
	learningValidator "lms/validators/learning"

	"github.com/gofiber/fiber/v2"
)

// SetupLearningRoutes registers course structure, publishing and enrollment routes.
func SetupLearningRoutes(app fiber.Router, h *learningController.Handler, jwt fiber.Handler, users repos.UserRepo) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	manage := middleware.CheckPermissionMiddleware(users, models.PermissionManageCourses, models.RoleAdmin, models.RoleInstructor)
	id := validators.IDParams("id")

	// Course types
	typeGroup := app.Group("/course-types", jwt)
	typeGroup.Get("/", h.ListCourseTypes)
	typeGroup.Post("/", admin, learningValidator.CreateCourseType(), h.CreateCourseType)
	typeGroup.Put("/:id/deactivate", admin, id, h.DeactivateCourseType)
	typeGroup.Delete("/:id", admin, id, h.DeleteCourseType)

	// Courses
	courseGroup := app.Group("/courses", jwt)
	courseGroup.Post("/", manage, learningValidator.CreateCourse(), h.CreateCourse)
	courseGroup.Get("/", validators.Pagination(), h.ListCourses)
	courseGroup.Get("/:id", id, h.GetCourse)
	courseGroup.Put("/:id", manage, id, learningValidator.UpdateCourse(), h.UpdateCourse)
	courseGroup.Delete("/:id", manage, id, h.DeleteCourse)

	// Publishing
	courseGroup.Get("/:id/publishability", manage, id, h.Publishability)
	courseGroup.Post("/:id/publish", manage, id, h.PublishCourse)
	courseGroup.Post("/:id/unpublish", manage, id, h.UnpublishCourse)

	// Instructors
	courseGroup.Post("/:id/instructors", manage, id, learningValidator.AssignInstructor(), h.AssignInstructor)
	courseGroup.Delete("/:id/instructors/:instructor_id", manage, validators.IDParams("id", "instructor_id"), h.RemoveInstructor)

	// Units
	courseGroup.Get("/:id/units", id, h.ListUnits)
	courseGroup.Post("/:id/units", manage, id, learningValidator.CreateUnit(), h.CreateUnit)
	unitGroup := app.Group("/units", jwt)
	unitGroup.Put("/:id", manage, id, learningValidator.UpdateUnit(), h.UpdateUnit)
	unitGroup.Delete("/:id", manage, id, h.DeleteUnit)
	unitGroup.Post("/:course/reorder", manage, validators.IDParams("course"), learningValidator.Reorder(), h.ReorderUnits)

	// Lessons
	unitGroup.Get("/:id/lessons", id, h.ListLessons)
	unitGroup.Post("/:id/lessons", manage, id, learningValidator.CreateLesson(), h.CreateLesson)
	lessonGroup := app.Group("/lessons", jwt)
	lessonGroup.Put("/:id", manage, id, learningValidator.UpdateLesson(), h.UpdateLesson)
	lessonGroup.Delete("/:id", manage, id, h.DeleteLesson)
	lessonGroup.Post("/:unit/reorder", manage, validators.IDParams("unit"), learningValidator.Reorder(), h.ReorderLessons)

	// Enrollments
	enrollGroup := app.Group("/enrollments", jwt)
	enrollGroup.Post("/", learningValidator.Enroll(), h.Enroll)
	enrollGroup.Get("/", validators.Pagination(), h.ListEnrollments)
	enrollGroup.Get("/:id", id, h.GetEnrollment)
	enrollGroup.Put("/:id/status", id, learningValidator.UpdateStatus(), h.UpdateEnrollmentStatus)
	enrollGroup.Post("/:id/lessons/:lesson_id/complete", validators.IDParams("id", "lesson_id"), h.CompleteLesson)
}
