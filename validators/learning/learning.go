package learningValidator

import (
	"strconv"
	"strings"

	"lms/middleware"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

type CourseTypeRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type CourseRequest struct {
	Title          string `json:"title" validate:"required,min=3,max=255"`
	Description    string `json:"description" validate:"max=10000"`
	CourseTypeID   uint   `json:"course_type_id" validate:"required,gt=0"`
	OrganizationID *uint  `json:"organization_id" validate:"omitempty,gt=0"`
}

type CourseUpdateRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=10000"`
	CourseTypeID *uint   `json:"course_type_id" validate:"omitempty,gt=0"`
}

type InstructorRequest struct {
	InstructorID uint `json:"instructor_id" validate:"required,gt=0"`
}

type UnitRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=5000"`
	UnitOrder   *int   `json:"unit_order" validate:"omitempty,gte=1"`
}

type UnitUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	UnitOrder   *int    `json:"unit_order" validate:"omitempty,gte=1"`
}

type LessonRequest struct {
	Title           string `json:"title" validate:"required,min=2,max=255"`
	Content         string `json:"content"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
	LessonOrder     *int   `json:"lesson_order" validate:"omitempty,gte=1"`
}

type LessonUpdateRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=2,max=255"`
	Content         *string `json:"content"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	LessonOrder     *int    `json:"lesson_order" validate:"omitempty,gte=1"`
}

type EnrollRequest struct {
	CourseID       uint   `json:"course_id" validate:"required,gt=0"`
	LearnerID      uint   `json:"learner_id" validate:"omitempty,gt=0"`
	EnrollmentType string `json:"enrollment_type" validate:"omitempty,oneof=self assigned"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed dropped suspended"`
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func CreateCourseType() fiber.Handler {
	return validators.Body("validatedCourseType", func(r *CourseTypeRequest) {
		r.Name = strings.TrimSpace(r.Name)
		r.Description = strings.TrimSpace(r.Description)
	})
}

func CreateCourse() fiber.Handler {
	return validators.Body("validatedCourse", func(r *CourseRequest) {
		r.Title = strings.TrimSpace(r.Title)
		r.Description = strings.TrimSpace(r.Description)
	})
}

func UpdateCourse() fiber.Handler {
	return validators.Body("validatedCourseUpdate", func(r *CourseUpdateRequest) {
		trimPtr(r.Title)
		trimPtr(r.Description)
	})
}

func AssignInstructor() fiber.Handler {
	return validators.Body[InstructorRequest]("validatedInstructor", nil)
}

func CreateUnit() fiber.Handler {
	return validators.Body("validatedUnit", func(r *UnitRequest) {
		r.Title = strings.TrimSpace(r.Title)
		r.Description = strings.TrimSpace(r.Description)
	})
}

func UpdateUnit() fiber.Handler {
	return validators.Body("validatedUnitUpdate", func(r *UnitUpdateRequest) {
		trimPtr(r.Title)
		trimPtr(r.Description)
	})
}

func CreateLesson() fiber.Handler {
	return validators.Body("validatedLesson", func(r *LessonRequest) {
		r.Title = strings.TrimSpace(r.Title)
	})
}

func UpdateLesson() fiber.Handler {
	return validators.Body("validatedLessonUpdate", func(r *LessonUpdateRequest) {
		trimPtr(r.Title)
	})
}

func Enroll() fiber.Handler {
	return validators.Body("validatedEnroll", func(r *EnrollRequest) {
		r.EnrollmentType = strings.ToLower(strings.TrimSpace(r.EnrollmentType))
	})
}

func UpdateStatus() fiber.Handler {
	return validators.Body("validatedStatus", func(r *StatusRequest) {
		r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	})
}

// Reorder validates a body of the form {"<id>": order, ...} and stores map[uint]int under "validatedReorder".
func Reorder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := map[string]int{}
		if err := c.BodyParser(&raw); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if len(raw) == 0 {
			errors["orders"] = "At least one order is required!"
		}

		positions := make(map[uint]int, len(raw))
		for key, order := range raw {
			id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
			if err != nil || id == 0 {
				errors[key] = "Key must be a positive id!"
				continue
			}
			if order < 1 {
				errors[key] = "Order must be greater than 0!"
				continue
			}
			positions[uint(id)] = order
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedReorder", positions)
		return c.Next()
	}
}
