package learningController

import (
	"strings"

	"lms/middleware"
	"lms/models"
	"lms/repos"
	"lms/services"
	"lms/utils"
	"lms/validators"
	learningValidator "lms/validators/learning"

	"github.com/gofiber/fiber/v2"
)

// Course types

func (h *Handler) CreateCourseType(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourseType").(*learningValidator.CourseTypeRequest)
	ct, err := h.svc.Courses.CreateCourseType(c.UserContext(), reqData.Name, reqData.Description)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course type created successfully!", ct)
}

func (h *Handler) ListCourseTypes(c *fiber.Ctx) error {
	onlyActive := c.Query("active") == "true"
	types, err := h.svc.Courses.ListCourseTypes(c.UserContext(), onlyActive)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course types fetched successfully!", types)
}

func (h *Handler) DeactivateCourseType(c *fiber.Ctx) error {
	ct, err := h.svc.Publishing.DeactivateCourseType(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course type deactivated successfully!", ct)
}

func (h *Handler) DeleteCourseType(c *fiber.Ctx) error {
	if err := h.svc.Publishing.DeleteCourseType(c.UserContext(), validators.ParamID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course type deleted successfully!", nil)
}

// Courses

func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	reqData := c.Locals("validatedCourse").(*learningValidator.CourseRequest)
	course, err := h.svc.Courses.CreateCourse(c.UserContext(), services.CourseInput{
		Title:          reqData.Title,
		Description:    reqData.Description,
		CourseTypeID:   reqData.CourseTypeID,
		OrganizationID: reqData.OrganizationID,
	}, userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

func (h *Handler) ListCourses(c *fiber.Ctx) error {
	_, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	filter := repos.CourseFilter{
		Status:       strings.ToLower(c.Query("status")),
		CourseTypeID: utils.QueryUint(c, "course_type_id"),
		Search:       strings.TrimSpace(c.Query("search")),
	}
	// learners only browse the catalogue
	if !isStaff(role) {
		filter.Status = models.CourseStatusPublished
	}
	page := utils.ParsePage(c)
	courses, total, err := h.svc.Courses.ListCourses(c.UserContext(), filter, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.PaginatedResponse(c, "Courses fetched successfully!", courses, utils.NewPageMeta(page, total))
}

func (h *Handler) GetCourse(c *fiber.Ctx) error {
	_, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	course, err := h.svc.Courses.GetCourse(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !course.IsPublished() && !isStaff(role) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found.", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", course)
}

func (h *Handler) UpdateCourse(c *fiber.Ctx) error {
	reqData := c.Locals("validatedCourseUpdate").(*learningValidator.CourseUpdateRequest)
	course, err := h.svc.Courses.UpdateCourse(c.UserContext(), validators.ParamID(c, "id"), services.CourseUpdate{
		Title:        reqData.Title,
		Description:  reqData.Description,
		CourseTypeID: reqData.CourseTypeID,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

func (h *Handler) DeleteCourse(c *fiber.Ctx) error {
	if err := h.svc.Publishing.DeleteCourse(c.UserContext(), validators.ParamID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted successfully!", nil)
}

type publishabilityResponse struct {
	CourseID    uint     `json:"course_id"`
	Publishable bool     `json:"publishable"`
	Reasons     []string `json:"reasons"`
}

func (h *Handler) Publishability(c *fiber.Ctx) error {
	id := validators.ParamID(c, "id")
	reasons, err := h.svc.Publishing.GetUnpublishabilityReasons(c.UserContext(), id)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Publishability checked successfully!", publishabilityResponse{
		CourseID:    id,
		Publishable: len(reasons) == 0,
		Reasons:     reasons,
	})
}

func (h *Handler) PublishCourse(c *fiber.Ctx) error {
	course, err := h.svc.Publishing.Publish(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", course)
}

func (h *Handler) UnpublishCourse(c *fiber.Ctx) error {
	course, err := h.svc.Publishing.Unpublish(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course unpublished successfully!", course)
}

// Instructors

func (h *Handler) AssignInstructor(c *fiber.Ctx) error {
	reqData := c.Locals("validatedInstructor").(*learningValidator.InstructorRequest)
	courseID := validators.ParamID(c, "id")
	if err := h.svc.Courses.AssignInstructor(c.UserContext(), courseID, reqData.InstructorID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Instructor assigned successfully!", fiber.Map{
		"course_id":     courseID,
		"instructor_id": reqData.InstructorID,
	})
}

func (h *Handler) RemoveInstructor(c *fiber.Ctx) error {
	courseID := validators.ParamID(c, "id")
	instructorID := validators.ParamID(c, "instructor_id")
	if err := h.svc.Courses.RemoveInstructor(c.UserContext(), courseID, instructorID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Instructor removed successfully!", nil)
}
