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

type enrollResponse struct {
	Enrollment  *models.Enrollment `json:"enrollment"`
	Reactivated bool               `json:"reactivated"`
}

// Enroll enrolls the caller, or the given learner when staff assign them.
func (h *Handler) Enroll(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	reqData := c.Locals("validatedEnroll").(*learningValidator.EnrollRequest)

	in := services.EnrollInput{
		CourseID:       reqData.CourseID,
		LearnerID:      userID,
		EnrollmentType: models.EnrollmentTypeSelf,
	}
	if reqData.LearnerID != 0 && reqData.LearnerID != userID {
		if !isStaff(role) {
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only staff can enroll other learners!", nil)
		}
		in.LearnerID = reqData.LearnerID
		in.EnrollmentType = models.EnrollmentTypeAssigned
	}
	if reqData.EnrollmentType == models.EnrollmentTypeAssigned && isStaff(role) {
		in.EnrollmentType = models.EnrollmentTypeAssigned
	}
	if in.EnrollmentType == models.EnrollmentTypeAssigned {
		in.EnrolledBy = &userID
	}

	res, err := h.svc.Enrollments.Enroll(c.UserContext(), in)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	body := enrollResponse{Enrollment: res.Enrollment, Reactivated: res.Reactivated}
	if res.Reactivated {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment reactivated successfully!", body)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in course successfully!", body)
}

func (h *Handler) ListEnrollments(c *fiber.Ctx) error {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	filter := repos.EnrollmentFilter{
		CourseID:  utils.QueryUint(c, "course_id"),
		LearnerID: utils.QueryUint(c, "learner_id"),
		Status:    strings.ToLower(c.Query("status")),
	}
	if !isStaff(role) {
		filter.LearnerID = userID
	}
	page := utils.ParsePage(c)
	rows, total, err := h.svc.Enrollments.List(c.UserContext(), filter, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.PaginatedResponse(c, "Enrollments fetched successfully!", rows, utils.NewPageMeta(page, total))
}

// ownEnrollment loads the enrollment and checks the caller may act on it.
func (h *Handler) ownEnrollment(c *fiber.Ctx, id uint) (*models.Enrollment, bool, error) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, false, unauthorized(c)
	}
	e, err := h.svc.Enrollments.Get(c.UserContext(), id)
	if err != nil {
		return nil, false, middleware.ErrorResponse(c, err)
	}
	if e.LearnerID != userID && !isStaff(role) {
		return nil, false, middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found.", nil)
	}
	return e, true, nil
}

func (h *Handler) GetEnrollment(c *fiber.Ctx) error {
	e, ok, err := h.ownEnrollment(c, validators.ParamID(c, "id"))
	if !ok {
		return err
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment fetched successfully!", e)
}

// UpdateEnrollmentStatus lets staff apply any transition; learners may only drop their own enrollment.
func (h *Handler) UpdateEnrollmentStatus(c *fiber.Ctx) error {
	_, role, _ := middleware.CurrentUser(c)
	reqData := c.Locals("validatedStatus").(*learningValidator.StatusRequest)
	id := validators.ParamID(c, "id")

	current, ok, err := h.ownEnrollment(c, id)
	if !ok {
		return err
	}
	if !isStaff(role) && reqData.Status != models.EnrollmentDropped {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Learners can only drop their enrollment!", nil)
	}
	if current.Status == reqData.Status {
		return middleware.HintResponse(c, "Enrollment status unchanged.", "Enrollment is already "+current.Status+".", current)
	}

	e, err := h.svc.Enrollments.UpdateStatus(c.UserContext(), id, reqData.Status)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment status updated successfully!", e)
}

func (h *Handler) CompleteLesson(c *fiber.Ctx) error {
	id := validators.ParamID(c, "id")
	if _, ok, err := h.ownEnrollment(c, id); !ok {
		return err
	}
	e, err := h.svc.Enrollments.CompleteLesson(c.UserContext(), id, validators.ParamID(c, "lesson_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as complete!", e)
}
