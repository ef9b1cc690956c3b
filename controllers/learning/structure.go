package learningController

import (
	"lms/middleware"
	"lms/services"
	"lms/validators"
	learningValidator "lms/validators/learning"

	"github.com/gofiber/fiber/v2"
)

// Units

func (h *Handler) CreateUnit(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUnit").(*learningValidator.UnitRequest)
	unit, err := h.svc.Courses.CreateUnit(c.UserContext(), validators.ParamID(c, "id"), services.UnitInput{
		Title:       reqData.Title,
		Description: reqData.Description,
		Order:       reqData.UnitOrder,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Unit created successfully!", unit)
}

func (h *Handler) ListUnits(c *fiber.Ctx) error {
	units, err := h.svc.Courses.ListUnits(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Units fetched successfully!", units)
}

func (h *Handler) UpdateUnit(c *fiber.Ctx) error {
	reqData := c.Locals("validatedUnitUpdate").(*learningValidator.UnitUpdateRequest)
	unit, err := h.svc.Courses.UpdateUnit(c.UserContext(), validators.ParamID(c, "id"), services.UnitUpdate{
		Title:       reqData.Title,
		Description: reqData.Description,
		Order:       reqData.UnitOrder,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Unit updated successfully!", unit)
}

func (h *Handler) DeleteUnit(c *fiber.Ctx) error {
	if err := h.svc.Publishing.DeleteUnit(c.UserContext(), validators.ParamID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Unit deleted successfully!", nil)
}

func (h *Handler) ReorderUnits(c *fiber.Ctx) error {
	positions := c.Locals("validatedReorder").(map[uint]int)
	units, err := h.svc.Courses.ReorderUnits(c.UserContext(), validators.ParamID(c, "course"), positions)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Units reordered successfully!", units)
}

// Lessons

func (h *Handler) CreateLesson(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLesson").(*learningValidator.LessonRequest)
	lesson, err := h.svc.Courses.CreateLesson(c.UserContext(), validators.ParamID(c, "id"), services.LessonInput{
		Title:           reqData.Title,
		Content:         reqData.Content,
		DurationMinutes: reqData.DurationMinutes,
		Order:           reqData.LessonOrder,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

func (h *Handler) ListLessons(c *fiber.Ctx) error {
	lessons, err := h.svc.Courses.ListLessons(c.UserContext(), validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons fetched successfully!", lessons)
}

func (h *Handler) UpdateLesson(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLessonUpdate").(*learningValidator.LessonUpdateRequest)
	lesson, err := h.svc.Courses.UpdateLesson(c.UserContext(), validators.ParamID(c, "id"), services.LessonUpdate{
		Title:           reqData.Title,
		Content:         reqData.Content,
		DurationMinutes: reqData.DurationMinutes,
		Order:           reqData.LessonOrder,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated successfully!", lesson)
}

func (h *Handler) DeleteLesson(c *fiber.Ctx) error {
	if err := h.svc.Publishing.DeleteLesson(c.UserContext(), validators.ParamID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted successfully!", nil)
}

func (h *Handler) ReorderLessons(c *fiber.Ctx) error {
	positions := c.Locals("validatedReorder").(map[uint]int)
	lessons, err := h.svc.Courses.ReorderLessons(c.UserContext(), validators.ParamID(c, "unit"), positions)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons reordered successfully!", lessons)
}
