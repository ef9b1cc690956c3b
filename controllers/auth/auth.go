package authController

import (
	"errors"
	"time"

	"lms/apperr"
	"lms/config"
	"lms/logger"
	"lms/middleware"
	"lms/models"
	"lms/repos"
	authValidator "lms/validators/auth"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	users repos.UserRepo
	cfg   *config.Config
	log   *logger.Logger
}

func New(users repos.UserRepo, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{users: users, cfg: cfg, log: log.With("controller", "auth")}
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	reqData := c.Locals("validatedSignup").(*authValidator.SignupRequest)
	ctx := c.UserContext()

	// Check if email already exists
	if _, err := h.users.GetByEmail(ctx, nil, reqData.Email); err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		h.log.Error("lookup email failed", "error", err)
		return middleware.ErrorResponse(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), h.cfg.SaltRound)
	if err != nil {
		h.log.Error("hash password failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	role := models.RoleLearner
	if reqData.Role == models.RoleInstructor {
		role = models.RoleInstructor
	}
	if h.cfg.AdminEmail != "" && reqData.Email == h.cfg.AdminEmail {
		role = models.RoleAdmin
	}

	newUser := models.User{
		Name:     reqData.Name,
		Email:    reqData.Email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := h.users.Create(ctx, nil, &newUser); err != nil {
		h.log.Error("create user failed", "email", reqData.Email, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to Signup user!", nil)
	}

	token, err := middleware.GenerateJWT(newUser.ID, newUser.Name, newUser.Role, newUser.Email, h.cfg.JWTKey, h.cfg.JWTTTL)
	if err != nil {
		h.log.Error("sign token failed", "user_id", newUser.ID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	h.log.Info("user signed up", "user_id", newUser.ID, "role", newUser.Role)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Signup successful!", tokenResponse{Token: token, User: &newUser})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	reqData := c.Locals("validatedLogin").(*authValidator.LoginRequest)
	ctx := c.UserContext()

	user, err := h.users.GetByEmail(ctx, nil, reqData.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password!", nil)
		}
		return middleware.ErrorResponse(c, err)
	}
	if !user.IsActive {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Account is disabled!", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.log.Warn("password compare failed", "user_id", user.ID, "error", err)
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password!", nil)
	}

	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email, h.cfg.JWTKey, h.cfg.JWTTTL)
	if err != nil {
		h.log.Error("sign token failed", "user_id", user.ID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token!", nil)
	}

	if err := h.users.TouchLogin(ctx, nil, user, c.IP(), c.Get(fiber.HeaderUserAgent), time.Now()); err != nil {
		h.log.Warn("record login failed", "user_id", user.ID, "error", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful!", tokenResponse{Token: token, User: user})
}

type roleRequest struct {
	Role string `json:"role"`
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

// SetRole changes a user's role. Admin only.
func (h *Handler) SetRole(c *fiber.Ctx) error {
	userID, _ := c.Locals("id").(uint)
	reqData := new(roleRequest)
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	switch reqData.Role {
	case models.RoleAdmin, models.RoleInstructor, models.RoleLearner:
	default:
		return middleware.ValidationErrorResponse(c, map[string]string{"role": "role must be one of: ADMIN INSTRUCTOR LEARNER!"})
	}
	if err := h.users.SetRole(c.UserContext(), nil, userID, reqData.Role); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Role updated successfully!", fiber.Map{"user_id": userID, "role": reqData.Role})
}

// GrantPermission gives a user one named permission. Admin only.
func (h *Handler) GrantPermission(c *fiber.Ctx) error {
	userID, _ := c.Locals("id").(uint)
	reqData := new(permissionRequest)
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	switch reqData.Permission {
	case models.PermissionManageCourses, models.PermissionGradeAttempts, models.PermissionViewReports:
	default:
		return middleware.ValidationErrorResponse(c, map[string]string{"permission": "Unknown permission!"})
	}
	ctx := c.UserContext()
	if _, err := h.users.GetByID(ctx, nil, userID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if err := h.users.Grant(ctx, nil, userID, reqData.Permission); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Permission granted successfully!", fiber.Map{"user_id": userID, "permission": reqData.Permission})
}
