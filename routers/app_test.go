package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms/cache"
	"lms/config"
	"lms/database"
	"lms/logger"
	"lms/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Code      int             `json:"code"`
	ErrorCode string          `json:"error_code"`
	Hint      string          `json:"hint"`
	Details   []string        `json:"details"`
	Meta      json.RawMessage `json:"meta"`
}

type record struct {
	ID uint `json:"ID"`
}

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Port:                  "3000",
		AppEnv:                "test",
		LogMode:               "test",
		DBDriver:              "sqlite",
		DBMaxOpenConns:        1,
		AdminEmail:            "admin@example.com",
		JWTKey:                "test-secret",
		JWTTTL:                time.Hour,
		SaltRound:             4,
		CacheTTL:              time.Minute,
		AttemptDeadlinePolicy: config.DeadlinePolicyLenient,
		AttemptGraceSeconds:   30,
		AttemptSweepSpec:      "@every 1m",
		WebhookTimeout:        time.Second,
	}
	log := logger.Nop()
	svc := services.New(db, cfg, log, services.Options{Cache: cache.NewMemoryStore()})
	return &testServer{t: t, app: NewApp(cfg, log, svc)}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) signup(name, email, role string) string {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/auth/signup", "", fiber.Map{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func (s *testServer) create(path, token string, body interface{}) uint {
	s.t.Helper()
	status, env := s.do(http.MethodPost, path, token, body)
	require.Equal(s.t, http.StatusCreated, status, "%s: %s %v", path, env.Message, env.Details)
	var r record
	require.NoError(s.t, json.Unmarshal(env.Data, &r))
	require.NotZero(s.t, r.ID)
	return r.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Status)
	assert.Equal(t, http.StatusOK, env.Code)
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.signup("Ada Lovelace", "ada@example.com", "")

	status, env := s.do(http.MethodPost, "/auth/signup", "", fiber.Map{
		"name": "Ada Again", "email": "ADA@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Status)

	status, env = s.do(http.MethodPost, "/auth/login", "", fiber.Map{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/auth/login", "", fiber.Map{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, "LEARNER", data.User.Role)
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(http.MethodPost, "/auth/signup", "", fiber.Map{"name": "Al", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", env.ErrorCode)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(http.MethodGet, "/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/courses", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLearnerCannotManageCourses(t *testing.T) {
	s := newTestServer(t)
	learner := s.signup("Lea Learner", "lea@example.com", "")

	status, _ := s.do(http.MethodPost, "/course-types", learner, fiber.Map{"name": "Video"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodPost, "/courses", learner, fiber.Map{"title": "Go", "course_type_id": 1})
	assert.Equal(t, http.StatusForbidden, status)
}

// courseWithLesson builds a published course with one unit and one lesson.
func courseWithLesson(t *testing.T, s *testServer, admin, instructor string, instructorID uint) (courseID, unitID, lessonID uint) {
	t.Helper()
	typeID := s.create("/course-types", admin, fiber.Map{"name": "Self paced"})
	courseID = s.create("/courses", admin, fiber.Map{
		"title": "Go in Practice", "description": "Idiomatic Go.", "course_type_id": typeID,
	})

	status, env := s.do(http.MethodPost, fmt.Sprintf("/courses/%d/publish", courseID), admin, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "course_not_publishable", env.ErrorCode)
	assert.Contains(t, env.Details, "Course must have at least one instructor.")

	status, _ = s.do(http.MethodPost, fmt.Sprintf("/courses/%d/instructors", courseID), admin, fiber.Map{"instructor_id": instructorID})
	require.Equal(t, http.StatusOK, status)

	unitID = s.create(fmt.Sprintf("/courses/%d/units", courseID), instructor, fiber.Map{"title": "Basics"})
	lessonID = s.create(fmt.Sprintf("/units/%d/lessons", unitID), instructor, fiber.Map{"title": "Hello", "content": "fmt.Println"})

	status, env = s.do(http.MethodGet, fmt.Sprintf("/courses/%d/publishability", courseID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	var pub struct {
		Publishable bool     `json:"publishable"`
		Reasons     []string `json:"reasons"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pub))
	assert.True(t, pub.Publishable)
	assert.Empty(t, pub.Reasons)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/courses/%d/publish", courseID), admin, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	return courseID, unitID, lessonID
}

func signupWithID(t *testing.T, s *testServer, name, email, role string) (string, uint) {
	t.Helper()
	status, env := s.do(http.MethodPost, "/auth/signup", "", fiber.Map{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var data struct {
		Token string `json:"token"`
		User  record `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token, data.User.ID
}

func TestEnrollmentFlow(t *testing.T) {
	s := newTestServer(t)
	admin, _ := signupWithID(t, s, "Root Admin", "admin@example.com", "")
	instructor, instructorID := signupWithID(t, s, "Ivy Instructor", "ivy@example.com", "INSTRUCTOR")
	learner, learnerID := signupWithID(t, s, "Lea Learner", "lea@example.com", "")

	courseID, _, lessonID := courseWithLesson(t, s, admin, instructor, instructorID)

	status, env := s.do(http.MethodPost, "/enrollments", learner, fiber.Map{"course_id": courseID})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var enrolled struct {
		Enrollment struct {
			ID        uint    `json:"ID"`
			LearnerID uint    `json:"learner_id"`
			Status    string  `json:"status"`
			Progress  float64 `json:"progress"`
		} `json:"enrollment"`
		Reactivated bool `json:"reactivated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &enrolled))
	assert.Equal(t, learnerID, enrolled.Enrollment.LearnerID)
	assert.Equal(t, "active", enrolled.Enrollment.Status)
	assert.False(t, enrolled.Reactivated)

	status, env = s.do(http.MethodPost, "/enrollments", learner, fiber.Map{"course_id": courseID})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "already_enrolled", env.ErrorCode)

	enrollmentID := enrolled.Enrollment.ID
	status, env = s.do(http.MethodPost, fmt.Sprintf("/enrollments/%d/lessons/%d/complete", enrollmentID, lessonID), learner, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var done struct {
		Status   string  `json:"status"`
		Progress float64 `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, 100.0, done.Progress)

	// learners may only drop
	status, _ = s.do(http.MethodPut, fmt.Sprintf("/enrollments/%d/status", enrollmentID), learner, fiber.Map{"status": "suspended"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/enrollments/%d/status", enrollmentID), admin, fiber.Map{"status": "dropped"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_status_transition", env.ErrorCode)
	assert.Contains(t, env.Hint, "completed")

	status, env = s.do(http.MethodPut, fmt.Sprintf("/enrollments/%d/status", enrollmentID), admin, fiber.Map{"status": "completed"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Enrollment is already completed.", env.Hint)

	status, env = s.do(http.MethodGet, "/enrollments", learner, nil)
	require.Equal(t, http.StatusOK, status)
	var meta struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, int64(1), meta.Total)

	status, env = s.do(http.MethodGet, fmt.Sprintf("/reports/courses/%d/completion", courseID), instructor, nil)
	require.Equal(t, http.StatusOK, status)
	var report struct {
		Completed      int64   `json:"completed"`
		CompletionRate float64 `json:"completion_rate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, int64(1), report.Completed)
	assert.Equal(t, 100.0, report.CompletionRate)

	status, _ = s.do(http.MethodGet, "/reports/dashboard", learner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodGet, fmt.Sprintf("/reports/learners/%d/progress", learnerID), learner, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeleteGuards(t *testing.T) {
	s := newTestServer(t)
	admin, _ := signupWithID(t, s, "Root Admin", "admin@example.com", "")
	instructor, instructorID := signupWithID(t, s, "Ivy Instructor", "ivy@example.com", "INSTRUCTOR")
	learner, _ := signupWithID(t, s, "Lea Learner", "lea@example.com", "")

	courseID, unitID, _ := courseWithLesson(t, s, admin, instructor, instructorID)
	status, env := s.do(http.MethodPost, "/enrollments", learner, fiber.Map{"course_id": courseID})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.do(http.MethodDelete, fmt.Sprintf("/units/%d", unitID), instructor, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "unit_has_lessons", env.ErrorCode)
	assert.Equal(t, "Cannot delete unit: it has 1 lesson(s).", env.Message)

	status, env = s.do(http.MethodDelete, fmt.Sprintf("/courses/%d", courseID), admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "course_has_active_enrollments", env.ErrorCode)

	status, env = s.do(http.MethodDelete, fmt.Sprintf("/courses/%d/instructors/%d", courseID, instructorID), admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "last_instructor", env.ErrorCode)
}

func TestReorderUnits(t *testing.T) {
	s := newTestServer(t)
	admin, _ := signupWithID(t, s, "Root Admin", "admin@example.com", "")
	typeID := s.create("/course-types", admin, fiber.Map{"name": "Cohort"})
	courseID := s.create("/courses", admin, fiber.Map{"title": "Databases", "course_type_id": typeID})

	a := s.create(fmt.Sprintf("/courses/%d/units", courseID), admin, fiber.Map{"title": "Alpha"})
	b := s.create(fmt.Sprintf("/courses/%d/units", courseID), admin, fiber.Map{"title": "Beta"})
	c := s.create(fmt.Sprintf("/courses/%d/units", courseID), admin, fiber.Map{"title": "Gamma"})

	status, env := s.do(http.MethodPost, fmt.Sprintf("/units/%d/reorder", courseID), admin, map[string]int{
		fmt.Sprint(a): 3, fmt.Sprint(b): 1, fmt.Sprint(c): 2,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var units []struct {
		ID        uint `json:"ID"`
		UnitOrder int  `json:"unit_order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &units))
	require.Len(t, units, 3)
	assert.Equal(t, []uint{b, c, a}, []uint{units[0].ID, units[1].ID, units[2].ID})
	assert.Equal(t, []int{1, 2, 3}, []int{units[0].UnitOrder, units[1].UnitOrder, units[2].UnitOrder})

	status, env = s.do(http.MethodPost, fmt.Sprintf("/units/%d/reorder", courseID), admin, map[string]int{
		fmt.Sprint(a): 1, fmt.Sprint(b): 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "duplicate_order", env.ErrorCode)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/units/%d/reorder", courseID), admin, map[string]int{"x": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", env.ErrorCode)
}

func TestAttemptFlow(t *testing.T) {
	s := newTestServer(t)
	admin, _ := signupWithID(t, s, "Root Admin", "admin@example.com", "")
	instructor, instructorID := signupWithID(t, s, "Ivy Instructor", "ivy@example.com", "INSTRUCTOR")
	learner, _ := signupWithID(t, s, "Lea Learner", "lea@example.com", "")
	other, _ := signupWithID(t, s, "Otto Other", "otto@example.com", "")

	courseID, _, _ := courseWithLesson(t, s, admin, instructor, instructorID)
	quizID := s.create("/quizzes", instructor, fiber.Map{
		"course_id": courseID, "title": "Checkpoint", "duration_minutes": 30, "passing_score": 1,
	})

	status, env := s.do(http.MethodPost, "/attempts/start", learner, fiber.Map{"quiz_id": quizID})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "quiz_not_published", env.ErrorCode)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/quizzes/%d/publish", quizID), instructor, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "quiz_not_publishable", env.ErrorCode)

	questionID := s.create(fmt.Sprintf("/quizzes/%d/questions", quizID), instructor, fiber.Map{
		"text": "Go has generics.", "question_type": "true_false", "correct_boolean": true,
	})
	status, _ = s.do(http.MethodPost, fmt.Sprintf("/quizzes/%d/publish", quizID), instructor, nil)
	require.Equal(t, http.StatusOK, status)

	// learners never see the answer key
	status, env = s.do(http.MethodGet, fmt.Sprintf("/quizzes/%d", quizID), learner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "correct_boolean")

	attemptID := s.create("/attempts/start", learner, fiber.Map{"quiz_id": quizID})

	status, _ = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/submit", attemptID), other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/answers", attemptID), learner, fiber.Map{
		"answers": []fiber.Map{{"question_id": questionID, "boolean_answer": true}},
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/submit", attemptID), learner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Hint)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/submit", attemptID), learner, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Attempt is already submitted.", env.Hint)

	status, _ = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/grade", attemptID), learner, fiber.Map{})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(http.MethodPut, fmt.Sprintf("/attempts/%d/grade", attemptID), instructor, fiber.Map{})
	require.Equal(t, http.StatusOK, status, env.Message)
	var graded struct {
		Status   string   `json:"status"`
		Score    *float64 `json:"score"`
		IsPassed *bool    `json:"is_passed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &graded))
	assert.Equal(t, "graded", graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 1.0, *graded.Score)
	require.NotNil(t, graded.IsPassed)
	assert.True(t, *graded.IsPassed)

	status, env = s.do(http.MethodGet, fmt.Sprintf("/reports/quizzes/%d", quizID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		Attempts int64   `json:"attempts"`
		PassRate float64 `json:"pass_rate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.Attempts)
	assert.Equal(t, 100.0, stats.PassRate)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Status)
}
