package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lms/cache"
	"lms/config"
	"lms/database"
	"lms/logger"
	"lms/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []uint
	completed []uint
	graded    []uint
}

func (n *recordingNotifier) EnrollmentCreated(_ context.Context, e *models.Enrollment) {
	n.mu.Lock()
	n.created = append(n.created, e.ID)
	n.mu.Unlock()
}

func (n *recordingNotifier) EnrollmentCompleted(_ context.Context, e *models.Enrollment) {
	n.mu.Lock()
	n.completed = append(n.completed, e.ID)
	n.mu.Unlock()
}

func (n *recordingNotifier) AttemptGraded(_ context.Context, a *models.Attempt) {
	n.mu.Lock()
	n.graded = append(n.graded, a.ID)
	n.mu.Unlock()
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	cfg      *config.Config
	svc      *Services
	clock    *fakeClock
	notifier *recordingNotifier
	store    *cache.MemoryStore
	seq      int
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "3000",
		AppEnv:                "test",
		LogMode:               "test",
		DBDriver:              "sqlite",
		DBMaxOpenConns:        1,
		JWTKey:                "test-secret",
		JWTTTL:                time.Hour,
		SaltRound:             4,
		CacheTTL:              time.Minute,
		AttemptDeadlinePolicy: config.DeadlinePolicyLenient,
		AttemptGraceSeconds:   30,
		AttemptSweepSpec:      "@every 1m",
		WebhookTimeout:        time.Second,
	}
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		cfg:      cfg,
		clock:    &fakeClock{t: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
		store:    cache.NewMemoryStore(),
	}
	f.svc = New(db, cfg, logger.Nop(), Options{Cache: f.store, Notifier: f.notifier, Clock: f.clock.Now})
	return f
}

func (f *fixture) user(role string) *models.User {
	f.t.Helper()
	f.seq++
	u := &models.User{
		Name:     fmt.Sprintf("user %d", f.seq),
		Email:    fmt.Sprintf("user%d@example.com", f.seq),
		Password: "x",
		Role:     role,
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) courseType() *models.CourseType {
	f.t.Helper()
	f.seq++
	ct := &models.CourseType{Name: fmt.Sprintf("type %d", f.seq), IsActive: true}
	require.NoError(f.t, f.db.Create(ct).Error)
	return ct
}

// draftCourse creates a course that passes no publishing precondition beyond title and description.
func (f *fixture) draftCourse() *models.Course {
	f.t.Helper()
	c := &models.Course{
		Title:        "Go basics",
		Description:  "Types, interfaces and errors.",
		CourseTypeID: f.courseType().ID,
		Status:       models.CourseStatusDraft,
	}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

func (f *fixture) unit(courseID uint, order int) *models.Unit {
	f.t.Helper()
	u := &models.Unit{CourseID: courseID, Title: fmt.Sprintf("unit %d", order), UnitOrder: order}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) lesson(unit *models.Unit, order int) *models.Lesson {
	f.t.Helper()
	l := &models.Lesson{UnitID: unit.ID, CourseID: unit.CourseID, Title: fmt.Sprintf("lesson %d", order), LessonOrder: order}
	require.NoError(f.t, f.db.Create(l).Error)
	return l
}

// publishedCourse returns a published course with one instructor, one unit and n lessons.
func (f *fixture) publishedCourse(lessons int) (*models.Course, []*models.Lesson) {
	f.t.Helper()
	c := f.draftCourse()
	instructor := f.user(models.RoleInstructor)
	require.NoError(f.t, f.db.Create(&models.CourseInstructor{CourseID: c.ID, InstructorID: instructor.ID}).Error)
	u := f.unit(c.ID, 1)
	out := make([]*models.Lesson, 0, lessons)
	for i := 1; i <= lessons; i++ {
		out = append(out, f.lesson(u, i))
	}
	_, err := f.svc.Publishing.Publish(f.ctx, c.ID)
	require.NoError(f.t, err)
	return c, out
}

// publishedQuiz returns a published quiz on a fresh course with the given duration.
func (f *fixture) publishedQuiz(minutes int) *models.Quiz {
	f.t.Helper()
	c := f.draftCourse()
	q := &models.Quiz{CourseID: c.ID, Title: "checkpoint", Status: models.QuizStatusPublished, DurationMinutes: minutes, PassingScore: 2}
	require.NoError(f.t, f.db.Create(q).Error)
	return q
}

func (f *fixture) unitOrders(courseID uint) []int {
	f.t.Helper()
	var orders []int
	require.NoError(f.t, f.db.Model(&models.Unit{}).Where("course_id = ?", courseID).
		Order("unit_order asc").Pluck("unit_order", &orders).Error)
	return orders
}
