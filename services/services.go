package services

import (
	"context"
	"encoding/json"
	"time"

	"lms/apperr"
	"lms/cache"
	"lms/config"
	"lms/logger"
	"lms/repos"
	"lms/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Services bundles every lifecycle service over one database handle.
type Services struct {
	Ordering    *OrderingService
	Enrollments *EnrollmentService
	Attempts    *AttemptService
	Answers     *AnswerService
	Publishing  *PublishingService
	Courses     *CourseService
	Reports     *ReportingService
	Users       repos.UserRepo
}

// Options carries the collaborators that differ between production and tests.
type Options struct {
	Cache    cache.Store
	Notifier utils.Notifier
	Clock    func() time.Time
}

func New(db *gorm.DB, cfg *config.Config, baseLog *logger.Logger, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = utils.NopNotifier{}
	}

	courseRepo := repos.NewCourseRepo(db, baseLog)
	courseTypeRepo := repos.NewCourseTypeRepo(db, baseLog)
	unitRepo := repos.NewUnitRepo(db, baseLog)
	lessonRepo := repos.NewLessonRepo(db, baseLog)
	enrollmentRepo := repos.NewEnrollmentRepo(db, baseLog)
	quizRepo := repos.NewQuizRepo(db, baseLog)
	attemptRepo := repos.NewAttemptRepo(db, baseLog)
	userRepo := repos.NewUserRepo(db, baseLog)

	ordering := NewOrderingService(db, baseLog)
	deadline := DeadlinePolicy{
		Strict: cfg.StrictDeadline(),
		Grace:  time.Duration(cfg.AttemptGraceSeconds) * time.Second,
	}

	return &Services{
		Ordering:    ordering,
		Enrollments: NewEnrollmentService(db, baseLog, enrollmentRepo, courseRepo, lessonRepo, attemptRepo, opts.Cache, opts.Notifier, opts.Clock),
		Attempts:    NewAttemptService(db, baseLog, attemptRepo, quizRepo, deadline, opts.Cache, opts.Notifier, opts.Clock),
		Answers:     NewAnswerService(db, baseLog, attemptRepo, quizRepo, deadline, opts.Clock),
		Publishing:  NewPublishingService(db, baseLog, courseRepo, courseTypeRepo, unitRepo, lessonRepo, enrollmentRepo, attemptRepo, ordering, opts.Cache, opts.Clock),
		Courses:     NewCourseService(db, baseLog, courseRepo, courseTypeRepo, unitRepo, lessonRepo, quizRepo, userRepo, ordering, opts.Cache),
		Reports:     NewReportingService(repos.NewReportRepo(db, baseLog), baseLog, opts.Cache, cfg.CacheTTL, opts.Clock),
		Users:       userRepo,
	}
}

// fail converts err into an *apperr.Error and logs it when it is not a business error.
func fail(log *logger.Logger, op string, err error, kv ...interface{}) error {
	ae := apperr.Wrap(err)
	if ae.Kind == apperr.KindInternal {
		log.Error(op+" failed", append(kv, "error", err)...)
	}
	return ae
}

func invalidate(ctx context.Context, store cache.Store, log *logger.Logger, tags ...string) {
	if store == nil || len(tags) == 0 {
		return
	}
	if err := store.InvalidateTags(ctx, tags...); err != nil {
		log.Warn("cache invalidation failed", "tags", tags, "error", err)
	}
}

// mergeMeta sets keys on a JSON object column, keeping existing keys.
func mergeMeta(raw datatypes.JSON, values map[string]interface{}) datatypes.JSON {
	meta := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	for k, v := range values {
		meta[k] = v
	}
	out, err := json.Marshal(meta)
	if err != nil {
		return raw
	}
	return datatypes.JSON(out)
}

func timePtr(t time.Time) *time.Time { return &t }
