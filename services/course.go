package services

import (
	"context"
	"fmt"
	"strings"

	"lms/apperr"
	"lms/cache"
	"lms/logger"
	"lms/models"
	"lms/repos"

	"gorm.io/gorm"
)

type CourseInput struct {
	Title          string
	Description    string
	CourseTypeID   uint
	OrganizationID *uint
}

type CourseUpdate struct {
	Title        *string
	Description  *string
	CourseTypeID *uint
}

type UnitInput struct {
	Title       string
	Description string
	Order       *int
}

type UnitUpdate struct {
	Title       *string
	Description *string
	Order       *int
}

type LessonInput struct {
	Title           string
	Content         string
	DurationMinutes int
	Order           *int
}

type LessonUpdate struct {
	Title           *string
	Content         *string
	DurationMinutes *int
	Order           *int
}

type QuizInput struct {
	CourseID        uint
	UnitID          *uint
	Title           string
	Description     string
	DurationMinutes int
	PassingScore    float64
}

type OptionInput struct {
	Text      string
	IsCorrect bool
}

type QuestionInput struct {
	Text           string
	QuestionType   string
	Score          float64
	CorrectBoolean *bool
	Options        []OptionInput
}

// CourseService owns course structure: types, courses, instructors, units, lessons and quizzes.
type CourseService struct {
	db          *gorm.DB
	log         *logger.Logger
	courses     repos.CourseRepo
	courseTypes repos.CourseTypeRepo
	units       repos.UnitRepo
	lessons     repos.LessonRepo
	quizzes     repos.QuizRepo
	users       repos.UserRepo
	ordering    *OrderingService
	cache       cache.Store
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	courseTypes repos.CourseTypeRepo,
	units repos.UnitRepo,
	lessons repos.LessonRepo,
	quizzes repos.QuizRepo,
	users repos.UserRepo,
	ordering *OrderingService,
	store cache.Store,
) *CourseService {
	return &CourseService{
		db:          db,
		log:         baseLog.With("service", "CourseService"),
		courses:     courses,
		courseTypes: courseTypes,
		units:       units,
		lessons:     lessons,
		quizzes:     quizzes,
		users:       users,
		ordering:    ordering,
		cache:       store,
	}
}

// Course types

func (s *CourseService) CreateCourseType(ctx context.Context, name, description string) (*models.CourseType, error) {
	ct := &models.CourseType{Name: strings.TrimSpace(name), Description: description, IsActive: true}
	if ct.Name == "" {
		return nil, apperr.Validation("Course type name is required.")
	}
	if err := s.courseTypes.Create(ctx, nil, ct); err != nil {
		return nil, fail(s.log, "create course type", err, "name", ct.Name)
	}
	return ct, nil
}

func (s *CourseService) ListCourseTypes(ctx context.Context, onlyActive bool) ([]*models.CourseType, error) {
	out, err := s.courseTypes.List(ctx, nil, onlyActive)
	if err != nil {
		return nil, fail(s.log, "list course types", err)
	}
	return out, nil
}

// Courses

func (s *CourseService) CreateCourse(ctx context.Context, in CourseInput, actorID uint) (*models.Course, error) {
	ct, err := s.courseTypes.GetByID(ctx, nil, in.CourseTypeID)
	if err != nil {
		return nil, fail(s.log, "create course", err)
	}
	if !ct.IsActive {
		return nil, apperr.Validation("Course type is not active.")
	}
	course := &models.Course{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		CourseTypeID:   ct.ID,
		OrganizationID: in.OrganizationID,
		Status:         models.CourseStatusDraft,
		CreatedBy:      actorID,
	}
	if err := s.courses.Create(ctx, nil, course); err != nil {
		return nil, fail(s.log, "create course", err, "course_type_id", in.CourseTypeID)
	}
	course.CourseType = ct
	invalidate(ctx, s.cache, s.log, cache.DashboardTag)
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id uint, in CourseUpdate) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fail(s.log, "update course", err, "course_id", id)
	}
	if in.Title != nil {
		course.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		course.Description = *in.Description
	}
	if in.CourseTypeID != nil && *in.CourseTypeID != course.CourseTypeID {
		ct, err := s.courseTypes.GetByID(ctx, nil, *in.CourseTypeID)
		if err != nil {
			return nil, fail(s.log, "update course", err, "course_id", id)
		}
		course.CourseTypeID = ct.ID
		course.CourseType = ct
	}
	if course.IsPublished() && (course.Title == "" || strings.TrimSpace(course.Description) == "") {
		return nil, apperr.Validation("A published course needs a title and a description.")
	}
	if err := s.courses.Save(ctx, nil, course); err != nil {
		return nil, fail(s.log, "update course", err, "course_id", id)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(id))
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fail(s.log, "get course", err, "course_id", id)
	}
	return course, nil
}

func (s *CourseService) ListCourses(ctx context.Context, filter repos.CourseFilter, page repos.Page) ([]*models.Course, int64, error) {
	rows, total, err := s.courses.List(ctx, nil, filter, page)
	if err != nil {
		return nil, 0, fail(s.log, "list courses", err)
	}
	return rows, total, nil
}

// AssignInstructor adds an instructor or admin user to the course; repeating it is harmless.
func (s *CourseService) AssignInstructor(ctx context.Context, courseID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courses.GetByID(ctx, tx, courseID); err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.Role != models.RoleInstructor && user.Role != models.RoleAdmin {
			return apperr.Validation("User is not an instructor.")
		}
		return s.courses.AddInstructor(ctx, tx, courseID, userID)
	})
	if err != nil {
		return fail(s.log, "assign instructor", err, "course_id", courseID, "instructor_id", userID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return nil
}

func (s *CourseService) RemoveInstructor(ctx context.Context, courseID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := s.courses.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		assigned, err := s.courses.IsInstructor(ctx, tx, courseID, userID)
		if err != nil {
			return err
		}
		if !assigned {
			return apperr.NotFound("Instructor assignment")
		}
		if course.IsPublished() {
			n, err := s.courses.CountInstructors(ctx, tx, courseID)
			if err != nil {
				return err
			}
			if n <= 1 {
				return apperr.ErrLastInstructor
			}
		}
		return s.courses.RemoveInstructor(ctx, tx, courseID, userID)
	})
	if err != nil {
		return fail(s.log, "remove instructor", err, "course_id", courseID, "instructor_id", userID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return nil
}

// Units

func (s *CourseService) CreateUnit(ctx context.Context, courseID uint, in UnitInput) (*models.Unit, error) {
	unit := &models.Unit{CourseID: courseID, Title: strings.TrimSpace(in.Title), Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courses.GetByID(ctx, tx, courseID); err != nil {
			return err
		}
		order, err := s.placement(ctx, tx, UnitScope(courseID), in.Order)
		if err != nil {
			return err
		}
		unit.UnitOrder = order
		return s.units.Create(ctx, tx, unit)
	})
	if err != nil {
		return nil, fail(s.log, "create unit", err, "course_id", courseID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return unit, nil
}

func (s *CourseService) UpdateUnit(ctx context.Context, id uint, in UnitUpdate) (*models.Unit, error) {
	var unit *models.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = s.units.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Order != nil {
			if err := s.ordering.MoveToPosition(ctx, tx, UnitScope(unit.CourseID), id, *in.Order); err != nil {
				return err
			}
			// reload to pick up the new position
			if unit, err = s.units.GetByID(ctx, tx, id); err != nil {
				return err
			}
		}
		if in.Title != nil {
			unit.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			unit.Description = *in.Description
		}
		return s.units.Save(ctx, tx, unit)
	})
	if err != nil {
		return nil, fail(s.log, "update unit", err, "unit_id", id)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(unit.CourseID))
	return unit, nil
}

func (s *CourseService) ListUnits(ctx context.Context, courseID uint) ([]*models.Unit, error) {
	if _, err := s.courses.GetByID(ctx, nil, courseID); err != nil {
		return nil, fail(s.log, "list units", err, "course_id", courseID)
	}
	out, err := s.units.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fail(s.log, "list units", err, "course_id", courseID)
	}
	return out, nil
}

// ReorderUnits applies {unit id: order} within a course.
func (s *CourseService) ReorderUnits(ctx context.Context, courseID uint, positions map[uint]int) ([]*models.Unit, error) {
	if _, err := s.courses.GetByID(ctx, nil, courseID); err != nil {
		return nil, fail(s.log, "reorder units", err, "course_id", courseID)
	}
	if err := s.ordering.Reorder(ctx, nil, UnitScope(courseID), positions); err != nil {
		return nil, fail(s.log, "reorder units", err, "course_id", courseID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(courseID))
	return s.ListUnits(ctx, courseID)
}

// Lessons

func (s *CourseService) CreateLesson(ctx context.Context, unitID uint, in LessonInput) (*models.Lesson, error) {
	if in.DurationMinutes < 0 {
		return nil, apperr.Validation("Lesson duration must not be negative.")
	}
	lesson := &models.Lesson{
		UnitID:          unitID,
		Title:           strings.TrimSpace(in.Title),
		Content:         in.Content,
		DurationMinutes: in.DurationMinutes,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.units.GetByID(ctx, tx, unitID)
		if err != nil {
			return err
		}
		lesson.CourseID = unit.CourseID
		order, err := s.placement(ctx, tx, LessonScope(unitID), in.Order)
		if err != nil {
			return err
		}
		lesson.LessonOrder = order
		return s.lessons.Create(ctx, tx, lesson)
	})
	if err != nil {
		return nil, fail(s.log, "create lesson", err, "unit_id", unitID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(lesson.CourseID))
	return lesson, nil
}

func (s *CourseService) UpdateLesson(ctx context.Context, id uint, in LessonUpdate) (*models.Lesson, error) {
	var lesson *models.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lesson, err = s.lessons.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Order != nil {
			if err := s.ordering.MoveToPosition(ctx, tx, LessonScope(lesson.UnitID), id, *in.Order); err != nil {
				return err
			}
			if lesson, err = s.lessons.GetByID(ctx, tx, id); err != nil {
				return err
			}
		}
		if in.Title != nil {
			lesson.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			lesson.Content = *in.Content
		}
		if in.DurationMinutes != nil {
			if *in.DurationMinutes < 0 {
				return apperr.Validation("Lesson duration must not be negative.")
			}
			lesson.DurationMinutes = *in.DurationMinutes
		}
		return s.lessons.Save(ctx, tx, lesson)
	})
	if err != nil {
		return nil, fail(s.log, "update lesson", err, "lesson_id", id)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(lesson.CourseID))
	return lesson, nil
}

func (s *CourseService) ListLessons(ctx context.Context, unitID uint) ([]*models.Lesson, error) {
	if _, err := s.units.GetByID(ctx, nil, unitID); err != nil {
		return nil, fail(s.log, "list lessons", err, "unit_id", unitID)
	}
	out, err := s.lessons.ListByUnit(ctx, nil, unitID)
	if err != nil {
		return nil, fail(s.log, "list lessons", err, "unit_id", unitID)
	}
	return out, nil
}

// ReorderLessons applies {lesson id: order} within a unit.
func (s *CourseService) ReorderLessons(ctx context.Context, unitID uint, positions map[uint]int) ([]*models.Lesson, error) {
	unit, err := s.units.GetByID(ctx, nil, unitID)
	if err != nil {
		return nil, fail(s.log, "reorder lessons", err, "unit_id", unitID)
	}
	if err := s.ordering.Reorder(ctx, nil, LessonScope(unitID), positions); err != nil {
		return nil, fail(s.log, "reorder lessons", err, "unit_id", unitID)
	}
	invalidate(ctx, s.cache, s.log, cache.CourseTag(unit.CourseID))
	return s.ListLessons(ctx, unitID)
}

// placement returns the order for a new sibling: the next order, or an explicit order in
// 1..next with the siblings at or after it moved down one.
func (s *CourseService) placement(ctx context.Context, tx *gorm.DB, scope Scope, order *int) (int, error) {
	next, err := s.ordering.NextOrder(ctx, tx, scope)
	if err != nil {
		return 0, err
	}
	if order == nil {
		return next, nil
	}
	if *order < 1 || *order > next {
		return 0, apperr.ErrInvalidPosition.WithHint(fmt.Sprintf("Order must be between 1 and %d.", next))
	}
	if err := s.ordering.ShiftOrders(ctx, tx, scope, next, *order, 0); err != nil {
		return 0, err
	}
	if err := s.ordering.ValidateOrder(ctx, tx, scope, *order, 0); err != nil {
		return 0, err
	}
	return *order, nil
}

// Quizzes

func (s *CourseService) CreateQuiz(ctx context.Context, in QuizInput) (*models.Quiz, error) {
	if in.DurationMinutes < 0 {
		return nil, apperr.Validation("Quiz duration must not be negative.")
	}
	quiz := &models.Quiz{
		CourseID:        in.CourseID,
		UnitID:          in.UnitID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Status:          models.QuizStatusDraft,
		DurationMinutes: in.DurationMinutes,
		PassingScore:    in.PassingScore,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.courses.GetByID(ctx, tx, in.CourseID); err != nil {
			return err
		}
		if in.UnitID != nil {
			unit, err := s.units.GetByID(ctx, tx, *in.UnitID)
			if err != nil {
				return err
			}
			if unit.CourseID != in.CourseID {
				return apperr.Validation("Unit does not belong to this course.")
			}
		}
		return s.quizzes.Create(ctx, tx, quiz)
	})
	if err != nil {
		return nil, fail(s.log, "create quiz", err, "course_id", in.CourseID)
	}
	return quiz, nil
}

func (s *CourseService) GetQuiz(ctx context.Context, id uint) (*models.Quiz, []*models.Question, error) {
	quiz, err := s.quizzes.GetByID(ctx, nil, id)
	if err != nil {
		return nil, nil, fail(s.log, "get quiz", err, "quiz_id", id)
	}
	questions, err := s.quizzes.ListQuestions(ctx, nil, id)
	if err != nil {
		return nil, nil, fail(s.log, "get quiz", err, "quiz_id", id)
	}
	return quiz, questions, nil
}

func validateQuestion(in QuestionInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return apperr.Validation("Question text is required.")
	}
	if in.Score < 0 {
		return apperr.Validation("Question score must not be negative.")
	}
	switch in.QuestionType {
	case models.QuestionMultipleChoice:
		if len(in.Options) < 2 {
			return apperr.Validation("A multiple choice question needs at least two options.")
		}
		correct := 0
		for _, o := range in.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return apperr.Validation("A multiple choice question needs a correct option.")
		}
	case models.QuestionTrueFalse:
		if in.CorrectBoolean == nil {
			return apperr.Validation("A true/false question needs correct_boolean.")
		}
	case models.QuestionText:
	default:
		return apperr.Validation(fmt.Sprintf("Unknown question type %q.", in.QuestionType))
	}
	return nil
}

// AddQuestion appends a question with its options to a quiz that is not archived.
func (s *CourseService) AddQuestion(ctx context.Context, quizID uint, in QuestionInput) (*models.Question, error) {
	if in.QuestionType == "" {
		in.QuestionType = models.QuestionMultipleChoice
	}
	if in.Score == 0 {
		in.Score = 1
	}
	if err := validateQuestion(in); err != nil {
		return nil, err
	}

	q := &models.Question{
		QuizID:         quizID,
		Text:           strings.TrimSpace(in.Text),
		QuestionType:   in.QuestionType,
		Score:          in.Score,
		CorrectBoolean: in.CorrectBoolean,
	}
	for i, o := range in.Options {
		q.Options = append(q.Options, models.QuestionOption{Text: o.Text, IsCorrect: o.IsCorrect, OptionOrder: i + 1})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.quizzes.GetByIDForUpdate(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if quiz.Status == models.QuizStatusArchived {
			return apperr.Validation("Quiz is archived.")
		}
		order, err := s.ordering.NextOrder(ctx, tx, QuestionScope(quizID))
		if err != nil {
			return err
		}
		q.QuestionOrder = order
		return s.quizzes.CreateQuestion(ctx, tx, q)
	})
	if err != nil {
		return nil, fail(s.log, "add question", err, "quiz_id", quizID)
	}
	invalidate(ctx, s.cache, s.log, cache.QuizTag(quizID))
	return q, nil
}

// PublishQuiz opens a quiz for attempts once it has questions and a positive duration.
func (s *CourseService) PublishQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz *models.Quiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quiz, err = s.quizzes.GetByIDForUpdate(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if quiz.Status == models.QuizStatusPublished {
			return nil
		}
		var reasons []string
		n, err := s.quizzes.CountQuestions(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if n == 0 {
			reasons = append(reasons, "Quiz must have at least one question.")
		}
		if quiz.DurationMinutes <= 0 {
			reasons = append(reasons, "Quiz duration must be a positive number of minutes.")
		}
		if len(reasons) > 0 {
			return apperr.ErrQuizNotPublishable.WithDetails(reasons)
		}
		quiz.Status = models.QuizStatusPublished
		return s.quizzes.Save(ctx, tx, quiz)
	})
	if err != nil {
		return nil, fail(s.log, "publish quiz", err, "quiz_id", quizID)
	}
	invalidate(ctx, s.cache, s.log, cache.QuizTag(quizID))
	return quiz, nil
}
