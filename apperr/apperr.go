package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBusinessRule
	KindNotFound
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error codes surfaced as error_code in responses.
const (
	CodeAlreadyEnrolled            = "already_enrolled"
	CodeCourseNotEnrollable        = "course_not_enrollable"
	CodeDuplicateOrder             = "duplicate_order"
	CodeActiveAttemptInProgress    = "active_attempt_in_progress"
	CodeInvalidStatusTransition    = "invalid_status_transition"
	CodeQuizNotPublished           = "quiz_not_published"
	CodeInvalidQuizDuration        = "invalid_quiz_duration"
	CodeAttemptTimeOver            = "attempt_time_over"
	CodeAttemptNotInProgress       = "attempt_not_in_progress"
	CodeAttemptNotSubmitted        = "attempt_not_submitted"
	CodeLastInstructor             = "last_instructor"
	CodeCourseNotPublishable       = "course_not_publishable"
	CodeUnitHasLessons             = "unit_has_lessons"
	CodeCourseHasActiveEnrollments = "course_has_active_enrollments"
	CodeCourseTypeHasPublished     = "course_type_has_published_courses"
	CodeCourseTypeHasCourses       = "course_type_has_courses"
	CodeEnrollmentNotActive        = "enrollment_not_active"
	CodeQuizNotPublishable         = "quiz_not_publishable"
	CodeInvalidAnswer              = "invalid_answer"
	CodeInvalidPosition            = "invalid_position"
	CodeNotFound                   = "not_found"
	CodeValidation                 = "validation_failed"
	CodeForbidden                  = "forbidden"
	CodeInternal                   = "internal_error"
)

// Error is the failure half of every lifecycle call.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Hint    string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so callers can compare against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func (e *Error) WithHint(hint string) *Error {
	cp := *e
	cp.Hint = hint
	return &cp
}

// WithMessage returns a copy of e that keeps its code but shows msg.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func (e *Error) WithDetails(details []string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps an unexpected failure; Message is safe to show to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "Something went wrong. Please try again later.", Err: err}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: entity + " not found."}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// Sentinels for errors.Is.
var (
	ErrAlreadyEnrolled            = New(KindBusinessRule, CodeAlreadyEnrolled, "This learner is already enrolled in this course.")
	ErrCourseNotEnrollable        = New(KindBusinessRule, CodeCourseNotEnrollable, "Course is not available for enrollment.")
	ErrDuplicateOrder             = New(KindBusinessRule, CodeDuplicateOrder, "Duplicate orders found.")
	ErrActiveAttemptInProgress    = New(KindBusinessRule, CodeActiveAttemptInProgress, "Course has quiz attempts in progress.")
	ErrInvalidStatusTransition    = New(KindBusinessRule, CodeInvalidStatusTransition, "Invalid status transition.")
	ErrQuizNotPublished           = New(KindBusinessRule, CodeQuizNotPublished, "Quiz is not published.")
	ErrInvalidQuizDuration        = New(KindBusinessRule, CodeInvalidQuizDuration, "Quiz duration is invalid.")
	ErrAttemptTimeOver            = New(KindBusinessRule, CodeAttemptTimeOver, "Attempt time is over.")
	ErrAttemptNotInProgress       = New(KindBusinessRule, CodeAttemptNotInProgress, "Attempt is not in progress.")
	ErrAttemptNotSubmitted        = New(KindBusinessRule, CodeAttemptNotSubmitted, "Attempt has not been submitted.")
	ErrLastInstructor             = New(KindBusinessRule, CodeLastInstructor, "A published course must keep at least one instructor.")
	ErrCourseNotPublishable       = New(KindBusinessRule, CodeCourseNotPublishable, "Course cannot be published.")
	ErrUnitHasLessons             = New(KindBusinessRule, CodeUnitHasLessons, "Unit has lessons.")
	ErrCourseHasActiveEnrollments = New(KindBusinessRule, CodeCourseHasActiveEnrollments, "Course has active enrollments.")
	ErrCourseTypeHasPublished     = New(KindBusinessRule, CodeCourseTypeHasPublished, "Course type has published courses.")
	ErrCourseTypeHasCourses       = New(KindBusinessRule, CodeCourseTypeHasCourses, "Course type has courses.")
	ErrEnrollmentNotActive        = New(KindBusinessRule, CodeEnrollmentNotActive, "Enrollment is not active.")
	ErrQuizNotPublishable         = New(KindBusinessRule, CodeQuizNotPublishable, "Quiz cannot be published.")
	ErrInvalidAnswer              = New(KindValidation, CodeInvalidAnswer, "Answer is not valid for this question.")
	ErrInvalidPosition            = New(KindValidation, CodeInvalidPosition, "Position is out of range.")
)

// Wrap returns err unchanged when it already is an *Error, otherwise wraps it as internal.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
