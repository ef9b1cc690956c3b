package utils

import (
	"context"

	"lms/models"
	"lms/repos"
)

// Directory resolves the names used in notification texts.
type Directory interface {
	User(ctx context.Context, id uint) (*models.User, error)
	Course(ctx context.Context, id uint) (*models.Course, error)
	Quiz(ctx context.Context, id uint) (*models.Quiz, error)
}

type repoDirectory struct {
	users   repos.UserRepo
	courses repos.CourseRepo
	quizzes repos.QuizRepo
}

func NewRepoDirectory(users repos.UserRepo, courses repos.CourseRepo, quizzes repos.QuizRepo) Directory {
	return &repoDirectory{users: users, courses: courses, quizzes: quizzes}
}

func (d *repoDirectory) User(ctx context.Context, id uint) (*models.User, error) {
	return d.users.GetByID(ctx, nil, id)
}

func (d *repoDirectory) Course(ctx context.Context, id uint) (*models.Course, error) {
	return d.courses.GetByID(ctx, nil, id)
}

func (d *repoDirectory) Quiz(ctx context.Context, id uint) (*models.Quiz, error) {
	return d.quizzes.GetByID(ctx, nil, id)
}
