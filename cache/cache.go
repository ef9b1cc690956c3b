package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is a key/value cache whose entries can be invalidated by tag.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

const DashboardTag = "dashboard"

func CourseTag(id uint) string  { return fmt.Sprintf("course:%d", id) }
func QuizTag(id uint) string    { return fmt.Sprintf("quiz:%d", id) }
func LearnerTag(id uint) string { return fmt.Sprintf("learner:%d", id) }

// Remember returns the cached value for key or computes, stores and returns it.
// Cache read/write failures fall through to load.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, tags []string, load func() (T, error)) (T, error) {
	var out T
	if store != nil {
		if hit, err := store.Get(ctx, key, &out); err == nil && hit {
			return out, nil
		}
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	if store != nil {
		_ = store.Set(ctx, key, out, ttl, tags...)
	}
	return out, nil
}
