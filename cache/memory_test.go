package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Total int `json:"total"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var got report
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "k", report{Total: 3}, time.Minute, CourseTag(1)))
	hit, err = m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got.Total)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", report{Total: 1}, time.Minute))
	now = now.Add(2 * time.Minute)

	var got report
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryStoreInvalidateTags(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Set(ctx, "a", report{}, time.Minute, CourseTag(1), DashboardTag))
	require.NoError(t, m.Set(ctx, "b", report{}, time.Minute, CourseTag(2)))

	require.NoError(t, m.InvalidateTags(ctx, CourseTag(1)))

	var got report
	hit, _ := m.Get(ctx, "a", &got)
	assert.False(t, hit)
	hit, _ = m.Get(ctx, "b", &got)
	assert.True(t, hit)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	calls := 0
	load := func() (report, error) {
		calls++
		return report{Total: calls}, nil
	}

	first, err := Remember(ctx, m, "r", time.Minute, []string{QuizTag(7)}, load)
	require.NoError(t, err)
	second, err := Remember(ctx, m, "r", time.Minute, []string{QuizTag(7)}, load)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)
	assert.Equal(t, 1, second.Total)
	assert.Equal(t, 1, calls)

	require.NoError(t, m.InvalidateTags(ctx, QuizTag(7)))
	third, err := Remember(ctx, m, "r", time.Minute, nil, load)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Total)

	boom := errors.New("boom")
	_, err = Remember(ctx, nil, "x", time.Minute, nil, func() (report, error) { return report{}, boom })
	assert.ErrorIs(t, err, boom)
}
