package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"lms/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	n     int
	err   error
}

func (f *fakeSweeper) SubmitExpired(ctx context.Context) (int, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return f.n, f.err
}

func TestSweepExpiredAttempts(t *testing.T) {
	s := &fakeSweeper{n: 3}
	SweepExpiredAttempts(s, time.Second, logger.Nop())
	SweepExpiredAttempts(s, 0, logger.Nop())
	assert.Equal(t, 2, s.calls)
}

func TestInitializeAttemptSchedulerRejectsBadSpec(t *testing.T) {
	_, err := InitializeAttemptScheduler("not a spec", time.Second, &fakeSweeper{}, logger.Nop())
	assert.Error(t, err)
}

func TestInitializeAttemptScheduler(t *testing.T) {
	c, err := InitializeAttemptScheduler("@every 1h", time.Second, &fakeSweeper{}, logger.Nop())
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
