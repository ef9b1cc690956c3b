package utils

import (
	"context"
	"sync"
	"time"

	"lms/logger"
	"lms/models"

	"github.com/google/uuid"
)

// Notifier receives lifecycle events after their transaction committed.
type Notifier interface {
	EnrollmentCreated(ctx context.Context, e *models.Enrollment)
	EnrollmentCompleted(ctx context.Context, e *models.Enrollment)
	AttemptGraded(ctx context.Context, a *models.Attempt)
}

type NopNotifier struct{}

func (NopNotifier) EnrollmentCreated(context.Context, *models.Enrollment)   {}
func (NopNotifier) EnrollmentCompleted(context.Context, *models.Enrollment) {}
func (NopNotifier) AttemptGraded(context.Context, *models.Attempt)          {}

// Event is the payload shared by every notification channel.
type Event struct {
	ID         string      `json:"id"`
	Name       string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

const (
	EventEnrollmentCreated   = "enrollment.created"
	EventEnrollmentCompleted = "enrollment.completed"
	EventAttemptGraded       = "attempt.graded"
)

// Channel delivers one event; implementations must be safe for concurrent use.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to its channels in the background. Delivery errors are logged.
type Dispatcher struct {
	channels []Channel
	log      *logger.Logger
	timeout  time.Duration
	inflight sync.WaitGroup
}

func NewDispatcher(log *logger.Logger, timeout time.Duration, channels ...Channel) *Dispatcher {
	active := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			active = append(active, ch)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{channels: active, log: log.With("component", "notifier"), timeout: timeout}
}

func (d *Dispatcher) EnrollmentCreated(ctx context.Context, e *models.Enrollment) {
	d.dispatch(Event{ID: uuid.NewString(), Name: EventEnrollmentCreated, OccurredAt: time.Now(), Data: *e})
}

func (d *Dispatcher) EnrollmentCompleted(ctx context.Context, e *models.Enrollment) {
	d.dispatch(Event{ID: uuid.NewString(), Name: EventEnrollmentCompleted, OccurredAt: time.Now(), Data: *e})
}

func (d *Dispatcher) AttemptGraded(ctx context.Context, a *models.Attempt) {
	d.dispatch(Event{ID: uuid.NewString(), Name: EventAttemptGraded, OccurredAt: time.Now(), Data: *a})
}

func (d *Dispatcher) dispatch(ev Event) {
	for _, ch := range d.channels {
		d.inflight.Add(1)
		go func(ch Channel) {
			defer d.inflight.Done()
			// request contexts are gone by the time delivery runs
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := ch.Deliver(ctx, ev); err != nil {
				d.log.Warn("notification delivery failed", "channel", ch.Name(), "event", ev.Name, "error", err)
				return
			}
			d.log.Debug("notification delivered", "channel", ch.Name(), "event", ev.Name)
		}(ch)
	}
}

// Close waits for deliveries already started, or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
