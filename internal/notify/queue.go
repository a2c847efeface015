// Package notify carries user-facing notifications from the core to whatever
// surface displays them. Publishing never blocks.
package notify

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const DefaultCapacity = 32

// Notification is one message for the user.
type Notification struct {
	ID      string      `json:"id"`
	Level   Level       `json:"level"`
	Kind    domain.Kind `json:"kind,omitempty"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

// Notifier is the publishing side consumed by the core.
type Notifier interface {
	Notify(level Level, msg string)
	NotifyError(err error)
}

// Queue is a bounded notification buffer. When full, the oldest entry is
// dropped to make room.
type Queue struct {
	ch     chan Notification
	logger infra.Logger
	now    func() time.Time
}

func NewQueue(capacity int, logger *infra.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:     make(chan Notification, capacity),
		logger: infra.OrNop(logger),
		now:    time.Now,
	}
}

func (q *Queue) Notify(level Level, msg string) {
	q.publish(Notification{Level: level, Message: msg})
}

// NotifyError publishes err with its domain kind, if any.
func (q *Queue) NotifyError(err error) {
	if err == nil {
		return
	}
	n := Notification{Level: LevelError, Kind: domain.KindOf(err), Message: err.Error()}
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		n.Message = de.Message
	}
	q.publish(n)
}

func (q *Queue) publish(n Notification) {
	n.ID = uuid.NewString()
	n.Time = q.now().UTC()
	for {
		select {
		case q.ch <- n:
			return
		default:
		}
		select {
		case dropped := <-q.ch:
			q.logger.Warn().Str("dropped", dropped.Message).Msg("notify: queue full, dropping oldest")
		default:
		}
	}
}

// C exposes the receive side for a consumer loop.
func (q *Queue) C() <-chan Notification {
	return q.ch
}

// Drain removes and returns every pending notification, oldest first.
func (q *Queue) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-q.ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

var _ Notifier = (*Queue)(nil)
