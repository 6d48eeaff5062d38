package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-list/internal/model"
)

// DefaultNotificationDuration applies to notifications built by the typed helpers.
const DefaultNotificationDuration = 5 * time.Second

// NotificationQueue keeps the active notifications in insertion order and
// removes each one when its duration elapses.
type NotificationQueue struct {
	defaultDuration time.Duration
	now             func() time.Time

	mu      sync.Mutex
	items   []model.Notification
	timers  map[string]*time.Timer
	subs    map[int]func(model.Notification)
	nextSub int
	closed  bool
}

func NewNotificationQueue(defaultDuration time.Duration, now func() time.Time) *NotificationQueue {
	if defaultDuration <= 0 {
		defaultDuration = DefaultNotificationDuration
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationQueue{
		defaultDuration: defaultDuration,
		now:             now,
		timers:          make(map[string]*time.Timer),
		subs:            make(map[int]func(model.Notification)),
	}
}

// Enqueue stores n under a fresh id and schedules its removal when
// Duration is positive. Subscribers are told about it after it is stored.
func (q *NotificationQueue) Enqueue(n model.Notification) string {
	n.ID = uuid.NewString()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = q.now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}
	q.items = append(q.items, n)
	if n.Duration > 0 {
		id := n.ID
		q.timers[id] = time.AfterFunc(n.Duration, func() { q.expire(id) })
	}
	subs := make([]func(model.Notification), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
	return n.ID
}

// Notify enqueues a notification with the default duration.
func (q *NotificationQueue) Notify(kind model.NotificationType, title, message string) string {
	return q.Enqueue(model.Notification{
		Type:     kind,
		Title:    title,
		Message:  message,
		Duration: q.defaultDuration,
	})
}

func (q *NotificationQueue) Success(title, message string) string {
	return q.Notify(model.NotificationSuccess, title, message)
}

func (q *NotificationQueue) Error(title, message string) string {
	return q.Notify(model.NotificationError, title, message)
}

func (q *NotificationQueue) Warning(title, message string) string {
	return q.Notify(model.NotificationWarning, title, message)
}

func (q *NotificationQueue) Info(title, message string) string {
	return q.Notify(model.NotificationInfo, title, message)
}

// Dismiss removes the notification and cancels its timer.
func (q *NotificationQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

// List returns the active notifications in insertion order.
func (q *NotificationQueue) List() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Subscribe registers fn for every enqueued notification.
func (q *NotificationQueue) Subscribe(fn func(model.Notification)) func() {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close cancels every pending removal and rejects further notifications.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.closed = true
}

func (q *NotificationQueue) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

func (q *NotificationQueue) removeLocked(id string) bool {
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}
