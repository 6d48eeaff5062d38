package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"todo-list/internal/logging"
	"todo-list/internal/model"
	"todo-list/internal/storage"
)

// TodosKey is the storage key holding the task collection.
const TodosKey = "todos"

var (
	ErrEmptyText    = errors.New("task text is empty")
	ErrTaskNotFound = errors.New("task not found")
	ErrAmbiguousID  = errors.New("task id prefix is ambiguous")
)

// Notifier receives user-facing messages about mutations.
type Notifier interface {
	Notify(kind model.NotificationType, title, message string) string
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Text     string
	Priority model.Priority
	Category string
	DueDate  *model.Date
}

// TaskPatch lists the fields to merge into a task. Nil fields are left alone.
// An empty DueDate or Category clears it.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Priority  *model.Priority
	Category  *string
	DueDate   *string
}

// TaskServiceOptions configures a TaskService.
type TaskServiceOptions struct {
	Notifier Notifier
	Logger   *log.Logger
	Now      func() time.Time
	NewID    func() string
}

// TaskService owns the task collection. It is the only writer and persists
// the whole collection after every mutation.
type TaskService struct {
	store    *storage.Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	mu    sync.RWMutex
	tasks []model.Task

	listenMu  sync.RWMutex
	listeners map[int]func()
	nextID    int
}

func NewTaskService(store *storage.Store, opts TaskServiceOptions) *TaskService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &TaskService{
		store:     store,
		notifier:  opts.Notifier,
		logger:    logging.OrDiscard(opts.Logger),
		now:       now,
		newID:     newID,
		tasks:     []model.Task{},
		listeners: make(map[int]func()),
	}
}

// Load replaces the in-memory collection with the persisted one.
// A missing or invalid payload leaves an empty collection.
func (s *TaskService) Load(ctx context.Context) int {
	tasks := []model.Task{}
	if raw, ok := s.store.Raw(ctx, TodosKey); ok {
		decoded, err := DecodeTasks([]byte(raw))
		if err != nil {
			s.logger.Error("load tasks", "err", err)
		} else {
			tasks = decoded
		}
	}

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()

	s.logger.Info("tasks loaded", "count", len(tasks))
	s.changed()
	return len(tasks)
}

// Tasks returns a snapshot of the collection in insertion order.
func (s *TaskService) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task with id.
func (s *TaskService) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// FindByPrefix resolves a full id or a unique id prefix.
func (s *TaskService) FindByPrefix(prefix string) (model.Task, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return model.Task{}, ErrTaskNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *model.Task
	for i := range s.tasks {
		id := strings.ToLower(s.tasks[i].ID)
		if id == prefix {
			return s.tasks[i], nil
		}
		if strings.HasPrefix(id, prefix) {
			if found != nil {
				return model.Task{}, fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
			}
			found = &s.tasks[i]
		}
	}
	if found == nil {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, prefix)
	}
	return *found, nil
}

// Create appends a new active task. Text that is blank after trimming is rejected.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (model.Task, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		s.notify(model.NotificationWarning, "Task not added", "Task text cannot be empty.")
		return model.Task{}, ErrEmptyText
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Task{}, fmt.Errorf("%w: %q", model.ErrInvalidPriority, priority)
	}

	s.mu.Lock()
	task := model.Task{
		ID:        s.uniqueID(),
		Text:      text,
		CreatedAt: s.timestamp(),
		Priority:  priority,
		Category:  strings.TrimSpace(input.Category),
		DueDate:   input.DueDate,
	}
	s.tasks = append(s.tasks, task)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("task created", "id", task.ID, "priority", task.Priority)
	s.notify(model.NotificationSuccess, "Task added", task.Text)
	s.changed()
	return task, nil
}

// Update merges patch into the task with id. Unknown ids are ignored.
// An invalid field rejects the whole patch.
func (s *TaskService) Update(ctx context.Context, id string, patch TaskPatch) error {
	var dueDate *model.Date
	if patch.DueDate != nil && strings.TrimSpace(*patch.DueDate) != "" {
		parsed, err := model.ParseDate(*patch.DueDate)
		if err != nil {
			return err
		}
		dueDate = &parsed
	}
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return ErrEmptyText
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidPriority, *patch.Priority)
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	task := &s.tasks[i]
	if patch.Text != nil {
		task.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Category != nil {
		task.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.DueDate != nil {
		task.DueDate = dueDate
	}
	s.touch(task)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("task updated", "id", id)
	s.changed()
	return nil
}

// Toggle flips the completion state of the task with id.
func (s *TaskService) Toggle(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	task := &s.tasks[i]
	task.Completed = !task.Completed
	s.touch(task)
	done, text := task.Completed, task.Text
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("task toggled", "id", id, "completed", done)
	if done {
		s.notify(model.NotificationSuccess, "Task completed", text)
	} else {
		s.notify(model.NotificationInfo, "Task reopened", text)
	}
	s.changed()
}

// Delete removes the task with id. Unknown ids are ignored.
func (s *TaskService) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	text := s.tasks[i].Text
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("task deleted", "id", id)
	s.notify(model.NotificationSuccess, "Task deleted", text)
	s.changed()
}

// ClearCompleted removes every completed task and returns how many were removed.
func (s *TaskService) ClearCompleted(ctx context.Context) int {
	s.mu.Lock()
	kept := make([]model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if !task.Completed {
			kept = append(kept, task)
		}
	}
	removed := len(s.tasks) - len(kept)
	s.tasks = kept
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("completed tasks cleared", "removed", removed)
	if removed > 0 {
		s.notify(model.NotificationSuccess, "Completed tasks cleared", fmt.Sprintf("Removed %d task(s).", removed))
	}
	s.changed()
	return removed
}

// Replace swaps in a collection written elsewhere. It does not persist.
func (s *TaskService) Replace(tasks []model.Task) {
	next := make([]model.Task, len(tasks))
	copy(next, tasks)

	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()

	s.logger.Debug("tasks replaced", "count", len(next))
	s.changed()
}

// OnChange registers fn to run after every change to the collection.
func (s *TaskService) OnChange(fn func()) func() {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

// ExportFile is the downloadable snapshot of the collection.
type ExportFile struct {
	SchemaVersion int          `json:"schema_version"`
	ExportedAt    time.Time    `json:"exported_at"`
	Tasks         []model.Task `json:"tasks"`
}

// ExportFileName names a snapshot taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("todos-%s.json", now.Format(model.DateLayout))
}

// Export writes the whole collection as indented JSON.
func (s *TaskService) Export(w io.Writer) error {
	file := ExportFile{
		SchemaVersion: 1,
		ExportedAt:    s.timestamp(),
		Tasks:         s.Tasks(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportToDir writes the snapshot file into dir and returns its path.
func (s *TaskService) ExportToDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(s.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := s.Export(f); err != nil {
		return "", err
	}
	s.logger.Info("tasks exported", "path", path)
	s.notify(model.NotificationSuccess, "Export ready", filepath.Base(path))
	return path, nil
}

func (s *TaskService) persistLocked(ctx context.Context) {
	if !storage.Set(ctx, s.store, TodosKey, s.tasks) {
		s.logger.Warn("tasks kept in memory only", "count", len(s.tasks))
	}
}

func (s *TaskService) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskService) uniqueID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *TaskService) touch(task *model.Task) {
	ts := s.timestamp()
	task.UpdatedAt = &ts
}

// timestamp has millisecond precision and no monotonic reading so it survives a JSON round trip.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *TaskService) notify(kind model.NotificationType, title, message string) {
	if s.notifier != nil {
		s.notifier.Notify(kind, title, message)
	}
}

func (s *TaskService) changed() {
	s.listenMu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenMu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
