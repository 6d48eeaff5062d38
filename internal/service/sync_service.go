package service

import (
	"github.com/charmbracelet/log"

	"todo-list/internal/logging"
	"todo-list/internal/storage"
)

// SyncService applies task collections written by other processes.
// It never merges: the last write wins.
type SyncService struct {
	tasks  *TaskService
	logger *log.Logger
}

func NewSyncService(tasks *TaskService, logger *log.Logger) *SyncService {
	return &SyncService{tasks: tasks, logger: logging.OrDiscard(logger)}
}

// Attach subscribes to w and returns the unsubscribe function.
func (s *SyncService) Attach(w *storage.Watcher) func() {
	return w.Subscribe(func(ev storage.Event) { s.Handle(ev) })
}

// Handle applies ev when it carries a valid task collection.
// Malformed payloads keep the current collection.
func (s *SyncService) Handle(ev storage.Event) bool {
	if ev.Key != TodosKey || ev.NewValue == nil {
		return false
	}
	tasks, err := DecodeTasks([]byte(*ev.NewValue))
	if err != nil {
		s.logger.Error("ignore synced tasks", "origin", ev.Origin, "revision", ev.Revision, "err", err)
		return false
	}
	s.tasks.Replace(tasks)
	s.logger.Info("tasks synced", "origin", ev.Origin, "count", len(tasks))
	return true
}
