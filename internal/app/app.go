// Package app wires the storage, task, theme and notification services into
// one container with a start/close lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"todo-list/internal/config"
	"todo-list/internal/logging"
	"todo-list/internal/model"
	"todo-list/internal/repository"
	"todo-list/internal/service"
	"todo-list/internal/storage"
)

// remoteNoticeInterval bounds how often changes from other processes are announced.
const remoteNoticeInterval = 10 * time.Second

// App holds the application state shared by every front-end.
type App struct {
	Config        config.Config
	Store         *storage.Store
	Watcher       *storage.Watcher
	Tasks         *service.TaskService
	Themes        *service.ThemeService
	Notifications *service.NotificationQueue
	Reminders     *service.ReminderService
	Scheduler     *service.SchedulerService

	db       *gorm.DB
	logger   *log.Logger
	sync     *service.SyncService
	remote   *service.Throttler[int]
	now      func() time.Time
	cleanups []func()

	reportIDs []cron.EntryID

	mu       sync.Mutex
	started  bool
	onReport func(text string)
}

// New opens the database and builds the services. Nothing runs until Start.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	logger = logging.OrDiscard(logger)

	db, err := repository.NewDB(cfg.DatabaseURL, logger.WithPrefix("gorm"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	system, err := model.ParseTheme(cfg.DefaultTheme)
	if err != nil {
		system = model.ThemeLight
	}

	store := storage.NewWithRepository(repository.NewKVRepository(db), storage.Options{
		MaxValueBytes: cfg.MaxValueBytes,
		Logger:        logger.WithPrefix("storage"),
	})
	notifications := service.NewNotificationQueue(cfg.NotificationDuration, nil)
	tasks := service.NewTaskService(store, service.TaskServiceOptions{
		Notifier: notifications,
		Logger:   logger.WithPrefix("tasks"),
	})

	a := &App{
		Config:        cfg,
		Store:         store,
		Watcher:       storage.NewWatcher(repository.NewKVRepository(db), store.Origin(), logger.WithPrefix("watcher")),
		Tasks:         tasks,
		Themes:        service.NewThemeService(ctx, store, system),
		Notifications: notifications,
		Reminders:     service.NewReminderService(tasks),
		Scheduler:     service.NewSchedulerService(time.Local, logger.WithPrefix("cron")),
		db:            db,
		logger:        logger,
		sync:          service.NewSyncService(tasks, logger.WithPrefix("sync")),
		now:           time.Now,
	}
	a.remote = service.NewThrottler(remoteNoticeInterval, a.announceRemote)
	return a, nil
}

// Start loads the persisted tasks, begins watching for changes made by other
// processes and schedules the reports.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}

	// Prime first: a write between Prime and Load is then still published.
	if err := a.Watcher.Prime(ctx); err != nil {
		return fmt.Errorf("prime watcher: %w", err)
	}
	count := a.Tasks.Load(ctx)
	a.logger.Info("tasks loaded", "count", count, "origin", a.Store.Origin())
	a.cleanups = append(a.cleanups, a.sync.Attach(a.Watcher))
	a.cleanups = append(a.cleanups, a.Watcher.Subscribe(func(ev storage.Event) {
		if ev.Key == service.TodosKey && ev.NewValue != nil {
			a.remote.Push(int(ev.Revision))
		}
	}))

	if _, err := a.Scheduler.ScheduleInterval(a.Config.SyncInterval, a.PollOnce); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	if err := a.scheduleReports(); err != nil {
		return err
	}

	a.Scheduler.Start()
	a.started = true
	a.logger.Info("scheduler started", "jobs", a.Scheduler.Entries())
	return nil
}

// Reload applies the settings that can change at runtime: the report
// schedule and the system theme. Other fields need a restart.
func (a *App) Reload(cfg config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range a.reportIDs {
		a.Scheduler.Remove(id)
	}
	a.reportIDs = nil
	a.Config.ReportInterval = cfg.ReportInterval
	a.Config.DailyReportTime = cfg.DailyReportTime
	if err := a.scheduleReports(); err != nil {
		return err
	}

	if system, err := model.ParseTheme(cfg.DefaultTheme); err == nil {
		a.Config.DefaultTheme = cfg.DefaultTheme
		a.Themes.SystemChanged(system)
	}
	a.logger.Info("config reloaded", "jobs", a.Scheduler.Entries(), "theme", a.Themes.Current())
	return nil
}

// PollOnce checks the shared storage for changes from other processes.
func (a *App) PollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.Watcher.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("sync poll failed", "err", err)
	}
}

// OnReport registers the receiver of scheduled reports.
func (a *App) OnReport(fn func(text string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReport = fn
}

// SendReport builds the report and hands it to the registered receiver.
// Reports with nothing to do are skipped unless force is set.
func (a *App) SendReport(force bool) bool {
	now := a.now()
	if !force && !a.Reminders.HasWork(now) {
		a.logger.Debug("report skipped: nothing to do")
		return false
	}

	a.mu.Lock()
	fn := a.onReport
	a.mu.Unlock()

	a.Notifications.Info("Daily report", "Your task summary is ready")
	if fn != nil {
		fn(a.Reminders.Summary(now))
	}
	return true
}

// Export writes the task collection into the configured export directory.
func (a *App) Export() (string, error) {
	return a.Tasks.ExportToDir(a.Config.ExportDir)
}

// Close stops background work and releases the database.
func (a *App) Close() error {
	a.mu.Lock()
	started := a.started
	cleanups := a.cleanups
	a.cleanups = nil
	a.started = false
	a.mu.Unlock()

	if started {
		a.Scheduler.Stop()
	}
	for _, fn := range cleanups {
		fn()
	}
	a.remote.Stop()
	a.Notifications.Close()

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// scheduleReports must be called with mu held.
func (a *App) scheduleReports() error {
	job := func() { a.SendReport(false) }

	var ids []cron.EntryID
	defer func() { a.reportIDs = ids }()
	if a.Config.ReportInterval > 0 {
		id, err := a.Scheduler.ScheduleInterval(a.Config.ReportInterval, job)
		if err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
		ids = append(ids, id)
	}
	if a.Config.DailyReportTime != "" {
		id, err := a.Scheduler.ScheduleDaily(a.Config.DailyReportTime, job)
		if err != nil {
			return fmt.Errorf("schedule daily report: %w", err)
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		a.logger.Info("reports scheduled", "jobs", len(ids), "interval", a.Config.ReportInterval, "daily", a.Config.DailyReportTime)
	}
	return nil
}

func (a *App) announceRemote(revision int) {
	a.logger.Debug("remote change announced", "revision", revision)
	a.Notifications.Info("Tasks updated", "Changes from another session were applied")
}
