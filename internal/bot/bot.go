package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-list/internal/app"
	"todo-list/internal/logging"
	"todo-list/internal/model"
	"todo-list/internal/service"
)

// Bot serves the task list to a single owner chat.
type Bot struct {
	api    *tgbotapi.BotAPI
	app    *app.App
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	owner    int64
	sessions map[int64]*service.ViewSession
}

func New(token string, a *app.App, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger = logging.OrDiscard(logger)
	logger.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		app:      a,
		logger:   logger,
		now:      time.Now,
		owner:    a.Config.OwnerChatID,
		sessions: make(map[int64]*service.ViewSession),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	unsubscribe := b.app.Notifications.Subscribe(b.deliverNotification)
	defer unsubscribe()
	b.app.OnReport(func(text string) {
		if chatID := b.ownerChat(); chatID != 0 {
			if err := b.sendText(chatID, text); err != nil {
				b.logger.Error("send report", "err", err)
			}
		}
	})
	defer b.closeSessions()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Error("handle callback", "err", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Error("handle message", "err", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.authorize(msg.Chat.ID) {
		return b.sendText(msg.Chat.ID, "This bot already serves another chat.")
	}

	if msg.IsCommand() {
		b.logger.Info("command", "chat", msg.Chat.ID, "cmd", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Send /add &lt;text&gt; to create a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return b.sendText(chatID, helpText())
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "list":
		return b.handleList(chatID, args)
	case "sort":
		return b.handleSort(chatID, args)
	case "search":
		return b.handleSearch(chatID, args)
	case "done":
		return b.withTask(chatID, args, func(task model.Task, _ string) error {
			b.app.Tasks.Toggle(ctx, task.ID)
			return b.refresh(chatID)
		})
	case "edit":
		return b.handleEdit(ctx, chatID, args)
	case "priority":
		return b.handlePriority(ctx, chatID, args)
	case "category":
		return b.withTask(chatID, args, func(task model.Task, rest string) error {
			category := clearValue(rest)
			return b.applyPatch(ctx, chatID, task.ID, service.TaskPatch{Category: &category})
		})
	case "due":
		return b.handleDue(ctx, chatID, args)
	case "delete":
		return b.withTask(chatID, args, func(task model.Task, _ string) error {
			b.app.Tasks.Delete(ctx, task.ID)
			return b.refresh(chatID)
		})
	case "clear":
		if b.app.Tasks.ClearCompleted(ctx) == 0 {
			return b.sendText(chatID, "There are no completed tasks to clear.")
		}
		return b.refresh(chatID)
	case "stats":
		return b.sendText(chatID, formatStats(service.ComputeStats(b.app.Tasks.Tasks(), b.now())))
	case "export":
		return b.handleExport(chatID)
	case "theme":
		return b.handleTheme(ctx, chatID, args)
	case "report":
		return b.sendText(chatID, b.app.Reminders.Summary(b.now()))
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	input, err := parseAddArgs(args)
	if err != nil {
		if errors.Is(err, errNoText) {
			return b.sendText(chatID, "Usage: /add Buy milk !high #home @2026-10-20")
		}
		return b.sendText(chatID, fmt.Sprintf("Cannot add task: %s", escape(err.Error())))
	}
	if _, err := b.app.Tasks.Create(ctx, input); err != nil {
		// The service already raised a notification.
		return nil
	}
	return b.refresh(chatID)
}

func (b *Bot) handleList(chatID int64, args string) error {
	session := b.session(chatID)
	if args == "" {
		session.Refresh()
		return nil
	}
	filter, err := service.ParseFilter(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /list [all|active|completed]")
	}
	session.SetFilter(filter)
	return nil
}

func (b *Bot) handleSort(chatID int64, args string) error {
	key, err := service.ParseSortKey(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /sort created|priority|due")
	}
	b.session(chatID).SetSort(key)
	return nil
}

func (b *Bot) handleSearch(chatID int64, args string) error {
	// The list is sent by the session once the input settles.
	b.session(chatID).SetSearch(args)
	return nil
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, args string) error {
	return b.withTask(chatID, args, func(task model.Task, rest string) error {
		if rest == "" {
			return b.sendText(chatID, "Usage: /edit &lt;id&gt; &lt;new text&gt;")
		}
		return b.applyPatch(ctx, chatID, task.ID, service.TaskPatch{Text: &rest})
	})
}

func (b *Bot) handlePriority(ctx context.Context, chatID int64, args string) error {
	return b.withTask(chatID, args, func(task model.Task, rest string) error {
		p, err := model.ParsePriority(rest)
		if err != nil || rest == "" {
			return b.sendText(chatID, "Usage: /priority &lt;id&gt; low|medium|high")
		}
		return b.applyPatch(ctx, chatID, task.ID, service.TaskPatch{Priority: &p})
	})
}

func (b *Bot) handleDue(ctx context.Context, chatID int64, args string) error {
	return b.withTask(chatID, args, func(task model.Task, rest string) error {
		if rest == "" {
			return b.sendText(chatID, "Usage: /due &lt;id&gt; &lt;YYYY-MM-DD|-&gt;")
		}
		due := clearValue(rest)
		return b.applyPatch(ctx, chatID, task.ID, service.TaskPatch{DueDate: &due})
	})
}

func (b *Bot) handleExport(chatID int64) error {
	path, err := b.app.Export()
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Export failed: %s", escape(err.Error())))
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("%d task(s)", len(b.app.Tasks.Tasks()))
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleTheme(ctx context.Context, chatID int64, args string) error {
	themes := b.app.Themes
	var current model.Theme
	switch strings.ToLower(args) {
	case "":
		current = themes.Current()
	case "toggle":
		current = themes.Toggle(ctx)
	case "system":
		current = themes.ResetToSystem(ctx)
	default:
		theme, err := model.ParseTheme(args)
		if err != nil {
			return b.sendText(chatID, "Usage: /theme [light|dark|toggle|system]")
		}
		themes.Set(ctx, theme)
		current = themes.Current()
	}
	return b.sendText(chatID, fmt.Sprintf("%s Theme: <b>%s</b>", themeIcon(current), current))
}

// withTask resolves the id prefix at the start of args and passes the rest on.
func (b *Bot) withTask(chatID int64, args string, fn func(task model.Task, rest string) error) error {
	id, rest := splitIDArgs(args)
	if id == "" {
		return b.sendText(chatID, "Give the task id, for example /done 3f2a")
	}
	task, err := b.app.Tasks.FindByPrefix(id)
	switch {
	case errors.Is(err, service.ErrAmbiguousID):
		return b.sendText(chatID, "Several tasks match that id. Use more characters.")
	case err != nil:
		return b.sendText(chatID, "Task not found.")
	}
	return fn(task, rest)
}

func (b *Bot) applyPatch(ctx context.Context, chatID int64, id string, patch service.TaskPatch) error {
	if err := b.app.Tasks.Update(ctx, id, patch); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Cannot update task: %s", escape(err.Error())))
	}
	return b.refresh(chatID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", "err", err)
	}
	chatID := cb.Message.Chat.ID
	if !b.authorize(chatID) {
		return nil
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		id := strings.TrimPrefix(data, cbTogglePrefix)
		b.logger.Info("callback toggle", "chat", chatID, "task", id)
		b.app.Tasks.Toggle(ctx, id)
	case strings.HasPrefix(data, cbDeletePrefix):
		id := strings.TrimPrefix(data, cbDeletePrefix)
		b.logger.Info("callback delete", "chat", chatID, "task", id)
		b.app.Tasks.Delete(ctx, id)
	default:
		return nil
	}
	return b.editList(chatID, cb.Message.MessageID)
}

// editList redraws the list in place after a button press.
func (b *Bot) editList(chatID int64, messageID int) error {
	text, markup := renderView(b.session(chatID).Current(), b.app.Themes.Current(), b.now())
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) refresh(chatID int64) error {
	b.session(chatID).Refresh()
	return nil
}

func (b *Bot) session(chatID int64) *service.ViewSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		return s
	}
	s := service.NewViewSession(b.app.Tasks, b.app.Config.SearchDebounce, b.now, func(view service.View) {
		if err := b.sendView(chatID, view); err != nil {
			b.logger.Error("send task list", "chat", chatID, "err", err)
		}
	})
	b.sessions[chatID] = s
	return s
}

func (b *Bot) closeSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.sessions {
		s.Close()
		delete(b.sessions, id)
	}
}

// authorize claims the first private chat as owner when none is configured.
func (b *Bot) authorize(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owner == 0 {
		b.owner = chatID
		b.logger.Info("owner chat claimed", "chat", chatID)
	}
	return b.owner == chatID
}

func (b *Bot) ownerChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

func (b *Bot) deliverNotification(n model.Notification) {
	chatID := b.ownerChat()
	if chatID == 0 {
		return
	}
	if err := b.sendText(chatID, formatNotification(n)); err != nil {
		b.logger.Warn("deliver notification", "title", n.Title, "err", err)
	}
}

func (b *Bot) sendView(chatID int64, view service.View) error {
	text, markup := renderView(view, b.app.Themes.Current(), b.now())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}
