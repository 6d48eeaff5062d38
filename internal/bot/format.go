package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-list/internal/model"
	"todo-list/internal/service"
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	iconActive    = "⬜"
	iconDone      = "✅"
	iconOverdue   = "⚠️"
	iconLight     = "☀️"
	iconDark      = "🌙"
	shortIDLength = 8
)

var errNoText = errors.New("task text is missing")

// parseAddArgs reads "/add" arguments. Words starting with ! set the priority,
// # the category and @ the due date; everything else is the task text.
func parseAddArgs(raw string) (service.TaskInput, error) {
	var (
		input service.TaskInput
		words []string
	)
	for _, field := range strings.Fields(raw) {
		switch {
		case len(field) > 1 && field[0] == '!':
			p, err := model.ParsePriority(field[1:])
			if err != nil {
				return input, err
			}
			input.Priority = p
		case len(field) > 1 && field[0] == '#':
			input.Category = field[1:]
		case len(field) > 1 && field[0] == '@':
			d, err := model.ParseDate(field[1:])
			if err != nil {
				return input, err
			}
			input.DueDate = &d
		default:
			words = append(words, field)
		}
	}
	input.Text = strings.Join(words, " ")
	if input.Text == "" {
		return input, errNoText
	}
	return input, nil
}

// splitIDArgs splits "<id> <rest>" command arguments.
func splitIDArgs(raw string) (id, rest string) {
	raw = strings.TrimSpace(raw)
	id, rest, _ = strings.Cut(raw, " ")
	return id, strings.TrimSpace(rest)
}

// clearValue maps the "-" placeholder to an empty value.
func clearValue(raw string) string {
	if strings.TrimSpace(raw) == "-" {
		return ""
	}
	return strings.TrimSpace(raw)
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func themeIcon(theme model.Theme) string {
	if theme == model.ThemeDark {
		return iconDark
	}
	return iconLight
}

func formatTaskLine(task model.Task, now time.Time) string {
	icon := iconActive
	switch {
	case task.Completed:
		icon = iconDone
	case task.IsOverdue(now):
		icon = iconOverdue
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s <code>%s</code> %s", icon, service.PriorityIcon(task.Priority), shortID(task.ID), escape(normalizeTitle(task.Text)))
	if task.Category != "" {
		fmt.Fprintf(&b, " <i>#%s</i>", escape(task.Category))
	}
	if task.DueDate != nil {
		fmt.Fprintf(&b, " · due %s", task.DueDate.String())
	}
	return b.String()
}

// renderView builds the list message and its inline keyboard.
func renderView(view service.View, theme model.Theme, now time.Time) (string, *tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Tasks</b> · %s · sorted by %s\n", themeIcon(theme), view.Query.Filter, view.Query.Sort)
	if view.Query.Search != "" {
		fmt.Fprintf(&b, "🔎 %s\n", escape(view.Query.Search))
	}
	fmt.Fprintf(&b, "%d active · %d completed · %d overdue\n\n", view.Stats.Active, view.Stats.Completed, view.Stats.Overdue)

	if len(view.Tasks) == 0 {
		b.WriteString(emptyViewText(view))
		return b.String(), nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(view.Tasks))
	for _, task := range view.Tasks {
		b.WriteString(formatTaskLine(task, now))
		b.WriteByte('\n')

		toggleLabel := "✅ " + shortTitle(task.Text, 24)
		if task.Completed {
			toggleLabel = "↩️ " + shortTitle(task.Text, 24)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(b.String()), &markup
}

func emptyViewText(view service.View) string {
	switch {
	case view.Query.Search != "":
		return "Nothing matches your search."
	case view.Stats.Total == 0:
		return "No tasks yet. Add one with /add."
	case view.Query.Filter == service.FilterActive:
		return "No active tasks. 🎉"
	case view.Query.Filter == service.FilterCompleted:
		return "No completed tasks yet."
	default:
		return "No tasks to show."
	}
}

func formatStats(stats service.Stats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n")
	fmt.Fprintf(&b, "Total: %d · active: %d · completed: %d\n", stats.Total, stats.Active, stats.Completed)
	fmt.Fprintf(&b, "Completion: %d%% (%s)\n", stats.CompletionRate, service.BandFor(stats.CompletionRate))
	if stats.Overdue > 0 {
		fmt.Fprintf(&b, "%s Overdue: %d\n", iconOverdue, stats.Overdue)
	}

	b.WriteString("\n<b>Open by priority</b>\n")
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		fmt.Fprintf(&b, "%s %s: %d\n", service.PriorityIcon(p), p, stats.ByPriority[p])
	}

	if top := stats.TopCategories(5); len(top) > 0 {
		b.WriteString("\n<b>Top categories</b>\n")
		for _, c := range top {
			fmt.Fprintf(&b, "#%s: %d\n", escape(c.Category), c.Count)
		}
	}
	return strings.TrimSpace(b.String())
}

func formatNotification(n model.Notification) string {
	text := fmt.Sprintf("%s <b>%s</b>", n.Type.Icon(), escape(n.Title))
	if n.Message != "" {
		text += "\n" + escape(n.Message)
	}
	return text
}

func helpText() string {
	return "ℹ️ <b>Commands</b>\n" +
		"• /add &lt;text&gt; [!high] [#category] [@2026-10-20] — add a task\n" +
		"• /list [all|active|completed] — show tasks\n" +
		"• /sort created|priority|due — change the order\n" +
		"• /search &lt;text&gt; — filter by text or category (empty to reset)\n" +
		"• /done &lt;id&gt; — toggle completion\n" +
		"• /edit &lt;id&gt; &lt;text&gt; — change the text\n" +
		"• /priority &lt;id&gt; low|medium|high\n" +
		"• /category &lt;id&gt; &lt;name|-&gt;\n" +
		"• /due &lt;id&gt; &lt;YYYY-MM-DD|-&gt;\n" +
		"• /delete &lt;id&gt; — remove a task\n" +
		"• /clear — remove completed tasks\n" +
		"• /stats — statistics\n" +
		"• /export — download tasks as JSON\n" +
		"• /theme [light|dark|toggle|system]\n" +
		"• /report — task summary\n" +
		"Ids may be shortened to their first characters."
}
