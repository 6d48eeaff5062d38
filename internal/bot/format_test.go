package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"todo-list/internal/model"
	"todo-list/internal/service"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestParseAddArgs(t *testing.T) {
	input, err := parseAddArgs("buy milk !high #home @2026-10-20")
	if err != nil {
		t.Fatalf("parseAddArgs: %v", err)
	}
	if input.Text != "buy milk" || input.Priority != model.PriorityHigh || input.Category != "home" {
		t.Fatalf("unexpected input: %+v", input)
	}
	if input.DueDate == nil || input.DueDate.String() != "2026-10-20" {
		t.Fatalf("unexpected due date: %v", input.DueDate)
	}

	if _, err := parseAddArgs("!low #work"); !errors.Is(err, errNoText) {
		t.Fatalf("expected errNoText, got %v", err)
	}
	if _, err := parseAddArgs("call mom !urgent"); !errors.Is(err, model.ErrInvalidPriority) {
		t.Fatalf("expected invalid priority, got %v", err)
	}
	if _, err := parseAddArgs("call mom @tomorrow"); err == nil {
		t.Fatalf("expected invalid date error")
	}
}

func TestSplitIDArgs(t *testing.T) {
	id, rest := splitIDArgs("  3f2a   new text here ")
	if id != "3f2a" || rest != "new text here" {
		t.Fatalf("unexpected split: %q %q", id, rest)
	}
	id, rest = splitIDArgs("3f2a")
	if id != "3f2a" || rest != "" {
		t.Fatalf("unexpected split: %q %q", id, rest)
	}
	if clearValue(" - ") != "" || clearValue(" work ") != "work" {
		t.Fatalf("unexpected clearValue")
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("hello", 10); got != "Hello" {
		t.Fatalf("expected Hello, got %q", got)
	}
	if got := shortTitle("a very long task title", 8); got != "A very …" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestRenderView(t *testing.T) {
	due := model.NewDate(2026, 10, 10)
	tasks := []model.Task{
		{ID: "0123456789ab", Text: "pay <bills>", Priority: model.PriorityHigh, Category: "home", DueDate: &due},
		{ID: "fedcba987654", Text: "read", Priority: model.PriorityLow, Completed: true},
	}
	view := service.View{
		Query: service.Query{Filter: service.FilterAll, Sort: service.SortCreated},
		Tasks: tasks,
		Stats: service.ComputeStats(tasks, now),
	}

	text, markup := renderView(view, model.ThemeDark, now)
	for _, want := range []string{"🌙", "<code>01234567</code>", "Pay &lt;bills&gt;", "<i>#home</i>", "due 2026-10-10", "⚠️", "1 overdue"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
	if markup == nil || len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected one button row per task")
	}
	row := markup.InlineKeyboard[1]
	if row[0].CallbackData == nil || *row[0].CallbackData != "toggle:fedcba987654" {
		t.Fatalf("unexpected toggle data: %+v", row[0])
	}
	if !strings.HasPrefix(row[0].Text, "↩️") {
		t.Fatalf("completed task should offer reopening, got %q", row[0].Text)
	}
	if *row[1].CallbackData != "delete:fedcba987654" {
		t.Fatalf("unexpected delete data: %+v", row[1])
	}
}

func TestRenderEmptyView(t *testing.T) {
	view := service.View{
		Query: service.Query{Filter: service.FilterAll, Search: "zzz", Sort: service.SortCreated},
		Stats: service.ComputeStats(nil, now),
	}
	text, markup := renderView(view, model.ThemeLight, now)
	if markup != nil {
		t.Fatalf("empty view has no buttons")
	}
	if !strings.Contains(text, "Nothing matches your search.") {
		t.Fatalf("unexpected text:\n%s", text)
	}
}

func TestFormatStats(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Text: "a", Priority: model.PriorityHigh, Category: "work"},
		{ID: "b", Text: "b", Priority: model.PriorityLow, Category: "work"},
		{ID: "c", Text: "c", Priority: model.PriorityMedium, Completed: true},
	}
	text := formatStats(service.ComputeStats(tasks, now))
	for _, want := range []string{"Total: 3", "Completion: 33% (poor)", "high: 1", "#work: 2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("stats missing %q:\n%s", want, text)
		}
	}
}

func TestFormatNotification(t *testing.T) {
	text := formatNotification(model.Notification{Type: model.NotificationError, Title: "Oops", Message: "a < b"})
	if text != "❌ <b>Oops</b>\na &lt; b" {
		t.Fatalf("unexpected notification text %q", text)
	}
}
