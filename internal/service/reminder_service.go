package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"todo-list/internal/model"
)

const dueSoonWindow = 48 * time.Hour

// ReminderService builds human-readable summaries for periodic reports.
type ReminderService struct {
	tasks TaskSource
}

func NewReminderService(tasks TaskSource) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// Summary renders overdue, due-soon and other active tasks as Telegram HTML.
func (s *ReminderService) Summary(now time.Time) string {
	tasks := s.tasks.Tasks()
	stats := ComputeStats(tasks, now)

	var overdue, dueSoon, rest []model.Task
	for _, task := range tasks {
		switch {
		case task.Completed:
			continue
		case task.IsOverdue(now):
			overdue = append(overdue, task)
		case task.DueDate != nil && task.DueDate.Sub(now) <= dueSoonWindow:
			dueSoon = append(dueSoon, task)
		default:
			rest = append(rest, task)
		}
	}
	byDue := func(list []model.Task) {
		sort.SliceStable(list, lessFunc(list, SortDueDate))
	}
	byDue(overdue)
	byDue(dueSoon)
	sort.SliceStable(rest, lessFunc(rest, SortPriority))

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s · done %d/%d (%d%%)\n", now.Format(model.DateLayout), stats.Completed, stats.Total, stats.CompletionRate))

	writeSection(&builder, "⚠️ <b>Overdue</b>", overdue, now, "— nothing overdue")
	writeSection(&builder, "⏳ <b>Due soon</b>", dueSoon, now, "— nothing due in the next two days")
	writeSection(&builder, "🟢 <b>Active</b>", rest, now, "— no other open tasks")

	return strings.TrimSpace(builder.String())
}

// HasWork reports whether anything is overdue or due soon.
func (s *ReminderService) HasWork(now time.Time) bool {
	for _, task := range s.tasks.Tasks() {
		if task.Completed || task.DueDate == nil {
			continue
		}
		if task.DueDate.Sub(now) <= dueSoonWindow {
			return true
		}
	}
	return false
}

func writeSection(b *strings.Builder, title string, tasks []model.Task, now time.Time, empty string) {
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(empty)
		b.WriteString("\n")
		return
	}
	for _, task := range tasks {
		b.WriteString(FormatTask(task, now))
	}
}

// FormatTask renders one task line with its category and due date.
func FormatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := PriorityIcon(task.Priority)
	if task.Completed {
		icon = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(task.Text)))

	if task.Category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(task.Category)))
	}

	if task.DueDate != nil && !task.Completed {
		d := *task.DueDate
		if task.IsOverdue(now) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", d.String()))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d day(s) left", d.String(), daysLeft))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

// PriorityIcon maps a priority to its list marker.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityLow:
		return "🔵"
	default:
		return "⚪"
	}
}
