package service

import (
	"fmt"
	"sort"
	"strings"

	"todo-list/internal/model"
)

// Filter narrows a view by completion state.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// Keeps reports whether task passes the filter.
func (f Filter) Keeps(task model.Task) bool {
	switch f {
	case FilterActive:
		return !task.Completed
	case FilterCompleted:
		return task.Completed
	default:
		return true
	}
}

// SortKey selects the view order.
type SortKey string

const (
	SortCreated  SortKey = "created"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
)

func ParseSortKey(raw string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "created":
		return SortCreated, nil
	case "priority":
		return SortPriority, nil
	case "duedate", "due":
		return SortDueDate, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}

// Query is the full set of view parameters.
type Query struct {
	Filter Filter
	Search string
	Sort   SortKey
}

// BuildView filters tasks by status and search text, then sorts them.
// Both filters apply together. The input slice is not modified.
func BuildView(tasks []model.Task, q Query) []model.Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !q.Filter.Keeps(task) {
			continue
		}
		if needle != "" && !matchesSearch(task, needle) {
			continue
		}
		out = append(out, task)
	}

	sort.SliceStable(out, lessFunc(out, q.Sort))
	return out
}

func matchesSearch(task model.Task, needle string) bool {
	return strings.Contains(strings.ToLower(task.Text), needle) ||
		strings.Contains(strings.ToLower(task.Category), needle)
}

func lessFunc(tasks []model.Task, key SortKey) func(i, j int) bool {
	newer := func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	}

	switch key {
	case SortPriority:
		return func(i, j int) bool {
			ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
			if ri != rj {
				return ri > rj
			}
			return newer(i, j)
		}
	case SortDueDate:
		return func(i, j int) bool {
			di, dj := tasks[i].DueDate, tasks[j].DueDate
			switch {
			case di == nil && dj == nil:
				return newer(i, j)
			case di == nil:
				return false
			case dj == nil:
				return true
			case !di.Equal(dj.Time):
				return di.Before(dj.Time)
			default:
				return newer(i, j)
			}
		}
	default:
		return newer
	}
}
