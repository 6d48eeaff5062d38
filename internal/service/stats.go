package service

import (
	"math"
	"sort"
	"time"

	"todo-list/internal/model"
)

// Stats aggregates the whole collection regardless of the current view.
// ByPriority and ByCategory count incomplete tasks only.
type Stats struct {
	Total          int
	Completed      int
	Active         int
	Overdue        int
	ByPriority     map[model.Priority]int
	ByCategory     map[string]int
	CompletionRate int
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category string
	Count    int
}

func ComputeStats(tasks []model.Task, now time.Time) Stats {
	stats := Stats{
		Total:      len(tasks),
		ByPriority: make(map[model.Priority]int, len(model.Priorities)),
		ByCategory: make(map[string]int),
	}
	for _, p := range model.Priorities {
		stats.ByPriority[p] = 0
	}

	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
			continue
		}
		if task.IsOverdue(now) {
			stats.Overdue++
		}
		if task.Priority.Valid() {
			stats.ByPriority[task.Priority]++
		}
		if task.Category != "" {
			stats.ByCategory[task.Category]++
		}
	}

	stats.Active = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// TopCategories returns up to n categories with the most active tasks.
func (s Stats) TopCategories(n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(s.ByCategory))
	for name, count := range s.ByCategory {
		out = append(out, CategoryCount{Category: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CompletionBand buckets a completion rate for display.
type CompletionBand string

const (
	BandGood CompletionBand = "good"
	BandFair CompletionBand = "fair"
	BandPoor CompletionBand = "poor"
)

func BandFor(rate int) CompletionBand {
	switch {
	case rate >= 80:
		return BandGood
	case rate >= 60:
		return BandFair
	default:
		return BandPoor
	}
}
