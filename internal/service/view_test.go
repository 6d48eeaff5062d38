package service

import (
	"testing"
	"time"

	"todo-list/internal/model"
)

var base = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func task(id string, createdOffset int, mutate ...func(*model.Task)) model.Task {
	t := model.Task{
		ID:        id,
		Text:      id,
		CreatedAt: base.Add(time.Duration(createdOffset) * time.Minute),
		Priority:  model.PriorityMedium,
	}
	for _, fn := range mutate {
		fn(&t)
	}
	return t
}

func withPriority(p model.Priority) func(*model.Task) {
	return func(t *model.Task) { t.Priority = p }
}

func done(t *model.Task) { t.Completed = true }

func withDue(days int) func(*model.Task) {
	return func(t *model.Task) { t.DueDate = dateOf(base.AddDate(0, 0, days)) }
}

func withText(text, category string) func(*model.Task) {
	return func(t *model.Task) {
		t.Text = text
		t.Category = category
	}
}

func TestBuildViewSingleTask(t *testing.T) {
	tasks := []model.Task{task("milk", 0, withText("Buy milk", ""), withPriority(model.PriorityHigh))}

	got := BuildView(tasks, Query{Filter: FilterAll, Sort: SortCreated})
	if len(got) != 1 || got[0].Text != "Buy milk" {
		t.Fatalf("expected the single task, got %+v", got)
	}
}

func TestBuildViewStatusFilter(t *testing.T) {
	tasks := []model.Task{task("a", 0, done), task("b", 1)}

	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"b", "a"}},
		{FilterActive, []string{"b"}},
		{FilterCompleted, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := ids(BuildView(tasks, Query{Filter: tt.filter, Sort: SortCreated}))
			if !equalStrings(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBuildViewSearchCombinesWithStatus(t *testing.T) {
	tasks := []model.Task{
		task("1", 0, withText("Buy MILK", "")),
		task("2", 1, withText("Pay rent", "Milkman")),
		task("3", 2, withText("Milk the cow", ""), done),
		task("4", 3, withText("Read", "books")),
	}

	got := ids(BuildView(tasks, Query{Filter: FilterActive, Search: "milk", Sort: SortCreated}))
	if !equalStrings(got, []string{"2", "1"}) {
		t.Fatalf("expected active milk matches [2 1], got %v", got)
	}

	got = ids(BuildView(tasks, Query{Filter: FilterAll, Search: "  MiLk ", Sort: SortCreated}))
	if !equalStrings(got, []string{"3", "2", "1"}) {
		t.Fatalf("expected every milk match, got %v", got)
	}
}

func TestBuildViewSortByPriority(t *testing.T) {
	tasks := []model.Task{
		task("low-old", 0, withPriority(model.PriorityLow)),
		task("high-old", 1, withPriority(model.PriorityHigh)),
		task("med", 2),
		task("high-new", 3, withPriority(model.PriorityHigh)),
		task("low-new", 4, withPriority(model.PriorityLow)),
	}

	got := ids(BuildView(tasks, Query{Sort: SortPriority}))
	want := []string{"high-new", "high-old", "med", "low-new", "low-old"}
	if !equalStrings(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildViewSortByPriorityIsStableOnFullTies(t *testing.T) {
	tasks := []model.Task{task("x", 0), task("y", 0), task("z", 0)}

	got := ids(BuildView(tasks, Query{Sort: SortPriority}))
	if !equalStrings(got, []string{"x", "y", "z"}) {
		t.Fatalf("expected insertion order on full ties, got %v", got)
	}
}

func TestBuildViewSortByDueDate(t *testing.T) {
	tasks := []model.Task{
		task("none-old", 0),
		task("later", 1, withDue(5)),
		task("none-new", 2),
		task("sooner", 3, withDue(1)),
		task("sooner-new", 4, withDue(1)),
	}

	got := ids(BuildView(tasks, Query{Sort: SortDueDate}))
	want := []string{"sooner-new", "sooner", "later", "none-new", "none-old"}
	if !equalStrings(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildViewDoesNotModifyInput(t *testing.T) {
	tasks := []model.Task{task("a", 0), task("b", 1)}
	BuildView(tasks, Query{Sort: SortCreated})
	if tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Fatalf("input reordered: %v", ids(tasks))
	}
}

func TestParseFilterAndSort(t *testing.T) {
	if f, err := ParseFilter("Active"); err != nil || f != FilterActive {
		t.Fatalf("ParseFilter: %v %v", f, err)
	}
	if _, err := ParseFilter("done"); err == nil {
		t.Fatalf("expected error for unknown filter")
	}
	if k, err := ParseSortKey("due"); err != nil || k != SortDueDate {
		t.Fatalf("ParseSortKey: %v %v", k, err)
	}
	if k, err := ParseSortKey(""); err != nil || k != SortCreated {
		t.Fatalf("ParseSortKey default: %v %v", k, err)
	}
	if _, err := ParseSortKey("alpha"); err == nil {
		t.Fatalf("expected error for unknown sort key")
	}
}
