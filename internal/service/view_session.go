package service

import (
	"sync"
	"time"

	"todo-list/internal/model"
)

// TaskSource provides the current task collection.
type TaskSource interface {
	Tasks() []model.Task
}

// View is one evaluation of the task list.
type View struct {
	Query Query
	Tasks []model.Task
	Stats Stats
}

// ViewSession holds the view parameters of one front-end and re-evaluates the
// view when they change. Search input is debounced; filter and sort apply at once.
type ViewSession struct {
	source   TaskSource
	now      func() time.Time
	onUpdate func(View)
	search   *Debouncer[string]

	mu          sync.Mutex
	query       Query
	evaluations int
}

func NewViewSession(source TaskSource, searchDelay time.Duration, now func() time.Time, onUpdate func(View)) *ViewSession {
	if now == nil {
		now = time.Now
	}
	v := &ViewSession{
		source:   source,
		now:      now,
		onUpdate: onUpdate,
		query:    Query{Filter: FilterAll, Sort: SortCreated},
	}
	v.search = NewDebouncer(searchDelay, v.commitSearch)
	return v
}

// Query returns the committed view parameters.
func (v *ViewSession) Query() Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// SetSearch schedules the search text to be committed after the quiet period.
func (v *ViewSession) SetSearch(text string) {
	v.search.Push(text)
}

// FlushSearch commits a pending search immediately.
func (v *ViewSession) FlushSearch() bool {
	return v.search.Flush()
}

func (v *ViewSession) SetFilter(f Filter) View {
	v.mu.Lock()
	v.query.Filter = f
	v.mu.Unlock()
	return v.Refresh()
}

func (v *ViewSession) SetSort(key SortKey) View {
	v.mu.Lock()
	v.query.Sort = key
	v.mu.Unlock()
	return v.Refresh()
}

// Refresh re-evaluates the view with the committed parameters.
func (v *ViewSession) Refresh() View {
	v.mu.Lock()
	q := v.query
	v.evaluations++
	v.mu.Unlock()

	view := v.evaluate(q)
	if v.onUpdate != nil {
		v.onUpdate(view)
	}
	return view
}

// Current evaluates the view without notifying or counting.
func (v *ViewSession) Current() View {
	return v.evaluate(v.Query())
}

// Evaluations counts committed evaluations.
func (v *ViewSession) Evaluations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.evaluations
}

// Close drops any pending search input.
func (v *ViewSession) Close() {
	v.search.Cancel()
}

func (v *ViewSession) commitSearch(text string) {
	v.mu.Lock()
	v.query.Search = text
	v.mu.Unlock()
	v.Refresh()
}

func (v *ViewSession) evaluate(q Query) View {
	tasks := v.source.Tasks()
	return View{
		Query: q,
		Tasks: BuildView(tasks, q),
		Stats: ComputeStats(tasks, v.now()),
	}
}
