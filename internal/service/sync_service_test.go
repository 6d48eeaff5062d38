package service

import (
	"testing"

	"todo-list/internal/storage"
)

func TestSyncAppliesTasksFromOtherStore(t *testing.T) {
	ctx := testContext(t)
	repo := newTestRepo(t)
	localStore := storage.NewWithRepository(repo, storage.Options{Origin: "tab-a"})
	remoteStore := storage.NewWithRepository(repo, storage.Options{Origin: "tab-b"})

	local, _ := newTestTaskService(t, localStore)
	remote, _ := newTestTaskService(t, remoteStore)
	local.Load(ctx)

	watcher := storage.NewWatcher(repo, localStore.Origin(), nil)
	if err := watcher.Prime(ctx); err != nil {
		t.Fatalf("prime: %v", err)
	}
	syncer := NewSyncService(local, nil)
	defer syncer.Attach(watcher)()

	remote.Create(ctx, TaskInput{Text: "from the other tab"})
	if _, err := watcher.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}

	tasks := local.Tasks()
	if len(tasks) != 1 || tasks[0].Text != "from the other tab" {
		t.Fatalf("expected synced task, got %+v", tasks)
	}

	local.Create(ctx, TaskInput{Text: "local write"})
	events, _ := watcher.Poll(ctx)
	if len(events) != 0 {
		t.Fatalf("own writes must not come back as events, got %d", len(events))
	}
	if len(local.Tasks()) != 2 {
		t.Fatalf("expected local state to keep both tasks")
	}
}

func TestSyncIgnoresMalformedPayloads(t *testing.T) {
	svc, _ := newTestTaskService(t, newTestStore(t))
	ctx := testContext(t)
	svc.Create(ctx, TaskInput{Text: "keep me"})
	syncer := NewSyncService(svc, nil)

	bad := "{oops"
	duplicate := `[{"id":"x","text":"A","completed":false,"createdAt":"2026-10-15T00:00:00Z"},` +
		`{"id":"x","text":"B","completed":false,"createdAt":"2026-10-15T00:01:00Z"}]`
	blank := `[{"id":"y","text":"   ","completed":false,"createdAt":"2026-10-15T00:00:00Z"}]`
	invalid := `[{"id":"1","text":"","completed":false,"createdAt":"2026-10-15T00:00:00Z"}]`
	cases := []storage.Event{
		{Key: TodosKey, NewValue: &bad},
		{Key: TodosKey, NewValue: &invalid},
		{Key: TodosKey, NewValue: &duplicate},
		{Key: TodosKey, NewValue: &blank},
		{Key: TodosKey, NewValue: nil},
		{Key: ThemeKey, NewValue: &bad},
	}
	for _, ev := range cases {
		if syncer.Handle(ev) {
			t.Fatalf("event %+v should have been ignored", ev)
		}
	}
	if tasks := svc.Tasks(); len(tasks) != 1 || tasks[0].Text != "keep me" {
		t.Fatalf("last known good state must be kept, got %+v", tasks)
	}
}

func TestSyncAcceptsNumericIDs(t *testing.T) {
	svc, _ := newTestTaskService(t, newTestStore(t))
	syncer := NewSyncService(svc, nil)

	payload := `[{"id":1697000000000,"text":"legacy","completed":true,"createdAt":"2023-10-11T05:33:20.000Z","priority":"low"}]`
	if !syncer.Handle(storage.Event{Key: TodosKey, NewValue: &payload}) {
		t.Fatalf("expected payload to be applied")
	}
	tasks := svc.Tasks()
	if len(tasks) != 1 || tasks[0].ID != "1697000000000" || !tasks[0].Completed {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}
