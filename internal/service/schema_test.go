package service

import "testing"

func TestValidateTasks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		valid   bool
	}{
		{"empty array", `[]`, true},
		{"full task", `[{"id":"a","text":"x","completed":false,"createdAt":"2026-10-15T09:00:00Z","updatedAt":"2026-10-15T09:01:00.123Z","priority":"high","category":"work","dueDate":"2026-10-20"}]`, true},
		{"not an array", `{"id":"a"}`, false},
		{"blank text", `[{"id":"a","text":"   ","completed":false,"createdAt":"2026-10-15T09:00:00Z"}]`, false},
		{"padded text", `[{"id":"a","text":"  x ","completed":false,"createdAt":"2026-10-15T09:00:00Z"}]`, true},
		{"missing text", `[{"id":"a","completed":false,"createdAt":"2026-10-15T09:00:00Z"}]`, false},
		{"bad priority", `[{"id":"a","text":"x","completed":false,"createdAt":"2026-10-15T09:00:00Z","priority":"urgent"}]`, false},
		{"bad timestamp", `[{"id":"a","text":"x","completed":false,"createdAt":"yesterday"}]`, false},
		{"broken json", `[{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTasks([]byte(tt.payload))
			if tt.valid && err != nil {
				t.Fatalf("expected valid payload, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDecodeTasksDefaultsPriority(t *testing.T) {
	tasks, err := DecodeTasks([]byte(`[{"id":"a","text":"x","completed":false,"createdAt":"2026-10-15T09:00:00Z"}]`))
	if err != nil {
		t.Fatalf("DecodeTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Priority != "medium" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}
