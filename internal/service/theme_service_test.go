package service

import (
	"testing"

	"todo-list/internal/model"
	"todo-list/internal/storage"
)

func TestThemeDefaultsToSystem(t *testing.T) {
	ctx := testContext(t)
	svc := NewThemeService(ctx, newTestStore(t), model.ThemeDark)
	if svc.Current() != model.ThemeDark {
		t.Fatalf("expected system theme, got %s", svc.Current())
	}
	if svc.SystemChanged(model.ThemeLight) != model.ThemeLight {
		t.Fatalf("without a stored choice the system preference should be followed")
	}
}

func TestThemeToggleIsPersisted(t *testing.T) {
	ctx := testContext(t)
	store := newTestStore(t)
	svc := NewThemeService(ctx, store, model.ThemeLight)

	if got := svc.Toggle(ctx); got != model.ThemeDark {
		t.Fatalf("expected dark, got %s", got)
	}
	if raw, _ := store.Raw(ctx, ThemeKey); raw != `"dark"` {
		t.Fatalf("expected JSON scalar, got %s", raw)
	}
	if svc.SystemChanged(model.ThemeLight) != model.ThemeDark {
		t.Fatalf("a stored choice must win over the system preference")
	}

	reloaded := NewThemeService(ctx, store, model.ThemeLight)
	if reloaded.Current() != model.ThemeDark {
		t.Fatalf("expected stored theme after reload, got %s", reloaded.Current())
	}
}

func TestThemeResetToSystem(t *testing.T) {
	ctx := testContext(t)
	store := newTestStore(t)
	svc := NewThemeService(ctx, store, model.ThemeLight)
	svc.Set(ctx, model.ThemeDark)

	if got := svc.ResetToSystem(ctx); got != model.ThemeLight {
		t.Fatalf("expected system theme, got %s", got)
	}
	if _, ok := store.Raw(ctx, ThemeKey); ok {
		t.Fatalf("reset must remove the stored theme")
	}
}

func TestThemeIgnoresInvalidStoredValue(t *testing.T) {
	ctx := testContext(t)
	store := newTestStore(t)
	storage.Set(ctx, store, ThemeKey, "sepia")

	svc := NewThemeService(ctx, store, model.ThemeLight)
	if svc.Current() != model.ThemeLight {
		t.Fatalf("expected fallback theme, got %s", svc.Current())
	}
}
