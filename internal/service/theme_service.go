package service

import (
	"context"
	"sync"

	"todo-list/internal/model"
	"todo-list/internal/storage"
)

// ThemeKey is the storage key holding the theme preference.
const ThemeKey = "app-theme"

// ThemeService tracks the theme. A stored choice wins over the system
// default until ResetToSystem removes it.
type ThemeService struct {
	store *storage.Store

	mu      sync.Mutex
	system  model.Theme
	current model.Theme
	manual  bool
}

// NewThemeService loads the stored theme, falling back to system.
func NewThemeService(ctx context.Context, store *storage.Store, system model.Theme) *ThemeService {
	if system == "" {
		system = model.ThemeLight
	}
	s := &ThemeService{store: store, system: system, current: system}
	if raw := storage.GetOr(ctx, store, ThemeKey, ""); raw != "" {
		if theme, err := model.ParseTheme(raw); err == nil {
			s.current = theme
			s.manual = true
		}
	}
	return s
}

func (s *ThemeService) Current() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set stores an explicit choice.
func (s *ThemeService) Set(ctx context.Context, theme model.Theme) bool {
	s.mu.Lock()
	s.current = theme
	s.manual = true
	s.mu.Unlock()
	return storage.Set(ctx, s.store, ThemeKey, string(theme))
}

// Toggle switches to the other theme and returns it.
func (s *ThemeService) Toggle(ctx context.Context) model.Theme {
	next := s.Current().Opposite()
	s.Set(ctx, next)
	return next
}

// SystemChanged records a new system preference and follows it unless a
// choice was stored.
func (s *ThemeService) SystemChanged(theme model.Theme) model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = theme
	if !s.manual {
		s.current = theme
	}
	return s.current
}

// ResetToSystem forgets the stored choice.
func (s *ThemeService) ResetToSystem(ctx context.Context) model.Theme {
	s.store.Remove(ctx, ThemeKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = false
	s.current = s.system
	return s.current
}
