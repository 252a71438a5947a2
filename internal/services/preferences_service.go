package services

import (
	"context"
	"log/slog"
	"sync"

	"monthly/internal/storage"
)

const DefaultTheme = "light"

// Theme is a selectable color scheme.
type Theme struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Themes lists the available color schemes in display order.
var Themes = []Theme{
	{Key: "light", Name: "Light"},
	{Key: "dark", Name: "Dark"},
	{Key: "midnight", Name: "Midnight"},
	{Key: "sunset", Name: "Sunset"},
	{Key: "mint", Name: "Mint"},
	{Key: "luxe", Name: "Luxe"},
}

func IsTheme(key string) bool {
	for _, t := range Themes {
		if t.Key == key {
			return true
		}
	}
	return false
}

// PreferencesService holds the selected theme.
type PreferencesService struct {
	mu     sync.Mutex
	store  storage.PreferenceStore
	logger *slog.Logger
	theme  string
}

func NewPreferencesService(ctx context.Context, store storage.PreferenceStore, opts ...Option) *PreferencesService {
	o := buildOptions(opts)
	s := &PreferencesService{store: store, logger: o.logger, theme: DefaultTheme}

	stored, ok, err := store.GetPreference(ctx, storage.ThemeKey)
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to load theme", "error", err)
	case ok && IsTheme(stored):
		s.theme = stored
	case ok:
		s.logger.WarnContext(ctx, "Unknown stored theme, using default", "theme", stored)
	}
	return s
}

func (s *PreferencesService) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// ChangeTheme switches to theme and persists it. Unknown names and the
// current theme are ignored.
func (s *PreferencesService) ChangeTheme(ctx context.Context, theme string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !IsTheme(theme) || theme == s.theme {
		return false
	}
	s.theme = theme
	if err := s.store.SetPreference(ctx, storage.ThemeKey, theme); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save theme", "error", err, "theme", theme)
	}
	return true
}
