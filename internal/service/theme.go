package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
)

// ThemeService holds the light/dark preference. Storage failures never
// surface to callers; the in-memory value stays authoritative.
type ThemeService struct {
	store  KeyValueStore
	system domain.ThemePreference

	mu   sync.RWMutex
	pref domain.ThemePreference
}

func NewThemeService(store KeyValueStore, system domain.ThemePreference) *ThemeService {
	return &ThemeService{store: store, system: system, pref: system}
}

// Load applies the persisted preference, falling back to the system one.
func (s *ThemeService) Load(ctx context.Context) domain.ThemePreference {
	v, ok, err := s.store.Get(ctx, config.KeyTheme)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		slog.Error("load theme", "error", err)
	case ok:
		s.pref = domain.ParseTheme(v)
	default:
		s.pref = s.system
	}
	return s.pref
}

func (s *ThemeService) Preference() domain.ThemePreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pref
}

func (s *ThemeService) IsDark() bool {
	return s.Preference() == domain.ThemeDark
}

func (s *ThemeService) Palette() domain.Palette {
	return domain.PaletteFor(s.Preference())
}

func (s *ThemeService) Set(ctx context.Context, pref domain.ThemePreference) {
	s.mu.Lock()
	s.pref = pref
	s.mu.Unlock()

	if err := s.store.Set(ctx, config.KeyTheme, string(pref)); err != nil {
		slog.Error("save theme", "theme", pref, "error", err)
	}
}

func (s *ThemeService) Toggle(ctx context.Context) domain.ThemePreference {
	s.mu.Lock()
	next := domain.ThemeDark
	if s.pref == domain.ThemeDark {
		next = domain.ThemeLight
	}
	s.pref = next
	s.mu.Unlock()

	if err := s.store.Set(ctx, config.KeyTheme, string(next)); err != nil {
		slog.Error("save theme", "theme", next, "error", err)
	}
	return next
}
