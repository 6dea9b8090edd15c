package recall

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	DefaultWindowSize    = 2
	DefaultWindowMinutes = 20
)

// Settings bound how many players may be recalled at once and for how long a
// recall holds its slot. Non-positive values are legal: a size <= 0 admits
// nobody and minutes <= 0 expires every recall immediately.
type Settings struct {
	WindowSize    int  `json:"window_size"`
	WindowMinutes int  `json:"window_minutes"`
	Disabled      bool `json:"disabled"`
}

func DefaultSettings() Settings {
	return Settings{
		WindowSize:    DefaultWindowSize,
		WindowMinutes: DefaultWindowMinutes,
	}
}

func (s Settings) Window() time.Duration {
	return time.Duration(s.WindowMinutes) * time.Minute
}

// SettingsStore holds the live settings. Readers always see a complete value.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

func NewSettingsStore(initial Settings) *SettingsStore {
	s := &SettingsStore{}
	s.Set(initial)
	return s
}

func (s *SettingsStore) Get() Settings {
	if v := s.current.Load(); v != nil {
		return *v
	}
	return DefaultSettings()
}

func (s *SettingsStore) Set(next Settings) {
	v := next
	s.current.Store(&v)
}

// RecallSettings satisfies readers that take a context, such as the scheduler.
func (s *SettingsStore) RecallSettings(context.Context) Settings {
	return s.Get()
}
