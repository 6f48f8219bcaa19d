package config

import "sync"

// Store guards a Config shared between the tray, the hotkey and the API.
// Readers get copies; writers go through Update.
type Store struct {
	mu     sync.RWMutex
	config *Config
	path   string
}

// NewStore wraps cfg. Updates are saved to path unless it is empty.
func NewStore(cfg *Config, path string) *Store {
	return &Store{config: cfg.Clone(), path: path}
}

// Snapshot returns a copy of the current configuration
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// Update applies fn to the configuration and saves the result
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.config)
	if s.path == "" {
		return nil
	}
	return s.config.Save(s.path)
}
