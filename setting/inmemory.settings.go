package setting

import (
	"context"
	"sync"
)

// NewInMemorySettings returns Settings that only live as long as the process.
// Ideal for tests and single instance deployments.
func NewInMemorySettings() *InMemorySettings {
	return &InMemorySettings{
		notifier: newNotifier(),
		mu:       sync.RWMutex{},
		data:     make(map[string]Value),
	}
}

var _ Settings = (*InMemorySettings)(nil)

type InMemorySettings struct {
	*notifier

	mu   sync.RWMutex
	data map[string]Value
}

func (s *InMemorySettings) Save(_ context.Context, key Key, value Value) error {
	s.mu.Lock()
	current, exists := s.data[key.Key()]
	s.data[key.Key()] = value
	s.mu.Unlock()

	if !exists || current.String() != value.String() {
		s.notify(key, value)
	}

	return nil
}

func (s *InMemorySettings) Setting(_ context.Context, key Key) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key.Key()]
	if !ok {
		return NewValue(nil), ErrNotFound
	}

	return value, nil
}

func (s *InMemorySettings) Settings(_ context.Context, keys []Key) (map[Key]Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make(map[Key]Value, len(keys))

	for _, k := range keys {
		if v, ok := s.data[k.Key()]; ok {
			settings[k] = v
		}
	}

	if len(settings) != len(keys) {
		return settings, ErrNotFound
	}

	return settings, nil
}

func (s *InMemorySettings) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key.Key())

	return nil
}
