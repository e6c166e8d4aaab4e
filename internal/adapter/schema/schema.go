// Package schema contains the default [domain.Schema] implementation.
package schema

import (
	"maps"
	"slices"
	"sync"

	"github.com/kolypto/missymongo/domain"
)

// Schema implements domain.Schema.
type Schema struct {
	mu       sync.RWMutex
	handlers map[string]domain.TypeHandler
}

// NewSchema returns a new implementation of domain.Schema.
func NewSchema() domain.Schema {
	return &Schema{
		handlers: make(map[string]domain.TypeHandler),
	}
}

// RegisterType implements domain.Schema.
func (s *Schema) RegisterType(name string, handler domain.TypeHandler) error {
	if name == "" || handler == nil {
		return &domain.ErrInvalidTypeHandler{Name: name}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
	return nil
}

// Type implements domain.Schema.
func (s *Schema) Type(name string) (domain.TypeHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[name]
	return h, ok
}

// Types implements domain.Schema.
func (s *Schema) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.handlers))
}
