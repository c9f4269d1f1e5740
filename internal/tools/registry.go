package tools

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"toolbridge/internal/schema"
)

// Registry maps tool names to handlers. It is built once and is read-only
// afterwards, so it can be shared by concurrent dispatches.
type Registry struct {
	handlers    map[string]Handler
	names       []string
	descriptors []schema.Descriptor
}

// NewRegistry builds the table in registration order. Duplicate names
// (ErrDuplicateName) and descriptor build failures (*schema.SchemaError) are
// fatal.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(regs))}
	for i, reg := range regs {
		if reg.err != nil {
			return nil, fmt.Errorf("register tool %q: %w", reg.name, reg.err)
		}
		if reg.handler == nil {
			return nil, fmt.Errorf("register tool #%d: nil handler", i)
		}
		desc := reg.handler.Descriptor()
		name := strings.TrimSpace(desc.Name)
		if name == "" {
			return nil, fmt.Errorf("register tool #%d: %w", i, schema.ErrMissingName)
		}
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		r.handlers[name] = reg.handler
		r.names = append(r.names, name)
		r.descriptors = append(r.descriptors, desc)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on error.
func MustRegistry(regs ...Registration) *Registry {
	r, err := NewRegistry(regs...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Resolve(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Descriptors returns the capability list in registration order.
func (r *Registry) Descriptors() []schema.Descriptor {
	if r == nil {
		return nil
	}
	out := make([]schema.Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Suggest returns the registered name closest to name, or "" when nothing
// matches.
func (r *Registry) Suggest(name string) string {
	if r == nil || strings.TrimSpace(name) == "" {
		return ""
	}
	matches := fuzzy.Find(name, r.names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
