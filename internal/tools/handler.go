package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"toolbridge/internal/schema"
)

// Handler 是注册表中的一个条目：描述符加上参数解码步骤。
type Handler interface {
	Descriptor() schema.Descriptor
	// Prepare validates and decodes the raw payload. A non-nil error is an
	// *ArgumentError.
	Prepare(raw json.RawMessage) (Call, error)
}

// Call runs a prepared invocation and returns the encoded success payload.
type Call func(ctx context.Context, env *Env) (json.RawMessage, error)

// TypedFunc is the shape of a strongly typed tool implementation.
type TypedFunc[P, R any] func(ctx context.Context, env *Env, params P) (R, error)

// Registration is one entry passed to NewRegistry. Build errors are deferred so
// that registrations can be listed as plain values.
type Registration struct {
	name    string
	handler Handler
	err     error
}

func (r Registration) Name() string { return r.name }

// Func registers a typed function. The descriptor is derived from P; when name
// or description are empty and P implements schema.Documented, P supplies them.
func Func[P, R any](name, description string, fn TypedFunc[P, R]) Registration {
	h, err := NewTyped(name, description, fn)
	if err != nil {
		return Registration{name: name, err: err}
	}
	return Registration{name: h.Descriptor().Name, handler: h}
}

// Static registers a hand-written Handler.
func Static(h Handler) Registration {
	if h == nil {
		return Registration{err: errors.New("nil handler")}
	}
	return Registration{name: h.Descriptor().Name, handler: h}
}

// NewTyped builds a Handler around fn with argument validation against the
// generated schema.
func NewTyped[P, R any](name, description string, fn TypedFunc[P, R]) (Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("tool %q: nil function", name)
	}
	desc, err := schema.DescribeType[P](name, description)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(desc.Parameters)
	if err != nil {
		return nil, &schema.SchemaError{Type: fmt.Sprintf("%T", *new(P)), Reason: err.Error()}
	}
	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &schema.SchemaError{Type: fmt.Sprintf("%T", *new(P)), Reason: "compile: " + err.Error()}
	}
	return &typedHandler[P, R]{desc: desc, validator: validator, fn: fn}, nil
}

type typedHandler[P, R any] struct {
	desc      schema.Descriptor
	validator *gojsonschema.Schema
	fn        TypedFunc[P, R]
}

func (h *typedHandler[P, R]) Descriptor() schema.Descriptor { return h.desc }

func (h *typedHandler[P, R]) Prepare(raw json.RawMessage) (Call, error) {
	name := h.desc.Name
	payload := normalizePayload(raw)
	if !json.Valid(payload) {
		return nil, &ArgumentError{Tool: name, Problems: []string{"arguments are not valid JSON"}}
	}

	res, err := h.validator.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &ArgumentError{Tool: name, Problems: problems}
	}

	var params P
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}

	return func(ctx context.Context, env *Env) (json.RawMessage, error) {
		out, err := h.fn(ctx, env, params)
		if err != nil {
			return nil, wrapHandlerError(name, err)
		}
		encoded, err := json.Marshal(out)
		if err != nil {
			return nil, &FaultError{Tool: name, Err: fmt.Errorf("encode result: %w", err)}
		}
		return encoded, nil
	}, nil
}

// normalizePayload maps an absent or null payload to an empty object.
func normalizePayload(raw json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("{}")
	}
	return trimmed
}

func wrapHandlerError(tool string, err error) error {
	var he *HandlerError
	if errors.As(err, &he) {
		if he.Tool != "" {
			return err
		}
		// Handlers may share a package-level error; wrap it instead of
		// stamping the tool name into it.
		return NewHandlerError(tool, err)
	}
	// Context errors keep their identity so the dispatcher can tell a timeout
	// from a handler-declared failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return NewHandlerError(tool, err)
}
