package tools

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateName is returned by NewRegistry when two registrations share a name.
	ErrDuplicateName = errors.New("duplicate tool name")
	// ErrUnknownTool marks a call whose name is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	errCancelled = errors.New("cancelled")
)

// ArgumentError reports a payload that does not match the tool's parameters.
type ArgumentError struct {
	Tool     string
	Problems []string
	Err      error
}

func (e *ArgumentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid arguments for %s", e.Tool)
	switch {
	case len(e.Problems) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Problems, "; "))
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// HandlerError carries an error declared by the handler itself. Its message is
// what the model sees.
type HandlerError struct {
	Tool string
	Err  error
}

// NewHandlerError 包装处理器返回的错误。
func NewHandlerError(tool string, err error) *HandlerError {
	return &HandlerError{Tool: tool, Err: err}
}

// Errorf builds a HandlerError for use inside handlers. The returned value is
// never modified, so it is safe to keep in a package-level var.
func Errorf(format string, args ...any) error {
	return &HandlerError{Err: fmt.Errorf(format, args...)}
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return "handler failed"
	}
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error { return e.Err }

// FaultError is an unexpected failure while running a handler: a panic or a
// result that could not be encoded.
type FaultError struct {
	Tool  string
	Value any
	Stack string
	Err   error
}

func (e *FaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %s panicked: %v", e.Tool, e.Value)
}

func (e *FaultError) Unwrap() error { return e.Err }

func classify(err error) FailureKind {
	var (
		argErr   *ArgumentError
		faultErr *FaultError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.As(err, &argErr):
		return KindInvalidArgument
	case errors.As(err, &faultErr):
		return KindFault
	default:
		return KindHandlerError
	}
}
