package execution

import (
	"errors"
	"fmt"
)

// Turn stages reported by stageError.
const (
	StageSend     = "send"
	StageExtract  = "extract"
	StageDispatch = "dispatch"
	StageRounds   = "rounds"
)

// stageError wraps an underlying error with a stable stage identifier so
// callers can tell which part of a turn failed.
type stageError struct {
	Stage string
	Err   error
}

func (e stageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e stageError) Unwrap() error { return e.Err }

// StageOf returns the stage a Run error came from, or "" if err carries none.
func StageOf(err error) string {
	var se stageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
