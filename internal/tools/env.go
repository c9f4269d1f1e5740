package tools

import (
	"toolbridge/internal/logger"
)

// Env is the session-scoped state shared by reference with every handler in a
// batch. Handlers run concurrently and must treat it as read-only.
type Env struct {
	SessionID string
	Workdir   string
	Log       *logger.LogEntry
}

// Logger returns the env's log entry, falling back to the tools log.
func (e *Env) Logger() *logger.LogEntry {
	if e != nil && e.Log != nil {
		return e.Log
	}
	ensureToolsLogger()
	return currentToolsLog()
}

func (e *Env) workdir() string {
	if e == nil || e.Workdir == "" {
		return "."
	}
	return e.Workdir
}
