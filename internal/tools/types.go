package tools

import (
	"encoding/json"
	"time"
)

// ToolCall is one call request issued by the model. Name and Payload are
// untrusted.
type ToolCall struct {
	ID      string
	Name    string
	Payload json.RawMessage
}

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// FailureKind classifies a failed call.
type FailureKind string

const (
	KindNone            FailureKind = ""
	KindUnknownTool     FailureKind = "unknown_tool"
	KindInvalidArgument FailureKind = "invalid_arguments"
	KindHandlerError    FailureKind = "handler_error"
	KindFault           FailureKind = "fault"
	KindTimeout         FailureKind = "timeout"
	KindCancelled       FailureKind = "cancelled"
)

// ToolResult is the outcome of one ToolCall. ID always equals the request's ID.
// Output is set on success, Error and Kind on failure.
type ToolResult struct {
	ID       string
	Name     string
	Status   string // started|completed|error
	Output   json.RawMessage
	Error    string
	Kind     FailureKind
	Duration time.Duration
}

func (r ToolResult) OK() bool { return r.Status == StatusCompleted }

const (
	EventStarted   = "item.started"
	EventCompleted = "item.completed"
)

type ToolEvent struct {
	Type   string // item.started|item.completed
	Result ToolResult
}

func success(call ToolCall, output json.RawMessage) ToolResult {
	if len(output) == 0 {
		output = json.RawMessage("null")
	}
	return ToolResult{ID: call.ID, Name: call.Name, Status: StatusCompleted, Output: output}
}

func failure(call ToolCall, kind FailureKind, err error) ToolResult {
	msg := string(kind)
	if err != nil {
		msg = err.Error()
	}
	return ToolResult{ID: call.ID, Name: call.Name, Status: StatusError, Error: msg, Kind: kind}
}
