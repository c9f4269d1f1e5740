// Package conversation converts between model messages and dispatcher calls.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"toolbridge/internal/agent"
	"toolbridge/internal/tools"
)

// ErrMalformedBatch marks a call batch that cannot be dispatched at all. It is
// the only extraction failure that aborts a turn.
var ErrMalformedBatch = errors.New("malformed tool call batch")

// UserMessage builds the initial user message of a turn.
func UserMessage(text string) agent.Message {
	return agent.Message{Role: agent.RoleUser, Content: text}
}

// SystemMessage builds a system instruction message.
func SystemMessage(text string) agent.Message {
	return agent.Message{Role: agent.RoleSystem, Content: text}
}

// ToolCallsMessage is the assistant message announcing the calls it issued.
// It must precede the response messages in the conversation.
func ToolCallsMessage(content string, calls []tools.ToolCall) agent.Message {
	uses := make([]agent.ToolUse, 0, len(calls))
	for _, call := range calls {
		uses = append(uses, agent.ToolUse{ID: call.ID, Name: call.Name, Input: call.Payload})
	}
	return agent.Message{Role: agent.RoleAssistant, Content: content, ToolUses: uses}
}

// ExtractCalls returns the call requests carried by resp, in order. An empty
// result means the turn ends normally. A missing or repeated id makes the
// batch uncorrelatable and yields ErrMalformedBatch. Names are not checked
// here: an empty or unregistered name fails per call as an unknown tool, and
// bad arguments fail per call too.
func ExtractCalls(resp agent.Response) ([]tools.ToolCall, error) {
	uses := resp.Message.ToolUses
	if len(uses) == 0 {
		return nil, nil
	}
	calls := make([]tools.ToolCall, 0, len(uses))
	seen := make(map[string]struct{}, len(uses))
	for i, use := range uses {
		id := strings.TrimSpace(use.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: call #%d has no id", ErrMalformedBatch, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate call id %s", ErrMalformedBatch, id)
		}
		seen[id] = struct{}{}
		calls = append(calls, tools.ToolCall{ID: id, Name: strings.TrimSpace(use.Name), Payload: use.Input})
	}
	return calls, nil
}

// ToResponseMessages returns one tool message per result, tagged with the
// result's correlation id, in result order.
func ToResponseMessages(results []tools.ToolResult) []agent.Message {
	out := make([]agent.Message, 0, len(results))
	for _, res := range results {
		content, isError := ResponseContent(res)
		out = append(out, agent.Message{
			Role: agent.RoleTool,
			ToolResult: &agent.ToolResult{
				ToolUseID: res.ID,
				Content:   content,
				IsError:   isError,
			},
		})
	}
	return out
}

type failureContent struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// ResponseContent serializes a result for the model. Success carries the
// handler's payload verbatim; failure carries
// {"error": "<description>", "error_kind": "<kind>"}.
func ResponseContent(res tools.ToolResult) (string, bool) {
	if res.OK() {
		if len(res.Output) == 0 {
			return "null", false
		}
		return string(res.Output), false
	}
	kind := res.Kind
	if kind == tools.KindNone {
		kind = tools.KindFault
	}
	msg := res.Error
	if msg == "" {
		msg = string(kind)
	}
	raw, err := json.Marshal(failureContent{Error: msg, ErrorKind: string(kind)})
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, msg), true
	}
	return string(raw), true
}
