package agent

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolUse is one call issued by the assistant.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResult answers the ToolUse with the same ID.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is a provider-neutral conversation entry. Assistant messages may
// carry ToolUses; tool messages carry exactly one ToolResult.
type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolUses   []ToolUse   `json:"tool_uses,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}
