package agent

import (
	"context"
	"errors"
	"fmt"

	"toolbridge/internal/logger"
)

// ModelClient 定义模型客户端接口
type ModelClient interface {
	Send(ctx context.Context, prompt Prompt) (Response, error)
}

// EchoClient is a fallback when no API key is available. It never issues tool
// calls.
type EchoClient struct {
	Prefix string
}

func (c EchoClient) Send(ctx context.Context, prompt Prompt) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	for i := len(prompt.Messages) - 1; i >= 0; i-- {
		msg := prompt.Messages[i]
		if msg.Role == RoleUser {
			return Response{
				Message:      Message{Role: RoleAssistant, Content: c.Prefix + msg.Content},
				FinishReason: "stop",
			}, nil
		}
	}
	return Response{}, errors.New("no messages to echo")
}

// ToLLMMessages 将内部消息转换为日志友好的结构。
func ToLLMMessages(msgs []Message) []logger.LLMMessage {
	out := make([]logger.LLMMessage, 0, len(msgs))
	for _, msg := range msgs {
		entry := logger.LLMMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		entry.Calls = CallSummary(msg.ToolUses)
		if msg.ToolResult != nil {
			entry.CallID = msg.ToolResult.ToolUseID
			entry.Content = msg.ToolResult.Content
		}
		out = append(out, entry)
	}
	return out
}

// CallSummary renders tool uses as "id:name" for logs.
func CallSummary(uses []ToolUse) []string {
	if len(uses) == 0 {
		return nil
	}
	out := make([]string, 0, len(uses))
	for _, use := range uses {
		out = append(out, fmt.Sprintf("%s:%s", use.ID, use.Name))
	}
	return out
}
