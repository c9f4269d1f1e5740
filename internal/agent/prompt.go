package agent

import "toolbridge/internal/schema"

// Prompt 代表一次模型调用的完整请求，包括模型、消息与工具配置。
type Prompt struct {
	Model             string
	Messages          []Message
	Tools             []schema.Descriptor
	ParallelToolCalls bool
	MaxTokens         int
}

// Usage is the token accounting reported by the provider, when available.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the first choice of a model reply.
type Response struct {
	Message      Message
	FinishReason string
	Usage        Usage
}
