package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"toolbridge/internal/agent"
	"toolbridge/internal/schema"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 1024
)

type Options struct {
	Token      string
	BaseURL    string
	Model      string
	MaxRetries int
}

type Client struct {
	api   *anthropic.Client
	model string
}

var _ agent.ModelClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("missing token")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if base := agent.NormalizeBaseURL(opts.BaseURL, ""); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base+"/"))
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{
		api:   &client,
		model: strings.TrimSpace(opts.Model),
	}, nil
}

func (c *Client) resolveModel(m string) anthropic.Model {
	if strings.TrimSpace(m) != "" {
		return anthropic.Model(strings.TrimSpace(m))
	}
	return anthropic.Model(c.model)
}

// Send issues one Messages request. Text blocks are concatenated into the
// message content and tool_use blocks become ToolUses in order. A reply with
// no content blocks is an empty assistant message.
func (c *Client) Send(ctx context.Context, prompt agent.Prompt) (agent.Response, error) {
	params := buildMessageParams(prompt, c.resolveModel(prompt.Model))
	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return agent.Response{}, wrapHTTPError(err)
	}
	if msg == nil {
		return agent.Response{}, agent.ErrNoChoices
	}

	out := agent.Message{Role: agent.RoleAssistant}
	var text strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			input := json.RawMessage(strings.TrimSpace(string(v.Input)))
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out.ToolUses = append(out.ToolUses, agent.ToolUse{ID: v.ID, Name: v.Name, Input: input})
		}
	}
	out.Content = strings.TrimSpace(text.String())
	return agent.Response{
		Message:      out,
		FinishReason: string(msg.StopReason),
		Usage: agent.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

func buildMessageParams(prompt agent.Prompt, model anthropic.Model) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) == 0 {
			return
		}
		messages = append(messages, anthropic.NewUserMessage(pendingResults...))
		pendingResults = nil
	}

	for _, msg := range prompt.Messages {
		if msg.Role == agent.RoleTool {
			if msg.ToolResult != nil {
				res := msg.ToolResult
				pendingResults = append(pendingResults, anthropic.NewToolResultBlock(res.ToolUseID, res.Content, res.IsError))
			}
			continue
		}
		flushResults()

		text := strings.TrimSpace(msg.Content)
		switch msg.Role {
		case agent.RoleSystem:
			if text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case agent.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolUses)+1)
			if text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, use := range msg.ToolUses {
				blocks = append(blocks, anthropic.NewToolUseBlock(use.ID, toolInput(use.Input), use.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			if text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}
	flushResults()

	maxTokens := int64(defaultMaxTokens)
	if prompt.MaxTokens > 0 {
		maxTokens = int64(prompt.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(prompt.Tools) > 0 {
		params.Tools = toTools(prompt.Tools)
	}
	return params
}

// toolInput returns the stored input when it is a JSON object, else {}.
func toolInput(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || !json.Valid([]byte(trimmed)) || !strings.HasPrefix(trimmed, "{") {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}

func toTools(specs []schema.Descriptor) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		tool := anthropic.ToolParam{
			Name:        name,
			InputSchema: toInputSchema(spec.Parameters),
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			tool.Description = anthropic.String(desc)
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func toInputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	in := anthropic.ToolInputSchemaParam{}
	if props, ok := params["properties"]; ok {
		in.Properties = props
	} else {
		in.Properties = map[string]any{}
	}
	switch req := params["required"].(type) {
	case []string:
		in.Required = req
	case []any:
		for _, v := range req {
			if s, ok := v.(string); ok {
				in.Required = append(in.Required, s)
			}
		}
	}
	extra := map[string]any{}
	for k, v := range params {
		switch k {
		case "type", "properties", "required":
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		in.ExtraFields = extra
	}
	return in
}

func wrapHTTPError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		detail := strings.TrimSpace(apiErr.RawJSON())
		if detail == "" {
			detail = strings.TrimSpace(string(apiErr.DumpResponse(true)))
		}
		if detail == "" {
			detail = err.Error()
		}
		return &agent.TransportError{Provider: providerName, StatusCode: apiErr.StatusCode, Err: errors.New(detail)}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &agent.TransportError{Provider: providerName, Err: fmt.Errorf("request failed: %w", err)}
}
