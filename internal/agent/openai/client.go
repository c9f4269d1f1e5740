package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"toolbridge/internal/agent"
	"toolbridge/internal/schema"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const providerName = "openai"

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

type Client struct {
	api   *openai.Client
	model string
}

// 确保Client实现了agent.ModelClient接口
var _ agent.ModelClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// Retries are driven by the execution engine.
		option.WithMaxRetries(opts.MaxRetries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(agent.NormalizeBaseURL(base, "v1")+"/"))
	}
	client := openai.NewClient(cfg...)

	return &Client{
		api:   &client,
		model: opts.Model,
	}, nil
}

func (c *Client) resolveModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

// Send issues one chat completion and returns the first choice.
func (c *Client) Send(ctx context.Context, prompt agent.Prompt) (agent.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.resolveModel(prompt.Model)),
		Messages: toChatMessages(prompt.Messages),
	}
	if len(prompt.Tools) > 0 {
		params.Tools = toChatTools(prompt.Tools)
		params.ParallelToolCalls = openai.Bool(prompt.ParallelToolCalls)
	}
	if prompt.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(prompt.MaxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.Response{}, wrapHTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return agent.Response{}, agent.ErrNoChoices
	}
	choice := resp.Choices[0]
	msg := agent.Message{
		Role:    agent.RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, call := range choice.Message.ToolCalls {
		msg.ToolUses = append(msg.ToolUses, agent.ToolUse{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: rawArguments(call.Function.Arguments),
		})
	}
	return agent.Response{
		Message:      msg,
		FinishReason: choice.FinishReason,
		Usage: agent.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// rawArguments keeps the model's argument string verbatim. Invalid JSON is
// passed through and reported per call by the dispatcher.
func rawArguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}
	return json.RawMessage(args)
}

func toChatMessages(msgs []agent.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case agent.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case agent.RoleAssistant:
			out = append(out, assistantMessage(msg))
		case agent.RoleTool:
			if msg.ToolResult == nil {
				continue
			}
			out = append(out, openai.ToolMessage(msg.ToolResult.Content, msg.ToolResult.ToolUseID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func assistantMessage(msg agent.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolUses) == 0 {
		return openai.AssistantMessage(msg.Content)
	}
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, use := range msg.ToolUses {
		args := strings.TrimSpace(string(use.Input))
		if args == "" {
			args = "{}"
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: use.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      use.Name,
					Arguments: args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toChatTools(specs []schema.Descriptor) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{
			Name:       name,
			Parameters: shared.FunctionParameters(spec.Parameters),
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			fn.Description = openai.String(desc)
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: fn,
			},
		})
	}
	return tools
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
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
