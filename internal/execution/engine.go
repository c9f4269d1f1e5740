package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"toolbridge/internal/agent"
	"toolbridge/internal/conversation"
	"toolbridge/internal/logger"
	"toolbridge/internal/tools"
)

// ErrMaxRounds is returned when the model keeps issuing calls past MaxRounds.
var ErrMaxRounds = errors.New("tool round limit reached")

const (
	defaultMaxRounds      = 8
	defaultRequestTimeout = 2 * time.Minute
	defaultRetryDelay     = 500 * time.Millisecond
)

// Options 定义引擎的可注入依赖。
type Options struct {
	Client     agent.ModelClient
	Dispatcher *tools.Dispatcher
	Env        *tools.Env
	Model      string
	// System is prepended when a turn starts from an empty history.
	System         string
	MaxRounds      int
	Retries        int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	MaxTokens      int
	LLMLog         logger.LLMLogger
}

// Engine runs the model/tool loop for one conversation.
type Engine struct {
	client         agent.ModelClient
	dispatcher     *tools.Dispatcher
	env            *tools.Env
	model          string
	system         string
	maxRounds      int
	retries        int
	retryDelay     time.Duration
	requestTimeout time.Duration
	maxTokens      int
	llm            logger.LLMLogger
}

// TurnResult is the outcome of Run. Messages holds everything appended to the
// conversation during the turn, starting with the user message.
type TurnResult struct {
	Messages []agent.Message
	Final    string
	Rounds   int
	Calls    int
}

// NewEngine 构造一个新的执行引擎。
func NewEngine(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, errors.New("execution: model client is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("execution: dispatcher is required")
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	reqTimeout := opts.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = defaultRequestTimeout
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	llm := opts.LLMLog
	if llm == nil {
		llm = logger.LLMLog
	}
	env := opts.Env
	if env == nil {
		env = &tools.Env{}
	}
	return &Engine{
		client:         opts.Client,
		dispatcher:     opts.Dispatcher,
		env:            env,
		model:          strings.TrimSpace(opts.Model),
		system:         strings.TrimSpace(opts.System),
		maxRounds:      maxRounds,
		retries:        retries,
		retryDelay:     retryDelay,
		requestTimeout: reqTimeout,
		maxTokens:      opts.MaxTokens,
		llm:            llm,
	}, nil
}

// Run appends input to history and keeps exchanging messages with the model
// until it answers without tool calls. Per-call tool failures are fed back to
// the model; transport failures, malformed batches, the round limit and
// cancellation end the turn with an error. The partial TurnResult is returned
// in every case.
func (e *Engine) Run(ctx context.Context, history []agent.Message, input string) (TurnResult, error) {
	var res TurnResult
	convo := make([]agent.Message, 0, len(history)+4)
	convo = append(convo, history...)
	if len(history) == 0 && e.system != "" {
		sys := conversation.SystemMessage(e.system)
		convo = append(convo, sys)
		res.Messages = append(res.Messages, sys)
	}
	user := conversation.UserMessage(input)
	convo = append(convo, user)
	res.Messages = append(res.Messages, user)

	appendMsgs := func(msgs ...agent.Message) {
		convo = append(convo, msgs...)
		res.Messages = append(res.Messages, msgs...)
	}

	for round := 1; ; round++ {
		if round > e.maxRounds {
			err := stageError{Stage: StageRounds, Err: fmt.Errorf("%w (%d)", ErrMaxRounds, e.maxRounds)}
			logRunError(e.env.SessionID, StageRounds, err, logger.Fields{"rounds": e.maxRounds})
			return res, err
		}
		res.Rounds = round

		resp, err := e.send(ctx, e.prompt(convo))
		if err != nil {
			logRunError(e.env.SessionID, StageSend, err, logger.Fields{"round": round, "model": e.model})
			return res, stageError{Stage: StageSend, Err: err}
		}

		calls, err := conversation.ExtractCalls(resp)
		if err != nil {
			logRunError(e.env.SessionID, StageExtract, err, logger.Fields{"round": round})
			return res, stageError{Stage: StageExtract, Err: err}
		}
		if len(calls) == 0 {
			appendMsgs(resp.Message)
			res.Final = resp.Message.Content
			return res, nil
		}

		log.WithField("session", e.env.SessionID).Debugf("round=%d dispatching %d tool call(s)", round, len(calls))
		appendMsgs(conversation.ToolCallsMessage(resp.Message.Content, calls))
		results := e.dispatcher.Dispatch(ctx, e.env, calls)
		res.Calls += len(calls)
		appendMsgs(conversation.ToResponseMessages(results)...)

		if err := ctx.Err(); err != nil {
			logRunError(e.env.SessionID, StageDispatch, err, logger.Fields{"round": round})
			return res, stageError{Stage: StageDispatch, Err: err}
		}
	}
}

func (e *Engine) prompt(convo []agent.Message) agent.Prompt {
	return agent.Prompt{
		Model:             e.model,
		Messages:          convo,
		Tools:             e.dispatcher.Registry().Descriptors(),
		ParallelToolCalls: true,
		MaxTokens:         e.maxTokens,
	}
}

// send issues the request, retrying retryable transport failures with a
// linear backoff.
func (e *Engine) send(ctx context.Context, prompt agent.Prompt) (agent.Response, error) {
	messages := agent.ToLLMMessages(prompt.Messages)
	var lastErr error
	for attempt := 1; attempt <= e.retries+1; attempt++ {
		e.llm.Request(prompt.Model, messages, len(prompt.Tools), attempt)

		ctxRun, cancel := context.WithTimeout(ctx, e.requestTimeout)
		resp, err := e.client.Send(ctxRun, prompt)
		cancel()
		if err == nil {
			e.llm.Response(prompt.Model, resp.Message.Content, agent.CallSummary(resp.Message.ToolUses), attempt)
			return resp, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &agent.TransportError{Provider: "model", Err: fmt.Errorf("request timed out after %s: %w", e.requestTimeout, err)}
		}
		e.llm.Error(prompt.Model, err, attempt)
		lastErr = err

		if !agent.IsRetryable(err) || attempt > e.retries {
			break
		}
		select {
		case <-ctx.Done():
			return agent.Response{}, ctx.Err()
		case <-time.After(e.retryDelay * time.Duration(attempt)):
		}
	}
	return agent.Response{}, lastErr
}
