package logger

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LLMMessage 表示一次请求中的对话消息。
type LLMMessage struct {
	Role    string
	Content string
	// Calls lists "id:name" for assistant messages that issued tool calls.
	Calls []string
	// CallID is set on tool response messages.
	CallID string
}

// LLMLogger 负责输出与 LLM 交互的请求、响应与错误信息。
type LLMLogger interface {
	Request(model string, messages []LLMMessage, tools int, attempt int)
	Response(model string, content string, calls []string, attempt int)
	Error(model string, err error, attempt int)
}

// LLMLog 是全局唯一的 LLM 日志器实例。
var LLMLog LLMLogger = NewLLMLogger(nil)

// SetGlobalLLMLogger 覆盖全局 LLM 日志实例，传入 nil 将重置为默认实现。
func SetGlobalLLMLogger(logger LLMLogger) {
	if logger == nil {
		logger = NewLLMLogger(nil)
	}
	LLMLog = logger
}

// StdLLMLogger 使用 logrus 输出日志。
type StdLLMLogger struct {
	logger *logrus.Entry
}

// NewLLMLogger 构造默认的 LLM 日志记录器。
func NewLLMLogger(l *Logger) *StdLLMLogger {
	if l == nil {
		l = root()
	}
	return &StdLLMLogger{logger: logrus.NewEntry(l).WithField("component", "llm")}
}

// NewLLMLoggerFromEntry wraps an existing entry, typically one returned by
// SetupComponentFile.
func NewLLMLoggerFromEntry(entry *LogEntry) *StdLLMLogger {
	if entry == nil {
		return NewLLMLogger(nil)
	}
	return &StdLLMLogger{logger: entry}
}

// Request 记录一次请求的上下文。
func (l *StdLLMLogger) Request(model string, messages []LLMMessage, tools int, attempt int) {
	l.printf(logrus.InfoLevel, "-> request attempt=%d model=%s messages=%d tools=%d", attempt, model, len(messages), tools)
	for i, msg := range messages {
		switch {
		case len(msg.Calls) > 0:
			l.printf(logrus.DebugLevel, "-> message[%d] role=%s calls=%s content=%s", i, msg.Role, strings.Join(msg.Calls, ","), sanitize(msg.Content))
		case msg.CallID != "":
			l.printf(logrus.DebugLevel, "-> message[%d] role=%s call_id=%s content=%s", i, msg.Role, msg.CallID, sanitize(msg.Content))
		default:
			l.printf(logrus.DebugLevel, "-> message[%d] role=%s content=%s", i, msg.Role, sanitize(msg.Content))
		}
	}
}

// Response 记录一次非流式响应。
func (l *StdLLMLogger) Response(model string, content string, calls []string, attempt int) {
	if len(calls) > 0 {
		l.printf(logrus.InfoLevel, "<- response attempt=%d model=%s calls=%s text=%s", attempt, model, strings.Join(calls, ","), sanitize(content))
		return
	}
	l.printf(logrus.InfoLevel, "<- response attempt=%d model=%s text=%s", attempt, model, sanitize(content))
}

// Error 记录请求错误。
func (l *StdLLMLogger) Error(model string, err error, attempt int) {
	l.printf(logrus.ErrorLevel, "!! error attempt=%d model=%s err=%v", attempt, model, err)
}

// NoopLLMLogger 忽略所有日志输出。
type NoopLLMLogger struct{}

func (NoopLLMLogger) Request(string, []LLMMessage, int, int)  {}
func (NoopLLMLogger) Response(string, string, []string, int) {}
func (NoopLLMLogger) Error(string, error, int)               {}

func (l *StdLLMLogger) printf(level logrus.Level, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Logger.IsLevelEnabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	entry := l.logger
	if caller := findCaller(); caller != "" {
		entry = entry.WithField("caller", caller)
	}
	entry.Log(level, msg)
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}

func findCaller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !strings.Contains(frame.File, "logger/llm.go") {
			return fmt.Sprintf("%s:%d", shortenFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return ""
}
