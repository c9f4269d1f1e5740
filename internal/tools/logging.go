package tools

import (
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"toolbridge/internal/logger"
)

// DefaultToolsLogPath 工具调用日志的默认路径。
const DefaultToolsLogPath = "logs/tools.log"

// payloadPreviewWidth bounds payload and error text in the tools log.
const payloadPreviewWidth = 240

var (
	toolsLog           = logger.Named("tools")
	toolsLogConfigured bool
	toolsLogMu         sync.Mutex
	toolsLogCloser     io.Closer
	toolsLogPath       string
)

// SetupToolsLog 配置工具调用专用日志，返回文件 closer 及实际路径。
// 若 logPath 为空，则使用 DefaultToolsLogPath。
// 多次调用只会在首次生效。
func SetupToolsLog(logPath string) (io.Closer, string, error) {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()

	if toolsLogConfigured {
		return toolsLogCloser, toolsLogPath, nil
	}
	if logPath == "" {
		logPath = DefaultToolsLogPath
	}

	entry, closer, resolved, err := logger.SetupComponentFile("tools", logPath)
	toolsLogConfigured = true
	toolsLogPath = resolved
	if err != nil {
		return nil, resolved, err
	}
	if entry != nil {
		toolsLog = entry
	}
	toolsLogCloser = closer
	return closer, resolved, nil
}

func ensureToolsLogger() {
	toolsLogMu.Lock()
	configured := toolsLogConfigured
	toolsLogMu.Unlock()
	if configured {
		return
	}
	if _, _, err := SetupToolsLog(DefaultToolsLogPath); err != nil {
		logger.Named("tools").Warnf("failed to initialize tools log (%s): %v", DefaultToolsLogPath, err)
	}
}

func currentToolsLog() *logger.LogEntry {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()
	return toolsLog
}

// CloseToolsLog 关闭工具日志文件句柄（如已初始化）。
func CloseToolsLog() {
	toolsLogMu.Lock()
	defer toolsLogMu.Unlock()
	if toolsLogCloser != nil {
		_ = toolsLogCloser.Close()
		toolsLogCloser = nil
	}
}

func logToolRequest(env *Env, call ToolCall, recognized bool, suggestion string) {
	ensureToolsLogger()

	status := "received"
	if !recognized {
		status = "unknown"
	}
	line := currentToolsLog()
	if env != nil && env.SessionID != "" {
		line = line.WithField("session", env.SessionID)
	}
	if suggestion != "" {
		line.Infof("tool_call id=%s name=%s status=%s workdir=%s suggest=%s payload=%s",
			call.ID, call.Name, status, env.workdir(), suggestion, previewForLog(call.Payload))
		return
	}
	line.Infof("tool_call id=%s name=%s status=%s workdir=%s payload=%s",
		call.ID, call.Name, status, env.workdir(), previewForLog(call.Payload))
}

func logToolResult(env *Env, call ToolCall, result ToolResult) {
	ensureToolsLogger()

	kind := string(result.Kind)
	if kind == "" {
		kind = "-"
	}
	line := currentToolsLog()
	if env != nil && env.SessionID != "" {
		line = line.WithField("session", env.SessionID)
	}
	line.Infof("tool_result id=%s name=%s status=%s kind=%s duration_ms=%d error=%s output=%s",
		call.ID, call.Name, result.Status, kind, result.Duration.Milliseconds(),
		previewForLog([]byte(result.Error)), previewForLog(result.Output))
}

func previewForLog(raw []byte) string {
	return runewidth.Truncate(sanitizeForLog(raw), payloadPreviewWidth, "...")
}

func sanitizeForLog(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "(empty)"
	}
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}
