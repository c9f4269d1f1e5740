package execution

import "toolbridge/internal/logger"

// log 复用全局 logger。
var log = logger.Named("engine")

func logRunError(sessionID, stage string, err error, fields logger.Fields) {
	if err == nil {
		return
	}
	if fields == nil {
		fields = logger.Fields{}
	}
	if stage != "" {
		fields["stage"] = stage
	}
	entry := log.WithError(err).WithFields(fields)
	if sessionID != "" {
		entry = entry.WithField("session", sessionID)
	}
	entry.Errorf("turn %s error", stage)
}
