package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogBatch bounds the entries accepted per request.
const maxLogBatch = 200

// ShellLogEntry is one log line from the shell frontend.
type ShellLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TabID     string                 `json:"tab_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// ShellLogRequest is a batch of frontend log lines.
type ShellLogRequest struct {
	Source  string          `json:"source"`
	Entries []ShellLogEntry `json:"entries"`
}

var errEmptyLogMessage = errors.New("empty log message")

// StreamLogs forwards frontend log lines into the service log, so bridge
// and sandbox problems seen in the shell end up next to the fetch logs.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req ShellLogRequest
	if !bindJSON(c, &req, h.limits.RewriteBytes) {
		return
	}
	if req.Source != "shell" {
		respondError(c, fmt.Errorf("%w: unknown log source %q", errInvalidRequest, req.Source))
		return
	}
	if len(req.Entries) == 0 || len(req.Entries) > maxLogBatch {
		respondError(c, fmt.Errorf("%w: batch must hold 1 to %d entries", errInvalidRequest, maxLogBatch))
		return
	}

	logger := h.logger.Named("shell")
	processed := 0
	for _, entry := range req.Entries {
		if err := logShellEntry(logger, entry); err != nil {
			logger.Debug("dropped shell log entry", zap.Error(err), zap.String("level", entry.Level))
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": processed,
		"timestamp":         time.Now().Unix(),
	})
}

func logShellEntry(logger *zap.Logger, entry ShellLogEntry) error {
	if entry.Message == "" {
		return errEmptyLogMessage
	}

	fields := make([]zap.Field, 0, len(entry.Context)+2)
	fields = append(fields, zap.String("source", "shell"))
	if entry.TabID != "" {
		fields = append(fields, zap.String("tab_id", entry.TabID))
	}
	if entry.Timestamp != "" {
		fields = append(fields, zap.String("shell_timestamp", entry.Timestamp))
	}
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
	return nil
}
