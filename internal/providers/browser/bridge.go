package browser

import (
	"context"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// NavigateFunc re-enters the pipeline with a URL taken from a sandboxed
// document.
type NavigateFunc func(ctx context.Context, url string)

// Bridge receives messages posted by proxied documents. A Bridge belongs to
// one active view; it only inspects message data and never evaluates page
// content.
type Bridge struct {
	logger  *zap.Logger
	onCount func(accepted bool)
}

// NewBridge creates a bridge. onCount, if set, is told about every message.
func NewBridge(logger *zap.Logger, onCount func(accepted bool)) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{logger: logger, onCount: onCount}
}

// Deliver hands raw message data to the bridge. Only an object whose type
// is exactly NEBULA_NAVIGATE and whose url is a non-empty string invokes
// navigate; everything else is dropped. It reports whether navigate ran.
func (b *Bridge) Deliver(ctx context.Context, raw []byte, navigate NavigateFunc) bool {
	target, ok := ParseNavigate(raw)
	if b.onCount != nil {
		b.onCount(ok)
	}
	if !ok {
		b.logger.Debug("ignoring bridge message", zap.Int("bytes", len(raw)))
		return false
	}
	if navigate != nil {
		navigate(ctx, target)
	}
	return true
}

// ParseNavigate extracts the URL from a navigation message.
func ParseNavigate(raw []byte) (string, bool) {
	var msg map[string]interface{}
	if err := sonic.Unmarshal(raw, &msg); err != nil || msg == nil {
		return "", false
	}
	if t, ok := msg["type"].(string); !ok || t != NavigateMessageType {
		return "", false
	}
	target, ok := msg["url"].(string)
	if !ok || target == "" {
		return "", false
	}
	return target, true
}
