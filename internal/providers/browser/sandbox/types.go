package sandbox

import (
	"context"
	"time"
)

// Config defines sandbox configuration
type Config struct {
	Timeout time.Duration // Execution timeout per run
}

// Page describes the document a script is loaded into.
type Page struct {
	URL     string // location.href
	BaseURI string // document.baseURI; empty simulates an engine without it
}

// Message is one window.parent.postMessage call.
type Message struct {
	Data         map[string]interface{}
	TargetOrigin string
}

// Result holds what a simulated click produced.
type Result struct {
	Messages         []Message
	DefaultPrevented bool
	Listeners        int // capture-phase click listeners registered
	Duration         time.Duration
}

// Sandbox runs page scripts against a simulated document.
type Sandbox interface {
	Click(ctx context.Context, script string, page Page, target *Element) (*Result, error)
	Close() error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: time.Second,
	}
}
