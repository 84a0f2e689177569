package tabs

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/nebula/internal/domain/session"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
)

var (
	// ErrTabNotFound is returned for unknown tab IDs.
	ErrTabNotFound = errors.New("tab not found")
	// ErrOffline is returned for navigation while connectivity is off.
	ErrOffline = errors.New("offline")
	// ErrEmptyAddress is returned for blank address bar input.
	ErrEmptyAddress = browser.ErrEmptyAddress
)

// Type is what a tab shows.
type Type string

const (
	TypeWeb      Type = "WEB"
	TypeEmpty    Type = "EMPTY"
	TypeSettings Type = "SETTINGS"
	TypeSearch   Type = "SEARCH"
)

// NewTabTitle is the title of a fresh tab.
const NewTabTitle = "New Tab"

// Tab is the public state of one tab.
type Tab struct {
	ID            id.TabID     `json:"id"`
	URL           string       `json:"url"`
	Title         string       `json:"title"`
	Type          Type         `json:"type"`
	Mode          browser.Mode `json:"mode,omitempty"`
	ProxyOverride *bool        `json:"proxy_override,omitempty"`
	Loading       bool         `json:"loading"`
	Favicon       string       `json:"favicon,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// tab adds the state that never leaves the manager.
type tab struct {
	Tab
	generation uint64
	doc        *browser.Document
	cancel     context.CancelFunc
}

func (t *tab) snapshot() Tab {
	out := t.Tab
	if t.ProxyOverride != nil {
		v := *t.ProxyOverride
		out.ProxyOverride = &v
	}
	return out
}

func (t *tab) saved() session.SavedTab {
	s := t.snapshot()
	return session.SavedTab{
		ID:            s.ID,
		URL:           s.URL,
		Title:         s.Title,
		Type:          string(s.Type),
		ProxyOverride: s.ProxyOverride,
		Favicon:       s.Favicon,
		Timestamp:     s.Timestamp,
	}
}

// Pipeline is the compatibility pipeline as the manager uses it.
type Pipeline interface {
	Classify(url string) browser.Mode
	FetchViaProxy(ctx context.Context, url string) browser.Document
	Address(input string) (browser.Address, error)
}

// Recorder persists what tabs do.
type Recorder interface {
	RecordVisit(ctx context.Context, url, title string) (session.HistoryEntry, bool, error)
	SaveTabs(ctx context.Context, tabs []session.SavedTab, active id.TabID) error
}

// EventType names a tab event.
type EventType string

const (
	EventTabUpdated   EventType = "tab_updated"
	EventTabClosed    EventType = "tab_closed"
	EventTabActivated EventType = "tab_activated"
)

// Event is sent to subscribers on every tab change.
type Event struct {
	Type  EventType `json:"type"`
	TabID id.TabID  `json:"tab_id"`
	Tab   *Tab      `json:"tab,omitempty"`
}
