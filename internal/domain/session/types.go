package session

import (
	"time"

	"github.com/GriffinCanCode/nebula/internal/shared/id"
)

// HistoryEntry is one visited page.
type HistoryEntry struct {
	ID        id.HistoryID `json:"id"`
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Timestamp time.Time    `json:"timestamp"`
}

// Shortcut is a speed-dial entry on the new tab page.
type Shortcut struct {
	ID    id.ShortcutID `json:"id"`
	Title string        `json:"title"`
	URL   string        `json:"url"`
}

// Download is a saved proxied document.
type Download struct {
	ID        id.DownloadID `json:"id"`
	Filename  string        `json:"filename"`
	URL       string        `json:"url"`
	Size      int64         `json:"size"`
	MIME      string        `json:"mime"`
	Timestamp time.Time     `json:"timestamp"`
}

// SavedTab is the persisted part of a tab. Documents are never saved.
type SavedTab struct {
	ID            id.TabID  `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	ProxyOverride *bool     `json:"proxy_override,omitempty"`
	Favicon       string    `json:"favicon,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
