// Package id provides centralized ID generation for the browsing service.
//
// IDs are ULIDs carrying a short type prefix:
//   - Lexicographic sortability: tabs and history entries sort by creation time
//   - Prefixed types: tab_*, hist_*, dl_*, sc_*, req_* are readable in logs
//   - Type safety: separate string types prevent mixing a tab ID with a history ID
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TabID identifies a browser tab
type TabID string

// HistoryID identifies a history entry
type HistoryID string

// DownloadID identifies a saved document
type DownloadID string

// ShortcutID identifies a speed-dial shortcut
type ShortcutID string

// RequestID identifies an API request or trace
type RequestID string

const (
	TabPrefix      = "tab"
	HistoryPrefix  = "hist"
	DownloadPrefix = "dl"
	ShortcutPrefix = "sc"
	RequestPrefix  = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTabID generates a new tab ID
func NewTabID() TabID {
	return TabID(Default().GenerateWithPrefix(TabPrefix))
}

// NewHistoryID generates a new history entry ID
func NewHistoryID() HistoryID {
	return HistoryID(Default().GenerateWithPrefix(HistoryPrefix))
}

// NewDownloadID generates a new download ID
func NewDownloadID() DownloadID {
	return DownloadID(Default().GenerateWithPrefix(DownloadPrefix))
}

// NewShortcutID generates a new shortcut ID
func NewShortcutID() ShortcutID {
	return ShortcutID(Default().GenerateWithPrefix(ShortcutPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id TabID) String() string      { return string(id) }
func (id HistoryID) String() string  { return string(id) }
func (id DownloadID) String() string { return string(id) }
func (id ShortcutID) String() string { return string(id) }
func (id RequestID) String() string  { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// HasPrefix reports whether id is a well-formed "prefix_ULID" value.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the creation time from a prefixed or bare ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
