package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/storage"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Storage keys.
const (
	KeyHistory    = "nebula_history"
	KeyDownloads  = "nebula_downloads"
	KeyShortcuts  = "nebula_shortcuts"
	KeyTabs       = "nebula_tabs"
	KeyActiveTab  = "nebula_active_tab"
	KeyScratchpad = "nebula_scratchpad"
)

// DefaultHistoryLimit caps history when no limit is configured.
const DefaultHistoryLimit = 500

// ErrInvalidShortcut is returned for shortcuts without a title or URL.
var ErrInvalidShortcut = errors.New("shortcut needs a title and url")

// Options configures a Manager.
type Options struct {
	Store            storage.Store
	Logger           *zap.Logger
	Metrics          *monitoring.Metrics
	HistoryLimit     int
	DefaultShortcuts []config.ShortcutSpec
}

// Manager holds persisted browsing state in memory and writes every change
// through to the store.
type Manager struct {
	store        storage.Store
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	historyLimit int
	defaults     []Shortcut

	mu        sync.RWMutex
	history   []HistoryEntry // newest first
	downloads []Download     // newest first
	shortcuts []Shortcut     // nil until the user changes them
	tabs      []SavedTab
	active    id.TabID
	notes     string
}

// NewManager creates a manager. Call Load to read persisted state.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemory()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	defaults := make([]Shortcut, 0, len(opts.DefaultShortcuts))
	for _, s := range opts.DefaultShortcuts {
		defaults = append(defaults, Shortcut{ID: id.NewShortcutID(), Title: s.Title, URL: s.URL})
	}

	return &Manager{
		store:        opts.Store,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		historyLimit: opts.HistoryLimit,
		defaults:     defaults,
	}
}

// Load reads every key from the store. Missing keys keep their zero value;
// values that fail to decode are logged and dropped.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	targets := []struct {
		key string
		dst interface{}
	}{
		{KeyHistory, &m.history},
		{KeyDownloads, &m.downloads},
		{KeyShortcuts, &m.shortcuts},
		{KeyTabs, &m.tabs},
		{KeyActiveTab, &m.active},
		{KeyScratchpad, &m.notes},
	}

	for _, t := range targets {
		data, err := m.store.Get(ctx, t.key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", t.key, err)
		}
		if err := sonic.Unmarshal(data, t.dst); err != nil {
			m.logger.Warn("discarding unreadable state", zap.String("key", t.key), zap.Error(err))
		}
	}

	if len(m.history) > m.historyLimit {
		m.history = m.history[:m.historyLimit]
	}
	m.setHistorySize()

	m.logger.Info("browsing state loaded",
		zap.Int("history", len(m.history)),
		zap.Int("downloads", len(m.downloads)),
		zap.Int("tabs", len(m.tabs)),
	)
	return nil
}

// persist writes one key. Callers hold mu.
func (m *Manager) persist(ctx context.Context, key string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, data); err != nil {
		if m.metrics != nil {
			m.metrics.RecordStorageError(key)
		}
		m.logger.Error("failed to persist state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (m *Manager) setHistorySize() {
	if m.metrics != nil {
		m.metrics.SetHistorySize(len(m.history))
	}
}

// RecordVisit adds a history entry. A visit to the same URL as the most
// recent entry is skipped and reported with ok false.
func (m *Manager) RecordVisit(ctx context.Context, url, title string) (entry HistoryEntry, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) > 0 && m.history[0].URL == url {
		return m.history[0], false, nil
	}

	entry = HistoryEntry{
		ID:        id.NewHistoryID(),
		URL:       url,
		Title:     title,
		Timestamp: time.Now(),
	}
	m.history = append([]HistoryEntry{entry}, m.history...)
	if len(m.history) > m.historyLimit {
		m.history = m.history[:m.historyLimit]
	}
	m.setHistorySize()

	return entry, true, m.persist(ctx, KeyHistory, m.history)
}

// History returns entries newest first.
func (m *Manager) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HistoryEntry{}, m.history...)
}

// DeleteHistory removes one entry.
func (m *Manager) DeleteHistory(ctx context.Context, entryID id.HistoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.history {
		if e.ID == entryID {
			m.history = append(m.history[:i:i], m.history[i+1:]...)
			m.setHistorySize()
			return m.persist(ctx, KeyHistory, m.history)
		}
	}
	return fmt.Errorf("history entry %s: %w", entryID, storage.ErrNotFound)
}

// ClearHistory removes every entry.
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = nil
	m.setHistorySize()
	return m.persist(ctx, KeyHistory, []HistoryEntry{})
}

// Shortcuts returns the user's shortcuts, or the defaults if they never
// changed them.
func (m *Manager) Shortcuts() []Shortcut {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Shortcut{}, m.currentShortcuts()...)
}

func (m *Manager) currentShortcuts() []Shortcut {
	if m.shortcuts == nil {
		return m.defaults
	}
	return m.shortcuts
}

// AddShortcut appends a shortcut.
func (m *Manager) AddShortcut(ctx context.Context, title, url string) (Shortcut, error) {
	title, url = strings.TrimSpace(title), strings.TrimSpace(url)
	if title == "" || url == "" {
		return Shortcut{}, ErrInvalidShortcut
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := Shortcut{ID: id.NewShortcutID(), Title: title, URL: url}
	m.shortcuts = append(append([]Shortcut{}, m.currentShortcuts()...), s)
	return s, m.persist(ctx, KeyShortcuts, m.shortcuts)
}

// RemoveShortcut removes a shortcut, defaults included.
func (m *Manager) RemoveShortcut(ctx context.Context, shortcutID id.ShortcutID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.currentShortcuts()
	for i, s := range current {
		if s.ID == shortcutID {
			next := make([]Shortcut, 0, len(current)-1)
			next = append(next, current[:i]...)
			m.shortcuts = append(next, current[i+1:]...)
			return m.persist(ctx, KeyShortcuts, m.shortcuts)
		}
	}
	return fmt.Errorf("shortcut %s: %w", shortcutID, storage.ErrNotFound)
}

// RecordDownload adds a saved document to the download list.
func (m *Manager) RecordDownload(ctx context.Context, filename, url string, size int64, mime string) (Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := Download{
		ID:        id.NewDownloadID(),
		Filename:  filename,
		URL:       url,
		Size:      size,
		MIME:      mime,
		Timestamp: time.Now(),
	}
	m.downloads = append([]Download{d}, m.downloads...)
	return d, m.persist(ctx, KeyDownloads, m.downloads)
}

// Downloads returns saved documents newest first.
func (m *Manager) Downloads() []Download {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Download{}, m.downloads...)
}

// ClearDownloads empties the download list.
func (m *Manager) ClearDownloads(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.downloads = nil
	return m.persist(ctx, KeyDownloads, []Download{})
}

// Notes returns the scratchpad text.
func (m *Manager) Notes() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notes
}

// SetNotes replaces the scratchpad text.
func (m *Manager) SetNotes(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notes = text
	return m.persist(ctx, KeyScratchpad, text)
}

// SaveTabs stores the open tabs and the active tab.
func (m *Manager) SaveTabs(ctx context.Context, tabs []SavedTab, active id.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tabs = append([]SavedTab{}, tabs...)
	m.active = active
	if err := m.persist(ctx, KeyTabs, m.tabs); err != nil {
		return err
	}
	return m.persist(ctx, KeyActiveTab, active)
}

// Tabs returns the tabs saved by the last SaveTabs or Load.
func (m *Manager) Tabs() []SavedTab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SavedTab{}, m.tabs...)
}

// ActiveTab returns the saved active tab.
func (m *Manager) ActiveTab() id.TabID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}
