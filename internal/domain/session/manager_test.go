package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/storage"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	m := NewManager(Options{
		Store:            store,
		HistoryLimit:     3,
		DefaultShortcuts: config.DefaultPolicy().Shortcuts,
	})
	require.NoError(t, m.Load(context.Background()))
	return m
}

func TestRecordVisitSkipsAdjacentDuplicates(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemory())

	_, ok, err := m.RecordVisit(ctx, "https://a.test/", "A")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = m.RecordVisit(ctx, "https://a.test/", "A again")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _ = m.RecordVisit(ctx, "https://b.test/", "B")
	_, ok, _ = m.RecordVisit(ctx, "https://a.test/", "A")
	assert.True(t, ok, "only adjacent duplicates are skipped")

	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, "https://a.test/", h[0].URL)
	assert.Equal(t, "https://b.test/", h[1].URL)
	assert.True(t, id.HasPrefix(string(h[0].ID), id.HistoryPrefix))
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemory())

	for i := 0; i < 5; i++ {
		_, _, err := m.RecordVisit(ctx, fmt.Sprintf("https://%d.test/", i), "")
		require.NoError(t, err)
	}

	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, "https://4.test/", h[0].URL)
	assert.Equal(t, "https://2.test/", h[2].URL)
}

func TestDeleteAndClearHistory(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemory())

	a, _, _ := m.RecordVisit(ctx, "https://a.test/", "A")
	_, _, _ = m.RecordVisit(ctx, "https://b.test/", "B")

	require.NoError(t, m.DeleteHistory(ctx, a.ID))
	assert.Len(t, m.History(), 1)
	assert.ErrorIs(t, m.DeleteHistory(ctx, a.ID), storage.ErrNotFound)

	require.NoError(t, m.ClearHistory(ctx))
	assert.Empty(t, m.History())
}

func TestShortcutsDefaultsAndEdits(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, storage.NewMemory())

	defaults := m.Shortcuts()
	require.Len(t, defaults, 4)
	assert.Equal(t, "Google", defaults[0].Title)
	assert.Equal(t, "https://wikipedia.org", defaults[3].URL)

	added, err := m.AddShortcut(ctx, " Go ", "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "Go", added.Title)
	assert.Len(t, m.Shortcuts(), 5)

	require.NoError(t, m.RemoveShortcut(ctx, defaults[0].ID))
	got := m.Shortcuts()
	require.Len(t, got, 4)
	assert.Equal(t, "Amazon", got[0].Title)

	_, err = m.AddShortcut(ctx, "", "https://x.test")
	assert.ErrorIs(t, err, ErrInvalidShortcut)
	assert.ErrorIs(t, m.RemoveShortcut(ctx, "sc_missing"), storage.ErrNotFound)
}

func TestStatePersistsAcrossManagers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := newManager(t, store)

	_, _, _ = m.RecordVisit(ctx, "https://a.test/", "A")
	_, err := m.RecordDownload(ctx, "page.html", "https://a.test/", 42, "text/html")
	require.NoError(t, err)
	require.NoError(t, m.SetNotes(ctx, "remember the milk"))
	_, err = m.AddShortcut(ctx, "Go", "https://go.dev")
	require.NoError(t, err)

	override := true
	tabs := []SavedTab{
		{ID: "tab_1", URL: "https://a.test/", Title: "A", Type: "WEB", ProxyOverride: &override},
		{ID: "tab_2", Title: "New Tab", Type: "EMPTY"},
	}
	require.NoError(t, m.SaveTabs(ctx, tabs, "tab_2"))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyHistory, KeyDownloads, KeyShortcuts, KeyTabs, KeyActiveTab, KeyScratchpad}, keys)

	reloaded := newManager(t, store)
	assert.Equal(t, "https://a.test/", reloaded.History()[0].URL)
	require.Len(t, reloaded.Downloads(), 1)
	assert.Equal(t, int64(42), reloaded.Downloads()[0].Size)
	assert.Equal(t, "remember the milk", reloaded.Notes())
	assert.Len(t, reloaded.Shortcuts(), 5)
	assert.Equal(t, id.TabID("tab_2"), reloaded.ActiveTab())
	require.Len(t, reloaded.Tabs(), 2)
	require.NotNil(t, reloaded.Tabs()[0].ProxyOverride)
	assert.True(t, *reloaded.Tabs()[0].ProxyOverride)

	require.NoError(t, reloaded.ClearDownloads(ctx))
	assert.Empty(t, reloaded.Downloads())
}

func TestLoadDiscardsCorruptValues(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, KeyHistory, []byte("{not json")))
	require.NoError(t, store.Set(ctx, KeyScratchpad, []byte(`"kept"`)))

	m := newManager(t, store)
	assert.Empty(t, m.History())
	assert.Equal(t, "kept", m.Notes())
}

type failingStore struct {
	storage.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) Set(context.Context, string, []byte) error { return errDiskFull }

func TestWriteFailuresAreReported(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	m := NewManager(Options{Store: failingStore{storage.NewMemory()}, Metrics: metrics})
	require.NoError(t, m.Load(context.Background()))

	err := m.SetNotes(context.Background(), "x")
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, "x", m.Notes(), "memory state stays current")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageFails.WithLabelValues(KeyScratchpad)))
}
