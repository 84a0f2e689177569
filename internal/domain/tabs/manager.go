package tabs

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/nebula/internal/domain/session"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/logging"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Options configures a Manager. Pipeline is required.
type Options struct {
	Pipeline Pipeline
	Recorder Recorder
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
}

// Manager owns the open tabs. Every navigation bumps the tab's generation;
// a fetch result is committed only if the generation it started with is
// still current, so the last navigation always wins.
type Manager struct {
	pipeline Pipeline
	recorder Recorder
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	tabs    map[id.TabID]*tab // Protected by mu
	order   []id.TabID        // Protected by mu
	active  id.TabID          // Protected by mu
	offline bool              // Protected by mu

	persistMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewManager creates a manager with one fresh tab.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		pipeline: opts.Pipeline,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		tabs:     make(map[id.TabID]*tab),
		subs:     make(map[int]chan Event),
	}
	t := m.addTab()
	m.active = t.ID
	m.setTabsOpen()
	return m
}

// addTab creates an EMPTY tab at the end. Caller holds mu.
func (m *Manager) addTab() *tab {
	t := &tab{Tab: Tab{
		ID:        id.NewTabID(),
		Title:     NewTabTitle,
		Type:      TypeEmpty,
		Timestamp: time.Now(),
	}}
	m.tabs[t.ID] = t
	m.order = append(m.order, t.ID)
	return t
}

func (m *Manager) setTabsOpen() {
	if m.metrics != nil {
		m.metrics.SetTabsOpen(len(m.order))
	}
}

// NewTab opens and activates a tab, navigating it when input is not blank.
func (m *Manager) NewTab(ctx context.Context, input string) (Tab, error) {
	m.mu.Lock()
	t := m.addTab()
	m.active = t.ID
	snap := t.snapshot()
	m.setTabsOpen()
	m.mu.Unlock()

	m.logger.Debug("tab opened", logging.Tab(snap.ID.String()))
	m.emit(Event{Type: EventTabUpdated, TabID: snap.ID, Tab: &snap})
	m.emit(Event{Type: EventTabActivated, TabID: snap.ID, Tab: &snap})

	if input == "" {
		m.saveTabs(ctx)
		return snap, nil
	}
	return m.Navigate(ctx, snap.ID, input)
}

// Get returns one tab.
func (m *Manager) Get(tabID id.TabID) (Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tabs[tabID]
	if !ok {
		return Tab{}, ErrTabNotFound
	}
	return t.snapshot(), nil
}

// List returns all tabs in strip order.
func (m *Manager) List() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Tab, 0, len(m.order))
	for _, tabID := range m.order {
		out = append(out, m.tabs[tabID].snapshot())
	}
	return out
}

// Active returns the active tab.
func (m *Manager) Active() Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabs[m.active].snapshot()
}

// Activate makes a tab the active one.
func (m *Manager) Activate(ctx context.Context, tabID id.TabID) (Tab, error) {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return Tab{}, ErrTabNotFound
	}
	m.active = tabID
	if m.needsLoad(t) {
		m.load(t)
	}
	snap := t.snapshot()
	m.mu.Unlock()

	m.emit(Event{Type: EventTabActivated, TabID: tabID, Tab: &snap})
	m.saveTabs(ctx)
	return snap, nil
}

// Close closes a tab and cancels its fetch. Closing the last tab leaves a
// fresh one; closing the active tab activates the last remaining tab.
func (m *Manager) Close(ctx context.Context, tabID id.TabID) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return ErrTabNotFound
	}
	if t.cancel != nil {
		t.cancel()
	}
	delete(m.tabs, tabID)
	for i, o := range m.order {
		if o == tabID {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}

	var fresh, activated *Tab
	if len(m.order) == 0 {
		nt := m.addTab()
		snap := nt.snapshot()
		fresh = &snap
	}
	if m.active == tabID {
		m.active = m.order[len(m.order)-1]
		snap := m.tabs[m.active].snapshot()
		activated = &snap
	}
	m.setTabsOpen()
	m.mu.Unlock()

	m.logger.Debug("tab closed", logging.Tab(tabID.String()))
	m.emit(Event{Type: EventTabClosed, TabID: tabID})
	if fresh != nil {
		m.emit(Event{Type: EventTabUpdated, TabID: fresh.ID, Tab: fresh})
	}
	if activated != nil {
		m.emit(Event{Type: EventTabActivated, TabID: activated.ID, Tab: activated})
	}
	m.saveTabs(ctx)
	return nil
}

// Navigate points a tab at address bar input. The input is normalized and
// recorded in history. Proxied pages load in the background; watch for
// tab_updated or poll Document.
func (m *Manager) Navigate(ctx context.Context, tabID id.TabID, input string) (Tab, error) {
	if m.Offline() {
		return Tab{}, ErrOffline
	}
	addr, err := m.pipeline.Address(input)
	if err != nil {
		return Tab{}, err
	}

	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return Tab{}, ErrTabNotFound
	}
	t.URL = addr.URL
	t.Title = addr.Title
	t.Type = TypeWeb
	t.Favicon = ""
	t.Timestamp = time.Now()
	// A toggle applies to the page it was made on; a new URL is classified.
	t.ProxyOverride = nil
	m.load(t)
	snap := t.snapshot()
	m.mu.Unlock()

	if m.recorder != nil {
		if _, _, err := m.recorder.RecordVisit(context.WithoutCancel(ctx), addr.URL, addr.Title); err != nil {
			m.logger.Warn("failed to record visit", logging.Tab(tabID.String()), zap.Error(err))
		}
	}
	m.emit(Event{Type: EventTabUpdated, TabID: tabID, Tab: &snap})
	m.saveTabs(ctx)
	return snap, nil
}

// Refresh reloads the tab's current URL. Fresh tabs have nothing to reload.
func (m *Manager) Refresh(ctx context.Context, tabID id.TabID) (Tab, error) {
	return m.reload(ctx, tabID, nil)
}

// ToggleProxy flips the tab between direct and proxied rendering and
// reloads it. The choice lasts until the tab navigates or is toggled again.
func (m *Manager) ToggleProxy(ctx context.Context, tabID id.TabID) (Tab, error) {
	return m.reload(ctx, tabID, func(t *tab) {
		proxied := t.Mode != browser.ModeProxied
		t.ProxyOverride = &proxied
	})
}

func (m *Manager) reload(ctx context.Context, tabID id.TabID, mutate func(*tab)) (Tab, error) {
	m.mu.Lock()
	if m.offline {
		m.mu.Unlock()
		return Tab{}, ErrOffline
	}
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return Tab{}, ErrTabNotFound
	}
	if mutate != nil {
		mutate(t)
	}
	if t.Type == TypeEmpty || t.URL == "" {
		snap := t.snapshot()
		m.mu.Unlock()
		return snap, nil
	}
	m.load(t)
	snap := t.snapshot()
	m.mu.Unlock()

	m.emit(Event{Type: EventTabUpdated, TabID: tabID, Tab: &snap})
	m.saveTabs(ctx)
	return snap, nil
}

// load starts a new generation for t. Caller holds mu.
func (m *Manager) load(t *tab) {
	t.generation++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.doc = nil
	t.Mode = m.mode(t)
	if m.metrics != nil {
		m.metrics.RecordNavigation(string(t.Mode))
	}

	if t.Mode != browser.ModeProxied {
		t.Loading = false
		return
	}

	t.Loading = true
	ctx, cancel := context.WithCancel(m.ctx)
	t.cancel = cancel
	m.wg.Add(1)
	go m.fetch(ctx, t.ID, t.generation, t.URL)
}

// needsLoad reports a proxied tab that has neither a document nor a fetch
// in flight, which is how restored tabs start. Caller holds mu.
func (m *Manager) needsLoad(t *tab) bool {
	return !m.offline && t.Mode == browser.ModeProxied && t.doc == nil && !t.Loading && t.URL != ""
}

func (m *Manager) mode(t *tab) browser.Mode {
	if t.ProxyOverride != nil {
		if *t.ProxyOverride {
			return browser.ModeProxied
		}
		return browser.ModeDirect
	}
	return m.pipeline.Classify(t.URL)
}

func (m *Manager) fetch(ctx context.Context, tabID id.TabID, generation uint64, url string) {
	defer m.wg.Done()

	doc := m.pipeline.FetchViaProxy(ctx, url)

	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok || t.generation != generation {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.IncStaleResults()
		}
		m.logger.Debug("discarding stale fetch",
			logging.Tab(tabID.String()), logging.URL(url), logging.Generation(generation))
		return
	}
	if ctx.Err() != nil {
		// shutting down
		m.mu.Unlock()
		return
	}
	t.cancel()
	t.cancel = nil
	t.doc = &doc
	t.Loading = false
	t.Title = doc.Title
	if doc.Favicon != "" {
		t.Favicon = doc.Favicon
	}
	snap := t.snapshot()
	m.mu.Unlock()

	m.logger.Info("document ready",
		logging.Tab(tabID.String()),
		logging.URL(url),
		logging.Generation(generation),
		logging.Backend(doc.Backend),
		zap.Bool("fallback", doc.Fallback),
	)
	m.emit(Event{Type: EventTabUpdated, TabID: tabID, Tab: &snap})
	m.saveTabs(context.Background())
}

// Document returns the tab's live document. ok is false while loading and
// for tabs without one.
func (m *Manager) Document(tabID id.TabID) (doc browser.Document, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, found := m.tabs[tabID]
	if !found {
		return browser.Document{}, false, ErrTabNotFound
	}
	if t.doc == nil {
		return browser.Document{}, false, nil
	}
	return *t.doc, true, nil
}

// Live returns the tab's snapshot together with its document, read under
// one lock so a fetch committing in between cannot split the two.
func (m *Manager) Live(tabID id.TabID) (snap Tab, doc browser.Document, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, found := m.tabs[tabID]
	if !found {
		return Tab{}, browser.Document{}, false, ErrTabNotFound
	}
	snap = t.snapshot()
	if t.doc == nil {
		return snap, browser.Document{}, false, nil
	}
	return snap, *t.doc, true, nil
}

// SetOffline switches simulated connectivity. While offline, navigation
// fails with ErrOffline.
func (m *Manager) SetOffline(offline bool) {
	m.mu.Lock()
	m.offline = offline
	m.mu.Unlock()
	m.logger.Info("connectivity changed", zap.Bool("offline", offline))
}

// Offline reports the connectivity switch.
func (m *Manager) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Restore replaces the open tabs with persisted ones. Documents are not
// persisted; a restored proxied tab fetches again when it is active.
func (m *Manager) Restore(saved []session.SavedTab, active id.TabID) {
	if len(saved) == 0 {
		return
	}

	m.mu.Lock()
	for _, t := range m.tabs {
		if t.cancel != nil {
			t.cancel()
		}
	}
	m.tabs = make(map[id.TabID]*tab, len(saved))
	m.order = m.order[:0]
	for _, s := range saved {
		if s.ID == "" {
			continue
		}
		if _, dup := m.tabs[s.ID]; dup {
			continue
		}
		t := &tab{Tab: Tab{
			ID:            s.ID,
			URL:           s.URL,
			Title:         s.Title,
			Type:          Type(s.Type),
			ProxyOverride: s.ProxyOverride,
			Favicon:       s.Favicon,
			Timestamp:     s.Timestamp,
		}}
		if t.Type == "" {
			t.Type = TypeWeb
		}
		if t.URL != "" && t.Type != TypeEmpty {
			t.Mode = m.mode(t)
		}
		m.tabs[t.ID] = t
		m.order = append(m.order, t.ID)
	}
	if len(m.order) == 0 {
		m.addTab()
	}
	if _, ok := m.tabs[active]; ok {
		m.active = active
	} else {
		m.active = m.order[len(m.order)-1]
	}
	// Documents are not persisted: the active tab refetches now, the
	// others when activated.
	if t := m.tabs[m.active]; m.needsLoad(t) {
		m.load(t)
	}
	m.setTabsOpen()
	n := len(m.order)
	m.mu.Unlock()

	m.logger.Info("tabs restored", zap.Int("count", n))
}

// saveTabs writes the current tab list through the recorder. persistMu
// keeps a slower older snapshot from landing after a newer one.
func (m *Manager) saveTabs(ctx context.Context) {
	if m.recorder == nil {
		return
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	saved := make([]session.SavedTab, 0, len(m.order))
	for _, tabID := range m.order {
		saved = append(saved, m.tabs[tabID].saved())
	}
	active := m.active
	m.mu.Unlock()

	if err := m.recorder.SaveTabs(context.WithoutCancel(ctx), saved, active); err != nil {
		m.logger.Warn("failed to save tabs", zap.Error(err))
	}
}

// Wait blocks until every in-flight fetch has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels in-flight fetches, waits for them and closes every
// subscription.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()

	m.subsMu.Lock()
	for key, ch := range m.subs {
		close(ch)
		delete(m.subs, key)
	}
	m.subsMu.Unlock()
}
