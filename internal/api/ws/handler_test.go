package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/nebula/internal/domain/tabs"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchTemplate = "https://search.test/?q={query}"

type directPipeline struct{}

func (directPipeline) Classify(string) browser.Mode { return browser.ModeDirect }

func (directPipeline) FetchViaProxy(_ context.Context, url string) browser.Document {
	return browser.Fallback(url)
}

func (directPipeline) Address(input string) (browser.Address, error) {
	return browser.NormalizeAddress(input, searchTemplate)
}

type bridgeFactory struct{}

func (bridgeFactory) NewBridge() *browser.Bridge { return browser.NewBridge(nil, nil) }

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func newTestServer(t *testing.T, origins []string) (*httptest.Server, *tabs.Manager, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	manager := tabs.NewManager(tabs.Options{Pipeline: directPipeline{}, Metrics: metrics})
	t.Cleanup(manager.Shutdown)

	h := NewHandler(Options{Bridges: bridgeFactory{}, Tabs: manager, Metrics: metrics, Origins: origins})
	router := gin.New()
	router.GET("/bridge", h.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, manager, metrics
}

func dial(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/bridge", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	c := &testClient{t: t, conn: conn}
	c.next(TypeConnected)
	return c
}

func (c *testClient) write(frame interface{}) {
	c.t.Helper()
	var data []byte
	if s, ok := frame.(string); ok {
		data = []byte(s)
	} else {
		var err error
		data, err = sonic.Marshal(frame)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

// next reads frames until one of type want arrives, returning it.
func (c *testClient) next(want string) map[string]interface{} {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", want)

		var frame map[string]interface{}
		require.NoError(c.t, sonic.Unmarshal(data, &frame))
		if frame["type"] == want {
			return frame
		}
	}
}

func TestPingPong(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	c := dial(t, srv)

	c.write(map[string]string{"type": TypePing})
	c.next(TypePong)
}

func TestBridgeNavigation(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil)
	c := dial(t, srv)
	tabID := manager.Active().ID

	c.write(map[string]interface{}{
		"type":    TypeBridge,
		"tab_id":  tabID,
		"message": map[string]string{"type": browser.NavigateMessageType, "url": "https://example.com/next"},
	})

	nav := c.next(TypeNavigation)
	assert.Equal(t, tabID.String(), nav["tab_id"])
	assert.Equal(t, "https://example.com/next", nav["url"])

	tab, err := manager.Get(tabID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/next", tab.URL)
}

func TestBridgeNavigationDefaultsToActiveTab(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil)
	c := dial(t, srv)

	c.write(map[string]interface{}{
		"type":    TypeBridge,
		"message": map[string]string{"type": browser.NavigateMessageType, "url": "https://example.com/a"},
	})

	nav := c.next(TypeNavigation)
	assert.Equal(t, manager.Active().ID.String(), nav["tab_id"])
}

func TestBridgeForwardsTabEvents(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil)
	c := dial(t, srv)
	tabID := manager.Active().ID

	_, err := manager.Navigate(context.Background(), tabID, "example.org")
	require.NoError(t, err)

	ev := c.next(string(tabs.EventTabUpdated))
	assert.Equal(t, tabID.String(), ev["tab_id"])
	tab, ok := ev["tab"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://example.org", tab["url"])
}

func TestBridgeIgnoresOtherMessages(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil)
	c := dial(t, srv)
	tabID := manager.Active().ID

	messages := []interface{}{
		map[string]string{"type": "OTHER", "url": "https://example.com"},
		map[string]string{"type": browser.NavigateMessageType},
		map[string]interface{}{"type": browser.NavigateMessageType, "url": 42},
		"NEBULA_NAVIGATE",
		nil,
	}
	for _, m := range messages {
		c.write(map[string]interface{}{"type": TypeBridge, "tab_id": tabID, "message": m})
		c.next(TypeIgnored)
	}

	tab, err := manager.Get(tabID)
	require.NoError(t, err)
	assert.Equal(t, tabs.TypeEmpty, tab.Type)
}

func TestBridgeNavigationErrors(t *testing.T) {
	srv, manager, _ := newTestServer(t, nil)
	c := dial(t, srv)
	manager.SetOffline(true)

	c.write(map[string]interface{}{
		"type":    TypeBridge,
		"message": map[string]string{"type": browser.NavigateMessageType, "url": "https://example.com/"},
	})
	frame := c.next(TypeError)
	assert.Equal(t, tabs.ErrOffline.Error(), frame["message"])
}

func TestInvalidFrames(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	c := dial(t, srv)

	c.write("not json")
	assert.Equal(t, "invalid frame", c.next(TypeError)["message"])

	c.write(map[string]string{"type": "chat"})
	assert.Equal(t, "unknown message type", c.next(TypeError)["message"])
}

func TestConnectionMetrics(t *testing.T) {
	srv, _, metrics := newTestServer(t, nil)
	c := dial(t, srv)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	c.write(map[string]string{"type": TypePing})
	c.next(TypePong)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", TypePing)))

	require.NoError(t, c.conn.Close())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	srv, _, _ := newTestServer(t, []string{"http://shell.test"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge"

	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://shell.test")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	_ = conn.Close()
}
