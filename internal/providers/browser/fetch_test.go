package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/providers/http/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchTarget = "https://example.org/page"

const relayPage = `<html><head><title>Example</title></head><body><a href="/next">next</a></body></html>`

// relay behaviours
var (
	okRaw = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(relayPage))
	}
	okEnvelope = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contents":` + quoteJSON(relayPage) + `,"status":{"http_code":200}}`))
	}
	serverError = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}
	blank = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  \n "))
	}
	binary = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}
	badEnvelope = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"contents":null}`))
	}
	notJSON = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not an envelope</html>`))
	}
)

func quoteJSON(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

type relaySet struct {
	servers  []*httptest.Server
	backends []Backend
	hits     []*atomic.Int32
	paths    []*atomic.Value
}

func newRelays(t *testing.T, handlers []http.HandlerFunc, payloads []Payload) *relaySet {
	t.Helper()
	rs := &relaySet{}
	for i, h := range handlers {
		hits := &atomic.Int32{}
		query := &atomic.Value{}
		h := h
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			query.Store(r.URL.Query().Get("u"))
			h(w, r)
		}))
		t.Cleanup(srv.Close)

		rs.servers = append(rs.servers, srv)
		rs.hits = append(rs.hits, hits)
		rs.paths = append(rs.paths, query)
		rs.backends = append(rs.backends, Backend{
			Name:     "relay" + string(rune('a'+i)),
			Endpoint: srv.URL + "/?u={url}",
			Payload:  payloads[i],
		})
	}
	return rs
}

func newTestFetcher(rs *relaySet, m *monitoring.Metrics) *Fetcher {
	c := client.New(client.Options{Timeout: 2 * time.Second, BreakerFailures: 100})
	return NewFetcher(c, rs.backends, FetcherOptions{Metrics: m})
}

func TestFetchViaProxyChain(t *testing.T) {
	raw, env := RawPayload{}, EnvelopePayload{Field: "contents"}

	tests := []struct {
		name        string
		handlers    []http.HandlerFunc
		payloads    []Payload
		wantBackend string
		wantHits    []int32
	}{
		{
			name:        "first relay wins",
			handlers:    []http.HandlerFunc{okRaw, okEnvelope, okRaw},
			payloads:    []Payload{raw, env, raw},
			wantBackend: "relaya",
			wantHits:    []int32{1, 0, 0},
		},
		{
			name:        "envelope after server error",
			handlers:    []http.HandlerFunc{serverError, okEnvelope, okRaw},
			payloads:    []Payload{raw, env, raw},
			wantBackend: "relayb",
			wantHits:    []int32{1, 1, 0},
		},
		{
			name:        "last relay after blank and bad envelope",
			handlers:    []http.HandlerFunc{blank, badEnvelope, okRaw},
			payloads:    []Payload{raw, env, raw},
			wantBackend: "relayc",
			wantHits:    []int32{1, 1, 1},
		},
		{
			name:        "binary body is skipped",
			handlers:    []http.HandlerFunc{binary, okRaw},
			payloads:    []Payload{raw, raw},
			wantBackend: "relayb",
			wantHits:    []int32{1, 1},
		},
		{
			name:     "all fail",
			handlers: []http.HandlerFunc{serverError, notJSON, blank},
			payloads: []Payload{raw, env, raw},
			wantHits: []int32{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newRelays(t, tt.handlers, tt.payloads)
			m := monitoring.NewMetrics(prometheus.NewRegistry())
			doc := newTestFetcher(rs, m).FetchViaProxy(context.Background(), fetchTarget)

			assert.NotEmpty(t, strings.TrimSpace(doc.HTML))
			assert.Equal(t, fetchTarget, doc.URL)
			assert.Equal(t, ModeProxied, doc.Mode)
			assert.Equal(t, tt.wantBackend, doc.Backend)
			for i, want := range tt.wantHits {
				assert.Equal(t, want, rs.hits[i].Load(), "relay %d", i)
			}

			if tt.wantBackend == "" {
				assert.True(t, doc.Fallback)
				assert.Equal(t, FallbackTitle, doc.Title)
				assert.Contains(t, doc.HTML, fetchTarget)
				assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks))
				return
			}
			assert.False(t, doc.Fallback)
			assert.Equal(t, "Example", doc.Title)
			assert.Equal(t, "https://example.org/favicon.ico", doc.Favicon)
			assert.Contains(t, doc.HTML, `<base href="`+fetchTarget+`" target="_self" data-nebula-base>`)
			assert.Contains(t, doc.HTML, NavigateMessageType)
			assert.Equal(t, 0.0, testutil.ToFloat64(m.Fallbacks))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayAttempts.WithLabelValues(tt.wantBackend, monitoring.OutcomeSuccess)))
		})
	}
}

func TestFetchViaProxyEscapesTarget(t *testing.T) {
	rs := newRelays(t, []http.HandlerFunc{serverError}, []Payload{RawPayload{}})
	const nasty = `https://example.org/?q=<script>alert(1)</script>`

	doc := newTestFetcher(rs, nil).FetchViaProxy(context.Background(), nasty)

	require.True(t, doc.Fallback)
	assert.NotContains(t, doc.HTML, "<script>alert(1)")
	assert.Equal(t, nasty, rs.paths[0].Load(), "target is query-escaped into the relay URL")
}

func TestFetchViaProxyCancelled(t *testing.T) {
	rs := newRelays(t, []http.HandlerFunc{okRaw, okRaw}, []Payload{RawPayload{}, RawPayload{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := newTestFetcher(rs, nil).FetchViaProxy(ctx, fetchTarget)

	assert.True(t, doc.Fallback)
	assert.Zero(t, rs.hits[0].Load())
	assert.Zero(t, rs.hits[1].Load())
}

func TestFetchViaProxySkipsOpenBreaker(t *testing.T) {
	rs := newRelays(t, []http.HandlerFunc{serverError, okRaw}, []Payload{RawPayload{}, RawPayload{}})
	c := client.New(client.Options{Timeout: 2 * time.Second, BreakerFailures: 1, BreakerCooldown: time.Hour})
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	f := NewFetcher(c, rs.backends, FetcherOptions{Metrics: m})

	for i := 0; i < 3; i++ {
		doc := f.FetchViaProxy(context.Background(), fetchTarget)
		assert.Equal(t, "relayb", doc.Backend)
	}

	assert.Equal(t, int32(1), rs.hits[0].Load(), "open breaker keeps requests away")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayAttempts.WithLabelValues("relaya", monitoring.OutcomeRejected)))
}

func TestBackendURL(t *testing.T) {
	b := Backend{Endpoint: "https://relay.test/get?url={url}"}
	assert.Equal(t, "https://relay.test/get?url=https%3A%2F%2Fa.test%2Fx%3Fy%3D1%26z", b.URL("https://a.test/x?y=1&z"))
}

func TestBackendsFromPolicy(t *testing.T) {
	bs := BackendsFromPolicy(config.DefaultPolicy().Backends)
	require.Len(t, bs, 3)
	assert.Equal(t, "codetabs", bs[0].Name)
	assert.IsType(t, RawPayload{}, bs[0].Payload)
	assert.Equal(t, EnvelopePayload{Field: "contents"}, bs[1].Payload)
}

func TestFallbackDocument(t *testing.T) {
	html := FallbackDocument("https://example.org/a?b=1&c=2")
	assert.Contains(t, html, "<title>Connection Failed</title>")
	assert.Contains(t, html, "https://example.org/a?b=1&amp;c=2")
	assert.Contains(t, html, `rel="noopener noreferrer"`)

	html = FallbackDocument("javascript:alert(1)")
	assert.Contains(t, html, `href="about:blank"`)
}
