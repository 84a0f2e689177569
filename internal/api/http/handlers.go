package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/GriffinCanCode/nebula/internal/api/middleware"
	"github.com/GriffinCanCode/nebula/internal/domain/session"
	"github.com/GriffinCanCode/nebula/internal/domain/tabs"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/GriffinCanCode/nebula/internal/shared/digest"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
var Version = "dev"

// Handlers contains all HTTP handlers
type Handlers struct {
	pipeline *browser.Provider
	tabs     *tabs.Manager
	session  *session.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	limits   Limits
}

// Options wires the handlers to the services they expose.
type Options struct {
	Pipeline *browser.Provider
	Tabs     *tabs.Manager
	Session  *session.Manager
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
	Limits   Limits
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Handlers{
		pipeline: opts.Pipeline,
		tabs:     opts.Tabs,
		session:  opts.Session,
		metrics:  opts.Metrics,
		logger:   logger,
		limits:   limits,
	}
}

// Root identifies the service.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Nebula",
		"version": Version,
	})
}

// Health reports pipeline and tab state. The interception script is run
// in the embedded engine on every call; a failure marks the service
// degraded rather than down.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	script := gin.H{"ok": true}
	if err := h.pipeline.SelfCheck(ctx); err != nil {
		status = "degraded"
		script = gin.H{"ok": false, "error": err.Error()}
		h.logger.Warn("interception self-check failed", zap.Error(err))
	}

	body := gin.H{
		"status":   status,
		"script":   script,
		"backends": h.pipeline.Backends(),
		"breakers": h.pipeline.Breakers(),
		"tabs":     len(h.tabs.List()),
		"offline":  h.tabs.Offline(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Classify reports the render mode of a URL and the frame capabilities
// that go with it.
func (h *Handlers) Classify(c *gin.Context) {
	target := c.Query("url")
	mode := h.pipeline.Classify(target)

	c.JSON(http.StatusOK, gin.H{
		"url":     target,
		"mode":    mode,
		"sandbox": mode.Sandbox(),
	})
}

// Address normalizes address bar input.
func (h *Handlers) Address(c *gin.Context) {
	addr, err := h.pipeline.Address(c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

// Proxy runs the fetch pipeline for one URL outside any tab.
func (h *Handlers) Proxy(c *gin.Context) {
	addr, err := h.pipeline.Address(c.Query("url"))
	if err != nil {
		respondError(c, err)
		return
	}

	doc := h.pipeline.FetchViaProxy(c.Request.Context(), addr.URL)
	writeDocument(c, doc)
}

// Rewrite prepares caller-supplied HTML for the sandbox.
func (h *Handlers) Rewrite(c *gin.Context) {
	var req struct {
		HTML string `json:"html"`
		URL  string `json:"url" binding:"required"`
	}
	if !bindJSON(c, &req, h.limits.RewriteBytes) {
		return
	}

	c.Data(http.StatusOK, htmlContentType, []byte(h.pipeline.Rewrite(req.HTML, req.URL)))
}

const htmlContentType = "text/html; charset=utf-8"

// writeDocument serves pipeline output. The CSP sandbox directive applies
// the proxied capability set even when the document is opened directly.
func writeDocument(c *gin.Context, doc browser.Document) {
	etag := digest.ETag(doc.HTML)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	c.Header("Content-Security-Policy", "sandbox "+browser.SandboxProxied)
	c.Header(middleware.HeaderBackend, doc.Backend)
	c.Header(middleware.HeaderFallback, strconv.FormatBool(doc.Fallback))
	if digest.Matches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(doc.HTML))
}
