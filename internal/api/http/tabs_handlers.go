package http

import (
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListTabs lists open tabs
func (h *Handlers) ListTabs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tabs":    h.tabs.List(),
		"active":  h.tabs.Active().ID,
		"offline": h.tabs.Offline(),
	})
}

// CreateTab opens a tab, navigating it when a URL is given.
func (h *Handlers) CreateTab(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, h.limits.JSONBytes) {
		return
	}

	tab, err := h.tabs.NewTab(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tab)
}

// GetTab returns one tab
func (h *Handlers) GetTab(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	tab, err := h.tabs.Get(tabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// CloseTab closes a tab and reports which tab is active afterwards.
func (h *Handlers) CloseTab(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	if err := h.tabs.Close(c.Request.Context(), tabID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tab_id":  tabID,
		"active":  h.tabs.Active().ID,
	})
}

// ActivateTab focuses a tab
func (h *Handlers) ActivateTab(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	tab, err := h.tabs.Activate(c.Request.Context(), tabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// NavigateTab loads address bar input into a tab. For proxied sites the
// response comes back with loading set; the document follows on
// /tabs/:id/document or as a tab_updated event on the bridge socket.
func (h *Handlers) NavigateTab(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if !bindJSON(c, &req, h.limits.JSONBytes) {
		return
	}

	tab, err := h.tabs.Navigate(c.Request.Context(), tabID, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// RefreshTab reloads a tab's current URL.
func (h *Handlers) RefreshTab(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	tab, err := h.tabs.Refresh(c.Request.Context(), tabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// ToggleProxy flips a tab between direct and proxied rendering.
func (h *Handlers) ToggleProxy(c *gin.Context) {
	tabID, ok := tabParam(c)
	if !ok {
		return
	}
	tab, err := h.tabs.ToggleProxy(c.Request.Context(), tabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// TabDocument serves the live proxied document of a tab: 202 while the
// fetch runs, 404 when the tab renders directly or has nothing loaded.
func (h *Handlers) TabDocument(c *gin.Context) {
	doc, ok := h.liveDocument(c)
	if !ok {
		return
	}
	writeDocument(c, doc)
}

// DownloadTab saves the live document as an HTML attachment and records
// the download.
func (h *Handlers) DownloadTab(c *gin.Context) {
	doc, ok := h.liveDocument(c)
	if !ok {
		return
	}

	body := []byte(doc.HTML)
	filename := downloadFilename(doc.Title)
	mime := browser.DetectMIME(body)

	if _, err := h.session.RecordDownload(c.Request.Context(), filename, doc.URL, int64(len(body)), mime); err != nil {
		// The file is still served; only the list entry is lost.
		h.logger.Warn("failed to record download", zap.String("url", doc.URL), zap.Error(err))
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, htmlContentType, body)
}

func (h *Handlers) liveDocument(c *gin.Context) (browser.Document, bool) {
	tabID, ok := tabParam(c)
	if !ok {
		return browser.Document{}, false
	}
	tab, doc, ok, err := h.tabs.Live(tabID)
	if err != nil {
		respondError(c, err)
		return browser.Document{}, false
	}
	if tab.Loading {
		c.JSON(http.StatusAccepted, gin.H{"loading": true, "tab_id": tabID})
		return browser.Document{}, false
	}
	if !ok {
		respondError(c, fmt.Errorf("%w: %s", errDocumentNotFound, tabID))
		return browser.Document{}, false
	}
	return doc, true
}

// SetConnectivity switches offline mode.
func (h *Handlers) SetConnectivity(c *gin.Context) {
	var req struct {
		Online *bool `json:"online" binding:"required"`
	}
	if !bindJSON(c, &req, h.limits.JSONBytes) {
		return
	}

	h.tabs.SetOffline(!*req.Online)
	c.JSON(http.StatusOK, gin.H{"online": !h.tabs.Offline()})
}
