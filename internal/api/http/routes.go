package http

import "github.com/gin-gonic/gin"

// Register mounts every handler on r. /metrics and /bridge are mounted by
// the server, which owns the registry and the socket handler.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/classify", h.Classify)
	r.GET("/address", h.Address)
	r.GET("/proxy", h.Proxy)
	r.POST("/rewrite", h.Rewrite)

	r.GET("/tabs", h.ListTabs)
	r.POST("/tabs", h.CreateTab)
	r.GET("/tabs/:id", h.GetTab)
	r.DELETE("/tabs/:id", h.CloseTab)
	r.POST("/tabs/:id/activate", h.ActivateTab)
	r.POST("/tabs/:id/navigate", h.NavigateTab)
	r.POST("/tabs/:id/refresh", h.RefreshTab)
	r.POST("/tabs/:id/proxy", h.ToggleProxy)
	r.GET("/tabs/:id/document", h.TabDocument)
	r.GET("/tabs/:id/download", h.DownloadTab)

	r.PUT("/connectivity", h.SetConnectivity)

	r.GET("/history", h.ListHistory)
	r.DELETE("/history", h.ClearHistory)
	r.DELETE("/history/:id", h.DeleteHistory)

	r.GET("/shortcuts", h.ListShortcuts)
	r.POST("/shortcuts", h.AddShortcut)
	r.DELETE("/shortcuts/:id", h.RemoveShortcut)

	r.GET("/downloads", h.ListDownloads)
	r.DELETE("/downloads", h.ClearDownloads)

	r.GET("/notes", h.GetNotes)
	r.PUT("/notes", h.SetNotes)

	r.POST("/logs", h.StreamLogs)
}
