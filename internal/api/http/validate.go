package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"github.com/gin-gonic/gin"
)

// Limits bounds request bodies (in bytes).
type Limits struct {
	JSONBytes    int64 // ordinary JSON requests
	RewriteBytes int64 // POST /rewrite, which carries a whole page
	NotesBytes   int   // scratchpad text
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		JSONBytes:    64 * 1024,
		RewriteBytes: 10 * 1024 * 1024,
		NotesBytes:   256 * 1024,
	}
}

// bindJSON decodes a size-limited JSON body into v, writing a 400 and
// returning false on failure.
func bindJSON(c *gin.Context, v interface{}, limit int64) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit))
			return false
		}
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return false
	}
	return true
}

// idParam reads the :id path parameter and checks it carries prefix.
func idParam(c *gin.Context, prefix string) (string, bool) {
	raw := c.Param("id")
	if !id.HasPrefix(raw, prefix) {
		respondError(c, fmt.Errorf("%w: %q is not a %s id", errInvalidID, raw, prefix))
		return "", false
	}
	return raw, true
}

func tabParam(c *gin.Context) (id.TabID, bool) {
	raw, ok := idParam(c, id.TabPrefix)
	return id.TabID(raw), ok
}

const (
	defaultFilename = "page.html"
	maxFilenameLen  = 100
)

// downloadFilename derives a safe attachment name from a page title.
func downloadFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|;`, r):
			return '_'
		}
		return r
	}, browser.CleanText(title))

	name = strings.Trim(strings.TrimSpace(name), ".")
	if len([]rune(name)) > maxFilenameLen {
		name = strings.TrimSpace(string([]rune(name)[:maxFilenameLen]))
	}
	if name == "" {
		return defaultFilename
	}
	return name + ".html"
}
