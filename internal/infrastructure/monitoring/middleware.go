package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection. Requests are
// labelled by route pattern, not raw path, to keep tab ids out of label sets.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		size := int64(c.Writer.Size())
		if size < 0 {
			size = 0
		}

		metrics.RecordHTTPRequest(c.Request.Method, path, status, time.Since(start), size)
	}
}

// Timer measures a relay attempt.
type Timer struct {
	start   time.Time
	metrics *Metrics
	backend string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, backend string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		backend: backend,
	}
}

// Stop stops the timer and records the attempt with its outcome.
func (t *Timer) Stop(outcome string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordRelayAttempt(t.backend, outcome, time.Since(t.start))
}
