package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// CompressConfig configures response compression.
type CompressConfig struct {
	Level int
	// Skip lists path prefixes served uncompressed.
	Skip []string
}

// DefaultCompressConfig leaves the metrics endpoint and the bridge socket
// alone.
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level: gzip.DefaultCompression,
		Skip:  []string{"/metrics", "/bridge"},
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	gz      *gzip.Writer
	written bool
}

func (w *gzipWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	w.Header().Del("Content-Length")
	w.written = true
	return w.gz.Write(b)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Compress gzips responses for clients that accept it. Proxied documents
// are large and repetitive, which is where this pays off.
func Compress(cfg CompressConfig) gin.HandlerFunc {
	pool := sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, cfg.Level)
			if err != nil {
				gz, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return gz
		},
	}

	return func(c *gin.Context) {
		if !shouldCompress(c.Request, cfg.Skip) {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		defer pool.Put(gz)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")

		w := &gzipWriter{ResponseWriter: c.Writer, gz: gz}
		c.Writer = w
		defer func() {
			if !w.written {
				w.Header().Del("Content-Encoding")
				gz.Reset(io.Discard)
			}
			_ = gz.Close()
		}()

		c.Next()
	}
}

func shouldCompress(r *http.Request, skip []string) bool {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	if r.Method == http.MethodHead {
		return false
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != "" {
		return false
	}
	for _, prefix := range skip {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}
