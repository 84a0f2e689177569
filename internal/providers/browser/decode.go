package browser

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// ErrBinaryContent is returned when a relay answers with non-text bytes,
// e.g. an image or archive instead of a page.
var ErrBinaryContent = errors.New("relay returned binary content")

// IsText reports whether body sniffs as a text format.
func IsText(body []byte) bool {
	for m := mimetype.Detect(body); m != nil; m = m.Parent() {
		s := m.String()
		if strings.HasPrefix(s, "text/") ||
			s == "application/json" ||
			s == "application/xml" ||
			s == "application/javascript" {
			return true
		}
	}
	return false
}

// DetectMIME returns the sniffed MIME type of body without parameters.
func DetectMIME(body []byte) string {
	s := mimetype.Detect(body).String()
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return s
}

// decodeText converts a relay body to UTF-8. A BOM or the Content-Type
// charset win. Otherwise valid UTF-8 is kept as is, and anything else goes
// through chardet, falling back to the <meta> declaration.
func decodeText(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	if !IsText(body) {
		return "", ErrBinaryContent
	}

	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		if utf8.Valid(body) {
			return string(body), nil
		}
		if res, err := chardet.NewHtmlDetector().DetectBest(body); err == nil && res != nil {
			if e, n := charset.Lookup(res.Charset); e != nil {
				enc, name = e, n
			}
		}
	}

	if name == "utf-8" {
		return strings.TrimPrefix(strings.ToValidUTF8(string(body), "�"), "\ufeff"), nil
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�"), nil
	}
	return string(out), nil
}
