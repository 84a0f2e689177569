package browser

import (
	"html"
	"regexp"
	"strings"
)

// Marker attributes tag injected elements. A second rewrite removes only
// the exact markup it emitted, so page content that happens to carry a
// marker is left alone.
const (
	baseMarker   = "data-nebula-base"
	scriptMarker = "data-nebula-bridge"

	injectedScript = `<script ` + scriptMarker + `>` + interceptionScript + `</script>`
)

var (
	headOpen  = regexp.MustCompile(`(?i)<head(?:\s[^>]*)?>`)
	htmlOpen  = regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`)
	bodyClose = regexp.MustCompile(`(?i)</body\s*>`)

	// The origin is escaped on the way in, so the href holds no quote.
	injectedBase = regexp.MustCompile(`<base href="[^"]*" target="_self" ` + baseMarker + `>`)
)

// Rewrite prepares relayed HTML for a sandboxed frame. A base element
// pointing at origin goes right after the first opening head tag, and the
// click interception script goes right before the first closing body tag
// (or at the end when there is none). Rewriting its own output yields the
// same document.
func Rewrite(doc, origin string) string {
	doc = injectedBase.ReplaceAllLiteralString(doc, "")
	doc = strings.ReplaceAll(doc, injectedScript, "")

	base := `<base href="` + html.EscapeString(origin) + `" target="_self" ` + baseMarker + `>`

	switch {
	case headOpen.MatchString(doc):
		doc = insertAfter(doc, headOpen, base)
	case htmlOpen.MatchString(doc):
		doc = insertAfter(doc, htmlOpen, "<head>"+base+"</head>")
	default:
		doc = "<html><head>" + base + "</head>" + doc + "</html>"
	}

	if loc := bodyClose.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + injectedScript + doc[loc[0]:]
	}
	return doc + injectedScript
}

func insertAfter(doc string, re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(doc)
	var b strings.Builder
	b.Grow(len(doc) + len(s))
	b.WriteString(doc[:loc[1]])
	b.WriteString(s)
	b.WriteString(doc[loc[1]:])
	return b.String()
}
