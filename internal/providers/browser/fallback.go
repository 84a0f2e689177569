package browser

import (
	"bytes"
	"html"
	"html/template"
)

// FallbackTitle is the title of the document shown when every relay fails.
const FallbackTitle = "Connection Failed"

var fallbackTmpl = template.Must(template.New("fallback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Connection Failed</title>
</head>
<body style="font-family: system-ui, -apple-system, sans-serif; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; background: #f8fafc; color: #334155;">
<div style="text-align: center; padding: 20px; max-width: 500px;">
<h2 style="color: #e11d48; margin-bottom: 16px;">Connection Failed</h2>
<p style="margin-bottom: 20px; line-height: 1.5;">Nebula could not load <strong>{{.URL}}</strong> through the compatibility layer. The site may have extremely strict bot protection.</p>
<div style="display: flex; gap: 10px; justify-content: center;">
<button type="button" onclick="window.location.reload()" style="padding: 10px 20px; background: #cbd5e1; border: none; border-radius: 6px; cursor: pointer; color: #1e293b; font-weight: bold;">Retry</button>
<a href="{{.Link}}" target="_blank" rel="noopener noreferrer" style="padding: 10px 20px; background: #3b82f6; text-decoration: none; border-radius: 6px; color: white; font-weight: bold;">Open in New Tab</a>
</div>
</div>
</body>
</html>
`))

// FallbackDocument renders the local page shown when no relay returned a
// usable document. The URL is escaped in text and sanitized in the link.
func FallbackDocument(target string) string {
	var buf bytes.Buffer
	err := fallbackTmpl.Execute(&buf, struct {
		URL  string
		Link template.URL
	}{
		URL:  target,
		Link: safeLink(target),
	})
	if err != nil {
		// Only reachable on writer failure, which bytes.Buffer never has.
		return "<!DOCTYPE html><html><head><title>Connection Failed</title></head><body><p>Nebula could not load <strong>" +
			html.EscapeString(target) + "</strong>.</p></body></html>"
	}
	return buf.String()
}

// safeLink allows only http(s) targets in the "Open in New Tab" link.
func safeLink(target string) template.URL {
	u := parseLoose(target)
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "about:blank"
	}
	return template.URL(u.String())
}
