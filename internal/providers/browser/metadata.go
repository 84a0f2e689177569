package browser

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
)

// Metadata is what the tab strip shows for a document.
type Metadata struct {
	Title   string `json:"title"`
	Favicon string `json:"favicon,omitempty"`
}

var titlePolicy = bluemonday.StrictPolicy()

const iconXPath = `//link[@href][contains(concat(' ', translate(normalize-space(@rel), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), ' '), ' icon ')]`

// ExtractMetadata reads the title and favicon of a fetched page. The title
// falls back to the host and the favicon to /favicon.ico on the origin.
func ExtractMetadata(doc, origin string) Metadata {
	base, _ := url.Parse(origin)

	meta := Metadata{Title: extractTitle(doc)}
	if meta.Title == "" && base != nil {
		meta.Title = base.Hostname()
	}
	if meta.Title == "" {
		meta.Title = origin
	}

	meta.Favicon = extractFavicon(doc, base)
	return meta
}

func extractTitle(doc string) string {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	return CleanText(d.Find("title").First().Text())
}

func extractFavicon(doc string, base *url.URL) string {
	if base == nil || base.Host == "" {
		return ""
	}

	if root, err := htmlquery.Parse(strings.NewReader(doc)); err == nil {
		if node, err := htmlquery.Query(root, iconXPath); err == nil && node != nil {
			href := strings.TrimSpace(htmlquery.SelectAttr(node, "href"))
			if ref, err := url.Parse(href); err == nil && href != "" {
				abs := base.ResolveReference(ref)
				if abs.Scheme == "http" || abs.Scheme == "https" || abs.Scheme == "data" {
					return abs.String()
				}
			}
		}
	}

	return (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String()
}

// CleanText strips markup from s and collapses whitespace, for titles and
// other labels that end up in the shell's chrome.
func CleanText(s string) string {
	s = html.UnescapeString(titlePolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
