package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		origin string
		want   Metadata
	}{
		{
			name:   "title and icon",
			doc:    `<html><head><title> Example   Domain </title><link rel="icon" href="/static/fav.png"></head></html>`,
			origin: "https://example.org/page",
			want:   Metadata{Title: "Example Domain", Favicon: "https://example.org/static/fav.png"},
		},
		{
			name:   "shortcut icon relative",
			doc:    `<head><link rel="stylesheet" href="a.css"><link rel="Shortcut Icon" href="img/i.ico"></head>`,
			origin: "https://example.org/dir/page",
			want:   Metadata{Title: "example.org", Favicon: "https://example.org/dir/img/i.ico"},
		},
		{
			name:   "apple touch icon is not an icon rel",
			doc:    `<head><link rel="apple-touch-icon" href="/t.png"></head>`,
			origin: "http://example.org/",
			want:   Metadata{Title: "example.org", Favicon: "http://example.org/favicon.ico"},
		},
		{
			name:   "markup and entities in title",
			doc:    `<title>Tom &amp; Jerry</title>`,
			origin: "https://cartoons.test/",
			want:   Metadata{Title: "Tom & Jerry", Favicon: "https://cartoons.test/favicon.ico"},
		},
		{
			name:   "javascript favicon is ignored",
			doc:    `<link rel="icon" href="javascript:alert(1)">`,
			origin: "https://example.org/",
			want:   Metadata{Title: "example.org", Favicon: "https://example.org/favicon.ico"},
		},
		{
			name:   "unparseable origin",
			doc:    ``,
			origin: "not a url",
			want:   Metadata{Title: "not a url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMetadata(tt.doc, tt.origin))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", CleanText("  a\n\t<b>b</b> "))
	assert.Equal(t, "", CleanText("<script>x</script>"))
	assert.Equal(t, `"quoted" & more`, CleanText("&quot;quoted&quot; &amp; more"))
}
