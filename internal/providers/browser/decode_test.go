package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestIsText(t *testing.T) {
	assert.True(t, IsText([]byte("<!DOCTYPE html><html></html>")))
	assert.True(t, IsText([]byte("plain words")))
	assert.True(t, IsText([]byte(`{"contents":"x"}`)))
	assert.False(t, IsText(pngHeader))
	assert.Equal(t, "image/png", DetectMIME(pngHeader))
	assert.Equal(t, "text/html", DetectMIME([]byte("<html><body></body></html>")))
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{name: "utf-8", body: []byte("<p>café</p>"), contentType: "text/html", want: "<p>café</p>"},
		{name: "header charset", body: []byte("<p>caf\xe9</p>"), contentType: "text/html; charset=iso-8859-1", want: "<p>café</p>"},
		{name: "bom", body: []byte("\xef\xbb\xbf<p>x</p>"), want: "<p>x</p>"},
		{name: "empty", body: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeText(tt.body, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTextRejectsBinary(t *testing.T) {
	_, err := decodeText(pngHeader, "text/html")
	assert.ErrorIs(t, err, ErrBinaryContent)
}
