package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasher(t *testing.T) {
	b := Default()
	s := New(SHA256)

	assert.Len(t, b.HashString("page"), 64)
	assert.Equal(t, b.HashString("page"), b.HashString("page"))
	assert.NotEqual(t, b.HashString("page"), b.HashString("other"))
	assert.NotEqual(t, b.HashString("page"), s.HashString("page"))
	assert.Equal(t, New("unknown").HashString("page"), b.HashString("page"))
}

func TestHashFieldsOrderIndependent(t *testing.T) {
	h := Default()
	assert.Equal(t, h.HashFields("a", "b", "c"), h.HashFields("c", "a", "b"))
	assert.NotEqual(t, h.HashFields("a", "b"), h.HashFields("a", "c"))
}

func TestETag(t *testing.T) {
	tag := ETag("<html></html>")
	assert.Len(t, tag, etagLen+2)
	assert.Equal(t, byte('"'), tag[0])
	assert.Equal(t, tag, ETag("<html></html>"))
	assert.NotEqual(t, tag, ETag("<html> </html>"))
}

func TestMatches(t *testing.T) {
	tag := ETag("body")

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"empty", "", false},
		{"exact", tag, true},
		{"weak", "W/" + tag, true},
		{"list", `"other", ` + tag, true},
		{"wildcard", "*", true},
		{"different", `"0000000000000000"`, false},
		{"unquoted", tag[1 : len(tag)-1], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.header, tag))
		})
	}
}
