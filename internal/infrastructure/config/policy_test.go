package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	assert.Contains(t, p.DenyList, "google.com")
	assert.Contains(t, p.DenyList, "youtube")
	require.Len(t, p.Backends, 3)
	assert.Equal(t, "codetabs", p.Backends[0].Name)
	assert.Equal(t, ShapeEnvelope, p.Backends[1].Shape)
	assert.Equal(t, "contents", p.Backends[1].Field)
	assert.Equal(t, "corsproxy", p.Backends[2].Name)
	assert.Len(t, p.Shortcuts, 4)
}

func TestLoadPolicyEmptyPath(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicyYAML(t *testing.T) {
	path := writePolicy(t, "policy.yaml", `
deny_list:
  - example.com
  - tracker
search_template: "https://duckduckgo.com/?q={query}"
backends:
  - name: local
    endpoint: "http://127.0.0.1:9000/raw?u={url}"
  - name: wrapped
    endpoint: "http://127.0.0.1:9001/get?u={url}"
    shape: envelope
    field: body
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com", "tracker"}, p.DenyList)
	assert.Equal(t, "https://duckduckgo.com/?q={query}", p.SearchTemplate)
	require.Len(t, p.Backends, 2)
	assert.Equal(t, ShapeRaw, p.Backends[0].Shape, "shape defaults to raw")
	assert.Equal(t, "body", p.Backends[1].Field)

	// omitted sections keep defaults
	assert.Equal(t, DefaultPolicy().Shortcuts, p.Shortcuts)
	assert.Equal(t, DefaultPolicy().EmbedExceptions, p.EmbedExceptions)
}

func TestLoadPolicyTOML(t *testing.T) {
	path := writePolicy(t, "policy.toml", `
deny_list = ["example.net"]

[[embed_exceptions]]
host = "example.net"
path = "/embed"
param = "ok"
value = "yes"

[[shortcuts]]
title = "Docs"
url = "https://go.dev/doc"
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"example.net"}, p.DenyList)
	require.Len(t, p.EmbedExceptions, 1)
	assert.Equal(t, "/embed", p.EmbedExceptions[0].Path)
	assert.Equal(t, []ShortcutSpec{{Title: "Docs", URL: "https://go.dev/doc"}}, p.Shortcuts)
	assert.Equal(t, DefaultPolicy().Backends, p.Backends)
}

func TestLoadPolicyErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr error
	}{
		{
			name:    "unsupported extension",
			file:    "policy.json",
			body:    `{}`,
			wantErr: ErrUnsupportedPolicyFormat,
		},
		{
			name: "endpoint without placeholder",
			file: "policy.yaml",
			body: `
backends:
  - name: broken
    endpoint: "http://relay.invalid/"
`,
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "envelope without field",
			file: "policy.yaml",
			body: `
backends:
  - name: wrapped
    endpoint: "http://relay.invalid/?u={url}"
    shape: envelope
`,
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "duplicate backend",
			file: "policy.yml",
			body: `
backends:
  - name: a
    endpoint: "http://one.invalid/?u={url}"
  - name: a
    endpoint: "http://two.invalid/?u={url}"
`,
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "search template without placeholder",
			file:    "policy.toml",
			body:    `search_template = "https://search.invalid/"`,
			wantErr: ErrInvalidPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePolicy(t, tt.file, tt.body)
			_, err := LoadPolicy(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
