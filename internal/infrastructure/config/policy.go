package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrInvalidPolicy is wrapped by every policy validation failure.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrUnsupportedPolicyFormat is returned for extensions other than yaml, yml and toml.
	ErrUnsupportedPolicyFormat = errors.New("unsupported policy format")
)

// Backend response shapes.
const (
	ShapeRaw      = "raw"
	ShapeEnvelope = "envelope"
)

// Policy is the data side of classification and relaying: which domains
// refuse framing, which search URLs are exempt, where searches go, the
// default shortcuts, and the ordered relay list.
type Policy struct {
	DenyList        []string         `yaml:"deny_list" toml:"deny_list"`
	EmbedExceptions []EmbedException `yaml:"embed_exceptions" toml:"embed_exceptions"`
	SearchTemplate  string           `yaml:"search_template" toml:"search_template"`
	Shortcuts       []ShortcutSpec   `yaml:"shortcuts" toml:"shortcuts"`
	Backends        []BackendSpec    `yaml:"backends" toml:"backends"`
}

// EmbedException marks a URL on a denied host that tolerates framing,
// e.g. google.com/search?igu=1.
type EmbedException struct {
	Host  string `yaml:"host" toml:"host"`
	Path  string `yaml:"path" toml:"path"`
	Param string `yaml:"param" toml:"param"`
	Value string `yaml:"value" toml:"value"`
}

// ShortcutSpec is a default speed-dial entry.
type ShortcutSpec struct {
	Title string `yaml:"title" toml:"title"`
	URL   string `yaml:"url" toml:"url"`
}

// BackendSpec describes one relay. Endpoint must contain {url}, which is
// replaced with the query-escaped target.
type BackendSpec struct {
	Name     string `yaml:"name" toml:"name"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Shape    string `yaml:"shape" toml:"shape"`
	Field    string `yaml:"field" toml:"field"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		DenyList: []string{
			"google.com", "amazon", "facebook", "twitter", "x.com", "linkedin",
			"bing", "yahoo", "reddit", "wikipedia", "youtube",
		},
		EmbedExceptions: []EmbedException{
			{Host: "google.com", Path: "/search", Param: "igu", Value: "1"},
		},
		SearchTemplate: "https://www.google.com/search?q={query}&igu=1",
		Shortcuts: []ShortcutSpec{
			{Title: "Google", URL: "https://google.com"},
			{Title: "Amazon", URL: "https://amazon.com"},
			{Title: "Bing", URL: "https://bing.com"},
			{Title: "Wikipedia", URL: "https://wikipedia.org"},
		},
		Backends: []BackendSpec{
			{Name: "codetabs", Endpoint: "https://api.codetabs.com/v1/proxy?quest={url}", Shape: ShapeRaw},
			{Name: "allorigins", Endpoint: "https://api.allorigins.win/get?url={url}", Shape: ShapeEnvelope, Field: "contents"},
			{Name: "corsproxy", Endpoint: "https://corsproxy.io/?{url}", Shape: ShapeRaw},
		},
	}
}

// LoadPolicy reads a YAML or TOML policy file. Sections the file leaves
// out keep their defaults; an empty path yields DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy %s: %w", path, err)
	}

	var p Policy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".toml":
		err = toml.Unmarshal(data, &p)
	default:
		return Policy{}, fmt.Errorf("%w: %s", ErrUnsupportedPolicyFormat, path)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy %s: %w", path, err)
	}

	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if len(p.DenyList) == 0 {
		p.DenyList = def.DenyList
	}
	if p.EmbedExceptions == nil {
		p.EmbedExceptions = def.EmbedExceptions
	}
	if p.SearchTemplate == "" {
		p.SearchTemplate = def.SearchTemplate
	}
	if len(p.Shortcuts) == 0 {
		p.Shortcuts = def.Shortcuts
	}
	if len(p.Backends) == 0 {
		p.Backends = def.Backends
	}
	for i := range p.Backends {
		if p.Backends[i].Shape == "" {
			p.Backends[i].Shape = ShapeRaw
		}
	}
	return p
}

// Validate checks the policy for entries the pipeline cannot use.
func (p Policy) Validate() error {
	if len(p.Backends) == 0 {
		return fmt.Errorf("%w: at least one backend is required", ErrInvalidPolicy)
	}

	seen := make(map[string]struct{}, len(p.Backends))
	for i, b := range p.Backends {
		if b.Name == "" {
			return fmt.Errorf("%w: backend %d has no name", ErrInvalidPolicy, i)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("%w: duplicate backend %q", ErrInvalidPolicy, b.Name)
		}
		seen[b.Name] = struct{}{}

		if !strings.Contains(b.Endpoint, "{url}") {
			return fmt.Errorf("%w: backend %q endpoint lacks {url}", ErrInvalidPolicy, b.Name)
		}
		switch b.Shape {
		case ShapeRaw:
		case ShapeEnvelope:
			if b.Field == "" {
				return fmt.Errorf("%w: envelope backend %q needs a field", ErrInvalidPolicy, b.Name)
			}
		default:
			return fmt.Errorf("%w: backend %q has unknown shape %q", ErrInvalidPolicy, b.Name, b.Shape)
		}
	}

	if !strings.Contains(p.SearchTemplate, "{query}") {
		return fmt.Errorf("%w: search_template lacks {query}", ErrInvalidPolicy)
	}
	for _, e := range p.DenyList {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%w: empty deny_list entry", ErrInvalidPolicy)
		}
	}
	for _, s := range p.Shortcuts {
		if s.Title == "" || s.URL == "" {
			return fmt.Errorf("%w: shortcut needs title and url", ErrInvalidPolicy)
		}
	}
	return nil
}
