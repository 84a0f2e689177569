package browser

import (
	"net/url"
	"strings"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
)

// Mode is how a document is rendered in the shell.
type Mode string

const (
	// ModeDirect embeds the site itself in a sandboxed frame.
	ModeDirect Mode = "DIRECT"
	// ModeProxied renders relayed and rewritten HTML instead.
	ModeProxied Mode = "PROXIED"
)

// Sandbox capability sets for the embedding frame.
const (
	SandboxProxied = "allow-same-origin allow-scripts allow-forms allow-popups allow-modals"
	SandboxDirect  = "allow-same-origin allow-scripts allow-forms allow-popups allow-presentation"
)

// Sandbox returns the frame capability set for the mode.
func (m Mode) Sandbox() string {
	if m == ModeProxied {
		return SandboxProxied
	}
	return SandboxDirect
}

// Classifier decides whether a URL can be framed directly. It holds only
// immutable policy data and is safe for concurrent use.
type Classifier struct {
	deny       []string
	exceptions []config.EmbedException
}

// NewClassifier builds a classifier from policy. Entries are lowercased.
func NewClassifier(policy config.Policy) *Classifier {
	c := &Classifier{
		deny:       make([]string, 0, len(policy.DenyList)),
		exceptions: make([]config.EmbedException, 0, len(policy.EmbedExceptions)),
	}
	for _, d := range policy.DenyList {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.deny = append(c.deny, d)
		}
	}
	for _, e := range policy.EmbedExceptions {
		e.Host = strings.ToLower(e.Host)
		e.Path = strings.ToLower(e.Path)
		e.Param = strings.ToLower(e.Param)
		e.Value = strings.ToLower(e.Value)
		c.exceptions = append(c.exceptions, e)
	}
	return c
}

// Classify returns PROXIED for URLs on denied hosts, unless the URL is an
// embed-tolerant variant such as google.com/search?igu=1. It never fails.
func (c *Classifier) Classify(raw string) Mode {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ModeDirect
	}

	u := parseLoose(text)
	if u == nil || u.Hostname() == "" {
		for _, d := range c.deny {
			if strings.Contains(text, d) {
				return ModeProxied
			}
		}
		return ModeDirect
	}

	host := u.Hostname()
	denied := false
	for _, d := range c.deny {
		if matchHost(host, d) {
			denied = true
			break
		}
	}
	if !denied {
		return ModeDirect
	}

	for _, e := range c.exceptions {
		if c.exempt(u, e) {
			return ModeDirect
		}
	}
	return ModeProxied
}

func (c *Classifier) exempt(u *url.URL, e config.EmbedException) bool {
	if e.Host != "" && !matchDomain(u.Hostname(), e.Host) {
		return false
	}
	if e.Path != "" && strings.TrimSuffix(u.Path, "/") != strings.TrimSuffix(e.Path, "/") {
		return false
	}
	if e.Param != "" {
		values, ok := u.Query()[e.Param]
		if !ok {
			return false
		}
		if e.Value == "" {
			return true
		}
		for _, v := range values {
			if v == e.Value {
				return true
			}
		}
		return false
	}
	return true
}

// matchHost applies one deny-list entry: dotted entries are domains,
// bare entries are brand names matched anywhere in the host.
func matchHost(host, entry string) bool {
	if strings.Contains(entry, ".") {
		return matchDomain(host, entry)
	}
	return strings.Contains(host, entry)
}

func matchDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// parseLoose parses absolute URLs and bare hosts like "example.org/a".
func parseLoose(text string) *url.URL {
	if !strings.Contains(text, "://") {
		text = "https://" + text
	}
	u, err := url.Parse(text)
	if err != nil {
		return nil
	}
	return u
}
