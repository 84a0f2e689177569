package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/providers/http/client"
	"github.com/bytedance/sonic"
)

// ErrEmptyDocument is returned when a relay yields only whitespace.
var ErrEmptyDocument = errors.New("relay returned an empty document")

// Payload extracts page HTML from a relay response.
type Payload interface {
	Extract(resp *client.Response) (string, error)
}

// RawPayload is a relay that returns the page bytes unchanged.
type RawPayload struct{}

// Extract decodes the body to UTF-8.
func (RawPayload) Extract(resp *client.Response) (string, error) {
	return decodeText(resp.Body, resp.ContentType)
}

// EnvelopePayload is a relay that wraps the page in a JSON object; Field
// names the string member holding the HTML.
type EnvelopePayload struct {
	Field string
}

// Extract decodes the envelope and returns Field.
func (p EnvelopePayload) Extract(resp *client.Response) (string, error) {
	var env map[string]interface{}
	if err := sonic.Unmarshal(resp.Body, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	v, ok := env[p.Field]
	if !ok || v == nil {
		return "", fmt.Errorf("envelope has no %q", p.Field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("envelope %q is %T, not a string", p.Field, v)
	}
	return s, nil
}

// Backend is one relay in the ordered chain.
type Backend struct {
	Name     string
	Endpoint string
	Payload  Payload
}

// URL returns the relay request URL for target.
func (b Backend) URL(target string) string {
	return strings.ReplaceAll(b.Endpoint, "{url}", url.QueryEscape(target))
}

// BackendsFromPolicy builds the relay chain in policy order.
func BackendsFromPolicy(specs []config.BackendSpec) []Backend {
	out := make([]Backend, 0, len(specs))
	for _, s := range specs {
		var payload Payload = RawPayload{}
		if s.Shape == config.ShapeEnvelope {
			payload = EnvelopePayload{Field: s.Field}
		}
		out = append(out, Backend{Name: s.Name, Endpoint: s.Endpoint, Payload: payload})
	}
	return out
}

// extract runs the payload adapter and rejects blank documents.
func (b Backend) extract(resp *client.Response) (string, error) {
	html, err := b.Payload.Extract(resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyDocument
	}
	return html, nil
}
