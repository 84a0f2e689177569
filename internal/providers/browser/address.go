package browser

import (
	"errors"
	"net/url"
	"strings"
)

// ErrEmptyAddress is returned for blank address bar input.
var ErrEmptyAddress = errors.New("address is empty")

// Address is normalized address bar input.
type Address struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Search bool   `json:"search"`
}

// NormalizeAddress turns address bar input into a URL. Input with a scheme
// is used as is; input that looks like a host gets https://; anything else
// becomes a search through searchTemplate, whose {query} placeholder is
// replaced with the query-escaped input.
func NormalizeAddress(input, searchTemplate string) (Address, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return Address{}, ErrEmptyAddress
	}

	if strings.Contains(in, "://") {
		return Address{URL: in, Title: hostTitle(in)}, nil
	}

	if strings.Contains(in, ".") && !strings.ContainsAny(in, " \t") {
		u := "https://" + in
		return Address{URL: u, Title: hostTitle(u)}, nil
	}

	return Address{
		URL:    strings.ReplaceAll(searchTemplate, "{query}", url.QueryEscape(in)),
		Title:  "Search: " + in,
		Search: true,
	}, nil
}

func hostTitle(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
