package sandbox

import (
	"net/url"
	"strings"
)

// Element is a node in the simulated document. Only what click handling
// needs is modelled: tag, attributes and the parent chain.
type Element struct {
	TagName    string
	Attributes map[string]string
	Parent     *Element
}

// NewElement creates an element with the given attributes.
func NewElement(tag string, attrs map[string]string) *Element {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	return &Element{TagName: strings.ToUpper(tag), Attributes: attrs}
}

// Anchor is shorthand for an <a href=...> element.
func Anchor(href string) *Element {
	return NewElement("a", map[string]string{"href": href})
}

// Append adds child under e and returns child.
func (e *Element) Append(child *Element) *Element {
	child.Parent = e
	return child
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// Closest returns the nearest element, starting at e, with the given tag.
func (e *Element) Closest(tag string) *Element {
	for el := e; el != nil; el = el.Parent {
		if strings.EqualFold(el.TagName, tag) {
			return el
		}
	}
	return nil
}

// resolveHref returns the absolute href and its "#fragment" the way a
// browser exposes them on HTMLAnchorElement.
func resolveHref(base string, raw string) (href, hash string) {
	if raw == "" {
		return "", ""
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw, ""
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		ref = b.ResolveReference(ref)
	}
	if ref.Fragment != "" {
		hash = "#" + ref.EscapedFragment()
	}
	return ref.String(), hash
}
