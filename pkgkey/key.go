// Package pkgkey implements the canonical package key described by the
// store engine's data model: a value tuple of (base URL, package id,
// channel) with a bidirectional string form.
package pkgkey

import (
	"fmt"
	"net/url"
	"strings"
)

// Key is the canonical identifier for a package within a repository and
// channel. Two keys are equal iff all three components are equal.
type Key struct {
	BaseURL string
	ID      string
	Channel string
}

// New builds a Key from its three components, normalizing BaseURL to end
// in a trailing slash.
func New(baseURL, id, channel string) Key {
	return Key{
		BaseURL: ensureTrailingSlash(baseURL),
		ID:      id,
		Channel: channel,
	}
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// String renders the canonical form: "<base-url>packages/<id>#<channel>".
func (k Key) String() string {
	return fmt.Sprintf("%spackages/%s#%s", ensureTrailingSlash(k.BaseURL), k.ID, k.Channel)
}

// Equal reports whether two keys refer to the same package, comparing
// all three components.
func (k Key) Equal(other Key) bool {
	return k.BaseURL == other.BaseURL && k.ID == other.ID && k.Channel == other.Channel
}

// Parse parses the canonical key grammar of spec.md §3/§6:
//
//	<base-url>packages/<id>#<channel>
//
// Both the fragment (channel) and the final "packages/<id>" path segment
// must be present; Parse fails otherwise.
func Parse(s string) (Key, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Key{}, fmt.Errorf("pkgkey: parse %q: %w", s, err)
	}

	channel := u.Fragment
	if channel == "" {
		return Key{}, fmt.Errorf("pkgkey: %q missing channel fragment", s)
	}

	// Strip the fragment before working with path segments so the base
	// URL we join back to doesn't carry it.
	u.Fragment = ""

	segments := strings.Split(strings.TrimSuffix(u.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != "packages" {
		return Key{}, fmt.Errorf("pkgkey: %q missing /packages/<id> segment", s)
	}
	id := segments[len(segments)-1]
	if id == "" {
		return Key{}, fmt.Errorf("pkgkey: %q has empty package id", s)
	}

	base := *u
	base.Path = strings.Join(segments[:len(segments)-2], "/") + "/"

	return Key{
		BaseURL: base.String(),
		ID:      id,
		Channel: channel,
	}, nil
}

// MarshalText implements encoding.TextMarshaler so a Key can be used
// directly as a JSON object key. The config store does not rely on it:
// it writes skipped packages as a list of key/version entries.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
