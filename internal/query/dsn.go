package query

import "strings"

// Descriptor is a driver-ready connection target. It is rebuilt from the
// source on every attempt and never cached, so rotated credentials apply
// to the next query.
type Descriptor struct {
	URL         string
	TLSRequired bool
}

// Resolver turns a raw connection-string source into a Descriptor. The
// source is injected rather than read from the process environment, which
// keeps the resolver pure and testable.
type Resolver struct {
	source func() (string, bool)
}

func NewResolver(source func() (string, bool)) *Resolver {
	return &Resolver{source: source}
}

// StaticSource wraps a fixed connection string, mainly for tests and tools.
func StaticSource(url string) func() (string, bool) {
	return func() (string, bool) {
		return url, strings.TrimSpace(url) != ""
	}
}

// Configured reports whether a connection string is currently available.
func (r *Resolver) Configured() bool {
	if r == nil || r.source == nil {
		return false
	}
	raw, ok := r.source()
	return ok && strings.TrimSpace(raw) != ""
}

// Resolve reads the current source value and normalizes it. Fails with
// ErrNotConfigured when no value is available.
func (r *Resolver) Resolve() (Descriptor, error) {
	if r == nil || r.source == nil {
		return Descriptor{}, ErrNotConfigured
	}
	raw, ok := r.source()
	if !ok || strings.TrimSpace(raw) == "" {
		return Descriptor{}, ErrNotConfigured
	}
	url := NormalizeURL(raw)
	return Descriptor{
		URL:         url,
		TLSRequired: strings.Contains(url, "sslmode=require"),
	}, nil
}

// NormalizeURL cleans up a connection string pasted from an operator
// console: surrounding whitespace, a leading "psql " invocation, one pair
// of surrounding quotes, and a missing sslmode parameter. Applying it to
// an already-clean URL is a no-op.
func NormalizeURL(raw string) string {
	url := strings.TrimSpace(raw)
	if strings.HasPrefix(url, "psql ") {
		url = strings.TrimSpace(strings.TrimPrefix(url, "psql "))
	}
	if len(url) >= 2 {
		first, last := url[0], url[len(url)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			url = url[1 : len(url)-1]
		}
	}
	if !strings.Contains(url, "sslmode=") {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url += separator + "sslmode=require"
	}
	return url
}
