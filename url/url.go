// Package url decomposes the http URLs handed to the browser into the
// pieces a fetcher needs: host, port, path and query parameters.
package url

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	scheme      = "http://"
	defaultPort = 80
)

// URL is an immutable, decomposed http URL. The zero value is not useful;
// build one with Parse.
type URL struct {
	host       string
	port       uint16
	path       string
	hasPath    bool
	searchpart map[string]string
}

// Parse decomposes raw, which must be of the form
// http://host[:port][/path][?query]. Query pairs are split on '&' and then
// on the first '='; when a key repeats the last value wins.
func Parse(raw string) (*URL, error) {
	if !strings.HasPrefix(raw, scheme) {
		return nil, errors.Wrapf(ErrInvalidScheme, "parse %q", raw)
	}
	rest := strings.TrimPrefix(raw, scheme)

	authority, remainder, hasPath := strings.Cut(rest, "/")
	host, portStr, hasPort := strings.Cut(authority, ":")
	if host == "" {
		return nil, errors.Wrapf(ErrEmptyHost, "parse %q", raw)
	}

	port := uint16(defaultPort)
	if hasPort {
		p, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPort, "parse %q: port %q", raw, portStr)
		}
		port = uint16(p)
	}

	u := &URL{
		host:       host,
		port:       port,
		searchpart: map[string]string{},
	}
	if !hasPath {
		return u, nil
	}

	path, query, hasQuery := strings.Cut(remainder, "?")
	u.path, u.hasPath = path, true
	if hasQuery {
		u.searchpart = parseSearchpart(query)
	}
	return u, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *URL {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func parseSearchpart(query string) map[string]string {
	searchpart := map[string]string{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		searchpart[k] = v
	}
	return searchpart
}

// Host returns the host segment, never empty.
func (u *URL) Host() string {
	return u.host
}

// Port returns the explicit port, or 80.
func (u *URL) Port() uint16 {
	return u.port
}

// Path returns the path without its leading '/', and whether the URL had
// one at all.
func (u *URL) Path() (string, bool) {
	return u.path, u.hasPath
}

// Searchpart returns a copy of the query parameters. It is empty, not nil,
// when the URL has no query.
func (u *URL) Searchpart() map[string]string {
	return maps.Clone(u.searchpart)
}

// IsHTTP reports whether the URL uses the http scheme. Parse accepts
// nothing else, so this is always true.
func (u *URL) IsHTTP() bool {
	return true
}

// String reassembles the URL. The port is only written when it is not 80
// and query keys are written in sorted order.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(u.host)
	if u.port != defaultPort {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(u.port)))
	}
	if !u.hasPath {
		return b.String()
	}
	b.WriteByte('/')
	b.WriteString(u.path)
	if len(u.searchpart) == 0 {
		return b.String()
	}
	for i, k := range slices.Sorted(maps.Keys(u.searchpart)) {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(u.searchpart[k])
	}
	return b.String()
}
