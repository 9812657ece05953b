package cache

import "strings"

// Key addresses a cache entry as an ordered list of segments, e.g.
// ["tasks", "detail", "t1"] or ["tasks", "list", "p1", "status=todo"].
type Key []string

// K builds a key from segments.
func K(segments ...string) Key {
	return Key(segments)
}

// With returns a copy of k extended by segments.
func (k Key) With(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// HasPrefix reports whether the leading segments of k equal prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// id is the map key; the separator cannot appear in ids or encoded filters.
func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

func (k Key) clone() Key {
	return append(Key(nil), k...)
}
