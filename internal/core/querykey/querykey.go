// Package querykey provides the canonical identity of a cached read
// Two keys are equal iff their canonical serializations are equal, regardless
// of how the filter map was built or in what order pairs were added
package querykey

import (
	"sort"
	"strings"
)

// Sort describes result ordering for a query
type Sort struct {
	Field string
	Desc  bool
}

// Key identifies a logical query: a resource plus its filter and sort
type Key struct {
	Resource string
	Filter   map[string]string
	Sort     Sort
}

// New builds a Key for resource with an optional filter
func New(resource string, filter map[string]string) Key {
	return Key{Resource: resource, Filter: filter}
}

// WithSort returns a copy of k with the sort applied
func (k Key) WithSort(field string, desc bool) Key {
	k.Sort = Sort{Field: field, Desc: desc}
	return k
}

// Canon returns the canonical serialization of k
// layout: resource|k1=v1&k2=v2|sortField+ or sortField- with filter pairs
// ordered bytewise ascending by key then value
func (k Key) Canon() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteByte('|')

	if len(k.Filter) > 0 {
		pairs := make([]string, 0, len(k.Filter))
		for f, v := range k.Filter {
			pairs = append(pairs, escape(f)+"="+escape(v))
		}
		sort.Strings(pairs)
		b.WriteString(strings.Join(pairs, "&"))
	}
	b.WriteByte('|')

	if k.Sort.Field != "" {
		b.WriteString(escape(k.Sort.Field))
		if k.Sort.Desc {
			b.WriteByte('-')
		} else {
			b.WriteByte('+')
		}
	}
	return b.String()
}

// Equal reports whether two keys identify the same logical query
func Equal(a, b Key) bool { return a.Canon() == b.Canon() }

// HasPrefix reports whether canon starts with the given resource prefix
// used by predicate invalidation, e.g. prefix "skills|" matches every skills key
func HasPrefix(canon, prefix string) bool { return strings.HasPrefix(canon, prefix) }

// ResourcePrefix returns the canon prefix that matches every key for resource
func ResourcePrefix(resource string) string { return resource + "|" }

// escape keeps the canon unambiguous when filter text contains separators
func escape(s string) string {
	if !strings.ContainsAny(s, "|&=\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, "|", `\|`, "&", `\&`, "=", `\=`)
	return r.Replace(s)
}
