package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/jsonpath/pointer"
)

// undefined is the type of the Undefined sentinel.
type undefined struct{}

func (undefined) String() string { return "<undefined>" }

// Undefined is the special "nothing" value, distinct from every JSON value
// including null. It is produced by filter expressions when a singular
// query selects nothing, and never appears in input data.
var Undefined = undefined{}

// keysPrefix marks a location part produced by the keys selector. The
// marked part addresses a mapping key itself rather than its value.
const keysPrefix = "~"

// Match is a single node produced by a query: a value plus the location
// that selected it.
//
// Children are populated as child matches are produced, so the list is
// only complete once the producing iterator has been exhausted, typically
// after FindAll or a full FindIter pass.
type Match struct {
	// Value is the matched value.
	Value any

	// Parts holds the keys and indices leading to the value. Keys
	// selected by the keys selector carry a leading '~'.
	Parts []any

	// Path is the normalized path string for this match.
	Path string

	// Parent is the match this one was produced from, or nil for the
	// root match.
	Parent *Match

	// Root is the value the query was applied to.
	Root any

	children      []*Match
	filterContext map[string]any
}

func (m *Match) String() string {
	return fmt.Sprintf("%v @ %s", m.Value, m.Path)
}

// Children returns matches produced from this one, in production order.
func (m *Match) Children() []*Match { return m.children }

func (m *Match) addChild(child *Match) {
	m.children = append(m.children, child)
}

// FilterContext returns the extra context data this match was produced
// with, or nil.
func (m *Match) FilterContext() map[string]any { return m.filterContext }

// Pointer returns an RFC 6901 pointer to this match. Keys-selector parts
// become non-standard '#'-marked tokens.
func (m *Match) Pointer() (pointer.Pointer, error) {
	parts := make([]any, len(m.Parts))
	for i, part := range m.Parts {
		if s, ok := part.(string); ok {
			if name, marked := strings.CutPrefix(s, keysPrefix); marked {
				parts[i] = pointer.KeysMarker + name
				continue
			}
		}
		parts[i] = part
	}
	return pointer.FromParts(parts)
}

// child derives a new match from m, extending the location with one part
// and the normalized path with its serialized form.
func (m *Match) child(env *Environment, value any, part any, pathSegment string) *Match {
	parts := make([]any, len(m.Parts), len(m.Parts)+1)
	copy(parts, m.Parts)

	c := env.newMatch()
	c.Value = value
	c.Parts = append(parts, part)
	c.Path = m.Path + pathSegment
	c.Parent = m
	c.Root = m.Root
	c.filterContext = m.filterContext
	m.addChild(c)
	return c
}

// canonicalName renders a normalized path segment for a mapping key:
// ['name'] with ' and \ escaped.
func canonicalName(name string) string {
	var b strings.Builder
	b.WriteString("['")
	escapeName(&b, name)
	b.WriteString("']")
	return b.String()
}

// canonicalKey renders the normalized segment for a keys-selector match:
// [~'name'].
func canonicalKey(name string) string {
	var b strings.Builder
	b.WriteString("[~'")
	escapeName(&b, name)
	b.WriteString("']")
	return b.String()
}

func canonicalIndex(index int) string {
	return "[" + strconv.Itoa(index) + "]"
}

func escapeName(b *strings.Builder, name string) {
	for _, r := range name {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
}

// NodeList is an ordered sequence of matches: the result type of filter
// subqueries.
type NodeList []*Match

// Values returns the value of every match in the list.
func (l NodeList) Values() []any {
	values := make([]any, len(l))
	for i, m := range l {
		values[i] = m.Value
	}
	return values
}

// IsEmpty reports whether the list has no matches.
func (l NodeList) IsEmpty() bool { return len(l) == 0 }

// ValueOrUndefined unwraps the list for use in a value context: the sole
// match's value for a one-element list, Undefined for an empty list, and
// the plain values otherwise.
func (l NodeList) ValueOrUndefined() any {
	switch len(l) {
	case 0:
		return Undefined
	case 1:
		return l[0].Value
	default:
		return l.Values()
	}
}
