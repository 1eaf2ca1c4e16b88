// Package pointer implements RFC 6901 JSON Pointers and Relative JSON
// Pointers against decoded JSON values.
//
// In addition to the standard grammar, a reference token beginning with the
// key marker '#' addresses a mapping key or sequence index itself rather
// than the value it maps to. These non-standard tokens are produced when
// converting keys-selector matches to pointers.
package pointer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/jacoelho/jsonpath/orderedmap"
)

// Sentinel errors for pointer parsing and resolution.
var (
	// ErrParse indicates a malformed pointer string.
	ErrParse = errors.New("jsonpointer: parse error")

	// ErrKey indicates a missing mapping key.
	ErrKey = errors.New("jsonpointer: key error")

	// ErrIndex indicates a sequence index that is out of range or
	// malformed.
	ErrIndex = errors.New("jsonpointer: index error")

	// ErrType indicates a reference token that cannot apply to the value
	// it resolved against.
	ErrType = errors.New("jsonpointer: type error")
)

const (
	maxIntIndex = 1<<53 - 1
	minIntIndex = -(1<<53 - 1)
)

// KeysMarker is the non-standard token prefix addressing a mapping key or
// sequence index itself.
const KeysMarker = "#"

// Options configure pointer parsing.
type Options struct {
	// UnicodeEscape decodes \uXXXX escape sequences, including UTF-16
	// surrogate pairs, before parsing.
	UnicodeEscape bool

	// URIDecode unescapes percent-encoded characters before parsing, for
	// pointers taken from URI fragments.
	URIDecode bool
}

// Pointer identifies a single value in JSON-like data.
//
// The zero value is the root pointer. Parts are mapping keys (string) or
// sequence indices (int).
type Pointer struct {
	parts []any
}

// Parse parses a pointer from its string representation with default
// options: unicode escaping on, URI decoding off.
func Parse(s string) (Pointer, error) {
	return ParseWithOptions(s, Options{UnicodeEscape: true})
}

// ParseWithOptions parses a pointer from its string representation. A
// pointer is the empty string or a '/'-led sequence of reference tokens
// with '~1' and '~0' escaping '/' and '~'.
func ParseWithOptions(s string, opts Options) (Pointer, error) {
	if opts.URIDecode {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return Pointer{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		s = decoded
	}
	if opts.UnicodeEscape {
		decoded, err := unicodeUnescape(s)
		if err != nil {
			return Pointer{}, err
		}
		s = decoded
	}

	s = strings.TrimLeft(s, " \t\n\r")
	if s == "" {
		return Pointer{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Pointer{}, fmt.Errorf("%w: pointer must start with a slash or be the empty string", ErrParse)
	}

	tokens := strings.Split(s, "/")[1:]
	parts := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")
		parts = append(parts, indexOrKey(tok))
	}
	return Pointer{parts: parts}, nil
}

// FromParts builds a pointer from pre-parsed parts. Parts must be strings
// or ints; other types are rejected.
func FromParts(parts []any) (Pointer, error) {
	cloned := make([]any, len(parts))
	for i, part := range parts {
		switch part.(type) {
		case string, int:
			cloned[i] = part
		default:
			return Pointer{}, fmt.Errorf("%w: unexpected pointer part %T", ErrParse, part)
		}
	}
	return Pointer{parts: cloned}, nil
}

// indexOrKey interprets a reference token as a sequence index when it is a
// canonical integer, otherwise as a mapping key. Integers with leading
// zeros stay keys, per RFC 6901.
func indexOrKey(tok string) any {
	if len(tok) > 1 && tok[0] == '0' {
		return tok
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < minIntIndex || n > maxIntIndex {
		return tok
	}
	return n
}

// Parts returns a copy of the pointer's reference tokens.
func (p Pointer) Parts() []any {
	parts := make([]any, len(p.parts))
	copy(parts, p.parts)
	return parts
}

// IsRoot reports whether the pointer addresses the whole document.
func (p Pointer) IsRoot() bool { return len(p.parts) == 0 }

// String returns the RFC 6901 representation of the pointer. Parsing the
// result yields an equal pointer.
func (p Pointer) String() string {
	if len(p.parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range p.parts {
		b.WriteByte('/')
		switch v := part.(type) {
		case int:
			b.WriteString(strconv.Itoa(v))
		case string:
			s := strings.ReplaceAll(v, "~", "~0")
			s = strings.ReplaceAll(s, "/", "~1")
			b.WriteString(s)
		}
	}
	return b.String()
}

// Resolve walks the pointer through data and returns the addressed value.
func (p Pointer) Resolve(data any) (any, error) {
	current := data
	for _, part := range p.parts {
		next, err := getItem(current, part)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// ResolveParent resolves the pointer's parent and, when present, the value
// addressed by the full pointer. The boolean reports whether the final
// reference token resolved.
func (p Pointer) ResolveParent(data any) (parent any, value any, ok bool, err error) {
	if len(p.parts) == 0 {
		return nil, data, true, nil
	}
	parent, err = p.Parent().Resolve(data)
	if err != nil {
		return nil, nil, false, err
	}
	value, err = getItem(parent, p.parts[len(p.parts)-1])
	if err != nil {
		if errors.Is(err, ErrKey) || errors.Is(err, ErrIndex) || errors.Is(err, ErrType) {
			return parent, nil, false, nil
		}
		return nil, nil, false, err
	}
	return parent, value, true, nil
}

// Exists reports whether the pointer resolves against data. A pointer to
// an explicit null or false value exists.
func (p Pointer) Exists(data any) bool {
	_, err := p.Resolve(data)
	return err == nil
}

// Parent returns a pointer to the parent of this pointer's target. The
// parent of the root pointer is the root pointer.
func (p Pointer) Parent() Pointer {
	if len(p.parts) == 0 {
		return p
	}
	return Pointer{parts: p.parts[:len(p.parts)-1]}
}

// IsRelativeTo reports whether other points to an ancestor of p's target,
// or to the same location.
func (p Pointer) IsRelativeTo(other Pointer) bool {
	if len(other.parts) > len(p.parts) {
		return false
	}
	for i, part := range other.parts {
		if p.parts[i] != part {
			return false
		}
	}
	return true
}

// Slash appends a single unescaped reference token.
func (p Pointer) Slash(token string) Pointer {
	parts := make([]any, len(p.parts), len(p.parts)+1)
	copy(parts, p.parts)
	return Pointer{parts: append(parts, indexOrKey(token))}
}

// Join parses each argument as a relative pointer suffix and appends it.
// An argument with a leading slash resets back to the root.
func (p Pointer) Join(suffixes ...string) (Pointer, error) {
	joined := p
	for _, suffix := range suffixes {
		if strings.HasPrefix(suffix, "/") {
			parsed, err := Parse(suffix)
			if err != nil {
				return Pointer{}, err
			}
			joined = parsed
			continue
		}
		for _, tok := range strings.Split(suffix, "/") {
			tok = strings.ReplaceAll(tok, "~1", "/")
			tok = strings.ReplaceAll(tok, "~0", "~")
			joined = joined.Slash(tok)
		}
	}
	return joined, nil
}

// Equal reports whether two pointers address the same location.
func (p Pointer) Equal(other Pointer) bool {
	if len(p.parts) != len(other.parts) {
		return false
	}
	for i, part := range p.parts {
		if other.parts[i] != part {
			return false
		}
	}
	return true
}

// getItem resolves a single reference token against a mapping or sequence.
// A string token prefixed with the keys marker resolves to the key itself
// when the remainder names an existing member.
func getItem(obj any, part any) (any, error) {
	switch container := obj.(type) {
	case map[string]any:
		key := partName(part)
		if value, exists := container[key]; exists {
			return value, nil
		}
		if name, marked := strings.CutPrefix(key, KeysMarker); marked {
			if _, exists := container[name]; exists {
				return name, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrKey, key)
	case *orderedmap.Map:
		key := partName(part)
		if value, exists := container.Get(key); exists {
			return value, nil
		}
		if name, marked := strings.CutPrefix(key, KeysMarker); marked {
			if container.Has(name) {
				return name, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrKey, key)
	case []any:
		switch v := part.(type) {
		case int:
			if v < 0 || v >= len(container) {
				return nil, fmt.Errorf("%w: %d out of range", ErrIndex, v)
			}
			return container[v], nil
		case string:
			if v == "-" {
				// The append position points past the last element. It is
				// valid in a patch target but never resolves.
				return nil, fmt.Errorf("%w: '-' is out of range", ErrIndex)
			}
			if idx, marked := strings.CutPrefix(v, KeysMarker); marked {
				n, err := strconv.Atoi(idx)
				if err != nil {
					return nil, fmt.Errorf("%w: %q", ErrIndex, v)
				}
				if n < 0 || n >= len(container) {
					return nil, fmt.Errorf("%w: %d out of range", ErrIndex, n)
				}
				return n, nil
			}
			return nil, fmt.Errorf("%w: cannot index a sequence with %q", ErrType, v)
		}
		return nil, fmt.Errorf("%w: unexpected index %v", ErrIndex, part)
	default:
		return nil, fmt.Errorf("%w: cannot resolve %v against %T", ErrType, part, obj)
	}
}

// partName renders a reference token as a mapping key, so index-like
// tokens can still address members named after numbers.
func partName(part any) string {
	if s, ok := part.(string); ok {
		return s
	}
	return strconv.Itoa(part.(int))
}

// Resolve is a convenience that parses and resolves a pointer in one call.
func Resolve(pointer string, data any) (any, error) {
	p, err := Parse(pointer)
	if err != nil {
		return nil, err
	}
	return p.Resolve(data)
}

// unicodeUnescape decodes \uXXXX sequences, including surrogate pairs.
// Other escape sequences are left untouched.
func unicodeUnescape(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'u' {
			r, width, err := decodeHex4(s, i+2)
			if err != nil {
				return "", err
			}
			i += 2 + width
			if utf16.IsSurrogate(r) {
				if r >= 0xDC00 {
					return "", fmt.Errorf("%w: unexpected low surrogate", ErrParse)
				}
				if i+1 >= len(s) || s[i] != '\\' || s[i+1] != 'u' {
					return "", fmt.Errorf("%w: unpaired high surrogate", ErrParse)
				}
				lo, loWidth, err := decodeHex4(s, i+2)
				if err != nil {
					return "", err
				}
				i += 2 + loWidth
				r = utf16.DecodeRune(r, lo)
				if r == unicode.ReplacementChar {
					return "", fmt.Errorf("%w: invalid surrogate pair", ErrParse)
				}
			}
			b.WriteRune(r)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), nil
}

func decodeHex4(s string, at int) (rune, int, error) {
	if at+4 > len(s) {
		return 0, 0, fmt.Errorf("%w: truncated \\u escape sequence", ErrParse)
	}
	n, err := strconv.ParseUint(s[at:at+4], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid \\u escape sequence", ErrParse)
	}
	return rune(n), 4, nil
}
