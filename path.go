package jsonpath

import (
	"iter"
	"strings"

	"github.com/jacoelho/jsonpath/internal/ast"
)

// MatchSeq is a lazy, pull-based sequence of matches. Breaking out of the
// range loop cancels the evaluation.
type MatchSeq = iter.Seq[*Match]

// PathQuery is a compiled query, either a *Path or a *CompoundPath. A
// compiled query is stateless and can be evaluated against different data
// concurrently.
type PathQuery interface {
	// FindAll returns the value of every match in data, in match order.
	FindAll(data any, filterContext map[string]any) ([]any, error)

	// FindIter returns a lazy sequence of matches in data.
	FindIter(data any, filterContext map[string]any) (MatchSeq, error)

	// First returns the first match in data, or nil when there is none.
	First(data any, filterContext map[string]any) (*Match, error)

	// String returns the canonical text of the query.
	String() string
}

// Path is a single compiled JSONPath bound to its environment.
type Path struct {
	env   *Environment
	query *ast.Query
	text  string
}

// String returns the canonical text of the query.
func (p *Path) String() string { return p.query.String() }

// Text returns the query text the path was compiled from.
func (p *Path) Text() string { return p.text }

// IsSingular reports whether the query produces at most one match by
// construction.
func (p *Path) IsSingular() bool { return p.query.IsSingular() }

// FindIter returns a lazy sequence of matches in data. If data is a
// string, byte slice or reader it is decoded as a JSON document first.
func (p *Path) FindIter(data any, filterContext map[string]any) (MatchSeq, error) {
	value, err := loadData(data)
	if err != nil {
		return nil, err
	}
	return p.finditer(value, filterContext), nil
}

// FindAll returns the value of every match in data.
func (p *Path) FindAll(data any, filterContext map[string]any) ([]any, error) {
	seq, err := p.FindIter(data, filterContext)
	if err != nil {
		return nil, err
	}
	return collectValues(seq), nil
}

// First returns the first match in data, or nil when there is none.
func (p *Path) First(data any, filterContext map[string]any) (*Match, error) {
	seq, err := p.FindIter(data, filterContext)
	if err != nil {
		return nil, err
	}
	for m := range seq {
		return m, nil
	}
	return nil, nil
}

// CompoundPath combines a leading path with further paths through the
// union and intersection operators.
type CompoundPath struct {
	env   *Environment
	first *Path
	parts []ast.CompoundPart
	text  string
}

// String returns the canonical text of the compound query.
func (c *CompoundPath) String() string {
	var b strings.Builder
	b.WriteString(c.first.String())
	for _, part := range c.parts {
		b.WriteByte(' ')
		b.WriteString(part.Op.String())
		b.WriteByte(' ')
		b.WriteString(part.Query.String())
	}
	return b.String()
}

// Text returns the query text the compound path was compiled from.
func (c *CompoundPath) Text() string { return c.text }

// FindIter returns a lazy sequence of matches in data. Union parts are
// concatenated in order without deduplication; intersection parts keep
// each earlier match whose value and normalized location also appear on
// the right.
func (c *CompoundPath) FindIter(data any, filterContext map[string]any) (MatchSeq, error) {
	value, err := loadData(data)
	if err != nil {
		return nil, err
	}

	seq := c.first.finditer(value, filterContext)
	for _, part := range c.parts {
		partPath := &Path{env: c.env, query: part.Query}
		partSeq := partPath.finditer(value, filterContext)
		if part.Op == ast.OpUnion {
			seq = chainSeq(seq, partSeq)
		} else {
			seq = intersectSeq(seq, partSeq)
		}
	}
	return seq, nil
}

// FindAll returns the value of every match in data.
func (c *CompoundPath) FindAll(data any, filterContext map[string]any) ([]any, error) {
	seq, err := c.FindIter(data, filterContext)
	if err != nil {
		return nil, err
	}
	return collectValues(seq), nil
}

// First returns the first match in data, or nil when there is none.
func (c *CompoundPath) First(data any, filterContext map[string]any) (*Match, error) {
	seq, err := c.FindIter(data, filterContext)
	if err != nil {
		return nil, err
	}
	for m := range seq {
		return m, nil
	}
	return nil, nil
}

func collectValues(seq MatchSeq) []any {
	values := []any{}
	for m := range seq {
		values = append(values, m.Value)
	}
	return values
}

func chainSeq(seqs ...MatchSeq) MatchSeq {
	return func(yield func(*Match) bool) {
		for _, seq := range seqs {
			for m := range seq {
				if !yield(m) {
					return
				}
			}
		}
	}
}

// intersectSeq yields each match from left whose value and normalized
// location both appear in right.
func intersectSeq(left, right MatchSeq) MatchSeq {
	return func(yield func(*Match) bool) {
		byPath := make(map[string][]*Match)
		for m := range right {
			byPath[m.Path] = append(byPath[m.Path], m)
		}
		for m := range left {
			for _, other := range byPath[m.Path] {
				if equals(m.Value, other.Value) {
					if !yield(m) {
						return
					}
					break
				}
			}
		}
	}
}
