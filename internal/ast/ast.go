// Package ast defines the compiled representation of a JSONPath query:
// segments, selectors and filter expressions, plus the type model used to
// validate function extension calls at compile time.
//
// Every node knows how to print itself in a canonical form. The canonical
// form of a filter expression doubles as its cache key.
package ast

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jacoelho/jsonpath/internal/token"
)

// FuncType is the declared type of a function extension argument or return
// value, per the JSONPath spec type system.
type FuncType int

const (
	ValueType FuncType = iota + 1
	LogicalType
	NodesType
)

func (t FuncType) String() string {
	switch t {
	case ValueType:
		return "ValueType"
	case LogicalType:
		return "LogicalType"
	case NodesType:
		return "NodesType"
	}
	return "UnknownType"
}

// Function is the contract a function extension exposes to the parser and
// the filter evaluator. Call receives evaluated arguments: NodesType
// arguments arrive as node lists, ValueType arguments as plain values.
type Function interface {
	ArgTypes() []FuncType
	ReturnType() FuncType
	Call(args []any) any
}

// Validator is an optional extra interface for function extensions that
// want to validate or rewrite their argument expressions at compile time.
type Validator interface {
	Validate(args []Expr, tok token.Token) ([]Expr, error)
}

// CompoundOp combines two queries in a compound query.
type CompoundOp int

const (
	OpUnion CompoundOp = iota + 1
	OpIntersection
)

func (op CompoundOp) String() string {
	if op == OpIntersection {
		return "&"
	}
	return "|"
}

// CompoundPart is one operator-query pair following the leading query of a
// compound query.
type CompoundPart struct {
	Op    CompoundOp
	Query *Query
}

// QueryScope identifies the value a filter query starts from.
type QueryScope int

const (
	ScopeRoot       QueryScope = iota // $
	ScopeCurrent                      // @
	ScopeContext                      // _
	ScopePseudoRoot                   // ^
)

// Query is a parsed JSONPath: a scope identifier followed by segments.
type Query struct {
	Scope    QueryScope
	Segments []Segment
}

// IsSingular reports whether the query can produce at most one node by
// construction: every segment is a child segment with a single name or
// index selector.
func (q *Query) IsSingular() bool {
	for _, seg := range q.Segments {
		if seg.Descendant || len(seg.Selectors) != 1 {
			return false
		}
		switch seg.Selectors[0].(type) {
		case *NameSelector, *IndexSelector:
		default:
			return false
		}
	}
	return true
}

// IsEmpty reports whether the query has no segments.
func (q *Query) IsEmpty() bool { return len(q.Segments) == 0 }

func (q *Query) String() string {
	var b strings.Builder
	switch q.Scope {
	case ScopeRoot:
		b.WriteByte('$')
	case ScopeCurrent:
		b.WriteByte('@')
	case ScopeContext:
		b.WriteByte('_')
	case ScopePseudoRoot:
		b.WriteByte('^')
	}
	for _, seg := range q.Segments {
		b.WriteString(seg.String())
	}
	return b.String()
}

// Segment applies one or more selectors to a node, either to its children
// or, for descendant segments, to every node below it.
type Segment struct {
	Descendant bool
	Selectors  []Selector
	Tok        token.Token
}

func (s Segment) String() string {
	var b strings.Builder
	if s.Descendant {
		b.WriteString("..")
	}
	b.WriteByte('[')
	for i, sel := range s.Selectors {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sel.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Selector is one of the selector variants below.
type Selector interface {
	String() string
	selector()
}

// NameSelector selects a mapping member by name.
type NameSelector struct {
	Name string
	Tok  token.Token
}

// IndexSelector selects a sequence element by index, negative indices
// counting from the end.
type IndexSelector struct {
	Index int
	Tok   token.Token
}

// SliceSelector selects a range of sequence elements. Nil fields take the
// defaults implied by the step's sign.
type SliceSelector struct {
	Start, Stop, Step *int
	Tok               token.Token
}

// WildcardSelector selects every child of a node.
type WildcardSelector struct {
	Tok token.Token
}

// FilterSelector selects children for which Expr is logically true.
type FilterSelector struct {
	Expr *BooleanExpr
	Tok  token.Token
}

// KeysSelector selects every key of a mapping.
type KeysSelector struct {
	Tok token.Token
}

// KeySelector selects a single mapping key by name.
type KeySelector struct {
	Name string
	Tok  token.Token
}

// KeysFilterSelector selects mapping keys whose values satisfy Expr.
type KeysFilterSelector struct {
	Expr *BooleanExpr
	Tok  token.Token
}

// QuerySelector embeds an absolute singular query whose result is used as a
// name or index selector.
type QuerySelector struct {
	Query *Query
	Tok   token.Token
}

func (*NameSelector) selector()       {}
func (*IndexSelector) selector()      {}
func (*SliceSelector) selector()      {}
func (*WildcardSelector) selector()   {}
func (*FilterSelector) selector()     {}
func (*KeysSelector) selector()       {}
func (*KeySelector) selector()        {}
func (*KeysFilterSelector) selector() {}
func (*QuerySelector) selector()      {}

func (s *NameSelector) String() string  { return quote(s.Name) }
func (s *IndexSelector) String() string { return strconv.Itoa(s.Index) }

func (s *SliceSelector) String() string {
	var b strings.Builder
	if s.Start != nil {
		b.WriteString(strconv.Itoa(*s.Start))
	}
	b.WriteByte(':')
	if s.Stop != nil {
		b.WriteString(strconv.Itoa(*s.Stop))
	}
	if s.Step != nil {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(*s.Step))
	}
	return b.String()
}

func (s *WildcardSelector) String() string   { return "*" }
func (s *FilterSelector) String() string     { return "?" + s.Expr.String() }
func (s *KeysSelector) String() string       { return "~" }
func (s *KeySelector) String() string        { return "~" + quote(s.Name) }
func (s *KeysFilterSelector) String() string { return "~?" + s.Expr.String() }
func (s *QuerySelector) String() string      { return s.Query.String() }

// quote renders a name selector as a single-quoted string with ' and \
// escaped.
func quote(name string) string {
	var b strings.Builder
	b.WriteByte('\'')
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
	b.WriteByte('\'')
	return b.String()
}

// Expr is a filter expression node.
type Expr interface {
	String() string
	expr()
}

// BooleanExpr is the root of a filter expression. The canonical form of the
// wrapped expression is computed once at construction and used as a cache
// key by the evaluator.
type BooleanExpr struct {
	Expr     Expr
	Form     string // canonical form, the cache key
	HasQuery bool   // true if any sub-expression re-enters the evaluator
}

// NewBooleanExpr wraps expr, computing its canonical form and whether it
// contains embedded queries worth caching.
func NewBooleanExpr(expr Expr) *BooleanExpr {
	return &BooleanExpr{
		Expr:     expr,
		Form:     expr.String(),
		HasQuery: hasQuery(expr),
	}
}

func (e *BooleanExpr) String() string { return e.Form }

func hasQuery(expr Expr) bool {
	switch e := expr.(type) {
	case *QueryExpr:
		return true
	case *FunctionCall:
		for _, arg := range e.Args {
			if hasQuery(arg) {
				return true
			}
		}
	case *PrefixExpr:
		return hasQuery(e.Right)
	case *InfixExpr:
		return hasQuery(e.Left) || hasQuery(e.Right)
	case *ListLiteral:
		for _, item := range e.Items {
			if hasQuery(item) {
				return true
			}
		}
	}
	return false
}

// NilLiteral is the constant null.
type NilLiteral struct{}

// UndefinedLiteral is the special "nothing" value, distinct from null.
type UndefinedLiteral struct{}

// BoolLiteral is true or false.
type BoolLiteral struct{ Value bool }

// IntLiteral is an integer literal.
type IntLiteral struct{ Value int }

// FloatLiteral is a floating point literal.
type FloatLiteral struct{ Value float64 }

// StringLiteral is a quoted string literal.
type StringLiteral struct{ Value string }

// RegexLiteral is a /pattern/flags literal, compiled at parse time.
type RegexLiteral struct {
	Raw      string // pattern as written
	Flags    string
	Compiled *regexp.Regexp
}

// ListLiteral is a bracketed list of expressions, used with in/contains.
type ListLiteral struct{ Items []Expr }

// QueryExpr is an embedded query: @..., $..., _... or ^...
type QueryExpr struct {
	Query *Query
	Tok   token.Token
}

// CurrentKey is the configured current-key token, default #.
type CurrentKey struct {
	Tok token.Token
}

// FunctionCall invokes a registered function extension.
type FunctionCall struct {
	Name string
	Fn   Function
	Args []Expr
	Tok  token.Token
}

// PrefixExpr is logical negation.
type PrefixExpr struct {
	Op    string // "!"
	Right Expr
}

// InfixExpr is a binary operation: logical, comparison, membership or
// regex match.
type InfixExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

func (*NilLiteral) expr()       {}
func (*UndefinedLiteral) expr() {}
func (*BoolLiteral) expr()      {}
func (*IntLiteral) expr()       {}
func (*FloatLiteral) expr()     {}
func (*StringLiteral) expr()    {}
func (*RegexLiteral) expr()     {}
func (*ListLiteral) expr()      {}
func (*QueryExpr) expr()        {}
func (*CurrentKey) expr()       {}
func (*FunctionCall) expr()     {}
func (*PrefixExpr) expr()       {}
func (*InfixExpr) expr()        {}
func (*BooleanExpr) expr()      {}

func (e *NilLiteral) String() string       { return "null" }
func (e *UndefinedLiteral) String() string { return "undefined" }

func (e *BoolLiteral) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

func (e *IntLiteral) String() string   { return strconv.Itoa(e.Value) }
func (e *FloatLiteral) String() string { return strconv.FormatFloat(e.Value, 'g', -1, 64) }
func (e *StringLiteral) String() string {
	return strconv.Quote(e.Value)
}

func (e *RegexLiteral) String() string { return "/" + e.Raw + "/" + e.Flags }

func (e *ListLiteral) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range e.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (e *QueryExpr) String() string { return e.Query.String() }
func (e *CurrentKey) String() string {
	if e.Tok.Value != "" {
		return e.Tok.Value
	}
	return "#"
}

func (e *FunctionCall) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (e *PrefixExpr) String() string {
	return e.Op + parenthesize(e.Right)
}

func (e *InfixExpr) String() string {
	return parenthesize(e.Left) + " " + e.Op + " " + parenthesize(e.Right)
}

// parenthesize wraps compound operands so the canonical form preserves the
// parsed structure.
func parenthesize(e Expr) string {
	switch e.(type) {
	case *InfixExpr, *PrefixExpr:
		return "(" + e.String() + ")"
	}
	return e.String()
}
