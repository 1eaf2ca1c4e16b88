// Package parser builds the AST for a JSONPath query from lexer tokens.
//
// The parser is a recursive descent parser with the precedence rules
// ! > && > ||, comparisons binding between negation and &&. When
// well-typed checking is enabled, filter expressions are validated at
// compile time against the spec's ValueType/LogicalType/NodesType system.
package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jacoelho/jsonpath/internal/ast"
	"github.com/jacoelho/jsonpath/internal/lexer"
	"github.com/jacoelho/jsonpath/internal/token"
)

// Sentinel errors for the compile-time error taxonomy. Wrapped errors carry
// the offending token's line and column in their message.
var (
	// ErrSyntax indicates a malformed query.
	ErrSyntax = errors.New("jsonpath: syntax error")

	// ErrType indicates a well-typedness violation in a filter expression.
	ErrType = errors.New("jsonpath: type error")

	// ErrIndex indicates an integer literal outside the configured index
	// range.
	ErrIndex = errors.New("jsonpath: index error")

	// ErrName indicates a reference to an unregistered function extension.
	ErrName = errors.New("jsonpath: name error")
)

// Error wraps one of the sentinel errors with the token that caused it.
type Error struct {
	Err error
	Msg string
	Tok token.Token
}

func (e *Error) Error() string {
	line, col := e.Tok.Position()
	return fmt.Sprintf("%s: %s, line %d, column %d", e.Err, e.Msg, line, col)
}

func (e *Error) Unwrap() error { return e.Err }

// Token returns the token that caused the error.
func (e *Error) Token() token.Token { return e.Tok }

// Config carries the environment settings that affect parsing.
type Config struct {
	MinIntIndex int
	MaxIntIndex int
	Strict      bool
	WellTyped   bool

	// Function resolves a function extension by name, or reports that no
	// such extension is registered.
	Function func(name string) (ast.Function, bool)
}

// Parser parses token streams into AST queries. A Parser is stateless
// between calls to Parse and safe to reuse.
type Parser struct {
	cfg Config
	lex *lexer.Lexer
}

// New builds a Parser from cfg, tokenizing with lex.
func New(cfg Config, lex *lexer.Lexer) *Parser {
	return &Parser{cfg: cfg, lex: lex}
}

// Parse compiles query into a leading AST query plus any compound parts
// joined by the union and intersection operators.
func (p *Parser) Parse(query string) (*ast.Query, []ast.CompoundPart, error) {
	toks, err := p.lex.Tokenize(query)
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return nil, nil, &Error{Err: ErrSyntax, Msg: lexErr.Msg, Tok: lexErr.Tok}
		}
		return nil, nil, err
	}

	s := &stream{toks: toks}
	w := &walker{cfg: p.cfg, s: s}

	first, err := w.parseQuery(true)
	if err != nil {
		return nil, nil, err
	}

	var parts []ast.CompoundPart
	for s.current().Kind != token.EOF {
		var op ast.CompoundOp
		switch s.current().Kind {
		case token.Union:
			op = ast.OpUnion
		case token.Intersection:
			op = ast.OpIntersection
		default:
			return nil, nil, w.syntaxErrorf(s.current(), "unexpected %s", s.current().Kind)
		}
		opTok := s.next()
		if s.current().Kind == token.EOF {
			return nil, nil, w.syntaxErrorf(opTok, "expected a path after %q", opTok.Value)
		}
		q, err := w.parseQuery(true)
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, ast.CompoundPart{Op: op, Query: q})
	}

	return first, parts, nil
}

type stream struct {
	toks []token.Token
	pos  int
}

func (s *stream) current() token.Token {
	if s.pos < len(s.toks) {
		return s.toks[s.pos]
	}
	return token.Token{Kind: token.EOF}
}

func (s *stream) peek() token.Token {
	if s.pos+1 < len(s.toks) {
		return s.toks[s.pos+1]
	}
	return token.Token{Kind: token.EOF}
}

func (s *stream) next() token.Token {
	tok := s.current()
	if s.pos < len(s.toks) {
		s.pos++
	}
	return tok
}

type walker struct {
	cfg Config
	s   *stream
}

func (w *walker) syntaxErrorf(tok token.Token, format string, args ...any) error {
	return &Error{Err: ErrSyntax, Msg: fmt.Sprintf(format, args...), Tok: tok}
}

func (w *walker) typeErrorf(tok token.Token, format string, args ...any) error {
	return &Error{Err: ErrType, Msg: fmt.Sprintf(format, args...), Tok: tok}
}

func (w *walker) expect(kind token.Kind) (token.Token, error) {
	tok := w.s.current()
	if tok.Kind != kind {
		return tok, w.syntaxErrorf(tok, "expected %s, found %s", kind, tok.Kind)
	}
	return w.s.next(), nil
}

// parseQuery parses a complete query. At the top level the root identifier
// may be omitted in non-strict mode; embedded filter queries always start
// from an explicit scope token.
func (w *walker) parseQuery(topLevel bool) (*ast.Query, error) {
	q := &ast.Query{}

	switch w.s.current().Kind {
	case token.Root:
		w.s.next()
	case token.PseudoRoot:
		w.s.next()
		q.Scope = ast.ScopePseudoRoot
	default:
		if !topLevel || w.cfg.Strict {
			return nil, w.syntaxErrorf(w.s.current(), "expected root identifier, found %s", w.s.current().Kind)
		}
		// Missing root identifier is silently prepended, including for
		// queries starting with a bare dot or name.
		if w.s.current().Kind == token.Dot && w.s.peek().Kind != token.Dot {
			w.s.next()
		}
	}

	segs, err := w.parseSegments()
	if err != nil {
		return nil, err
	}
	q.Segments = segs
	return q, nil
}

// parseSegments parses segments until a token that cannot start one.
func (w *walker) parseSegments() ([]ast.Segment, error) {
	var segs []ast.Segment
	for {
		switch tok := w.s.current(); tok.Kind {
		case token.DotDot:
			w.s.next()
			seg, err := w.parseDescendant(tok)
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		case token.Dot:
			w.s.next()
			sel, err := w.parseShorthand()
			if err != nil {
				return nil, err
			}
			segs = append(segs, ast.Segment{Selectors: []ast.Selector{sel}, Tok: tok})
		case token.LBracket:
			w.s.next()
			sels, err := w.parseBracketed(tok)
			if err != nil {
				return nil, err
			}
			segs = append(segs, ast.Segment{Selectors: sels, Tok: tok})
		case token.Name, token.Wild, token.Keys, token.KeysFilter:
			// A bare shorthand with no leading dot is tolerated in
			// non-strict mode, most commonly as the first segment of a
			// rootless query.
			if w.cfg.Strict || len(segs) > 0 {
				return segs, nil
			}
			sel, err := w.parseShorthand()
			if err != nil {
				return nil, err
			}
			segs = append(segs, ast.Segment{Selectors: []ast.Selector{sel}, Tok: tok})
		default:
			return segs, nil
		}
	}
}

// parseDescendant parses the segment following "..".
func (w *walker) parseDescendant(ddot token.Token) (ast.Segment, error) {
	switch tok := w.s.current(); tok.Kind {
	case token.LBracket:
		w.s.next()
		sels, err := w.parseBracketed(tok)
		if err != nil {
			return ast.Segment{}, err
		}
		return ast.Segment{Descendant: true, Selectors: sels, Tok: ddot}, nil
	case token.Name, token.Wild, token.Keys, token.KeysFilter:
		sel, err := w.parseShorthand()
		if err != nil {
			return ast.Segment{}, err
		}
		return ast.Segment{Descendant: true, Selectors: []ast.Selector{sel}, Tok: ddot}, nil
	default:
		if w.cfg.Strict {
			return ast.Segment{}, w.syntaxErrorf(tok, "expected a selector after '..', found %s", tok.Kind)
		}
		// A trailing ".." is equivalent to "..*".
		return ast.Segment{
			Descendant: true,
			Selectors:  []ast.Selector{&ast.WildcardSelector{Tok: ddot}},
			Tok:        ddot,
		}, nil
	}
}

// parseShorthand parses the selector of a dotted segment: a name, a
// wildcard, the keys selector or a single-key selector.
func (w *walker) parseShorthand() (ast.Selector, error) {
	switch tok := w.s.current(); tok.Kind {
	case token.Wild:
		w.s.next()
		return &ast.WildcardSelector{Tok: tok}, nil
	case token.Name, token.True, token.False, token.Null, token.In, token.Contains, token.Undefined:
		w.s.next()
		return &ast.NameSelector{Name: tok.Value, Tok: tok}, nil
	case token.Keys:
		w.s.next()
		if name := w.s.current(); name.Kind == token.Name || name.Kind == token.String {
			w.s.next()
			return &ast.KeySelector{Name: name.Value, Tok: tok}, nil
		}
		return &ast.KeysSelector{Tok: tok}, nil
	case token.KeysFilter:
		w.s.next()
		expr, err := w.parseFilterExpression(tok)
		if err != nil {
			return nil, err
		}
		return &ast.KeysFilterSelector{Expr: expr, Tok: tok}, nil
	default:
		return nil, w.syntaxErrorf(tok, "expected a shorthand selector, found %s", tok.Kind)
	}
}

// parseBracketed parses the selector list of a bracketed segment. The
// opening bracket has been consumed.
func (w *walker) parseBracketed(open token.Token) ([]ast.Selector, error) {
	var sels []ast.Selector
	for {
		if w.s.current().Kind == token.RBracket {
			break
		}
		sel, err := w.parseSelector()
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)

		if w.s.current().Kind != token.Comma {
			break
		}
		comma := w.s.next()
		if w.s.current().Kind == token.RBracket && w.cfg.Strict {
			return nil, w.syntaxErrorf(comma, "unexpected trailing comma")
		}
	}

	if _, err := w.expect(token.RBracket); err != nil {
		return nil, err
	}
	if len(sels) == 0 {
		return nil, w.syntaxErrorf(open, "empty bracketed segment")
	}
	return sels, nil
}

// parseSelector parses one selector inside a bracketed segment.
func (w *walker) parseSelector() (ast.Selector, error) {
	switch tok := w.s.current(); tok.Kind {
	case token.String:
		w.s.next()
		return &ast.NameSelector{Name: tok.Value, Tok: tok}, nil
	case token.Int:
		if w.s.peek().Kind == token.Colon {
			return w.parseSlice()
		}
		w.s.next()
		index, err := w.parseIndex(tok)
		if err != nil {
			return nil, err
		}
		return &ast.IndexSelector{Index: index, Tok: tok}, nil
	case token.Colon:
		return w.parseSlice()
	case token.Wild:
		w.s.next()
		return &ast.WildcardSelector{Tok: tok}, nil
	case token.Question:
		w.s.next()
		expr, err := w.parseFilterExpression(tok)
		if err != nil {
			return nil, err
		}
		return &ast.FilterSelector{Expr: expr, Tok: tok}, nil
	case token.Keys:
		w.s.next()
		if name := w.s.current(); name.Kind == token.Name || name.Kind == token.String {
			w.s.next()
			return &ast.KeySelector{Name: name.Value, Tok: tok}, nil
		}
		return &ast.KeysSelector{Tok: tok}, nil
	case token.KeysFilter:
		w.s.next()
		expr, err := w.parseFilterExpression(tok)
		if err != nil {
			return nil, err
		}
		return &ast.KeysFilterSelector{Expr: expr, Tok: tok}, nil
	case token.Root, token.PseudoRoot:
		q, err := w.parseEmbeddedQuery()
		if err != nil {
			return nil, err
		}
		if !q.IsSingular() {
			return nil, w.typeErrorf(tok, "embedded query selectors must be singular")
		}
		return &ast.QuerySelector{Query: q, Tok: tok}, nil
	case token.Name:
		// Unquoted names inside brackets are a non-strict extension.
		if w.cfg.Strict {
			return nil, w.syntaxErrorf(tok, "unquoted name in bracketed segment")
		}
		w.s.next()
		return &ast.NameSelector{Name: tok.Value, Tok: tok}, nil
	case token.Float:
		return nil, w.syntaxErrorf(tok, "array indices must be integers, found %q", tok.Value)
	default:
		return nil, w.syntaxErrorf(tok, "unexpected %s in bracketed segment", tok.Kind)
	}
}

// parseIndex converts an integer token to an index, enforcing the
// configured index range.
func (w *walker) parseIndex(tok token.Token) (int, error) {
	n, err := w.parseInt(tok)
	if err != nil {
		return 0, err
	}
	if n < w.cfg.MinIntIndex || n > w.cfg.MaxIntIndex {
		return 0, &Error{Err: ErrIndex, Msg: fmt.Sprintf("index %d out of range", n), Tok: tok}
	}
	return n, nil
}

// parseInt converts an integer token, accepting exponent notation such as
// 2e2 for integers with no fractional part.
func (w *walker) parseInt(tok token.Token) (int, error) {
	if strings.ContainsAny(tok.Value, "eE") {
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, w.syntaxErrorf(tok, "invalid integer literal %q", tok.Value)
		}
		return int(f), nil
	}
	n, err := strconv.Atoi(tok.Value)
	if err != nil {
		return 0, &Error{Err: ErrIndex, Msg: fmt.Sprintf("integer literal %q out of range", tok.Value), Tok: tok}
	}
	return n, nil
}

// parseSlice parses a slice selector. The current token is the start
// integer or the first colon.
func (w *walker) parseSlice() (ast.Selector, error) {
	first := w.s.current()
	sel := &ast.SliceSelector{Tok: first}

	readInt := func() (*int, error) {
		if w.s.current().Kind != token.Int {
			return nil, nil
		}
		tok := w.s.next()
		n, err := w.parseIndex(tok)
		if err != nil {
			return nil, err
		}
		return &n, nil
	}

	var err error
	if sel.Start, err = readInt(); err != nil {
		return nil, err
	}
	if _, err := w.expect(token.Colon); err != nil {
		return nil, err
	}
	if sel.Stop, err = readInt(); err != nil {
		return nil, err
	}
	if w.s.current().Kind == token.Colon {
		w.s.next()
		if sel.Step, err = readInt(); err != nil {
			return nil, err
		}
	}
	if tok := w.s.current(); tok.Kind == token.Colon {
		return nil, w.syntaxErrorf(tok, "too many colons in slice selector")
	}
	return sel, nil
}

// parseEmbeddedQuery parses a query inside a filter expression or an
// embedded query selector, starting at its scope token.
func (w *walker) parseEmbeddedQuery() (*ast.Query, error) {
	q := &ast.Query{}
	switch tok := w.s.next(); tok.Kind {
	case token.Root:
		q.Scope = ast.ScopeRoot
	case token.PseudoRoot:
		q.Scope = ast.ScopePseudoRoot
	case token.Current:
		q.Scope = ast.ScopeCurrent
	case token.FilterContext:
		q.Scope = ast.ScopeContext
	default:
		return nil, w.syntaxErrorf(tok, "expected a query, found %s", tok.Kind)
	}

	segs, err := w.parseSegments()
	if err != nil {
		return nil, err
	}
	q.Segments = segs
	return q, nil
}

// parseFilterExpression parses a complete filter expression for the ? and
// keys-filter selectors.
func (w *walker) parseFilterExpression(at token.Token) (*ast.BooleanExpr, error) {
	expr, err := w.parseOr()
	if err != nil {
		return nil, err
	}
	if w.cfg.WellTyped {
		if err := w.checkLogical(expr, at); err != nil {
			return nil, err
		}
	}
	return ast.NewBooleanExpr(expr), nil
}

// parseOr parses: and-expr ( ('||' | or-word) and-expr )*
func (w *walker) parseOr() (ast.Expr, error) {
	left, err := w.parseAnd()
	if err != nil {
		return nil, err
	}
	for w.s.current().Kind == token.Or {
		w.s.next()
		right, err := w.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.InfixExpr{Left: left, Op: "||", Right: right}
	}
	return left, nil
}

// parseAnd parses: basic-expr ( ('&&' | and-word) basic-expr )*
func (w *walker) parseAnd() (ast.Expr, error) {
	left, err := w.parseBasic()
	if err != nil {
		return nil, err
	}
	for w.s.current().Kind == token.And {
		w.s.next()
		right, err := w.parseBasic()
		if err != nil {
			return nil, err
		}
		left = &ast.InfixExpr{Left: left, Op: "&&", Right: right}
	}
	return left, nil
}

var compOps = map[token.Kind]string{
	token.Eq:       "==",
	token.Ne:       "!=",
	token.Lt:       "<",
	token.Le:       "<=",
	token.Gt:       ">",
	token.Ge:       ">=",
	token.ReMatch:  "=~",
	token.In:       "in",
	token.Contains: "contains",
}

// parseBasic parses a negation, comparison, membership test or bare test
// expression. Negation binds tighter than comparison.
func (w *walker) parseBasic() (ast.Expr, error) {
	left, err := w.parseUnary()
	if err != nil {
		return nil, err
	}

	opTok := w.s.current()
	op, ok := compOps[opTok.Kind]
	if !ok {
		return left, nil
	}
	if w.cfg.Strict && (op == "in" || op == "contains" || op == "=~") {
		return nil, w.syntaxErrorf(opTok, "non-standard operator %q", op)
	}
	w.s.next()

	right, err := w.parseUnary()
	if err != nil {
		return nil, err
	}
	if next := w.s.current(); compOps[next.Kind] != "" {
		return nil, w.syntaxErrorf(next, "comparison operators are non-associative")
	}

	if w.cfg.WellTyped {
		if err := w.checkComparison(left, op, right, opTok); err != nil {
			return nil, err
		}
	}
	return &ast.InfixExpr{Left: left, Op: op, Right: right}, nil
}

// parseUnary parses an optionally negated primary expression.
func (w *walker) parseUnary() (ast.Expr, error) {
	if w.s.current().Kind == token.Not {
		w.s.next()
		right, err := w.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixExpr{Op: "!", Right: right}, nil
	}
	return w.parsePrimary()
}

// parsePrimary parses a literal, an embedded query, a function call, the
// current-key token, a list literal or a parenthesized expression.
func (w *walker) parsePrimary() (ast.Expr, error) {
	switch tok := w.s.current(); tok.Kind {
	case token.LParen:
		w.s.next()
		expr, err := w.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := w.expect(token.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case token.Current, token.Root, token.FilterContext, token.PseudoRoot:
		q, err := w.parseEmbeddedQuery()
		if err != nil {
			return nil, err
		}
		return &ast.QueryExpr{Query: q, Tok: tok}, nil
	case token.Key:
		w.s.next()
		return &ast.CurrentKey{Tok: tok}, nil
	case token.Function:
		return w.parseFunctionCall()
	case token.String:
		w.s.next()
		return &ast.StringLiteral{Value: tok.Value}, nil
	case token.Int:
		w.s.next()
		n, err := w.parseInt(tok)
		if err != nil {
			return nil, err
		}
		return &ast.IntLiteral{Value: n}, nil
	case token.Float:
		w.s.next()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, w.syntaxErrorf(tok, "invalid float literal %q", tok.Value)
		}
		return &ast.FloatLiteral{Value: f}, nil
	case token.True:
		w.s.next()
		return &ast.BoolLiteral{Value: true}, nil
	case token.False:
		w.s.next()
		return &ast.BoolLiteral{Value: false}, nil
	case token.Null:
		w.s.next()
		return &ast.NilLiteral{}, nil
	case token.Undefined:
		w.s.next()
		return &ast.UndefinedLiteral{}, nil
	case token.RePattern:
		return w.parseRegexLiteral()
	case token.LBracket:
		if w.cfg.Strict {
			return nil, w.syntaxErrorf(tok, "list literals are non-standard")
		}
		return w.parseListLiteral()
	default:
		return nil, w.syntaxErrorf(tok, "unexpected %s in filter expression", tok.Kind)
	}
}

// parseRegexLiteral consumes the pattern and flags tokens of a /re/flags
// literal and compiles the pattern eagerly.
func (w *walker) parseRegexLiteral() (ast.Expr, error) {
	pattern := w.s.next()
	flags, err := w.expect(token.ReFlags)
	if err != nil {
		return nil, err
	}

	source := pattern.Value
	if goFlags := regexFlags(flags.Value); goFlags != "" {
		source = "(?" + goFlags + ")" + source
	}
	compiled, err := regexp.Compile(source)
	if err != nil {
		return nil, w.typeErrorf(pattern, "invalid regex literal: %v", err)
	}
	return &ast.RegexLiteral{Raw: pattern.Value, Flags: flags.Value, Compiled: compiled}, nil
}

// regexFlags translates the literal's flags to Go regexp flags. The "a"
// (ASCII) flag has no direct equivalent and is ignored.
func regexFlags(flags string) string {
	var b strings.Builder
	for _, r := range flags {
		switch r {
		case 'i', 'm', 's':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseListLiteral parses a bracketed list of expressions for use with the
// in and contains operators.
func (w *walker) parseListLiteral() (ast.Expr, error) {
	open := w.s.next()
	var items []ast.Expr
	for w.s.current().Kind != token.RBracket {
		item, err := w.parsePrimary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if w.s.current().Kind != token.Comma {
			break
		}
		w.s.next()
	}
	if _, err := w.expect(token.RBracket); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, w.syntaxErrorf(open, "empty list literal")
	}
	return &ast.ListLiteral{Items: items}, nil
}

// parseFunctionCall parses a function extension call, resolving the callee
// and validating its signature.
func (w *walker) parseFunctionCall() (ast.Expr, error) {
	nameTok := w.s.next()
	if _, err := w.expect(token.LParen); err != nil {
		return nil, err
	}

	var args []ast.Expr
	for w.s.current().Kind != token.RParen {
		arg, err := w.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if w.s.current().Kind != token.Comma {
			break
		}
		w.s.next()
	}
	if _, err := w.expect(token.RParen); err != nil {
		return nil, err
	}

	fn, ok := w.cfg.Function(nameTok.Value)
	if !ok {
		return nil, &Error{
			Err: ErrName,
			Msg: fmt.Sprintf("function %q is not defined", nameTok.Value),
			Tok: nameTok,
		}
	}

	if w.cfg.WellTyped {
		if err := w.checkFunctionArgs(nameTok, fn, args); err != nil {
			return nil, err
		}
	}
	if v, ok := fn.(ast.Validator); ok {
		rewritten, err := v.Validate(args, nameTok)
		if err != nil {
			var perr *Error
			if errors.As(err, &perr) {
				return nil, err
			}
			return nil, &Error{Err: ErrType, Msg: err.Error(), Tok: nameTok}
		}
		args = rewritten
	}

	return &ast.FunctionCall{Name: nameTok.Value, Fn: fn, Args: args, Tok: nameTok}, nil
}

// checkFunctionArgs validates argument count and declared types.
func (w *walker) checkFunctionArgs(nameTok token.Token, fn ast.Function, args []ast.Expr) error {
	argTypes := fn.ArgTypes()
	if len(args) != len(argTypes) {
		return w.typeErrorf(nameTok, "%s() takes %d arguments, %d given", nameTok.Value, len(argTypes), len(args))
	}
	for i, declared := range argTypes {
		arg := args[i]
		switch declared {
		case ast.ValueType:
			if err := w.checkValue(arg, nameTok); err != nil {
				return w.typeErrorf(nameTok, "%s() argument %d must be of ValueType", nameTok.Value, i+1)
			}
		case ast.NodesType:
			switch e := arg.(type) {
			case *ast.QueryExpr:
			case *ast.FunctionCall:
				if e.Fn.ReturnType() != ast.NodesType {
					return w.typeErrorf(nameTok, "%s() argument %d must be of NodesType", nameTok.Value, i+1)
				}
			default:
				return w.typeErrorf(nameTok, "%s() argument %d must be of NodesType", nameTok.Value, i+1)
			}
		case ast.LogicalType:
			if err := w.checkLogical(arg, nameTok); err != nil {
				return w.typeErrorf(nameTok, "%s() argument %d must be of LogicalType", nameTok.Value, i+1)
			}
		}
	}
	return nil
}

// checkValue verifies that expr is value-typed: a literal, a singular
// query, the current key, or a call to a ValueType function.
func (w *walker) checkValue(expr ast.Expr, at token.Token) error {
	switch e := expr.(type) {
	case *ast.QueryExpr:
		if !e.Query.IsSingular() {
			return w.typeErrorf(e.Tok, "non-singular query is not comparable")
		}
	case *ast.FunctionCall:
		if e.Fn.ReturnType() != ast.ValueType {
			return w.typeErrorf(e.Tok, "%s() does not return a comparable value", e.Name)
		}
	case *ast.InfixExpr, *ast.PrefixExpr:
		return w.typeErrorf(at, "logical expression is not comparable")
	}
	return nil
}

// checkLogical verifies that expr can be used where a truth value is
// required: any query (existence test), a logical operation, a literal, or
// a call to a Logical- or NodesType function.
func (w *walker) checkLogical(expr ast.Expr, at token.Token) error {
	if e, ok := expr.(*ast.FunctionCall); ok && e.Fn.ReturnType() == ast.ValueType {
		return w.typeErrorf(e.Tok, "%s() result must be compared", e.Name)
	}
	return nil
}

// checkComparison validates both operands of a comparison, membership or
// regex match.
func (w *walker) checkComparison(left ast.Expr, op string, right ast.Expr, at token.Token) error {
	if op == "in" || op == "contains" {
		// Membership operands may be list literals or singular values.
		if err := w.checkMembershipOperand(left, at); err != nil {
			return err
		}
		return w.checkMembershipOperand(right, at)
	}
	if op == "=~" {
		if err := w.checkValue(left, at); err != nil {
			return err
		}
		if _, ok := right.(*ast.RegexLiteral); !ok {
			return w.typeErrorf(at, "the right-hand side of =~ must be a regex literal")
		}
		return nil
	}
	if _, ok := right.(*ast.RegexLiteral); ok {
		return w.typeErrorf(at, "regex literals can only be matched with =~")
	}
	if _, ok := left.(*ast.RegexLiteral); ok {
		return w.typeErrorf(at, "regex literals can only be matched with =~")
	}
	if err := w.checkValue(left, at); err != nil {
		return err
	}
	return w.checkValue(right, at)
}

func (w *walker) checkMembershipOperand(expr ast.Expr, at token.Token) error {
	if _, ok := expr.(*ast.ListLiteral); ok {
		return nil
	}
	return w.checkValue(expr, at)
}
