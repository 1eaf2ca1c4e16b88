package jsonpath

import (
	"errors"

	"github.com/jacoelho/jsonpath/internal/ast"
	"github.com/jacoelho/jsonpath/internal/lexer"
	"github.com/jacoelho/jsonpath/internal/parser"
)

// Compile-time errors, re-exported from the parser so callers can test
// them with errors.Is without importing internal packages.
var (
	// ErrSyntax indicates a malformed query.
	ErrSyntax = parser.ErrSyntax

	// ErrType indicates a well-typedness violation in a filter expression.
	ErrType = parser.ErrType

	// ErrIndex indicates an integer literal outside the configured index
	// range.
	ErrIndex = parser.ErrIndex

	// ErrName indicates a reference to an unregistered function extension.
	ErrName = parser.ErrName
)

// ErrDecode indicates that string or byte input could not be decoded as a
// JSON document.
var ErrDecode = errors.New("jsonpath: decode error")

const (
	defaultMaxIntIndex = 1<<53 - 1
	defaultMinIntIndex = -(1<<53 - 1)
)

// Environment holds the configuration shared by every query compiled from
// it: special identifiers, the function extension registry, index limits
// and mode flags.
//
// An Environment is effectively immutable once the first query has been
// compiled; queries keep a reference to it. It is safe to compile and
// evaluate queries from the same environment concurrently, as long as
// extensions are not registered mid-flight.
type Environment struct {
	tokens lexer.Config

	minIntIndex   int
	maxIntIndex   int
	filterCaching bool
	wellTyped     bool
	strict        bool

	functions    map[string]Function
	matchFactory func() *Match

	lexer  *lexer.Lexer
	parser *parser.Parser
}

// Option configures an Environment.
type Option func(*Environment)

// WithRootToken sets the root identifier, default "$".
func WithRootToken(s string) Option { return func(e *Environment) { e.tokens.Root = s } }

// WithPseudoRootToken sets the pseudo-root identifier, default "^". The
// empty string disables it.
func WithPseudoRootToken(s string) Option { return func(e *Environment) { e.tokens.PseudoRoot = s } }

// WithCurrentToken sets the current node identifier, default "@".
func WithCurrentToken(s string) Option { return func(e *Environment) { e.tokens.Current = s } }

// WithFilterContextToken sets the extra context identifier, default "_".
// The empty string disables it.
func WithFilterContextToken(s string) Option {
	return func(e *Environment) { e.tokens.FilterContext = s }
}

// WithKeyToken sets the current key identifier, default "#". The empty
// string disables it.
func WithKeyToken(s string) Option { return func(e *Environment) { e.tokens.Key = s } }

// WithKeysSelectorToken sets the keys selector, default "~". The empty
// string disables it.
func WithKeysSelectorToken(s string) Option { return func(e *Environment) { e.tokens.Keys = s } }

// WithUnionToken sets the compound union operator, default "|".
func WithUnionToken(s string) Option { return func(e *Environment) { e.tokens.Union = s } }

// WithIntersectionToken sets the compound intersection operator, default
// "&".
func WithIntersectionToken(s string) Option { return func(e *Environment) { e.tokens.Intersection = s } }

// WithAndWord sets the word form of &&, default "and".
func WithAndWord(s string) Option { return func(e *Environment) { e.tokens.AndWord = s } }

// WithOrWord sets the word form of ||, default "or".
func WithOrWord(s string) Option { return func(e *Environment) { e.tokens.OrWord = s } }

// WithNotWord sets the word form of !, default "not".
func WithNotWord(s string) Option { return func(e *Environment) { e.tokens.NotWord = s } }

// WithIndexRange sets the inclusive range allowed for integer literals,
// default ±(2^53 - 1).
func WithIndexRange(minIndex, maxIndex int) Option {
	return func(e *Environment) {
		e.minIntIndex = minIndex
		e.maxIntIndex = maxIndex
	}
}

// WithoutUnicodeEscape disables decoding of \uXXXX escape sequences in
// string literals.
func WithoutUnicodeEscape() Option { return func(e *Environment) { e.tokens.UnicodeEscape = false } }

// WithoutFilterCaching disables memoization of filter expression results
// within a single FindAll or FindIter call.
func WithoutFilterCaching() Option { return func(e *Environment) { e.filterCaching = false } }

// WithoutTypeChecks disables compile-time well-typedness validation of
// filter expressions.
func WithoutTypeChecks() Option { return func(e *Environment) { e.wellTyped = false } }

// WithStrictMode disables all non-standard syntax: the pseudo-root, keys,
// current-key and filter-context identifiers, in/contains and list
// literals, compound operators, rootless queries and tolerant scanning.
func WithStrictMode() Option { return func(e *Environment) { e.strict = true } }

// WithMatchFactory sets the factory used to allocate Match records during
// evaluation.
func WithMatchFactory(f func() *Match) Option { return func(e *Environment) { e.matchFactory = f } }

// NewEnvironment builds an environment with the given options applied
// over the defaults. The standard function extensions are registered;
// keys() is opt-in via RegisterKeysFunction.
func NewEnvironment(opts ...Option) *Environment {
	env := &Environment{
		tokens:        lexer.DefaultConfig(),
		minIntIndex:   defaultMinIntIndex,
		maxIntIndex:   defaultMaxIntIndex,
		filterCaching: true,
		wellTyped:     true,
		functions:     make(map[string]Function),
	}
	for _, opt := range opts {
		opt(env)
	}
	env.tokens.Strict = env.strict

	env.registerBuiltins()

	env.lexer = lexer.New(env.tokens)
	env.parser = parser.New(parser.Config{
		MinIntIndex: env.minIntIndex,
		MaxIntIndex: env.maxIntIndex,
		Strict:      env.strict,
		WellTyped:   env.wellTyped,
		Function:    env.lookupFunction,
	}, env.lexer)
	return env
}

// Strict reports whether the environment rejects non-standard syntax.
func (e *Environment) Strict() bool { return e.strict }

// RegisterFunction adds or replaces a function extension. Registering
// functions after queries have been compiled does not affect them.
func (e *Environment) RegisterFunction(name string, fn Function) {
	e.functions[name] = fn
}

// RemoveFunction removes a function extension by name.
func (e *Environment) RemoveFunction(name string) {
	delete(e.functions, name)
}

// RegisterKeysFunction registers the opt-in keys() extension.
func (e *Environment) RegisterKeysFunction() {
	e.RegisterFunction("keys", keysFunction{})
}

func (e *Environment) lookupFunction(name string) (ast.Function, bool) {
	fn, ok := e.functions[name]
	if !ok {
		return nil, false
	}
	return &astFunction{fn: fn}, true
}

func (e *Environment) newMatch() *Match {
	if e.matchFactory != nil {
		return e.matchFactory()
	}
	return &Match{}
}

// Compile prepares a query for repeated evaluation against different
// data. A query using the union or intersection operators compiles to a
// *CompoundPath, everything else to a *Path.
func (e *Environment) Compile(query string) (PathQuery, error) {
	first, parts, err := e.parser.Parse(query)
	if err != nil {
		return nil, err
	}

	path := &Path{env: e, query: first, text: query}
	if len(parts) == 0 {
		return path, nil
	}
	return &CompoundPath{env: e, first: path, parts: parts, text: query}, nil
}

// FindAll compiles query and returns the value of every match in data.
// filterContext is made available to filter expressions under the
// configured extra-context identifier; nil is allowed.
func (e *Environment) FindAll(query string, data any, filterContext map[string]any) ([]any, error) {
	compiled, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return compiled.FindAll(data, filterContext)
}

// FindIter compiles query and returns a lazy sequence of matches.
// Dropping the iterator early is the way to cancel an evaluation; matches
// already produced remain valid.
func (e *Environment) FindIter(query string, data any, filterContext map[string]any) (MatchSeq, error) {
	compiled, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return compiled.FindIter(data, filterContext)
}

// First compiles query and returns its first match, or nil when there is
// none.
func (e *Environment) First(query string, data any, filterContext map[string]any) (*Match, error) {
	compiled, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return compiled.First(data, filterContext)
}
