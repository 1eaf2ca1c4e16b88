package lexer

import (
	"testing"

	"github.com/jacoelho/jsonpath/internal/token"
)

func kinds(t *testing.T, lex *Lexer, query string) []token.Kind {
	t.Helper()
	toks, err := lex.Tokenize(query)
	if err != nil {
		t.Fatalf("Tokenize(%q) error = %v", query, err)
	}
	out := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Kind)
	}
	return out
}

func equalKinds(a, b []token.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTokenize(t *testing.T) {
	lex := New(DefaultConfig())

	tests := []struct {
		name   string
		query  string
		expect []token.Kind
	}{
		{
			name:   "shorthand",
			query:  "$.store.book",
			expect: []token.Kind{token.Root, token.Dot, token.Name, token.Dot, token.Name, token.EOF},
		},
		{
			name:   "bracketed_string",
			query:  `$["a b"]`,
			expect: []token.Kind{token.Root, token.LBracket, token.String, token.RBracket, token.EOF},
		},
		{
			name:   "descendant_wildcard",
			query:  "$..*",
			expect: []token.Kind{token.Root, token.DotDot, token.Wild, token.EOF},
		},
		{
			name:  "slice",
			query: "$[1:-2:2]",
			expect: []token.Kind{
				token.Root, token.LBracket, token.Int, token.Colon, token.Int,
				token.Colon, token.Int, token.RBracket, token.EOF,
			},
		},
		{
			name:  "filter_comparison",
			query: "$[?@.price <= 10.5]",
			expect: []token.Kind{
				token.Root, token.LBracket, token.Question, token.Current, token.Dot,
				token.Name, token.Le, token.Float, token.RBracket, token.EOF,
			},
		},
		{
			name:  "filter_words",
			query: "$[?@.a and not @.b or @.c in @.d]",
			expect: []token.Kind{
				token.Root, token.LBracket, token.Question,
				token.Current, token.Dot, token.Name, token.And,
				token.Not, token.Current, token.Dot, token.Name, token.Or,
				token.Current, token.Dot, token.Name, token.In,
				token.Current, token.Dot, token.Name, token.RBracket, token.EOF,
			},
		},
		{
			name:  "regex_literal",
			query: "$[?@ =~ /ab+/i]",
			expect: []token.Kind{
				token.Root, token.LBracket, token.Question, token.Current,
				token.ReMatch, token.RePattern, token.ReFlags, token.RBracket, token.EOF,
			},
		},
		{
			name:   "keys_selectors",
			query:  "$.~ 	",
			expect: []token.Kind{token.Root, token.Dot, token.Keys, token.EOF},
		},
		{
			name:   "keys_filter",
			query:  "$[~?@]",
			expect: []token.Kind{token.Root, token.LBracket, token.KeysFilter, token.Current, token.RBracket, token.EOF},
		},
		{
			name:   "compound_operators",
			query:  "$.a | $.b & $.c",
			expect: []token.Kind{token.Root, token.Dot, token.Name, token.Union, token.Root, token.Dot, token.Name, token.Intersection, token.Root, token.Dot, token.Name, token.EOF},
		},
		{
			name:  "logical_symbols_win_over_compound",
			query: "$[?@.a && @.b || @.c]",
			expect: []token.Kind{
				token.Root, token.LBracket, token.Question,
				token.Current, token.Dot, token.Name, token.And,
				token.Current, token.Dot, token.Name, token.Or,
				token.Current, token.Dot, token.Name, token.RBracket, token.EOF,
			},
		},
		{
			name:   "extra_context_and_key",
			query:  "$[?_.x == #]",
			expect: []token.Kind{token.Root, token.LBracket, token.Question, token.FilterContext, token.Dot, token.Name, token.Eq, token.Key, token.RBracket, token.EOF},
		},
		{
			name:   "keywords",
			query:  "$[?@ == true][?@ == false][?@ == null][?@ == missing]",
			expect: []token.Kind{token.Root, token.LBracket, token.Question, token.Current, token.Eq, token.True, token.RBracket, token.LBracket, token.Question, token.Current, token.Eq, token.False, token.RBracket, token.LBracket, token.Question, token.Current, token.Eq, token.Null, token.RBracket, token.LBracket, token.Question, token.Current, token.Eq, token.Undefined, token.RBracket, token.EOF},
		},
		{
			name:   "function_name",
			query:  "$[?length(@) == 1]",
			expect: []token.Kind{token.Root, token.LBracket, token.Question, token.Function, token.LParen, token.Current, token.RParen, token.Eq, token.Int, token.RBracket, token.EOF},
		},
		{
			name:   "negative_number",
			query:  "$[-1]",
			expect: []token.Kind{token.Root, token.LBracket, token.Int, token.RBracket, token.EOF},
		},
		{
			name:   "exponent_float",
			query:  "$[?@ > 1.5e-2]",
			expect: []token.Kind{token.Root, token.LBracket, token.Question, token.Current, token.Gt, token.Float, token.RBracket, token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(t, lex, tt.query)
			if !equalKinds(got, tt.expect) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.query, got, tt.expect)
			}
		})
	}
}

func TestStringEscapes(t *testing.T) {
	lex := New(DefaultConfig())

	tests := []struct {
		name   string
		query  string
		expect string
	}{
		{name: "simple", query: `$["abc"]`, expect: "abc"},
		{name: "escaped_quote", query: `$["a\"b"]`, expect: `a"b`},
		{name: "single_quoted", query: `$['a\'b']`, expect: "a'b"},
		{name: "control_escapes", query: `$["a\tb\nc"]`, expect: "a\tb\nc"},
		{name: "unicode_escape", query: `$["\u00e9"]`, expect: "é"},
		{name: "surrogate_pair", query: `$["\uD83D\uDE00"]`, expect: "😀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex.Tokenize(tt.query)
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.query, err)
			}
			var got string
			for _, tok := range toks {
				if tok.Kind == token.String {
					got = tok.Value
				}
			}
			if got != tt.expect {
				t.Errorf("string value = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestUnicodeEscapeDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UnicodeEscape = false
	lex := New(cfg)

	toks, err := lex.Tokenize(`$["\u00e9"]`)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	for _, tok := range toks {
		if tok.Kind == token.String && tok.Value != `\u00e9` {
			t.Errorf("string value = %q, want the raw escape", tok.Value)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	lex := New(DefaultConfig())

	queries := []string{
		`$["unterminated`,
		`$[?@ =~ /unterminated`,
		`$[-]`,
		"$[\x01]",
	}
	for _, query := range queries {
		if _, err := lex.Tokenize(query); err == nil {
			t.Errorf("Tokenize(%q) expected an error", query)
		}
	}
}

func TestStrictConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	lex := New(cfg)

	if _, err := lex.Tokenize("$[007]"); err == nil {
		t.Error("leading zeros should be rejected in strict mode")
	}
	if _, err := lex.Tokenize(`$["a\x"]`); err == nil {
		t.Error("invalid escapes should be rejected in strict mode")
	}
	if _, err := lex.Tokenize("^.a"); err == nil {
		t.Error("the pseudo-root should be unavailable in strict mode")
	}
}

func TestConfiguredTokenPrefixes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "$"
	cfg.FilterContext = "$ctx"
	lex := New(cfg)

	toks, err := lex.Tokenize("$ctx.limit")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if toks[0].Kind != token.FilterContext {
		t.Errorf("first token = %v, want the longer configured identifier to win", toks[0].Kind)
	}
}
