package jsonpath

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const usersJSON = `{
  "users": [
    { "name": "Sue", "score": 100 },
    { "name": "John", "score": 86 },
    { "name": "Sally", "score": 84 },
    { "name": "Jane", "score": 55 }
  ]
}`

const storeJSON = `{
  "store": {
    "book": [
      { "category": "reference", "author": "Nigel Rees", "title": "Sayings of the Century", "price": 8.95 },
      { "category": "fiction", "author": "Evelyn Waugh", "title": "Sword of Honour", "price": 12.99 },
      { "category": "fiction", "author": "Herman Melville", "title": "Moby Dick", "isbn": "0-553-21311-3", "price": 8.99 },
      { "category": "fiction", "author": "J. R. R. Tolkien", "title": "The Lord of the Rings", "isbn": "0-395-19395-8", "price": 22.99 }
    ],
    "bicycle": { "color": "red", "price": 399 }
  }
}`

func mustDecode(t *testing.T, text string) any {
	t.Helper()
	value, err := DecodeJSON([]byte(text))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	return value
}

// jsonValue builds expected composite values from JSON text so they use
// the same decoded representation the engine produces.
func jsonValue(text string) any {
	value, err := DecodeJSON([]byte(text))
	if err != nil {
		panic(err)
	}
	return value
}

func TestFindAll(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		data   string
		expect []any
	}{
		{
			name:   "root",
			query:  "$",
			data:   `"hello"`,
			expect: []any{"hello"},
		},
		{
			name:   "shorthand_name",
			query:  "$.store.bicycle.color",
			data:   storeJSON,
			expect: []any{"red"},
		},
		{
			name:   "bracketed_name",
			query:  "$['store']['bicycle']['color']",
			data:   storeJSON,
			expect: []any{"red"},
		},
		{
			name:   "wildcard_over_sequence",
			query:  "$.store.book[*].author",
			data:   storeJSON,
			expect: []any{"Nigel Rees", "Evelyn Waugh", "Herman Melville", "J. R. R. Tolkien"},
		},
		{
			name:   "index",
			query:  "$.store.book[2].author",
			data:   storeJSON,
			expect: []any{"Herman Melville"},
		},
		{
			name:   "negative_index",
			query:  "$.store.book[-1].author",
			data:   storeJSON,
			expect: []any{"J. R. R. Tolkien"},
		},
		{
			name:   "out_of_range_index",
			query:  "$.store.book[99]",
			data:   storeJSON,
			expect: []any{},
		},
		{
			name:   "slice",
			query:  "$.store.book[1:3].author",
			data:   storeJSON,
			expect: []any{"Evelyn Waugh", "Herman Melville"},
		},
		{
			name:   "slice_with_step",
			query:  "$.store.book[::2].author",
			data:   storeJSON,
			expect: []any{"Nigel Rees", "Herman Melville"},
		},
		{
			name:   "slice_negative_step",
			query:  "$.store.book[::-1].author",
			data:   storeJSON,
			expect: []any{"J. R. R. Tolkien", "Herman Melville", "Evelyn Waugh", "Nigel Rees"},
		},
		{
			name:   "slice_on_mapping_selects_nothing",
			query:  "$.store[0:2]",
			data:   storeJSON,
			expect: []any{},
		},
		{
			name:   "descendant_name",
			query:  "$..author",
			data:   storeJSON,
			expect: []any{"Nigel Rees", "Evelyn Waugh", "Herman Melville", "J. R. R. Tolkien"},
		},
		{
			// storeJSON declares "book" before "bicycle", so document
			// order puts the book prices first.
			name:  "descendant_price",
			query: "$.store..price",
			data:  storeJSON,
			expect: []any{
				json.Number("8.95"), json.Number("12.99"), json.Number("8.99"),
				json.Number("22.99"), json.Number("399"),
			},
		},
		{
			name:   "wildcard_follows_insertion_order",
			query:  "$.*",
			data:   `{"zeta": 1, "alpha": 2, "mike": 3}`,
			expect: []any{json.Number("1"), json.Number("2"), json.Number("3")},
		},
		{
			name:   "descendant_follows_insertion_order",
			query:  "$..v",
			data:   `{"zeta": {"v": 1}, "alpha": {"v": 2}}`,
			expect: []any{json.Number("1"), json.Number("2")},
		},
		{
			name:   "filter_over_mapping_follows_insertion_order",
			query:  "$[?@ > 0]",
			data:   `{"zeta": 1, "alpha": 2, "mike": 0}`,
			expect: []any{json.Number("1"), json.Number("2")},
		},
		{
			name:   "keys_selector_follows_insertion_order",
			query:  "$.~",
			data:   `{"zeta": 1, "alpha": 2}`,
			expect: []any{"zeta", "alpha"},
		},
		{
			name:   "union_of_selectors",
			query:  "$.store.book[0]['author', 'title']",
			data:   storeJSON,
			expect: []any{"Nigel Rees", "Sayings of the Century"},
		},
		{
			name:   "filter_comparison",
			query:  "$.users[?@.score < 100].name",
			data:   usersJSON,
			expect: []any{"John", "Sally", "Jane"},
		},
		{
			name:   "filter_equality",
			query:  `$.users[?@.name == "Sue"].score`,
			data:   usersJSON,
			expect: []any{json.Number("100")},
		},
		{
			name:   "filter_existence",
			query:  "$.store.book[?@.isbn].title",
			data:   storeJSON,
			expect: []any{"Moby Dick", "The Lord of the Rings"},
		},
		{
			name:   "filter_non_existence",
			query:  "$.store.book[?!@.isbn].title",
			data:   storeJSON,
			expect: []any{"Sayings of the Century", "Sword of Honour"},
		},
		{
			name:   "filter_logical_and",
			query:  `$.store.book[?@.category == "fiction" && @.price < 10].title`,
			data:   storeJSON,
			expect: []any{"Moby Dick"},
		},
		{
			name:   "filter_logical_or_words",
			query:  `$.users[?@.score == 100 or @.score == 55].name`,
			data:   usersJSON,
			expect: []any{"Sue", "Jane"},
		},
		{
			name:   "filter_root_reference",
			query:  "$..products[?(@.price < $.price_cap)].n",
			data:   `{"price_cap":10,"products":[{"n":"apple","price":5},{"n":"orange","price":12},{"n":"banana","price":8}]}`,
			expect: []any{"apple", "banana"},
		},
		{
			name:   "filter_on_mapping_tests_member_values",
			query:  `$[?@.price < 10]`,
			data:   `{"a":{"price":5},"b":{"price":15}}`,
			expect: []any{jsonValue(`{"price":5}`)},
		},
		{
			name:   "filter_regex_operator",
			query:  `$.users[?@.name =~ /^S.*/].name`,
			data:   usersJSON,
			expect: []any{"Sue", "Sally"},
		},
		{
			name:   "filter_membership_in_list_literal",
			query:  `$.users[?@.name in ["Sue", "Jane"]].score`,
			data:   usersJSON,
			expect: []any{json.Number("100"), json.Number("55")},
		},
		{
			name:   "filter_contains",
			query:  `$[?@ contains "a"]`,
			data:   `{"x":["a","b"],"y":["b"]}`,
			expect: []any{[]any{"a", "b"}},
		},
		{
			name:   "filter_null_is_selectable",
			query:  "$.items[?@.flag == null].id",
			data:   `{"items":[{"id":1,"flag":null},{"id":2,"flag":true}]}`,
			expect: []any{json.Number("1")},
		},
		{
			name:   "filter_missing_is_not_null",
			query:  "$.items[?@.flag == null].id",
			data:   `{"items":[{"id":1},{"id":2,"flag":null}]}`,
			expect: []any{json.Number("2")},
		},
		{
			name:   "embedded_singular_query_selector",
			query:  "$.a.j[$['c d'].x.y]",
			data:   `{"a":{"j":[1,2,3],"p":{"q":[4,5,6]}},"b":["j","p","q"],"c d":{"x":{"y":1}}}`,
			expect: []any{json.Number("2")},
		},
		{
			name:   "keys_selector",
			query:  "$.store.bicycle.~",
			data:   storeJSON,
			expect: []any{"color", "price"},
		},
		{
			name:   "key_selector",
			query:  "$.store.bicycle[~'color']",
			data:   storeJSON,
			expect: []any{"color"},
		},
		{
			name:   "keys_filter_selector",
			query:  "$.store.bicycle[~?@ == 'red']",
			data:   storeJSON,
			expect: []any{"color"},
		},
		{
			name:   "current_key_and_functions",
			query:  "$[?match(#, '^ab.*') && length(@) > 0 ]",
			data:   `{"abc":[1,2,3],"def":[4,5],"abx":[6],"aby":[]}`,
			expect: []any{[]any{json.Number("1"), json.Number("2"), json.Number("3")}, []any{json.Number("6")}},
		},
		{
			name:   "rootless_query",
			query:  "users[0].name",
			data:   usersJSON,
			expect: []any{"Sue"},
		},
		{
			name:   "bare_descendant",
			query:  "$.store.bicycle..",
			data:   storeJSON,
			expect: []any{"red", json.Number("399")},
		},
		{
			name:   "scalar_has_no_descendants",
			query:  "$..x",
			data:   `"scalar"`,
			expect: []any{},
		},
		{
			name:   "empty_containers",
			query:  "$.*",
			data:   `{}`,
			expect: []any{},
		},
		{
			name:   "filter_over_string_elements",
			query:  `$[?@ == "j"]`,
			data:   `["j","p","q"]`,
			expect: []any{"j"},
		},
		{
			name:   "compound_union",
			query:  "$.users[0].name | $.users[3].name",
			data:   usersJSON,
			expect: []any{"Sue", "Jane"},
		},
		{
			name:   "compound_intersection",
			query:  "$.users[0, 1].name & $.users[1, 2].name",
			data:   usersJSON,
			expect: []any{"John"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindAll(tt.query, tt.data)
			if err != nil {
				t.Fatalf("FindAll(%q) error = %v", tt.query, err)
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("FindAll(%q) = %v, want %v", tt.query, got, tt.expect)
			}
		})
	}
}

func TestNormalizedPaths(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		data   string
		expect []string
	}{
		{
			name:   "wildcard_paths",
			query:  "$.users.*.name",
			data:   usersJSON,
			expect: []string{"$['users'][0]['name']", "$['users'][1]['name']", "$['users'][2]['name']", "$['users'][3]['name']"},
		},
		{
			name:   "embedded_query_selector_path",
			query:  "$.a.j[$['c d'].x.y]",
			data:   `{"a":{"j":[1,2,3],"p":{"q":[4,5,6]}},"b":["j","p","q"],"c d":{"x":{"y":1}}}`,
			expect: []string{"$['a']['j'][1]"},
		},
		{
			name:   "filter_with_current_key_paths",
			query:  "$[?match(#, '^ab.*') && length(@) > 0 ]",
			data:   `{"abc":[1,2,3],"def":[4,5],"abx":[6],"aby":[]}`,
			expect: []string{"$['abc']", "$['abx']"},
		},
		{
			name:   "keys_selector_paths",
			query:  "$.store.bicycle.~",
			data:   storeJSON,
			expect: []string{"$['store']['bicycle'][~'color']", "$['store']['bicycle'][~'price']"},
		},
		{
			name:   "escaped_name_path",
			query:  `$["it's"]`,
			data:   `{"it's": 1}`,
			expect: []string{`$['it\'s']`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := FindIter(tt.query, tt.data)
			if err != nil {
				t.Fatalf("FindIter(%q) error = %v", tt.query, err)
			}
			var got []string
			for m := range seq {
				got = append(got, m.Path)
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("paths = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestFindIterMatchesFindAll(t *testing.T) {
	queries := []string{
		"$",
		"$..author",
		"$.store.book[1:3]",
		"$.store.book[?@.price < 10].title",
	}
	data := mustDecode(t, storeJSON)

	for _, query := range queries {
		compiled, err := Compile(query)
		if err != nil {
			t.Fatalf("Compile(%q) error = %v", query, err)
		}
		all, err := compiled.FindAll(data, nil)
		if err != nil {
			t.Fatalf("FindAll(%q) error = %v", query, err)
		}
		seq, err := compiled.FindIter(data, nil)
		if err != nil {
			t.Fatalf("FindIter(%q) error = %v", query, err)
		}
		iterated := []any{}
		for m := range seq {
			iterated = append(iterated, m.Value)
		}
		if !reflect.DeepEqual(all, iterated) {
			t.Errorf("FindAll(%q) = %v, FindIter values = %v", query, all, iterated)
		}
	}
}

func TestMatchPointerRoundTrip(t *testing.T) {
	data := mustDecode(t, storeJSON)
	seq, err := FindIter("$..price", data)
	if err != nil {
		t.Fatalf("FindIter() error = %v", err)
	}
	for m := range seq {
		ptr, err := m.Pointer()
		if err != nil {
			t.Fatalf("Pointer() error = %v", err)
		}
		resolved, err := ptr.Resolve(data)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", ptr, err)
		}
		if !reflect.DeepEqual(resolved, m.Value) {
			t.Errorf("Resolve(%q) = %v, want %v", ptr, resolved, m.Value)
		}
	}
}

func TestMatchParentLinkage(t *testing.T) {
	data := mustDecode(t, usersJSON)
	m, err := First("$.users[1].name", data)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if m == nil {
		t.Fatal("First() returned no match")
	}
	if m.Value != "John" {
		t.Errorf("Value = %v, want John", m.Value)
	}
	if m.Parent == nil || m.Parent.Path != "$['users'][1]" {
		t.Errorf("Parent.Path = %v, want $['users'][1]", m.Parent)
	}
	if m.Parent.Parent == nil || len(m.Parent.Parent.Children()) == 0 {
		t.Error("grandparent should have recorded children")
	}
}

func TestFirst(t *testing.T) {
	data := mustDecode(t, usersJSON)

	m, err := First("$.users[*].name", data)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if m == nil || m.Value != "Sue" {
		t.Errorf("First() = %v, want Sue", m)
	}

	m, err = First("$.missing", data)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if m != nil {
		t.Errorf("First() = %v, want nil", m)
	}
}

func TestPlainGoMapInput(t *testing.T) {
	// Mappings supplied as plain Go maps carry no insertion order, so
	// traversal falls back to ascending key order.
	data := map[string]any{"zeta": 1, "alpha": 2}

	got, err := FindAll("$.*", data)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, []any{2, 1}) {
		t.Errorf("FindAll() = %v, want sorted-key order [2 1]", got)
	}
}

func TestFilterContext(t *testing.T) {
	env := NewEnvironment()
	got, err := env.FindAll("$.users[?@.score >= _.threshold].name", mustDecode(t, usersJSON), map[string]any{"threshold": 86})
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []any{"Sue", "John"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAll() = %v, want %v", got, want)
	}
}

func TestPseudoRoot(t *testing.T) {
	got, err := FindAll("^[0].users[0].name", mustDecode(t, usersJSON))
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if !reflect.DeepEqual(got, []any{"Sue"}) {
		t.Errorf("FindAll() = %v, want [Sue]", got)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  error
	}{
		{name: "unbalanced_bracket", query: "$[", want: ErrSyntax},
		{name: "empty_bracketed_segment", query: "$[]", want: ErrSyntax},
		{name: "unterminated_string", query: "$['a", want: ErrSyntax},
		{name: "trailing_union", query: "$.a |", want: ErrSyntax},
		{name: "too_many_colons", query: "$[1:2:3:4]", want: ErrSyntax},
		{name: "float_index", query: "$[1.5]", want: ErrSyntax},
		{name: "index_out_of_range", query: "$[9007199254740992]", want: ErrIndex},
		{name: "non_singular_comparison", query: "$[?@.a.* == 1]", want: ErrType},
		{name: "regex_without_match_operator", query: "$[?@.a == /re/]", want: ErrType},
		{name: "invalid_regex", query: "$[?@.a =~ /(/]", want: ErrType},
		{name: "unknown_function", query: "$[?frob(@)]", want: ErrName},
		{name: "wrong_argument_count", query: "$[?length(@, 1) > 0]", want: ErrType},
		{name: "value_function_as_test", query: "$[?length(@)]", want: ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.query)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile(%q) error = %v, want %v", tt.query, err, tt.want)
			}
		})
	}
}

func TestStrictMode(t *testing.T) {
	env := NewEnvironment(WithStrictMode())

	valid := []string{
		"$.store.book[0].title",
		"$..book[?@.price < 10]",
		"$['store']['bicycle']",
	}
	for _, query := range valid {
		if _, err := env.Compile(query); err != nil {
			t.Errorf("Compile(%q) error = %v, want nil", query, err)
		}
	}

	invalid := []string{
		"store.book",         // missing root identifier
		"$.a | $.b",          // compound query
		"$.store.~",          // keys selector
		"$[?# == 'a']",       // current key
		"$[?@.a in [1, 2]]",  // membership operator
		"$[?@.a =~ /re/]",    // regex operator
		"$[?_.limit > @.a]",  // filter context
		"^[0]",               // pseudo root
		"$['a', 'b',]",       // trailing comma
		"$[a]",               // unquoted name
	}
	for _, query := range invalid {
		if _, err := env.Compile(query); err == nil {
			t.Errorf("Compile(%q) expected an error in strict mode", query)
		}
	}
}

func TestEnvironmentOptions(t *testing.T) {
	t.Run("custom_root_token", func(t *testing.T) {
		env := NewEnvironment(WithRootToken("$data"))
		got, err := env.FindAll("$data.users[0].name", mustDecode(t, usersJSON), nil)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if !reflect.DeepEqual(got, []any{"Sue"}) {
			t.Errorf("FindAll() = %v, want [Sue]", got)
		}
	})

	t.Run("index_range", func(t *testing.T) {
		env := NewEnvironment(WithIndexRange(-10, 10))
		if _, err := env.Compile("$[11]"); !errors.Is(err, ErrIndex) {
			t.Errorf("Compile($[11]) error = %v, want %v", err, ErrIndex)
		}
	})

	t.Run("disabled_token", func(t *testing.T) {
		env := NewEnvironment(WithKeysSelectorToken(""))
		if _, err := env.Compile("$.a.~"); !errors.Is(err, ErrSyntax) {
			t.Errorf("Compile($.a.~) error = %v, want %v", err, ErrSyntax)
		}
	})

	t.Run("no_type_checks", func(t *testing.T) {
		env := NewEnvironment(WithoutTypeChecks())
		if _, err := env.Compile("$[?@.a.* == 1]"); err != nil {
			t.Errorf("Compile() error = %v, want nil with type checks off", err)
		}
	})
}

func TestKeysFunctionOptIn(t *testing.T) {
	data := mustDecode(t, `{"point": {"x": 1, "y": 2}}`)

	if _, err := Compile("$[?keys(@.point) != null]"); !errors.Is(err, ErrName) {
		t.Errorf("keys() should be unregistered by default, got %v", err)
	}

	env := NewEnvironment()
	env.RegisterKeysFunction()
	got, err := env.FindAll("$[?keys(@) == ['x', 'y']]", data, nil)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []any{jsonValue(`{"x": 1, "y": 2}`)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindAll() = %v, want %v", got, want)
	}
}

func TestCanonicalStringRoundTrip(t *testing.T) {
	queries := []string{
		"$.store.book[0]['author', 'title']",
		"$..book[?@.price < 10]",
		"$.store.book[1:3:2]",
		"$.users[?@.name =~ /^S.*/]",
	}
	data := mustDecode(t, storeJSON)

	for _, query := range queries {
		first, err := Compile(query)
		if err != nil {
			t.Fatalf("Compile(%q) error = %v", query, err)
		}
		second, err := Compile(first.String())
		if err != nil {
			t.Fatalf("Compile(%q) error = %v", first.String(), err)
		}
		want, err := first.FindAll(data, nil)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		got, err := second.FindAll(data, nil)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("recompiled %q: FindAll() = %v, want %v", first.String(), got, want)
		}
	}
}

// recordingFunction counts calls so short-circuit behavior is observable.
type recordingFunction struct {
	calls *int
}

func (recordingFunction) ArgTypes() []FuncType { return []FuncType{ValueType} }
func (recordingFunction) ReturnType() FuncType { return LogicalType }

func (f recordingFunction) Call(args []any) any {
	*f.calls++
	return true
}

func TestFilterShortCircuit(t *testing.T) {
	calls := 0
	env := NewEnvironment()
	env.RegisterFunction("record", recordingFunction{calls: &calls})

	_, err := env.FindAll("$[?@.a == 1 || record(@)]", mustDecode(t, `[{"a": 1}]`), nil)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("record() called %d times, want 0 once the left side is true", calls)
	}
}

func TestUnionIsConcatenative(t *testing.T) {
	data := mustDecode(t, usersJSON)

	left, err := FindAll("$.users[0].name", data)
	if err != nil {
		t.Fatal(err)
	}
	right, err := FindAll("$.users[*].name", data)
	if err != nil {
		t.Fatal(err)
	}
	both, err := FindAll("$.users[0].name | $.users[*].name", data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(both, append(append([]any{}, left...), right...)) {
		t.Errorf("union = %v, want concatenation of %v and %v", both, left, right)
	}
}
