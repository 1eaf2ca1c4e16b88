package jsonpath

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jacoelho/jsonpath/internal/ast"
	"github.com/jacoelho/jsonpath/internal/token"
)

// FuncType is the declared type of a function extension argument or
// return value.
type FuncType int

const (
	// ValueType is a plain JSON value, or Undefined.
	ValueType FuncType = iota + 1

	// LogicalType is a truth value.
	LogicalType

	// NodesType is a NodeList.
	NodesType
)

// Function is a filter function extension. Arguments arrive converted to
// the declared types: NodesType arguments as NodeList, LogicalType as
// bool, ValueType as a plain value with singular node lists unwrapped and
// empty ones replaced by Undefined.
//
// A Function must be safe for concurrent calls.
type Function interface {
	ArgTypes() []FuncType
	ReturnType() FuncType
	Call(args []any) any
}

// ArgValidator is an optional interface for extensions that validate
// their call site at compile time, after the well-typedness checks.
type ArgValidator interface {
	ValidateArgs(count int) error
}

// astFunction adapts a public Function to the parser's internal contract.
type astFunction struct {
	fn Function
}

func (a *astFunction) ArgTypes() []ast.FuncType {
	declared := a.fn.ArgTypes()
	types := make([]ast.FuncType, len(declared))
	for i, t := range declared {
		types[i] = ast.FuncType(t)
	}
	return types
}

func (a *astFunction) ReturnType() ast.FuncType {
	return ast.FuncType(a.fn.ReturnType())
}

func (a *astFunction) Call(args []any) any { return a.fn.Call(args) }

func (a *astFunction) Validate(args []ast.Expr, _ token.Token) ([]ast.Expr, error) {
	if v, ok := a.fn.(ArgValidator); ok {
		if err := v.ValidateArgs(len(args)); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func (e *Environment) registerBuiltins() {
	e.RegisterFunction("length", lengthFunction{})
	e.RegisterFunction("count", countFunction{})
	e.RegisterFunction("match", matchFunction{})
	e.RegisterFunction("search", searchFunction{})
	e.RegisterFunction("value", valueFunction{})
	isInstance := isInstanceFunction{}
	e.RegisterFunction("isinstance", isInstance)
	e.RegisterFunction("is", isInstance)
	typeOf := typeOfFunction{}
	e.RegisterFunction("typeof", typeOf)
	e.RegisterFunction("type", typeOf)
	e.RegisterFunction("startswith", startsWithFunction{})
}

// lengthFunction counts mapping members, sequence elements or string code
// points.
type lengthFunction struct{}

func (lengthFunction) ArgTypes() []FuncType { return []FuncType{ValueType} }
func (lengthFunction) ReturnType() FuncType { return ValueType }

func (lengthFunction) Call(args []any) any {
	switch v := args[0].(type) {
	case string:
		return utf8.RuneCountInString(v)
	case []any:
		return len(v)
	}
	if n, ok := mappingLen(args[0]); ok {
		return n
	}
	return Undefined
}

// countFunction is the cardinality of a node list.
type countFunction struct{}

func (countFunction) ArgTypes() []FuncType { return []FuncType{NodesType} }
func (countFunction) ReturnType() FuncType { return ValueType }

func (countFunction) Call(args []any) any {
	nodes, ok := args[0].(NodeList)
	if !ok {
		return Undefined
	}
	return len(nodes)
}

// matchFunction is a full-string regex match.
type matchFunction struct{}

func (matchFunction) ArgTypes() []FuncType { return []FuncType{ValueType, ValueType} }
func (matchFunction) ReturnType() FuncType { return LogicalType }

func (matchFunction) Call(args []any) any {
	return regexApply(args, func(re *regexp.Regexp, s string) bool {
		loc := re.FindStringIndex(s)
		return loc != nil && loc[0] == 0 && loc[1] == len(s)
	})
}

// searchFunction is a substring regex search.
type searchFunction struct{}

func (searchFunction) ArgTypes() []FuncType { return []FuncType{ValueType, ValueType} }
func (searchFunction) ReturnType() FuncType { return LogicalType }

func (searchFunction) Call(args []any) any {
	return regexApply(args, func(re *regexp.Regexp, s string) bool {
		return re.MatchString(s)
	})
}

// regexApply runs a regex predicate over (subject, pattern) string
// arguments. Anything else, including an invalid pattern, is no match.
func regexApply(args []any, apply func(*regexp.Regexp, string) bool) bool {
	subject, ok := args[0].(string)
	if !ok {
		return false
	}
	pattern, ok := args[1].(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return apply(re, subject)
}

// valueFunction unwraps a singular node list to its sole value.
type valueFunction struct{}

func (valueFunction) ArgTypes() []FuncType { return []FuncType{NodesType} }
func (valueFunction) ReturnType() FuncType { return ValueType }

func (valueFunction) Call(args []any) any {
	nodes, ok := args[0].(NodeList)
	if !ok || len(nodes) != 1 {
		return Undefined
	}
	return nodes[0].Value
}

// isInstanceFunction is a type predicate over a node list, accepting a
// set of aliases for each JSON type.
type isInstanceFunction struct{}

func (isInstanceFunction) ArgTypes() []FuncType { return []FuncType{NodesType, ValueType} }
func (isInstanceFunction) ReturnType() FuncType { return LogicalType }

func (isInstanceFunction) Call(args []any) any {
	name, ok := args[1].(string)
	if !ok {
		return false
	}
	nodes, _ := args[0].(NodeList)
	switch typeName(nodes.ValueOrUndefined()) {
	case "undefined":
		return name == "undefined" || name == "missing"
	case "null":
		return name == "null" || name == "nil" || name == "none"
	case "string":
		return name == "str" || name == "string"
	case "array":
		return name == "array" || name == "list" || name == "sequence"
	case "object":
		return name == "object" || name == "mapping"
	case "boolean":
		return name == "bool" || name == "boolean"
	case "int":
		return name == "number" || name == "int"
	case "float":
		return name == "number" || name == "float"
	}
	return false
}

// typeOfFunction returns the JSON type name of a node list's value, with
// a single "number" name for integers and floats.
type typeOfFunction struct{}

func (typeOfFunction) ArgTypes() []FuncType { return []FuncType{NodesType} }
func (typeOfFunction) ReturnType() FuncType { return ValueType }

func (typeOfFunction) Call(args []any) any {
	nodes, _ := args[0].(NodeList)
	name := typeName(nodes.ValueOrUndefined())
	if name == "int" || name == "float" {
		return "number"
	}
	return name
}

// typeName classifies a value, keeping integers and floats apart for the
// benefit of isinstance.
func typeName(value any) string {
	switch v := value.(type) {
	case undefined:
		return "undefined"
	case nil:
		return "null"
	case string:
		return "string"
	case []any:
		return "array"
	case bool:
		return "boolean"
	case int, int32, int64, uint, uint64:
		return "int"
	case float32, float64:
		return "float"
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return "int"
		}
		return "float"
	default:
		return "object"
	}
}

// startsWithFunction is a string prefix check.
type startsWithFunction struct{}

func (startsWithFunction) ArgTypes() []FuncType { return []FuncType{ValueType, ValueType} }
func (startsWithFunction) ReturnType() FuncType { return LogicalType }

func (startsWithFunction) Call(args []any) any {
	s, ok := args[0].(string)
	if !ok {
		return false
	}
	prefix, ok := args[1].(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(s, prefix)
}

// keysFunction returns a mapping's keys as a string sequence in the
// mapping's iteration order. It is opt-in via
// Environment.RegisterKeysFunction.
type keysFunction struct{}

func (keysFunction) ArgTypes() []FuncType { return []FuncType{ValueType} }
func (keysFunction) ReturnType() FuncType { return ValueType }

func (keysFunction) Call(args []any) any {
	names, ok := mappingKeys(args[0])
	if !ok {
		return Undefined
	}
	keys := make([]any, 0, len(names))
	for _, key := range names {
		keys = append(keys, key)
	}
	return keys
}
