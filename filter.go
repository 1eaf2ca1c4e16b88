package jsonpath

import (
	"encoding/json"
	"regexp"

	"github.com/jacoelho/jsonpath/internal/ast"
)

// filterNode is the candidate a filter expression is evaluated against:
// the value, its key or index within the parent, and its absolute
// normalized path, which doubles as the cache key component.
type filterNode struct {
	value any
	key   any // string key, int index, or nil
	path  string
}

// evalFilter evaluates a filter expression against node, memoizing the
// result per (canonical form, node location) within this evaluation.
func (ctx *evalContext) evalFilter(expr *ast.BooleanExpr, node filterNode) bool {
	cacheable := ctx.cache != nil && expr.HasQuery
	var key string
	if cacheable {
		key = expr.Form + "\x00" + node.path
		if result, ok := ctx.cache[key]; ok {
			return result
		}
	}

	result := truthy(ctx.evalExpr(expr.Expr, node))
	if cacheable {
		ctx.cache[key] = result
	}
	return result
}

// evalQuery evaluates an embedded query from its scope's start value and
// returns the node list it selects.
func (ctx *evalContext) evalQuery(q *ast.Query, node filterNode) NodeList {
	var start any
	base := "$"
	switch q.Scope {
	case ast.ScopeCurrent:
		start = node.value
		if node.path != "" {
			base = node.path
		}
	case ast.ScopeRoot:
		start = ctx.root
	case ast.ScopePseudoRoot:
		start = []any{ctx.root}
	case ast.ScopeContext:
		start = ctx.filterContext
		base = "_"
	}

	rootMatch := ctx.env.newMatch()
	rootMatch.Value = start
	rootMatch.Path = base
	rootMatch.Root = ctx.root
	rootMatch.filterContext = ctx.filterContext

	seq := MatchSeq(func(yield func(*Match) bool) { yield(rootMatch) })
	for _, seg := range q.Segments {
		seq = ctx.applySegment(seg, seq)
	}

	var nodes NodeList
	for m := range seq {
		nodes = append(nodes, m)
	}
	return nodes
}

// evalExpr evaluates a filter expression node. Embedded queries evaluate
// to a NodeList; everything else evaluates to a plain value, Undefined or
// a compiled regex.
func (ctx *evalContext) evalExpr(expr ast.Expr, node filterNode) any {
	switch e := expr.(type) {
	case *ast.NilLiteral:
		return nil
	case *ast.UndefinedLiteral:
		return Undefined
	case *ast.BoolLiteral:
		return e.Value
	case *ast.IntLiteral:
		return e.Value
	case *ast.FloatLiteral:
		return e.Value
	case *ast.StringLiteral:
		return e.Value
	case *ast.RegexLiteral:
		return e.Compiled
	case *ast.ListLiteral:
		items := make([]any, len(e.Items))
		for i, item := range e.Items {
			items[i] = ctx.evalExpr(item, node)
		}
		return items
	case *ast.QueryExpr:
		return ctx.evalQuery(e.Query, node)
	case *ast.CurrentKey:
		if node.key == nil {
			return Undefined
		}
		return node.key
	case *ast.FunctionCall:
		return ctx.evalFunctionCall(e, node)
	case *ast.PrefixExpr:
		return !truthy(ctx.evalExpr(e.Right, node))
	case *ast.InfixExpr:
		switch e.Op {
		case "&&":
			return truthy(ctx.evalExpr(e.Left, node)) && truthy(ctx.evalExpr(e.Right, node))
		case "||":
			return truthy(ctx.evalExpr(e.Left, node)) || truthy(ctx.evalExpr(e.Right, node))
		default:
			left := ctx.evalExpr(e.Left, node)
			right := ctx.evalExpr(e.Right, node)
			return compare(left, e.Op, right)
		}
	case *ast.BooleanExpr:
		return truthy(ctx.evalExpr(e.Expr, node))
	}
	return Undefined
}

// evalFunctionCall evaluates a function extension call, converting each
// argument to the callee's declared type.
func (ctx *evalContext) evalFunctionCall(e *ast.FunctionCall, node filterNode) any {
	argTypes := e.Fn.ArgTypes()
	args := make([]any, len(e.Args))
	for i, argExpr := range e.Args {
		value := ctx.evalExpr(argExpr, node)

		declared := ast.ValueType
		if i < len(argTypes) {
			declared = argTypes[i]
		}
		switch declared {
		case ast.NodesType:
			nodes, ok := value.(NodeList)
			if !ok {
				nodes = nil
			}
			args[i] = nodes
		case ast.LogicalType:
			args[i] = truthy(value)
		default:
			if nodes, ok := value.(NodeList); ok {
				value = nodes.ValueOrUndefined()
			}
			args[i] = value
		}
	}
	return e.Fn.Call(args)
}

// truthy implements existence-oriented truthiness: missing values are
// false, but null and empty collections exist and are true.
func truthy(value any) bool {
	switch v := value.(type) {
	case undefined:
		return false
	case NodeList:
		return len(v) > 0
	case nil:
		return true
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return true
	default:
		if isMapping(value) {
			return true
		}
		if f, ok := asNumber(value); ok {
			return f != 0
		}
		return true
	}
}

// compare implements the filter comparison, membership and regex match
// operators. Node lists are unwrapped before comparison: a singular list
// to its sole value, an empty list to Undefined.
func compare(left any, op string, right any) bool {
	if nodes, ok := left.(NodeList); ok {
		left = nodes.ValueOrUndefined()
	}
	if nodes, ok := right.(NodeList); ok {
		right = nodes.ValueOrUndefined()
	}

	switch op {
	case "==":
		return equals(left, right)
	case "!=":
		return !equals(left, right)
	case "in":
		return contains(right, left)
	case "contains":
		return contains(left, right)
	}

	_, leftUndefined := left.(undefined)
	_, rightUndefined := right.(undefined)
	if leftUndefined || rightUndefined {
		return op == "<="
	}

	if op == "=~" {
		re, ok := right.(*regexp.Regexp)
		if !ok {
			return false
		}
		s, ok := left.(string)
		if !ok {
			return false
		}
		return re.MatchString(s)
	}

	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case "<":
				return ls < rs
			case "<=":
				return ls <= rs
			case ">":
				return ls > rs
			case ">=":
				return ls >= rs
			}
		}
		return false
	}

	if lf, ok := asNumber(left); ok {
		if rf, ok := asNumber(right); ok {
			switch op {
			case "<":
				return lf < rf
			case "<=":
				return lf <= rf
			case ">":
				return lf > rf
			case ">=":
				return lf >= rf
			}
		}
		return false
	}

	// Equal containers satisfy <=, matching the reflexive reading of the
	// ordered operators on otherwise unordered types.
	if op == "<=" {
		if isMapping(left) {
			return equals(left, right)
		}
		if _, ok := left.([]any); ok {
			return equals(left, right)
		}
	}
	if left == nil && right == nil && (op == "<=" || op == ">=") {
		return true
	}
	return false
}

// contains reports membership of item in container: an element of a
// sequence, or a key of a mapping.
func contains(container, item any) bool {
	if c, ok := container.([]any); ok {
		for _, element := range c {
			if equals(element, item) {
				return true
			}
		}
		return false
	}
	if isMapping(container) {
		key, ok := item.(string)
		if !ok {
			return false
		}
		_, exists := mappingGet(container, key)
		return exists
	}
	return false
}

// equals is structural equality over JSON values, comparing numbers
// numerically across integer and float representations.
func equals(left, right any) bool {
	_, leftUndefined := left.(undefined)
	_, rightUndefined := right.(undefined)
	if leftUndefined || rightUndefined {
		return leftUndefined == rightUndefined
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	if _, ok := right.(bool); ok {
		return false
	}

	if lf, ok := asNumber(left); ok {
		rf, ok := asNumber(right)
		return ok && lf == rf
	}

	// Mappings compare member-wise, order-insensitive, across both
	// representations.
	if leftKeys, ok := mappingKeys(left); ok {
		rightLen, ok := mappingLen(right)
		if !ok || len(leftKeys) != rightLen {
			return false
		}
		for _, key := range leftKeys {
			lv, _ := mappingGet(left, key)
			rv, exists := mappingGet(right, key)
			if !exists || !equals(lv, rv) {
				return false
			}
		}
		return true
	}

	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		return ok && l == r
	case []any:
		r, ok := right.([]any)
		if !ok || len(l) != len(r) {
			return false
		}
		for i := range l {
			if !equals(l[i], r[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// asNumber normalizes the numeric representations that can reach the
// evaluator. Booleans are not numbers.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
