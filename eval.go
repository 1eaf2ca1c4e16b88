package jsonpath

import (
	"encoding/json"
	"iter"
	"strconv"

	"github.com/jacoelho/jsonpath/internal/ast"
	"github.com/jacoelho/jsonpath/internal/stack"
)

// evalContext carries per-evaluation state: the root value, the extra
// filter context and the filter result cache. A fresh context is created
// for every top-level FindIter or FindAll call.
type evalContext struct {
	env           *Environment
	root          any
	filterContext map[string]any
	cache         map[string]bool
}

// finditer starts a lazy evaluation of p against data. Under the
// pseudo-root scope the document is wrapped in a single-element array and
// both the root and pseudo-root identifiers resolve through the wrapper.
func (p *Path) finditer(data any, filterContext map[string]any) MatchSeq {
	return func(yield func(*Match) bool) {
		root := data
		if p.query.Scope == ast.ScopePseudoRoot {
			root = []any{data}
		}

		ctx := &evalContext{
			env:           p.env,
			root:          root,
			filterContext: filterContext,
		}
		if p.env.filterCaching {
			ctx.cache = make(map[string]bool)
		}

		rootMatch := p.env.newMatch()
		rootMatch.Value = root
		rootMatch.Path = "$"
		rootMatch.Root = root
		rootMatch.filterContext = filterContext

		seq := func(yield func(*Match) bool) { yield(rootMatch) }
		for _, seg := range p.query.Segments {
			seq = ctx.applySegment(seg, seq)
		}
		for m := range seq {
			if !yield(m) {
				return
			}
		}
	}
}

// applySegment expands every match from in through the segment's
// selectors. For a child segment each selector is exhausted against an
// input node before the next selector runs; a descendant segment visits
// the node and all its descendants depth first, self before children,
// applying the selectors at every visited node.
func (ctx *evalContext) applySegment(seg ast.Segment, in MatchSeq) MatchSeq {
	return func(yield func(*Match) bool) {
		for m := range in {
			if seg.Descendant {
				for node := range ctx.descend(m) {
					for _, sel := range seg.Selectors {
						if !ctx.applySelector(sel, node, yield) {
							return
						}
					}
				}
				continue
			}
			for _, sel := range seg.Selectors {
				if !ctx.applySelector(sel, m, yield) {
					return
				}
			}
		}
	}
}

// descend yields m and every descendant value below it, depth first and
// self before children, creating intermediate matches so locations stay
// concrete.
func (ctx *evalContext) descend(m *Match) iter.Seq[*Match] {
	return func(yield func(*Match) bool) {
		pending := stack.NewWithCapacity[*Match](8)
		pending.Push(m)
		for !pending.IsEmpty() {
			node, _ := pending.Pop()
			if !yield(node) {
				return
			}

			var children []*Match
			if keys, ok := mappingKeys(node.Value); ok {
				for _, key := range keys {
					member, _ := mappingGet(node.Value, key)
					children = append(children, node.child(ctx.env, member, key, canonicalName(key)))
				}
			} else if v, ok := node.Value.([]any); ok {
				for i, element := range v {
					children = append(children, node.child(ctx.env, element, i, canonicalIndex(i)))
				}
			}
			// Reverse push so the first child is visited next.
			for i := len(children) - 1; i >= 0; i-- {
				pending.Push(children[i])
			}
		}
	}
}

// applySelector produces the child matches of m selected by sel. It
// reports false when the consumer stopped the iteration.
func (ctx *evalContext) applySelector(sel ast.Selector, m *Match, yield func(*Match) bool) bool {
	switch s := sel.(type) {
	case *ast.NameSelector:
		return ctx.selectName(s.Name, m, yield)

	case *ast.IndexSelector:
		return ctx.selectIndex(s.Index, m, yield)

	case *ast.SliceSelector:
		seq, ok := m.Value.([]any)
		if !ok {
			return true
		}
		for _, i := range sliceIndices(s, len(seq)) {
			if !yield(m.child(ctx.env, seq[i], i, canonicalIndex(i))) {
				return false
			}
		}
		return true

	case *ast.WildcardSelector:
		if keys, ok := mappingKeys(m.Value); ok {
			for _, key := range keys {
				member, _ := mappingGet(m.Value, key)
				if !yield(m.child(ctx.env, member, key, canonicalName(key))) {
					return false
				}
			}
		} else if v, ok := m.Value.([]any); ok {
			for i, element := range v {
				if !yield(m.child(ctx.env, element, i, canonicalIndex(i))) {
					return false
				}
			}
		}
		return true

	case *ast.KeysSelector:
		keys, ok := mappingKeys(m.Value)
		if !ok {
			return true
		}
		for _, key := range keys {
			if !yield(m.child(ctx.env, key, keysPrefix+key, canonicalKey(key))) {
				return false
			}
		}
		return true

	case *ast.KeySelector:
		if _, exists := mappingGet(m.Value, s.Name); !exists {
			return true
		}
		return yield(m.child(ctx.env, s.Name, keysPrefix+s.Name, canonicalKey(s.Name)))

	case *ast.KeysFilterSelector:
		keys, ok := mappingKeys(m.Value)
		if !ok {
			return true
		}
		for _, key := range keys {
			member, _ := mappingGet(m.Value, key)
			node := filterNode{
				value: member,
				key:   key,
				path:  m.Path + canonicalName(key),
			}
			if !ctx.evalFilter(s.Expr, node) {
				continue
			}
			if !yield(m.child(ctx.env, key, keysPrefix+key, canonicalKey(key))) {
				return false
			}
		}
		return true

	case *ast.FilterSelector:
		if keys, ok := mappingKeys(m.Value); ok {
			// A filter applied to a mapping tests each member value, as
			// if preceded by a wildcard.
			for _, key := range keys {
				member, _ := mappingGet(m.Value, key)
				node := filterNode{
					value: member,
					key:   key,
					path:  m.Path + canonicalName(key),
				}
				if !ctx.evalFilter(s.Expr, node) {
					continue
				}
				if !yield(m.child(ctx.env, member, key, canonicalName(key))) {
					return false
				}
			}
		} else if v, ok := m.Value.([]any); ok {
			for i, element := range v {
				node := filterNode{
					value: element,
					key:   i,
					path:  m.Path + canonicalIndex(i),
				}
				if !ctx.evalFilter(s.Expr, node) {
					continue
				}
				if !yield(m.child(ctx.env, element, i, canonicalIndex(i))) {
					return false
				}
			}
		}
		return true

	case *ast.QuerySelector:
		nodes := ctx.evalQuery(s.Query, filterNode{value: ctx.root, path: "$"})
		if len(nodes) != 1 {
			return true
		}
		switch key := nodes[0].Value.(type) {
		case string:
			if isMapping(m.Value) {
				return ctx.selectName(key, m, yield)
			}
		default:
			if index, ok := toIndex(key); ok {
				if _, isSeq := m.Value.([]any); isSeq {
					return ctx.selectIndex(index, m, yield)
				}
			}
		}
		return true
	}
	return true
}

func (ctx *evalContext) selectName(name string, m *Match, yield func(*Match) bool) bool {
	value, exists := mappingGet(m.Value, name)
	if !exists {
		return true
	}
	return yield(m.child(ctx.env, value, name, canonicalName(name)))
}

func (ctx *evalContext) selectIndex(index int, m *Match, yield func(*Match) bool) bool {
	if v, ok := m.Value.([]any); ok {
		norm := index
		if norm < 0 {
			norm += len(v)
		}
		if norm < 0 || norm >= len(v) {
			return true
		}
		return yield(m.child(ctx.env, v[norm], norm, canonicalIndex(norm)))
	}

	// The string form of the index may be a mapping key.
	key := strconv.Itoa(index)
	if value, exists := mappingGet(m.Value, key); exists {
		return yield(m.child(ctx.env, value, key, canonicalName(key)))
	}
	return true
}

// sliceIndices materializes the element indices selected by a slice
// against a sequence of length n, following the standard slice semantics:
// negative values count from the end, bounds are clamped, and a negative
// step reverses direction with endpoint defaults to match.
func sliceIndices(s *ast.SliceSelector, n int) []int {
	step := 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 || n == 0 {
		return nil
	}

	norm := func(i int) int {
		if i < 0 {
			return n + i
		}
		return i
	}

	var indices []int
	if step > 0 {
		lower, upper := 0, n
		if s.Start != nil {
			lower = max(min(norm(*s.Start), n), 0)
		}
		if s.Stop != nil {
			upper = max(min(norm(*s.Stop), n), 0)
		}
		for i := lower; i < upper; i += step {
			indices = append(indices, i)
		}
	} else {
		upper, lower := n-1, -1
		if s.Start != nil {
			upper = max(min(norm(*s.Start), n-1), -1)
		}
		if s.Stop != nil {
			lower = max(min(norm(*s.Stop), n-1), -1)
		}
		for i := upper; i > lower; i += step {
			indices = append(indices, i)
		}
	}
	return indices
}

// toIndex reports whether value is usable as a sequence index.
func toIndex(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}
