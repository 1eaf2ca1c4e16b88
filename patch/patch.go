// Package patch applies RFC 6902 JSON Patch documents to decoded JSON
// values, using the pointer package to address patch targets.
//
// A patch is built either from a JSON document with Parse, or
// programmatically with the builder methods:
//
//	doc, err := patch.New().
//		Add("/some/foo", map[string]any{"bar": []any{}}).
//		Copy("/some/other", "/some/foo/else").
//		Apply(data)
//
// Operations apply in order and the input document is modified in place
// where possible; always use the returned value.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jacoelho/jsonpath/orderedmap"
	"github.com/jacoelho/jsonpath/pointer"
)

// Sentinel errors.
var (
	// ErrPatch is the base error wrapped by every patch failure.
	ErrPatch = errors.New("jsonpatch: error")

	// ErrTestFailure indicates a failed test operation.
	ErrTestFailure = errors.New("jsonpatch: test failed")
)

// Op is a single patch operation.
type Op interface {
	// Name returns the RFC 6902 operation name.
	Name() string

	// apply transforms doc and returns the result.
	apply(doc any) (any, error)
}

// Patch is an ordered list of operations.
type Patch struct {
	ops []Op
	err error // first builder error, surfaced by Apply
}

// New returns an empty patch for use with the builder methods.
func New() *Patch { return &Patch{} }

// Parse decodes a JSON array of operation objects.
func Parse(data []byte) (*Patch, error) {
	var raw []struct {
		Op    string          `json:"op"`
		Path  *string         `json:"path"`
		From  *string         `json:"from"`
		Value json.RawMessage `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatch, err)
	}

	p := New()
	for i, op := range raw {
		if op.Path == nil {
			return nil, fmt.Errorf("%w: missing path in operation %d", ErrPatch, i)
		}
		var value any
		if op.Value != nil {
			if err := decodeValue(op.Value, &value); err != nil {
				return nil, fmt.Errorf("%w: invalid value in operation %d: %v", ErrPatch, i, err)
			}
		}
		switch op.Op {
		case "add":
			p.Add(*op.Path, value)
		case "remove":
			p.Remove(*op.Path)
		case "replace":
			p.Replace(*op.Path, value)
		case "move", "copy":
			if op.From == nil {
				return nil, fmt.Errorf("%w: missing from in operation %d", ErrPatch, i)
			}
			if op.Op == "move" {
				p.Move(*op.From, *op.Path)
			} else {
				p.Copy(*op.From, *op.Path)
			}
		case "test":
			p.Test(*op.Path, value)
		default:
			return nil, fmt.Errorf("%w: unknown operation %q", ErrPatch, op.Op)
		}
	}
	return p, p.err
}

func decodeValue(raw json.RawMessage, out *any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

// Add appends an add operation.
func (p *Patch) Add(path string, value any) *Patch {
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opAdd{path: ptr, value: value})
	}
	return p
}

// Remove appends a remove operation.
func (p *Patch) Remove(path string) *Patch {
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opRemove{path: ptr})
	}
	return p
}

// Replace appends a replace operation.
func (p *Patch) Replace(path string, value any) *Patch {
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opReplace{path: ptr, value: value})
	}
	return p
}

// Move appends a move operation.
func (p *Patch) Move(from, path string) *Patch {
	fromPtr, err := p.pointer(from)
	if err != nil {
		return p
	}
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opMove{from: fromPtr, path: ptr})
	}
	return p
}

// Copy appends a copy operation.
func (p *Patch) Copy(from, path string) *Patch {
	fromPtr, err := p.pointer(from)
	if err != nil {
		return p
	}
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opCopy{from: fromPtr, path: ptr})
	}
	return p
}

// Test appends a test operation.
func (p *Patch) Test(path string, value any) *Patch {
	ptr, err := p.pointer(path)
	if err == nil {
		p.ops = append(p.ops, opTest{path: ptr, value: value})
	}
	return p
}

func (p *Patch) pointer(path string) (pointer.Pointer, error) {
	ptr, err := pointer.Parse(path)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %v", ErrPatch, err)
	}
	return ptr, err
}

// Len returns the number of operations.
func (p *Patch) Len() int { return len(p.ops) }

// Apply runs every operation in order against data and returns the
// patched document. The input may be modified in place; use the return
// value.
func (p *Patch) Apply(data any) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	doc := data
	for i, op := range p.ops {
		next, err := op.apply(doc)
		if err != nil {
			return nil, fmt.Errorf("%s operation %d: %w", op.Name(), i, err)
		}
		doc = next
	}
	return doc, nil
}

type opAdd struct {
	path  pointer.Pointer
	value any
}

func (opAdd) Name() string { return "add" }

func (op opAdd) apply(doc any) (any, error) {
	if op.path.IsRoot() {
		return op.value, nil
	}
	return updateIn(doc, op.path.Parts(), func(parent, last any) (any, error) {
		switch container := parent.(type) {
		case map[string]any:
			container[partKey(last)] = op.value
			return container, nil
		case *orderedmap.Map:
			container.Set(partKey(last), op.value)
			return container, nil
		case []any:
			index, err := insertIndex(last, len(container))
			if err != nil {
				return nil, err
			}
			container = append(container, nil)
			copy(container[index+1:], container[index:])
			container[index] = op.value
			return container, nil
		default:
			return nil, fmt.Errorf("%w: cannot add to %T", ErrPatch, parent)
		}
	})
}

type opRemove struct {
	path pointer.Pointer
}

func (opRemove) Name() string { return "remove" }

func (op opRemove) apply(doc any) (any, error) {
	if op.path.IsRoot() {
		return nil, fmt.Errorf("%w: cannot remove the root document", ErrPatch)
	}
	return updateIn(doc, op.path.Parts(), func(parent, last any) (any, error) {
		switch container := parent.(type) {
		case map[string]any:
			key := partKey(last)
			if _, exists := container[key]; !exists {
				return nil, fmt.Errorf("%w: no such member %q", ErrPatch, key)
			}
			delete(container, key)
			return container, nil
		case *orderedmap.Map:
			key := partKey(last)
			if !container.Has(key) {
				return nil, fmt.Errorf("%w: no such member %q", ErrPatch, key)
			}
			container.Delete(key)
			return container, nil
		case []any:
			index, err := elementIndex(last, len(container))
			if err != nil {
				return nil, err
			}
			return append(container[:index], container[index+1:]...), nil
		default:
			return nil, fmt.Errorf("%w: cannot remove from %T", ErrPatch, parent)
		}
	})
}

type opReplace struct {
	path  pointer.Pointer
	value any
}

func (opReplace) Name() string { return "replace" }

func (op opReplace) apply(doc any) (any, error) {
	if op.path.IsRoot() {
		return op.value, nil
	}
	if !op.path.Exists(doc) {
		return nil, fmt.Errorf("%w: no value at %q", ErrPatch, op.path)
	}
	return updateIn(doc, op.path.Parts(), func(parent, last any) (any, error) {
		switch container := parent.(type) {
		case map[string]any:
			container[partKey(last)] = op.value
			return container, nil
		case *orderedmap.Map:
			container.Set(partKey(last), op.value)
			return container, nil
		case []any:
			index, err := elementIndex(last, len(container))
			if err != nil {
				return nil, err
			}
			container[index] = op.value
			return container, nil
		default:
			return nil, fmt.Errorf("%w: cannot replace in %T", ErrPatch, parent)
		}
	})
}

type opMove struct {
	from pointer.Pointer
	path pointer.Pointer
}

func (opMove) Name() string { return "move" }

func (op opMove) apply(doc any) (any, error) {
	if op.path.IsRelativeTo(op.from) && !op.from.Equal(op.path) {
		return nil, fmt.Errorf("%w: cannot move %q into itself", ErrPatch, op.from)
	}
	value, err := op.from.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatch, err)
	}
	doc, err = opRemove{path: op.from}.apply(doc)
	if err != nil {
		return nil, err
	}
	return opAdd{path: op.path, value: value}.apply(doc)
}

type opCopy struct {
	from pointer.Pointer
	path pointer.Pointer
}

func (opCopy) Name() string { return "copy" }

func (op opCopy) apply(doc any) (any, error) {
	value, err := op.from.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatch, err)
	}
	return opAdd{path: op.path, value: deepCopy(value)}.apply(doc)
}

type opTest struct {
	path  pointer.Pointer
	value any
}

func (opTest) Name() string { return "test" }

func (op opTest) apply(doc any) (any, error) {
	value, err := op.path.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTestFailure, err)
	}
	if !deepEqual(value, op.value) {
		return nil, fmt.Errorf("%w: value at %q does not match", ErrTestFailure, op.path)
	}
	return doc, nil
}

// updateIn walks parts to the parent of the final reference token and
// applies update there, writing rebuilt containers back on the way out.
func updateIn(doc any, parts []any, update func(parent, last any) (any, error)) (any, error) {
	if len(parts) == 1 {
		return update(doc, parts[0])
	}
	switch container := doc.(type) {
	case map[string]any:
		key := partKey(parts[0])
		child, exists := container[key]
		if !exists {
			return nil, fmt.Errorf("%w: no such member %q", ErrPatch, key)
		}
		updated, err := updateIn(child, parts[1:], update)
		if err != nil {
			return nil, err
		}
		container[key] = updated
		return container, nil
	case *orderedmap.Map:
		key := partKey(parts[0])
		child, exists := container.Get(key)
		if !exists {
			return nil, fmt.Errorf("%w: no such member %q", ErrPatch, key)
		}
		updated, err := updateIn(child, parts[1:], update)
		if err != nil {
			return nil, err
		}
		container.Set(key, updated)
		return container, nil
	case []any:
		index, err := elementIndex(parts[0], len(container))
		if err != nil {
			return nil, err
		}
		updated, err := updateIn(container[index], parts[1:], update)
		if err != nil {
			return nil, err
		}
		container[index] = updated
		return container, nil
	default:
		return nil, fmt.Errorf("%w: cannot traverse %T", ErrPatch, doc)
	}
}

func partKey(part any) string {
	if s, ok := part.(string); ok {
		return s
	}
	return strconv.Itoa(part.(int))
}

// elementIndex interprets a pointer part as an existing sequence index.
func elementIndex(part any, length int) (int, error) {
	index, ok := part.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a sequence index", ErrPatch, part)
	}
	if index < 0 || index >= length {
		return 0, fmt.Errorf("%w: index %d out of range", ErrPatch, index)
	}
	return index, nil
}

// insertIndex interprets a pointer part as an insertion position, where
// "-" means the append position and index == length is allowed.
func insertIndex(part any, length int) (int, error) {
	if s, ok := part.(string); ok && s == "-" {
		return length, nil
	}
	index, ok := part.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a sequence index", ErrPatch, part)
	}
	if index < 0 || index > length {
		return 0, fmt.Errorf("%w: index %d out of range", ErrPatch, index)
	}
	return index, nil
}

// deepCopy clones decoded JSON containers so copied subtrees do not alias
// their source.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(v))
		for key, member := range v {
			cloned[key] = deepCopy(member)
		}
		return cloned
	case *orderedmap.Map:
		cloned := orderedmap.NewWithCapacity(v.Len())
		for key, member := range v.All() {
			cloned.Set(key, deepCopy(member))
		}
		return cloned
	case []any:
		cloned := make([]any, len(v))
		for i, element := range v {
			cloned[i] = deepCopy(element)
		}
		return cloned
	default:
		return v
	}
}

// deepEqual is structural equality with numbers compared numerically.
func deepEqual(left, right any) bool {
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
	// Mappings compare member-wise, order-insensitive, whether decoded
	// into plain or insertion-ordered maps.
	if leftKeys, ok := mappingKeys(left); ok {
		rightLen, ok := mappingLen(right)
		if !ok || len(leftKeys) != rightLen {
			return false
		}
		for _, key := range leftKeys {
			lv, _ := mappingGet(left, key)
			rv, exists := mappingGet(right, key)
			if !exists || !deepEqual(lv, rv) {
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
			if !deepEqual(l[i], r[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func mappingKeys(value any) ([]string, bool) {
	switch v := value.(type) {
	case *orderedmap.Map:
		return v.Keys(), true
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		return keys, true
	}
	return nil, false
}

func mappingLen(value any) (int, bool) {
	switch v := value.(type) {
	case *orderedmap.Map:
		return v.Len(), true
	case map[string]any:
		return len(v), true
	}
	return 0, false
}

func mappingGet(value any, key string) (any, bool) {
	switch v := value.(type) {
	case *orderedmap.Map:
		return v.Get(key)
	case map[string]any:
		member, ok := v[key]
		return member, ok
	}
	return nil, false
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
