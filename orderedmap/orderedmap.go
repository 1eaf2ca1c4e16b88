// Package orderedmap provides the insertion-order-preserving mapping the
// engine decodes JSON objects into. Go's built-in map is unordered, and
// wildcard and descendant traversal must follow member insertion order.
package orderedmap

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
)

// Map is a string-keyed mapping that remembers the order keys were first
// set in. The zero value is not usable; create one with New.
type Map struct {
	keys   []string
	values map[string]any
}

func New() *Map {
	return &Map{values: make(map[string]any)}
}

// NewWithCapacity reduces allocations when the member count is known.
func NewWithCapacity(capacity int) *Map {
	return &Map{
		keys:   make([]string, 0, capacity),
		values: make(map[string]any, capacity),
	}
}

// Set stores value under key, appending the key on first use. Updating
// an existing member keeps its original position.
func (m *Map) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	value, ok := m.values[key]
	return value, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key and its value.
func (m *Map) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Len returns the number of members.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	return slices.Clone(m.keys)
}

// All iterates members in insertion order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, key := range m.keys {
			if !yield(key, m.values[key]) {
				return
			}
		}
	}
}

// MarshalJSON serializes members in insertion order. Implements
// [json.Marshaler].
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
