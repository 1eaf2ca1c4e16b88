package jsonpath

import (
	"sort"

	"github.com/jacoelho/jsonpath/orderedmap"
)

// The engine accepts mappings in two representations: the insertion
// ordered maps produced by its own decoder, and plain Go maps supplied
// directly by the embedder. Ordered maps iterate in insertion order, as
// the data model requires; plain maps have no document order to recover,
// so ascending key order stands in as the stable fallback.

// mappingKeys returns a mapping's keys in iteration order, or false when
// value is not a mapping.
func mappingKeys(value any) ([]string, bool) {
	switch v := value.(type) {
	case *orderedmap.Map:
		return v.Keys(), true
	case map[string]any:
		return sortedKeys(v), true
	}
	return nil, false
}

// mappingGet returns the member stored under key, or false when value is
// not a mapping or has no such member.
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

// mappingLen returns a mapping's member count, or false when value is
// not a mapping.
func mappingLen(value any) (int, bool) {
	switch v := value.(type) {
	case *orderedmap.Map:
		return v.Len(), true
	case map[string]any:
		return len(v), true
	}
	return 0, false
}

func isMapping(value any) bool {
	switch value.(type) {
	case *orderedmap.Map, map[string]any:
		return true
	}
	return false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
