// Package jsonpath is a read-only query engine for JSON-shaped data.
//
// Queries are written in the JSONPath language of RFC 9535 plus a set of
// documented extensions: a keys selector (~), a keys filter (~?), a
// current-key identifier (#) inside filters, an extra-context identifier
// (_), a pseudo-root (^), membership operators (in, contains), regex
// matching (=~), list literals, and compound queries joined with | and &.
// Strict mode disables every extension.
//
// A query is compiled once and can then be evaluated against any number
// of inputs:
//
//	path, err := jsonpath.Compile("$.users[?@.score < 100].name")
//	if err != nil { ... }
//	names, err := path.FindAll(data, nil)
//
// Inputs are JSON text as a string, byte slice or reader — decoded into
// insertion-ordered maps (orderedmap.Map), []any, string, bool, nil and
// json.Number — or already decoded values; plain map[string]any input is
// accepted and traversed in ascending key order, since it carries no
// document order.
// Results are lazy: FindIter yields matches one at a time, and dropping
// the iterator cancels the evaluation. The engine never mutates its
// input, and absent values are never an error; they simply produce no
// matches.
//
// The sibling packages pointer and patch implement RFC 6901 JSON
// Pointers and RFC 6902 JSON Patch over the same location model;
// Match.Pointer bridges from query results to pointers.
package jsonpath
