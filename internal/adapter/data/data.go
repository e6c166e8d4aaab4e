// Package data contains helpers shared by the adapters to inspect and copy
// loosely typed documents.
package data

import (
	"strings"

	goreflect "github.com/goccy/go-reflect"
)

// AsMap returns v as a map[string]any if its underlying type is a map with
// string keys, such as domain.Entity, domain.Criteria or bson.M. The returned
// map is the same value as v when v already is a map[string]any and a shallow
// copy otherwise.
func AsMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	r := goreflect.ValueNoEscapeOf(v)
	if r.Kind() != goreflect.Map || r.Type().Key().Kind() != goreflect.String {
		return nil, false
	}
	if r.IsNil() {
		return nil, true
	}
	m := make(map[string]any, r.Len())
	iter := r.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

// AsList returns v as a []any if it is a slice other than []byte.
func AsList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if l, ok := v.([]any); ok {
		return l, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	r := goreflect.ValueNoEscapeOf(v)
	if r.Kind() != goreflect.Slice {
		return nil, false
	}
	l := make([]any, r.Len())
	for i := range l {
		l[i] = r.Index(i).Interface()
	}
	return l, true
}

// Clone deep copies v. Maps with string keys become map[string]any and slices
// become []any, recursively. Every other value, including arrays, structs and
// byte slices, is returned as is.
func Clone(v any) any {
	if m, ok := AsMap(v); ok {
		if m == nil {
			return map[string]any(nil)
		}
		res := make(map[string]any, len(m))
		for k, val := range m {
			res[k] = Clone(val)
		}
		return res
	}
	if l, ok := AsList(v); ok {
		res := make([]any, len(l))
		for i, val := range l {
			res[i] = Clone(val)
		}
		return res
	}
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}

// CloneMap deep copies a document. A nil input gives an empty map.
func CloneMap(v any) map[string]any {
	m, _ := Clone(v).(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Get reads a dot-separated path from doc. Numeric path segments index into
// lists.
func Get(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for part := range strings.SplitSeq(path, ".") {
		if m, ok := AsMap(cur); ok {
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
			continue
		}
		if l, ok := AsList(cur); ok {
			i, ok := index(part)
			if !ok || i >= len(l) {
				return nil, false
			}
			cur = l[i]
			continue
		}
		return nil, false
	}
	return cur, true
}

// Set writes value at a dot-separated path, creating intermediate maps.
func Set(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// Unset removes the value at a dot-separated path.
func Unset(doc map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

func index(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
