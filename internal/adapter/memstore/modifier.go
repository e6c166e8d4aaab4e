package memstore

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
)

type modFunc func(doc map[string]any, field string, arg any) error

// modifier applies update documents to stored documents.
type modifier struct {
	comparer domain.Comparer
	mods     map[string]modFunc
}

func newModifier(c domain.Comparer) *modifier {
	m := &modifier{comparer: c}
	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$push":     m.push,
		"$addToSet": m.addToSet,
	}
	return m
}

// modify returns a modified copy of doc. An update without operators replaces
// every field but _id.
func (m *modifier) modify(doc map[string]any, update map[string]any) (map[string]any, error) {
	replace, err := m.isReplacement(update)
	if err != nil {
		return nil, err
	}

	id, hasID := doc["_id"]
	var res map[string]any
	if replace {
		res = data.CloneMap(update)
	} else {
		res = data.CloneMap(doc)
		for _, op := range slices.Sorted(maps.Keys(update)) {
			if err := m.apply(res, op, update[op]); err != nil {
				return nil, err
			}
		}
	}

	if !hasID {
		return res, nil
	}
	newID, ok := res["_id"]
	if !ok {
		res["_id"] = id
		return res, nil
	}
	if comp, err := m.comparer.Compare(id, newID); err != nil || comp != 0 {
		return nil, domain.ErrCannotModifyID
	}
	return res, nil
}

func (m *modifier) isReplacement(update map[string]any) (bool, error) {
	dollar := 0
	for k := range update {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	if dollar != 0 && dollar != len(update) {
		return false, domain.ErrMixedUpdate
	}
	return dollar == 0, nil
}

func (m *modifier) apply(doc map[string]any, op string, arg any) error {
	fn, ok := m.mods[op]
	if !ok {
		return &domain.ErrUnknownOperator{Operator: op}
	}
	fields, ok := data.AsMap(arg)
	if !ok {
		return fmt.Errorf("modifier %s's argument must be an object", op)
	}
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		if err := fn(doc, field, data.Clone(fields[field])); err != nil {
			return err
		}
	}
	return nil
}

func (m *modifier) set(doc map[string]any, field string, arg any) error {
	data.Set(doc, field, arg)
	return nil
}

func (m *modifier) unset(doc map[string]any, field string, _ any) error {
	data.Unset(doc, field)
	return nil
}

func (m *modifier) inc(doc map[string]any, field string, arg any) error {
	cur, found := data.Get(doc, field)
	if !found {
		cur = 0
	}
	sum, err := add(cur, arg)
	if err != nil {
		return fmt.Errorf("$inc on %s: %w", field, err)
	}
	data.Set(doc, field, sum)
	return nil
}

func (m *modifier) list(doc map[string]any, field, op string) ([]any, error) {
	cur, found := data.Get(doc, field)
	if !found {
		return []any{}, nil
	}
	l, ok := data.AsList(cur)
	if !ok {
		return nil, fmt.Errorf("can't %s an element on non-array values", op)
	}
	return l, nil
}

// values unwraps {$each: [...]}.
func (m *modifier) values(arg any) ([]any, error) {
	obj, ok := data.AsMap(arg)
	if !ok {
		return []any{arg}, nil
	}
	each, ok := obj["$each"]
	if !ok {
		return []any{arg}, nil
	}
	l, ok := data.AsList(each)
	if !ok {
		return nil, fmt.Errorf("$each requires an array value")
	}
	return l, nil
}

func (m *modifier) push(doc map[string]any, field string, arg any) error {
	l, err := m.list(doc, field, "$push")
	if err != nil {
		return err
	}
	vals, err := m.values(arg)
	if err != nil {
		return err
	}
	data.Set(doc, field, append(l, vals...))
	return nil
}

func (m *modifier) addToSet(doc map[string]any, field string, arg any) error {
	l, err := m.list(doc, field, "$addToSet")
	if err != nil {
		return err
	}
	vals, err := m.values(arg)
	if err != nil {
		return err
	}
	for _, v := range vals {
		if !slices.ContainsFunc(l, func(e any) bool {
			comp, err := m.comparer.Compare(e, v)
			return err == nil && comp == 0
		}) {
			l = append(l, v)
		}
	}
	data.Set(doc, field, l)
	return nil
}

// add sums two numbers, keeping integers as int64 unless either side is a
// float.
func add(a, b any) (any, error) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		if (bi > 0 && ai > math.MaxInt64-bi) || (bi < 0 && ai < math.MinInt64-bi) {
			return nil, fmt.Errorf("integer overflow")
		}
		return ai + bi, nil
	}
	af, aOk := asFloat(a)
	bf, bOk := asFloat(b)
	if !aOk || !bOk {
		return nil, fmt.Errorf("cannot add %T and %T", a, b)
	}
	return af + bf, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
