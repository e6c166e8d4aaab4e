package memstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
)

type oper func(value any, found bool, arg any) (bool, error)

// matcher evaluates native query documents against stored documents.
type matcher struct {
	comparer  domain.Comparer
	compFuncs map[string]oper
	logicOps  map[string]func(map[string]any, any) (bool, error)
}

func newMatcher(c domain.Comparer) *matcher {
	m := &matcher{comparer: c}
	m.logicOps = map[string]func(map[string]any, any) (bool, error){
		"$and": m.and,
		"$or":  m.or,
		"$nor": m.nor,
	}
	m.compFuncs = map[string]oper{
		"$eq":     m.eq,
		"$ne":     m.ne,
		"$lt":     m.lt,
		"$lte":    m.lte,
		"$gt":     m.gt,
		"$gte":    m.gte,
		"$in":     m.in,
		"$nin":    m.nin,
		"$exists": m.exists,
		"$size":   m.size,
		"$regex":  m.regex,
	}
	return m
}

func (m *matcher) match(doc map[string]any, query map[string]any) (bool, error) {
	for field, test := range query {
		var ok bool
		var err error
		if strings.HasPrefix(field, "$") {
			fn, known := m.logicOps[field]
			if !known {
				return false, &domain.ErrUnknownOperator{Operator: field}
			}
			ok, err = fn(doc, test)
		} else {
			ok, err = m.matchField(doc, field, test)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) matchField(doc map[string]any, field string, test any) (bool, error) {
	value, found := data.Get(doc, field)

	ops, isOps := m.operators(test)
	if !isOps {
		return m.eq(value, found, test)
	}
	for op, arg := range ops {
		fn, known := m.compFuncs[op]
		if !known {
			return false, &domain.ErrUnknownOperator{Operator: op}
		}
		ok, err := fn(value, found, arg)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// operators returns test as an operator object if all its keys are operators.
func (m *matcher) operators(test any) (map[string]any, bool) {
	ops, ok := data.AsMap(test)
	if !ok || len(ops) == 0 {
		return nil, false
	}
	for k := range ops {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return ops, true
}

func (m *matcher) subQueries(op string, arg any) ([]map[string]any, error) {
	list, ok := data.AsList(arg)
	if !ok {
		return nil, fmt.Errorf("%s operator used without an array", op)
	}
	res := make([]map[string]any, len(list))
	for n, v := range list {
		q, ok := data.AsMap(v)
		if !ok {
			return nil, fmt.Errorf("%s operator expects documents", op)
		}
		res[n] = q
	}
	return res, nil
}

func (m *matcher) and(doc map[string]any, arg any) (bool, error) {
	qs, err := m.subQueries("$and", arg)
	if err != nil {
		return false, err
	}
	for _, q := range qs {
		if ok, err := m.match(doc, q); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) or(doc map[string]any, arg any) (bool, error) {
	qs, err := m.subQueries("$or", arg)
	if err != nil {
		return false, err
	}
	for _, q := range qs {
		ok, err := m.match(doc, q)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *matcher) nor(doc map[string]any, arg any) (bool, error) {
	ok, err := m.or(doc, arg)
	return !ok, err
}

// candidates lists the value itself followed by its elements when it is an
// array, so that a test on an array field matches if any element does.
func (m *matcher) candidates(value any) []any {
	res := []any{value}
	if l, ok := data.AsList(value); ok {
		res = append(res, l...)
	}
	return res
}

func (m *matcher) equal(a, b any) bool {
	comp, err := m.comparer.Compare(a, b)
	return err == nil && comp == 0
}

func (m *matcher) eq(value any, found bool, arg any) (bool, error) {
	if !found {
		return arg == nil, nil
	}
	for _, c := range m.candidates(value) {
		if m.equal(c, arg) {
			return true, nil
		}
	}
	return false, nil
}

func (m *matcher) ne(value any, found bool, arg any) (bool, error) {
	ok, err := m.eq(value, found, arg)
	return !ok, err
}

func (m *matcher) order(value any, found bool, arg any, accept func(int) bool) (bool, error) {
	if !found {
		return false, nil
	}
	for _, c := range m.candidates(value) {
		if !m.comparer.Comparable(c, arg) {
			continue
		}
		comp, err := m.comparer.Compare(c, arg)
		if err != nil {
			return false, err
		}
		if accept(comp) {
			return true, nil
		}
	}
	return false, nil
}

func (m *matcher) lt(value any, found bool, arg any) (bool, error) {
	return m.order(value, found, arg, func(c int) bool { return c < 0 })
}

func (m *matcher) lte(value any, found bool, arg any) (bool, error) {
	return m.order(value, found, arg, func(c int) bool { return c <= 0 })
}

func (m *matcher) gt(value any, found bool, arg any) (bool, error) {
	return m.order(value, found, arg, func(c int) bool { return c > 0 })
}

func (m *matcher) gte(value any, found bool, arg any) (bool, error) {
	return m.order(value, found, arg, func(c int) bool { return c >= 0 })
}

func (m *matcher) in(value any, found bool, arg any) (bool, error) {
	list, ok := data.AsList(arg)
	if !ok {
		return false, fmt.Errorf("$in operator called with a non-array")
	}
	for _, v := range list {
		if ok, _ := m.eq(value, found, v); ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *matcher) nin(value any, found bool, arg any) (bool, error) {
	if _, ok := data.AsList(arg); !ok {
		return false, fmt.Errorf("$nin operator called with a non-array")
	}
	ok, err := m.in(value, found, arg)
	return !ok, err
}

func (m *matcher) exists(_ any, found bool, arg any) (bool, error) {
	want, ok := arg.(bool)
	if !ok {
		want = arg != nil && arg != 0
	}
	return found == want, nil
}

func (m *matcher) size(value any, found bool, arg any) (bool, error) {
	if !found {
		return false, nil
	}
	l, ok := data.AsList(value)
	if !ok {
		return false, nil
	}
	return m.equal(len(l), arg), nil
}

func (m *matcher) regex(value any, found bool, arg any) (bool, error) {
	var re *regexp.Regexp
	switch r := arg.(type) {
	case *regexp.Regexp:
		re = r
	case string:
		var err error
		if re, err = regexp.Compile(r); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("$regex operator called with non regular expression")
	}
	if !found {
		return false, nil
	}
	for _, c := range m.candidates(value) {
		if s, ok := c.(string); ok && re.MatchString(s) {
			return true, nil
		}
	}
	return false, nil
}
