package memstore

import (
	"slices"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
)

// querier selects, orders and shapes the documents of a collection.
type querier struct {
	matcher  *matcher
	comparer domain.Comparer
}

// filter returns the records matching query, in natural order.
func (q *querier) filter(records []*record, query domain.Criteria) ([]*record, error) {
	res := make([]*record, 0, len(records))
	for _, r := range records {
		ok, err := q.matcher.match(r.doc, query)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, r)
		}
	}
	return res, nil
}

func (q *querier) sort(records []*record, sort domain.Sort) error {
	if len(sort) == 0 {
		return nil
	}
	var err error
	slices.SortStableFunc(records, func(a, b *record) int {
		for _, s := range sort {
			va, _ := data.Get(a.doc, s.Key)
			vb, _ := data.Get(b.doc, s.Key)
			comp, compErr := q.comparer.Compare(va, vb)
			if compErr != nil && err == nil {
				err = compErr
			}
			if comp != 0 {
				if s.Order < 0 {
					return -comp
				}
				return comp
			}
		}
		return 0
	})
	return err
}

// find runs the whole query pipeline: match, sort, skip and limit.
func (q *querier) find(records []*record, query domain.Criteria, opts domain.FindOptions) ([]*record, error) {
	matched, err := q.filter(records, query)
	if err != nil {
		return nil, err
	}
	if err := q.sort(matched, opts.Sort); err != nil {
		return nil, err
	}
	return window(matched, opts.Skip, opts.Limit), nil
}

func window[T any](items []T, skip, limit int64) []T {
	if skip > 0 {
		if skip >= int64(len(items)) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func project(doc map[string]any, projection domain.Projection) (domain.Entity, error) {
	if len(projection) == 0 {
		return domain.Entity(data.CloneMap(doc)), nil
	}

	keepID := true
	include, exclude := 0, 0
	for field, flag := range projection {
		switch {
		case field == "_id":
			keepID = flag != 0
		case flag != 0:
			include++
		default:
			exclude++
		}
	}
	if include > 0 && exclude > 0 {
		return nil, domain.ErrMixedProjection
	}

	// {_id: 1} alone is an inclusion projection
	if include > 0 || (exclude == 0 && keepID) {
		res := map[string]any{}
		for field, flag := range projection {
			if field == "_id" || flag == 0 {
				continue
			}
			if v, ok := data.Get(doc, field); ok {
				data.Set(res, field, data.Clone(v))
			}
		}
		if id, ok := doc["_id"]; ok && keepID {
			res["_id"] = id
		}
		return domain.Entity(res), nil
	}

	res := data.CloneMap(doc)
	for field, flag := range projection {
		if flag == 0 {
			data.Unset(res, field)
		}
	}
	return domain.Entity(res), nil
}
