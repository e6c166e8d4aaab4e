// Package shape contains the default [domain.ShapeAdapter] implementation.
package shape

import (
	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
)

const opEq = "$eq"

// logical operators whose operands are nested criteria.
var logicalOps = map[string]struct{}{
	"$and": {},
	"$or":  {},
	"$nor": {},
}

// Adapter implements domain.ShapeAdapter.
type Adapter struct{}

// NewAdapter returns a new implementation of domain.ShapeAdapter.
func NewAdapter() domain.ShapeAdapter {
	return &Adapter{}
}

// AdaptCriteria implements domain.ShapeAdapter.
func (a *Adapter) AdaptCriteria(criteria domain.Criteria) domain.Criteria {
	if criteria == nil {
		return nil
	}
	res := make(domain.Criteria, len(criteria))
	for field, test := range criteria {
		res[field] = a.adaptTest(field, test)
	}
	return res
}

func (a *Adapter) adaptTest(field string, test any) any {
	if _, ok := logicalOps[field]; ok {
		list, ok := data.AsList(test)
		if !ok {
			return test
		}
		res := make([]any, len(list))
		for n, sub := range list {
			res[n] = sub
			if m, ok := data.AsMap(sub); ok {
				res[n] = a.AdaptCriteria(m)
			}
		}
		return res
	}
	if op, ok := data.AsMap(test); ok {
		if v, ok := op[opEq]; ok {
			return v
		}
	}
	return test
}

// AdaptProjection implements domain.ShapeAdapter.
func (a *Adapter) AdaptProjection(projection domain.Projection) domain.Projection {
	return projection
}

// AdaptSort implements domain.ShapeAdapter.
func (a *Adapter) AdaptSort(sort domain.Sort) domain.Sort {
	return sort
}

// AdaptUpdate implements domain.ShapeAdapter.
func (a *Adapter) AdaptUpdate(update domain.Update) domain.Update {
	return update
}
