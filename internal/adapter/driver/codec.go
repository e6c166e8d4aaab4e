package driver

import (
	"fmt"
	"maps"
	"strings"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
)

type hook func(domain.TypeHandler, any, domain.Field) (any, error)

func saveHook(h domain.TypeHandler, v any, f domain.Field) (any, error) { return h.Save(v, f) }

func loadHook(h domain.TypeHandler, v any, f domain.Field) (any, error) { return h.Load(v, f) }

// apply runs fn over every typed field of doc, in place.
func (d *Driver) apply(model domain.Model, doc map[string]any, fn hook, literalsOnly bool) error {
	schema := d.boundSchema()
	if schema == nil || doc == nil {
		return nil
	}
	for name, typ := range model.Fields {
		value, ok := doc[name]
		if !ok {
			continue
		}
		if literalsOnly && isOperatorObject(value) {
			continue
		}
		handler, ok := schema.Type(typ)
		if !ok {
			continue
		}
		res, err := fn(handler, value, domain.Field{Model: model.Name, Name: name, Type: typ})
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		doc[name] = res
	}
	return nil
}

// encode returns a copy of entity with its fields converted to their stored
// representation. entity itself is left untouched.
func (d *Driver) encode(model domain.Model, entity domain.Entity) (domain.Entity, error) {
	res := maps.Clone(entity)
	if err := d.apply(model, res, saveHook, false); err != nil {
		return nil, err
	}
	return res, nil
}

// encodeAll encodes a whole batch up front. A failure is tagged with the
// position of the entity.
func (d *Driver) encodeAll(model domain.Model, op string, entities []domain.Entity) ([]domain.Entity, error) {
	res := make([]domain.Entity, len(entities))
	for n, e := range entities {
		enc, err := d.encode(model, e)
		if err != nil {
			return nil, &domain.ErrBatch{Operation: op, Index: n, Entity: e, Err: err}
		}
		res[n] = enc
	}
	return res, nil
}

// encoder adapts encode to the reconciler.
func (d *Driver) encoder(model domain.Model) domain.PrepareHandler {
	return func(entity domain.Entity) (domain.Entity, error) {
		return d.encode(model, entity)
	}
}

// decode converts stored documents back to entity values in place.
func (d *Driver) decode(model domain.Model, docs ...domain.Entity) error {
	for _, doc := range docs {
		if err := d.apply(model, doc, loadHook, false); err != nil {
			return err
		}
	}
	return nil
}

// encodeCriteria converts the literal equality values of typed fields.
// Operator objects are left untouched.
func (d *Driver) encodeCriteria(model domain.Model, criteria domain.Criteria) (domain.Criteria, error) {
	if criteria == nil {
		return nil, nil
	}
	res := maps.Clone(criteria)
	if err := d.apply(model, res, saveHook, true); err != nil {
		return nil, err
	}
	return res, nil
}

// encodeUpdate converts typed fields of a replacement document or of the
// $set and $setOnInsert operators.
func (d *Driver) encodeUpdate(model domain.Model, update domain.Update) (domain.Update, error) {
	if update == nil {
		return nil, nil
	}
	res := maps.Clone(update)
	if !isOperatorObject(map[string]any(res)) {
		return res, d.apply(model, res, saveHook, false)
	}
	for _, op := range []string{"$set", "$setOnInsert"} {
		fields, ok := data.AsMap(res[op])
		if !ok {
			continue
		}
		fields = maps.Clone(fields)
		if err := d.apply(model, fields, saveHook, false); err != nil {
			return nil, err
		}
		res[op] = fields
	}
	return res, nil
}

func isOperatorObject(v any) bool {
	obj, ok := data.AsMap(v)
	if !ok || len(obj) == 0 {
		return false
	}
	for k := range obj {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}
