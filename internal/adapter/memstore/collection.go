package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/unbalanced"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type record struct {
	doc map[string]any
}

// idComparer implements bst.Comparer for the _id index.
type idComparer struct {
	comparer domain.Comparer
}

// CompareKeys implements bst.Comparer.
func (ic *idComparer) CompareKeys(a any, b any) (int, error) {
	return ic.comparer.Compare(a, b)
}

// CompareValues implements bst.Comparer.
func (ic *idComparer) CompareValues(a *record, b *record) (bool, error) {
	return a == b, nil
}

// Collection implements domain.Collection.
type Collection struct {
	name     string
	executor executor
	comparer domain.Comparer
	querier  *querier
	modifier *modifier
	// ids is the unique _id index. records keeps natural (insertion)
	// order.
	ids     bst.BST[any, *record]
	records []*record
}

func newCollection(name string, c domain.Comparer) *Collection {
	coll := &Collection{
		name:     name,
		executor: make(executor, 1),
		comparer: c,
		querier:  &querier{matcher: newMatcher(c), comparer: c},
		modifier: newModifier(c),
	}
	coll.ids = coll.newIndex()
	return coll
}

func (c *Collection) newIndex() bst.BST[any, *record] {
	return unbalanced.NewBST[any, *record](true, 1, &idComparer{comparer: c.comparer})
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// FindOne implements domain.Collection.
func (c *Collection) FindOne(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) (domain.Entity, error) {
	opts.Limit = 1
	docs, err := c.Find(ctx, filter, opts)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// Find implements domain.Collection.
func (c *Collection) Find(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) ([]domain.Entity, error) {
	if err := c.executor.lock(ctx); err != nil {
		return nil, err
	}
	defer c.executor.unlock()

	candidates, err := c.candidates(filter)
	if err != nil {
		return nil, err
	}
	found, err := c.querier.find(candidates, filter, opts)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Entity, len(found))
	for n, r := range found {
		if res[n], err = project(r.doc, opts.Projection); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) (int64, error) {
	if err := c.executor.lock(ctx); err != nil {
		return 0, err
	}
	defer c.executor.unlock()

	candidates, err := c.candidates(filter)
	if err != nil {
		return 0, err
	}
	found, err := c.querier.filter(candidates, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(window(found, opts.Skip, opts.Limit))), nil
}

// Insert implements domain.Collection. Documents are inserted in order and
// the first duplicate stops the batch, leaving the previous ones stored.
func (c *Collection) Insert(ctx context.Context, docs []domain.Entity) error {
	if err := c.executor.lock(ctx); err != nil {
		return err
	}
	defer c.executor.unlock()

	for _, doc := range docs {
		if doc["_id"] == nil {
			doc["_id"] = primitive.NewObjectID()
		}
	}
	for n, doc := range docs {
		if err := c.insertRecord(data.CloneMap(doc)); err != nil {
			return &domain.ErrDuplicateKey{Index: n, Err: err}
		}
	}
	return nil
}

// Update implements domain.Collection.
func (c *Collection) Update(ctx context.Context, filter domain.Criteria, update domain.Update, opts domain.UpdateOptions) (int64, error) {
	if err := c.executor.lock(ctx); err != nil {
		return 0, err
	}
	defer c.executor.unlock()

	var limit int64
	if !opts.Multi {
		limit = 1
	}
	candidates, err := c.candidates(filter)
	if err != nil {
		return 0, err
	}
	found, err := c.querier.find(candidates, filter, domain.FindOptions{Limit: limit})
	if err != nil {
		return 0, err
	}

	if len(found) == 0 {
		if !opts.Upsert {
			return 0, nil
		}
		doc, err := c.modifier.modify(c.upsertBase(filter), update)
		if err != nil {
			return 0, err
		}
		if err := c.insertRecord(doc); err != nil {
			return 0, &domain.ErrDuplicateKey{Index: -1, Err: err}
		}
		return 0, nil
	}

	// all documents are modified before any is written back
	modified := make([]map[string]any, len(found))
	for n, r := range found {
		if modified[n], err = c.modifier.modify(r.doc, update); err != nil {
			return 0, err
		}
	}
	for n, r := range found {
		r.doc = modified[n]
	}
	return int64(len(found)), nil
}

// Remove implements domain.Collection.
func (c *Collection) Remove(ctx context.Context, filter domain.Criteria, opts domain.RemoveOptions) (int64, error) {
	if err := c.executor.lock(ctx); err != nil {
		return 0, err
	}
	defer c.executor.unlock()

	var limit int64
	if !opts.Multi {
		limit = 1
	}
	candidates, err := c.candidates(filter)
	if err != nil {
		return 0, err
	}
	found, err := c.querier.find(candidates, filter, domain.FindOptions{Limit: limit})
	if err != nil {
		return 0, err
	}
	if err := c.removeRecords(found...); err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// FindAndModify implements domain.Collection.
func (c *Collection) FindAndModify(ctx context.Context, filter domain.Criteria, sort domain.Sort, replacement domain.Entity, opts domain.FindAndModifyOptions) (domain.FindAndModifyResult, error) {
	if err := c.executor.lock(ctx); err != nil {
		return domain.FindAndModifyResult{}, err
	}
	defer c.executor.unlock()

	candidates, err := c.candidates(filter)
	if err != nil {
		return domain.FindAndModifyResult{}, err
	}
	found, err := c.querier.find(candidates, filter, domain.FindOptions{Sort: sort, Limit: 1})
	if err != nil {
		return domain.FindAndModifyResult{}, err
	}

	if len(found) == 1 {
		r := found[0]
		old := domain.Entity(data.CloneMap(r.doc))
		if opts.Remove {
			if err := c.removeRecords(r); err != nil {
				return domain.FindAndModifyResult{}, err
			}
			return domain.FindAndModifyResult{Document: old, Matched: true}, nil
		}
		doc, err := c.modifier.modify(r.doc, replacement)
		if err != nil {
			return domain.FindAndModifyResult{}, err
		}
		r.doc = doc
		if opts.New {
			return domain.FindAndModifyResult{Document: domain.Entity(data.CloneMap(doc)), Matched: true}, nil
		}
		return domain.FindAndModifyResult{Document: old, Matched: true}, nil
	}

	if opts.Remove || !opts.Upsert {
		return domain.FindAndModifyResult{}, nil
	}

	doc, err := c.modifier.modify(c.upsertBase(filter), replacement)
	if err != nil {
		return domain.FindAndModifyResult{}, err
	}
	if err := c.insertRecord(doc); err != nil {
		return domain.FindAndModifyResult{}, &domain.ErrDuplicateKey{Index: -1, Err: err}
	}
	if opts.New {
		return domain.FindAndModifyResult{Document: domain.Entity(data.CloneMap(doc))}, nil
	}
	return domain.FindAndModifyResult{}, nil
}

// candidates narrows the scan down through the _id index when the filter
// tests _id for equality.
func (c *Collection) candidates(filter domain.Criteria) ([]*record, error) {
	id, ok := filter["_id"]
	if !ok {
		return c.records, nil
	}
	if ops, isOps := c.querier.matcher.operators(id); isOps {
		if id, ok = ops["$eq"]; !ok {
			return c.records, nil
		}
	}
	node, err := c.ids.Search(id)
	if err != nil || node == nil {
		return nil, err
	}
	return slices.Clone(node.Values), nil
}

// upsertBase builds the document an upsert starts from: the equality tests
// of the filter.
func (c *Collection) upsertBase(filter domain.Criteria) map[string]any {
	base := map[string]any{}
	for field, test := range filter {
		if strings.HasPrefix(field, "$") {
			continue
		}
		if ops, isOps := c.querier.matcher.operators(test); isOps {
			eq, ok := ops["$eq"]
			if !ok {
				continue
			}
			test = eq
		}
		data.Set(base, field, data.Clone(test))
	}
	return base
}

func (c *Collection) insertRecord(doc map[string]any) error {
	if doc["_id"] == nil {
		doc["_id"] = primitive.NewObjectID()
	}
	r := &record{doc: doc}
	if err := c.ids.Insert(doc["_id"], r); err != nil {
		return err
	}
	c.records = append(c.records, r)
	return nil
}

// removeRecords rebuilds the _id index instead of deleting from it: Delete in
// bst v0.2.5 loses the subtree of a node replaced by its direct child.
func (c *Collection) removeRecords(rs ...*record) error {
	if len(rs) == 0 {
		return nil
	}
	c.records = slices.DeleteFunc(c.records, func(e *record) bool { return slices.Contains(rs, e) })
	ids := c.newIndex()
	for _, r := range c.records {
		if err := ids.Insert(r.doc["_id"], r); err != nil {
			return err
		}
	}
	c.ids = ids
	return nil
}
