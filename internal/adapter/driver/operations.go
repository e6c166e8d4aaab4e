package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/kolypto/missymongo/domain"
	"go.uber.org/zap"
)

// Insert implements domain.Driver. The batch is written in a single store
// call, after every entity has been converted. A duplicate key is reported as
// *domain.ErrEntityExists carrying the conflicting entity.
func (d *Driver) Insert(ctx context.Context, model domain.Model, entities []domain.Entity, _ ...domain.Option) ([]domain.Entity, error) {
	coll, logger, err := d.begin(model, "insert")
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return []domain.Entity{}, nil
	}
	docs, err := d.encodeAll(model, "insert", entities)
	if err != nil {
		return nil, err
	}

	logger.Debug("inserting", zap.Int("size", len(docs)))
	if err := coll.Insert(ctx, docs); err != nil {
		err = existsError(model, entities, err)
		logger.Warn("insert failed", zap.Error(err))
		return nil, err
	}

	if err := d.decode(model, docs...); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return docs, nil
}

// Save implements domain.Driver. Entities with a full primary key are
// atomically upserted and replaced; the others are inserted.
func (d *Driver) Save(ctx context.Context, model domain.Model, entities []domain.Entity, options ...domain.Option) ([]domain.Entity, error) {
	coll, _, err := d.begin(model, "save")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)

	insert := func(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
		batch := []domain.Entity{entity}
		if err := coll.Insert(ctx, batch); err != nil {
			return nil, existsError(model, batch, err)
		}
		return entity, nil
	}

	res, err := d.reconciler.Reconcile(ctx, coll, model, entities,
		domain.WithReconcileOperation("save"),
		domain.WithReconcilePrepare(d.encoder(model)),
		domain.WithReconcileSort(d.shape.AdaptSort(opts.Sort)),
		domain.WithReconcileFindAndModify(domain.FindAndModifyOptions{Upsert: true, New: true}),
		domain.WithReconcileMissingKey(insert),
	)
	return d.reconciled(model, "save", res, err)
}

// Update implements domain.Driver. Nothing is created: an entity matching no
// stored document fails the batch with *domain.ErrEntityNotFound.
func (d *Driver) Update(ctx context.Context, model domain.Model, entities []domain.Entity, options ...domain.Option) ([]domain.Entity, error) {
	coll, _, err := d.begin(model, "update")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)

	res, err := d.reconciler.Reconcile(ctx, coll, model, entities,
		domain.WithReconcileOperation("update"),
		domain.WithReconcilePrepare(d.encoder(model)),
		domain.WithReconcileSort(d.shape.AdaptSort(opts.Sort)),
		domain.WithReconcileFindAndModify(domain.FindAndModifyOptions{New: opts.New}),
		domain.WithReconcileClassifier(mustMatch(model)),
	)
	return d.reconciled(model, "update", res, err)
}

// Remove implements domain.Driver. Removed documents are returned as they
// were before removal.
func (d *Driver) Remove(ctx context.Context, model domain.Model, entities []domain.Entity, options ...domain.Option) ([]domain.Entity, error) {
	coll, _, err := d.begin(model, "remove")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)

	res, err := d.reconciler.Reconcile(ctx, coll, model, entities,
		domain.WithReconcileOperation("remove"),
		domain.WithReconcilePrepare(d.encoder(model)),
		domain.WithReconcileSort(d.shape.AdaptSort(opts.Sort)),
		domain.WithReconcileFindAndModify(domain.FindAndModifyOptions{Remove: true}),
		domain.WithReconcileClassifier(mustMatch(model)),
	)
	return d.reconciled(model, "remove", res, err)
}

// mustMatch fails with *domain.ErrEntityNotFound unless an existing document
// was matched.
func mustMatch(model domain.Model) domain.Classifier {
	return func(entity domain.Entity, res domain.FindAndModifyResult) (domain.Entity, error) {
		if !res.Matched {
			return nil, &domain.ErrEntityNotFound{Model: model.Name, Entity: entity}
		}
		return res.Document, nil
	}
}

// reconciled decodes the documents of a reconciled batch. On failure the
// documents processed before the failing entity are returned with the error.
// A decoding failure is joined to the batch error, never replaces it.
func (d *Driver) reconciled(model domain.Model, op string, res []domain.Entity, err error) ([]domain.Entity, error) {
	if decErr := d.decode(model, res...); decErr != nil {
		return nil, errors.Join(err, fmt.Errorf("%s: %w", op, decErr))
	}
	return res, err
}

// UpdateQuery implements domain.Driver. The update and the following read
// are separate store calls: concurrent writers may interleave.
func (d *Driver) UpdateQuery(ctx context.Context, model domain.Model, criteria domain.Criteria, update domain.Update, options ...domain.Option) ([]domain.Entity, error) {
	coll, logger, err := d.begin(model, "updateQuery")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)
	filter, err := d.encodeCriteria(model, d.shape.AdaptCriteria(criteria))
	if err != nil {
		return nil, fmt.Errorf("updateQuery: %w", err)
	}
	upd, err := d.encodeUpdate(model, d.shape.AdaptUpdate(update))
	if err != nil {
		return nil, fmt.Errorf("updateQuery: %w", err)
	}

	n, err := coll.Update(ctx, filter, upd, domain.UpdateOptions{Multi: opts.Multi, Upsert: opts.Upsert})
	if err != nil {
		logger.Warn("update failed", zap.Error(err))
		return nil, fmt.Errorf("updateQuery: %w", err)
	}
	logger.Debug("documents updated", zap.Int64("matched", n))

	return d.find(ctx, coll, model, filter, opts)
}

// RemoveQuery implements domain.Driver. Matching documents are read before
// they are removed; documents written in between are not reported.
func (d *Driver) RemoveQuery(ctx context.Context, model domain.Model, criteria domain.Criteria, options ...domain.Option) ([]domain.Entity, error) {
	coll, logger, err := d.begin(model, "removeQuery")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)
	filter, err := d.encodeCriteria(model, d.shape.AdaptCriteria(criteria))
	if err != nil {
		return nil, fmt.Errorf("removeQuery: %w", err)
	}

	findOpts := domain.FindOptions{Sort: d.shape.AdaptSort(opts.Sort)}
	if !opts.Multi {
		findOpts.Limit = 1
	}
	snapshot, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("removeQuery: %w", err)
	}
	if len(snapshot) == 0 {
		return snapshot, nil
	}

	removeFilter := filter
	if !opts.Multi {
		removeFilter = domain.Criteria{domain.DefaultPrimaryKey: snapshot[0][domain.DefaultPrimaryKey]}
	}
	n, err := coll.Remove(ctx, removeFilter, domain.RemoveOptions{Multi: opts.Multi})
	if err != nil {
		logger.Warn("remove failed", zap.Error(err))
		return nil, fmt.Errorf("removeQuery: %w", err)
	}
	logger.Debug("documents removed", zap.Int64("removed", n), zap.Int("snapshot", len(snapshot)))

	if err := d.decode(model, snapshot...); err != nil {
		return nil, fmt.Errorf("removeQuery: %w", err)
	}
	return snapshot, nil
}

// FindOne implements domain.Driver.
func (d *Driver) FindOne(ctx context.Context, model domain.Model, criteria domain.Criteria, options ...domain.Option) (domain.Entity, error) {
	coll, _, err := d.begin(model, "findOne")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)
	filter, err := d.encodeCriteria(model, d.shape.AdaptCriteria(criteria))
	if err != nil {
		return nil, fmt.Errorf("findOne: %w", err)
	}

	doc, err := coll.FindOne(ctx, filter, d.findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("findOne: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	if err := d.decode(model, doc); err != nil {
		return nil, fmt.Errorf("findOne: %w", err)
	}
	return doc, nil
}

// Find implements domain.Driver.
func (d *Driver) Find(ctx context.Context, model domain.Model, criteria domain.Criteria, options ...domain.Option) ([]domain.Entity, error) {
	coll, _, err := d.begin(model, "find")
	if err != nil {
		return nil, err
	}
	opts := newOptions(options)
	filter, err := d.encodeCriteria(model, d.shape.AdaptCriteria(criteria))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return d.find(ctx, coll, model, filter, opts)
}

func (d *Driver) find(ctx context.Context, coll domain.Collection, model domain.Model, filter domain.Criteria, opts domain.Options) ([]domain.Entity, error) {
	docs, err := coll.Find(ctx, filter, d.findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	if err := d.decode(model, docs...); err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return docs, nil
}

// Count implements domain.Driver.
func (d *Driver) Count(ctx context.Context, model domain.Model, criteria domain.Criteria, options ...domain.Option) (int64, error) {
	coll, _, err := d.begin(model, "count")
	if err != nil {
		return 0, err
	}
	opts := newOptions(options)
	filter, err := d.encodeCriteria(model, d.shape.AdaptCriteria(criteria))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	n, err := coll.Count(ctx, filter, domain.FindOptions{Skip: opts.Skip, Limit: opts.Limit})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (d *Driver) findOptions(opts domain.Options) domain.FindOptions {
	return domain.FindOptions{
		Projection: d.shape.AdaptProjection(opts.Projection),
		Sort:       d.shape.AdaptSort(opts.Sort),
		Skip:       opts.Skip,
		Limit:      opts.Limit,
	}
}
