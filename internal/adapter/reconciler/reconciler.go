// Package reconciler contains the default [domain.Reconciler] implementation.
package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/kolypto/missymongo/domain"
	"go.uber.org/zap"
)

// Reconciler implements domain.Reconciler.
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler returns a new implementation of domain.Reconciler.
func NewReconciler(options ...domain.ReconcilerOption) domain.Reconciler {
	opts := domain.ReconcilerOptions{
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Reconciler{logger: opts.Logger}
}

// Reconcile implements domain.Reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, coll domain.Collection, model domain.Model, entities []domain.Entity, options ...domain.ReconcileOption) ([]domain.Entity, error) {
	opts := domain.ReconcileOptions{
		Operation:  "reconcile",
		Classifier: Identity,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Classifier == nil {
		opts.Classifier = Identity
	}

	logger := r.logger.With(
		zap.String("operation", opts.Operation),
		zap.String("model", model.Name),
		zap.String("batch", uuid.NewString()),
	)
	logger.Debug("reconciling batch", zap.Int("size", len(entities)))

	results := make([]domain.Entity, 0, len(entities))
	for n, entity := range entities {
		doc, err := r.reconcileOne(ctx, coll, model, entity, opts)
		if err != nil {
			logger.Warn("batch aborted",
				zap.Int("index", n),
				zap.Int("processed", len(results)),
				zap.Error(err),
			)
			return results, &domain.ErrBatch{
				Operation: opts.Operation,
				Index:     n,
				Entity:    entity,
				Err:       err,
			}
		}
		results = append(results, doc)
	}

	logger.Debug("batch reconciled", zap.Int("processed", len(results)))
	return results, nil
}

// reconcileOne sends the prepared form of entity to the store. Errors and the
// classifier see the entity as it was given.
func (r *Reconciler) reconcileOne(ctx context.Context, coll domain.Collection, model domain.Model, entity domain.Entity, opts domain.ReconcileOptions) (domain.Entity, error) {
	stored := entity
	if opts.Prepare != nil {
		var err error
		if stored, err = opts.Prepare(entity); err != nil {
			return nil, err
		}
	}

	key, ok := model.Key(stored)
	if !ok {
		if opts.MissingKey != nil {
			return opts.MissingKey(ctx, stored)
		}
		return nil, &domain.ErrEntityNotFound{Model: model.Name, Entity: entity}
	}

	res, err := coll.FindAndModify(ctx, key, opts.Sort, stored, opts.FindAndModify)
	if err != nil {
		return nil, err
	}
	return opts.Classifier(entity, res)
}

// Identity accepts whatever document the store returned.
func Identity(_ domain.Entity, res domain.FindAndModifyResult) (domain.Entity, error) {
	return res.Document, nil
}
