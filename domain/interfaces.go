// Package domain contains domain-specific interfaces and option types for
// missymongo.
//
// This package defines the contracts between the entity operation set and its
// collaborators: the store transport ([Client], [Collection]), the host schema
// value codecs ([Schema], [TypeHandler]) and the components that translate
// entity persistence into store primitives ([ShapeAdapter], [Reconciler]).
package domain

import (
	"context"
	"fmt"
)

// Connector establishes a new connection to the store. It is invoked by
// [Driver.Connect] and the returned [Client] is shared by every operation
// issued through the same driver.
type Connector func(ctx context.Context) (Client, error)

// Client is a connected store handle.
type Client interface {
	// Collection resolves a collection handle by name. No round trip is
	// made to the store.
	Collection(name string) Collection
	// Ping checks whether the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection. The client must not be used after
	// Close returns.
	Close(ctx context.Context) error
}

// Collection exposes the native primitives of a single store collection. All
// filters, projections, sorts and updates are expected to be already in the
// store's native shape (see [ShapeAdapter]).
type Collection interface {
	// FindOne returns the first matching document, or nil if there is no
	// match.
	FindOne(ctx context.Context, filter Criteria, opts FindOptions) (Entity, error)
	// Find returns every matching document.
	Find(ctx context.Context, filter Criteria, opts FindOptions) ([]Entity, error)
	// Count returns the number of matching documents. Only Skip and Limit
	// are read from opts.
	Count(ctx context.Context, filter Criteria, opts FindOptions) (int64, error)
	// Insert writes all docs at once. A document without an _id field is
	// assigned a store-generated identifier in place. A uniqueness
	// violation is reported as *[ErrDuplicateKey].
	Insert(ctx context.Context, docs []Entity) error
	// Update applies update to the documents matching filter and returns
	// the number of matched documents.
	Update(ctx context.Context, filter Criteria, update Update, opts UpdateOptions) (int64, error)
	// Remove deletes the documents matching filter and returns how many
	// were removed.
	Remove(ctx context.Context, filter Criteria, opts RemoveOptions) (int64, error)
	// FindAndModify atomically finds a single document matching filter
	// (the first one according to sort) and replaces or removes it.
	FindAndModify(ctx context.Context, filter Criteria, sort Sort, replacement Entity, opts FindAndModifyOptions) (FindAndModifyResult, error)
}

// ShapeAdapter converts abstract query objects into the store's native query
// document shape. Implementations must be pure and idempotent, and must not
// modify their input.
type ShapeAdapter interface {
	// AdaptCriteria replaces explicit equality tests with their literal
	// value.
	AdaptCriteria(Criteria) Criteria
	// AdaptProjection converts a projection.
	AdaptProjection(Projection) Projection
	// AdaptSort converts a sort.
	AdaptSort(Sort) Sort
	// AdaptUpdate converts an update specification.
	AdaptUpdate(Update) Update
}

// Classifier decides, from the raw result of an atomic find-and-modify call,
// whether the operation on entity succeeded and which document to surface.
type Classifier func(entity Entity, res FindAndModifyResult) (Entity, error)

// Reconciler drives the atomic find-and-modify primitive over a batch of
// entities, one call per entity, in input order.
type Reconciler interface {
	// Reconcile processes entities sequentially. On the first failure it
	// stops and returns the results gathered so far together with an
	// *[ErrBatch] describing the offending entity.
	Reconcile(ctx context.Context, coll Collection, model Model, entities []Entity, options ...ReconcileOption) ([]Entity, error)
}

// TypeHandler is a value codec for one host value type.
type TypeHandler interface {
	// Norm normalizes a value assigned to an entity field.
	Norm(value any, field Field) (any, error)
	// Load converts a value read from the store.
	Load(value any, field Field) (any, error)
	// Save converts a value before it is written to the store.
	Save(value any, field Field) (any, error)
}

// Schema is the value-codec table consulted by the driver, keyed by type name.
type Schema interface {
	// RegisterType associates handler with the type name. A later
	// registration under the same name replaces the former one.
	RegisterType(name string, handler TypeHandler) error
	// Type returns the handler registered for name.
	Type(name string) (TypeHandler, bool)
	// Types lists registered type names in sorted order.
	Types() []string
}

// Comparer provides ordering and comparison operations for document values.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values are of the same kind and can
	// be ordered against each other.
	Comparable(any, any) bool
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Driver exposes entity persistence on top of a document store.
type Driver interface {
	fmt.Stringer

	// Connect invokes the configured [Connector] and stores the resulting
	// client. It fails with [ErrAlreadyConnected] unless the driver is
	// disconnected.
	Connect(ctx context.Context) (Client, error)
	// Disconnect closes the client and returns the driver to the
	// disconnected state.
	Disconnect(ctx context.Context) error
	// State reports the current connection state.
	State() State
	// Client returns the connected client.
	Client() (Client, error)
	// BindSchema associates the driver with a schema and registers the
	// native identifier codec under the name "ObjectID".
	BindSchema(Schema) error
	// Collection resolves the collection of a model from its table name.
	Collection(Model) (Collection, error)

	// Insert writes all entities in bulk.
	Insert(ctx context.Context, model Model, entities []Entity, options ...Option) ([]Entity, error)
	// Save creates or fully replaces each entity.
	Save(ctx context.Context, model Model, entities []Entity, options ...Option) ([]Entity, error)
	// Update replaces each entity, failing if it does not exist.
	Update(ctx context.Context, model Model, entities []Entity, options ...Option) ([]Entity, error)
	// Remove deletes each entity, failing if it does not exist.
	Remove(ctx context.Context, model Model, entities []Entity, options ...Option) ([]Entity, error)
	// UpdateQuery applies update to the documents matching criteria and
	// returns them as they are after the update.
	UpdateQuery(ctx context.Context, model Model, criteria Criteria, update Update, options ...Option) ([]Entity, error)
	// RemoveQuery removes the documents matching criteria and returns them
	// as they were before removal.
	RemoveQuery(ctx context.Context, model Model, criteria Criteria, options ...Option) ([]Entity, error)
	// FindOne returns the first matching entity, or nil.
	FindOne(ctx context.Context, model Model, criteria Criteria, options ...Option) (Entity, error)
	// Find returns the matching entities.
	Find(ctx context.Context, model Model, criteria Criteria, options ...Option) ([]Entity, error)
	// Count returns the number of matching entities.
	Count(ctx context.Context, model Model, criteria Criteria, options ...Option) (int64, error)
}
