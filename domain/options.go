package domain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WithProjection specifies which fields to include or exclude from query
// results.
func WithProjection(p Projection) Option {
	return func(o *Options) {
		o.Projection = p
	}
}

// WithSort specifies the sort order for query results.
func WithSort(s Sort) Option {
	return func(o *Options) {
		o.Sort = s
	}
}

// WithSkip sets the number of documents to skip in query results.
func WithSkip(s int64) Option {
	return func(o *Options) {
		o.Skip = s
	}
}

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) Option {
	return func(o *Options) {
		o.Limit = l
	}
}

// WithUpsert enables inserting a document if no matches are found.
func WithUpsert(u bool) Option {
	return func(o *Options) {
		o.Upsert = u
	}
}

// WithMulti makes query-scoped operations affect every match instead of the
// first one only.
func WithMulti(m bool) Option {
	return func(o *Options) {
		o.Multi = m
	}
}

// WithNew selects whether mutations return the document as it is after the
// change (true) or before it (false).
func WithNew(n bool) Option {
	return func(o *Options) {
		o.New = n
	}
}

// WithOptions copies every field from src. It is used to pass a
// configuration object decoded by [Decoder] to an operation.
func WithOptions(src Options) Option {
	return func(o *Options) {
		*o = src
	}
}

// Option configures an entity operation through the functional options
// pattern.
type Option func(*Options)

// Options holds the configuration object recognized by entity operations.
type Options struct {
	// Projection specifies which fields to include or exclude from results.
	Projection Projection `missy:"projection"`
	// Sort specifies the sort order for results.
	Sort Sort `missy:"-"`
	// Skip specifies the number of documents to skip.
	Skip int64 `missy:"skip"`
	// Limit specifies the maximum number of documents to return.
	Limit int64 `missy:"limit"`
	// Upsert creates a document when none matches.
	Upsert bool `missy:"upsert"`
	// Multi applies the operation to all matches.
	Multi bool `missy:"multi"`
	// New returns the post-mutation document.
	New bool `missy:"new"`
}

// FindOptions contains parameters for store reads.
type FindOptions struct {
	Projection Projection
	Sort       Sort
	Skip       int64
	Limit      int64
}

// UpdateOptions contains parameters for bulk store updates.
type UpdateOptions struct {
	// Multi enables updating multiple documents that match the query.
	Multi bool
	// Upsert enables inserting a document if no matches are found.
	Upsert bool
}

// RemoveOptions contains parameters for bulk store removals.
type RemoveOptions struct {
	// Multi enables removing multiple documents that match the query.
	Multi bool
}

// FindAndModifyOptions controls the atomic find-and-modify primitive.
type FindAndModifyOptions struct {
	// Upsert inserts the replacement when nothing matches.
	Upsert bool
	// New returns the modified document instead of the original one.
	New bool
	// Remove deletes the matched document instead of replacing it.
	Remove bool
}

// WithReconcileOperation names the batch in logs and errors.
func WithReconcileOperation(op string) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.Operation = op
	}
}

// WithReconcileClassifier sets the function that turns each raw store result
// into a document or an error.
func WithReconcileClassifier(c Classifier) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.Classifier = c
	}
}

// WithReconcileFindAndModify sets the options of each atomic call.
func WithReconcileFindAndModify(f FindAndModifyOptions) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.FindAndModify = f
	}
}

// WithReconcileSort sets the sort passed to each atomic call.
func WithReconcileSort(s Sort) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.Sort = s
	}
}

// WithReconcileMissingKey sets a handler for entities that do not carry a
// full primary key. Without it such entities fail with *[ErrEntityNotFound].
func WithReconcileMissingKey(h MissingKeyHandler) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.MissingKey = h
	}
}

// WithReconcilePrepare sets a conversion applied to each entity right before
// it is processed. A failure stops the batch at that entity.
func WithReconcilePrepare(h PrepareHandler) ReconcileOption {
	return func(ro *ReconcileOptions) {
		ro.Prepare = h
	}
}

// MissingKeyHandler processes an entity that cannot be matched by key.
type MissingKeyHandler func(ctx context.Context, entity Entity) (Entity, error)

// PrepareHandler returns the form of an entity that is sent to the store.
type PrepareHandler func(entity Entity) (Entity, error)

// ReconcileOption configures [Reconciler.Reconcile].
type ReconcileOption func(*ReconcileOptions)

// ReconcileOptions contains parameters for a reconciled batch.
type ReconcileOptions struct {
	Operation     string
	Classifier    Classifier
	FindAndModify FindAndModifyOptions
	Sort          Sort
	MissingKey    MissingKeyHandler
	Prepare       PrepareHandler
}

// WithConnector sets the function used by [Driver.Connect].
func WithConnector(c Connector) DriverOption {
	return func(do *DriverOptions) {
		do.Connector = c
	}
}

// WithSchema binds a schema at construction time, as [Driver.BindSchema]
// would.
func WithSchema(s Schema) DriverOption {
	return func(do *DriverOptions) {
		do.Schema = s
	}
}

// WithShapeAdapter sets the query shape adapter.
func WithShapeAdapter(a ShapeAdapter) DriverOption {
	return func(do *DriverOptions) {
		do.ShapeAdapter = a
	}
}

// WithReconciler sets the batch reconciler.
func WithReconciler(r Reconciler) DriverOption {
	return func(do *DriverOptions) {
		do.Reconciler = r
	}
}

// WithLogger sets the logger. A no-op logger is used by default.
func WithLogger(l *zap.Logger) DriverOption {
	return func(do *DriverOptions) {
		do.Logger = l
	}
}

// DriverOption configures a [Driver] through the functional options pattern.
type DriverOption func(*DriverOptions)

// DriverOptions contains the collaborators of a [Driver].
type DriverOptions struct {
	Connector    Connector
	Schema       Schema
	ShapeAdapter ShapeAdapter
	Reconciler   Reconciler
	Logger       *zap.Logger
}

// WithReconcilerLogger sets the logger used by the default reconciler.
func WithReconcilerLogger(l *zap.Logger) ReconcilerOption {
	return func(ro *ReconcilerOptions) {
		ro.Logger = l
	}
}

// ReconcilerOption configures the default reconciler.
type ReconcilerOption func(*ReconcilerOptions)

// ReconcilerOptions contains parameters for the default reconciler.
type ReconcilerOptions struct {
	Logger *zap.Logger
}

// WithMongoDatabase overrides the database named in the connection string.
func WithMongoDatabase(db string) MongoOption {
	return func(mo *MongoOptions) {
		mo.Database = db
	}
}

// WithMongoAppName sets the application name reported to the server.
func WithMongoAppName(n string) MongoOption {
	return func(mo *MongoOptions) {
		mo.AppName = n
	}
}

// WithMongoConnectTimeout limits how long dialing a server may take.
func WithMongoConnectTimeout(d time.Duration) MongoOption {
	return func(mo *MongoOptions) {
		mo.ConnectTimeout = d
	}
}

// WithMongoServerSelectionTimeout limits how long an operation waits for a
// suitable server.
func WithMongoServerSelectionTimeout(d time.Duration) MongoOption {
	return func(mo *MongoOptions) {
		mo.ServerSelectionTimeout = d
	}
}

// MongoOption configures the MongoDB connector.
type MongoOption func(*MongoOptions)

// MongoOptions contains the MongoDB connection parameters.
type MongoOptions struct {
	Database               string
	AppName                string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}
