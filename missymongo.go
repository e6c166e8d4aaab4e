// Package missymongo persists ORM entities in MongoDB.
//
// It translates the persistence verbs of an entity framework (insert, save,
// update, remove and their query-scoped variants) into MongoDB primitives.
// Per-entity verbs are built on the atomic findAndModify command, so there is
// no race between checking whether a document exists and writing it.
//
// The basic usage starts with creating a new [Driver], which can be done by
// calling [NewDriver] with a [Connector], usually from [NewMongoConnector].
package missymongo

import (
	"time"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/decoder"
	"github.com/kolypto/missymongo/internal/adapter/driver"
	"github.com/kolypto/missymongo/internal/adapter/memstore"
	"github.com/kolypto/missymongo/internal/adapter/mongostore"
	"github.com/kolypto/missymongo/internal/adapter/schema"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is matched by every [ErrEntityNotFound].
	ErrNotFound = domain.ErrNotFound
	// ErrAlreadyExists is matched by every [ErrEntityExists].
	ErrAlreadyExists = domain.ErrAlreadyExists
	// ErrNotConnected is returned by data operations while the driver is
	// not connected.
	ErrNotConnected = domain.ErrNotConnected
	// ErrAlreadyConnected is returned by [Driver.Connect] unless the driver
	// is disconnected.
	ErrAlreadyConnected = domain.ErrAlreadyConnected
	// ErrNoConnector is returned by [NewDriver] without [WithConnector].
	ErrNoConnector = domain.ErrNoConnector
	// ErrNoDatabase is returned when connecting with a connection string
	// that does not name a database.
	ErrNoDatabase = domain.ErrNoDatabase
)

// ErrEntityNotFound is returned when a targeted entity had no matching
// document at mutation time.
type ErrEntityNotFound = domain.ErrEntityNotFound

// ErrEntityExists is returned when inserting an entity whose key is taken.
type ErrEntityExists = domain.ErrEntityExists

// ErrBatch tags the entity a batch operation stopped at. Entities before it
// have already been written.
type ErrBatch = domain.ErrBatch

// ErrInvalidObjectID is returned when a value cannot be stored as an ObjectID.
type ErrInvalidObjectID = domain.ErrInvalidObjectID

// ErrDecode wraps errors returned by [DecodeEntity].
type ErrDecode = domain.ErrDecode

// Driver exposes entity persistence on top of MongoDB.
type Driver = domain.Driver

// Connector establishes a connection when [Driver.Connect] is called.
type Connector = domain.Connector

// Client is a connected store handle.
type Client = domain.Client

// Collection exposes the primitives of a single collection.
type Collection = domain.Collection

// Schema is a value-codec table keyed by type name.
type Schema = domain.Schema

// TypeHandler converts values of one type between the host and the store.
type TypeHandler = domain.TypeHandler

// Field identifies the entity field a [TypeHandler] is applied to.
type Field = domain.Field

// Model describes an entity kind: its collection, key and field types.
type Model = domain.Model

// Entity is a single persisted value.
type Entity = domain.Entity

// Criteria is a query filter.
type Criteria = domain.Criteria

// Projection selects returned fields.
type Projection = domain.Projection

// Update is a mutation specification.
type Update = domain.Update

// Sort is an ordered list of sort keys.
type Sort = domain.Sort

// SortName is a single sort key.
type SortName = domain.SortName

// State is the connection state of a [Driver].
type State = domain.State

// Option configures a single operation.
type Option = domain.Option

// Options is the configuration object recognized by operations.
type Options = domain.Options

// DriverOption configures a [Driver].
type DriverOption = domain.DriverOption

// MongoOption configures [NewMongoConnector].
type MongoOption = domain.MongoOption

// Connection states.
const (
	StateDisconnected = domain.StateDisconnected
	StateConnecting   = domain.StateConnecting
	StateConnected    = domain.StateConnected
)

// NewDriver creates a disconnected Driver with the provided options:
//
// - [WithConnector]: required, establishes the store connection.
//
// - [WithSchema]: binds a schema, as [Driver.BindSchema] would.
//
// - [WithLogger]: sets the zap logger. Nothing is logged by default.
//
// - [WithShapeAdapter] and [WithReconciler]: replace internal collaborators.
func NewDriver(options ...DriverOption) (Driver, error) {
	return driver.NewDriver(options...)
}

// NewSchema returns an empty value-codec table.
func NewSchema() Schema {
	return schema.NewSchema()
}

// NewMongoConnector returns a [Connector] for a connection string such as
// mongodb://127.0.0.1:27017/test. The database is taken from the connection
// string unless [WithMongoDatabase] is given.
func NewMongoConnector(uri string, options ...MongoOption) Connector {
	return mongostore.NewConnector(uri, options...)
}

// NewMemoryConnector returns a [Connector] to an in-memory store. Every
// connection made through it shares the same data.
func NewMemoryConnector() Connector {
	return memstore.NewConnector(nil)
}

// OptionsFromMap decodes a host configuration object with keys such as skip,
// limit, upsert, multi, new and projection into an [Option]. Unset keys keep
// their defaults.
func OptionsFromMap(m map[string]any) (Option, error) {
	opts := domain.Options{New: true}
	if err := decoder.NewDecoder().Decode(m, &opts); err != nil {
		return nil, err
	}
	return domain.WithOptions(opts), nil
}

// DecodeEntity decodes entity into target, which must be a pointer. Struct
// fields are matched using the "missy" tag. ObjectIDs are decoded into string
// fields as hex.
func DecodeEntity(entity Entity, target any) error {
	return decoder.NewDecoder().Decode(entity, target)
}

// WithConnector sets the function used by [Driver.Connect].
func WithConnector(c Connector) DriverOption {
	return domain.WithConnector(c)
}

// WithSchema binds a schema at construction time.
func WithSchema(s Schema) DriverOption {
	return domain.WithSchema(s)
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) DriverOption {
	return domain.WithLogger(l)
}

// WithShapeAdapter replaces the query shape adapter.
func WithShapeAdapter(a domain.ShapeAdapter) DriverOption {
	return domain.WithShapeAdapter(a)
}

// WithReconciler replaces the batch reconciler.
func WithReconciler(r domain.Reconciler) DriverOption {
	return domain.WithReconciler(r)
}

// WithMongoDatabase overrides the database of the connection string.
func WithMongoDatabase(db string) MongoOption {
	return domain.WithMongoDatabase(db)
}

// WithMongoAppName sets the application name reported to the server.
func WithMongoAppName(name string) MongoOption {
	return domain.WithMongoAppName(name)
}

// WithMongoConnectTimeout limits dialing a server.
func WithMongoConnectTimeout(d time.Duration) MongoOption {
	return domain.WithMongoConnectTimeout(d)
}

// WithMongoServerSelectionTimeout limits waiting for a suitable server.
func WithMongoServerSelectionTimeout(d time.Duration) MongoOption {
	return domain.WithMongoServerSelectionTimeout(d)
}

// WithProjection selects the fields returned by find operations.
func WithProjection(p Projection) Option {
	return domain.WithProjection(p)
}

// WithSort sets the result order, or which document a per-entity verb picks
// when several match.
func WithSort(s Sort) Option {
	return domain.WithSort(s)
}

// WithSkip skips the first n results.
func WithSkip(n int64) Option {
	return domain.WithSkip(n)
}

// WithLimit limits the number of results.
func WithLimit(n int64) Option {
	return domain.WithLimit(n)
}

// WithUpsert makes [Driver.UpdateQuery] create a document when none matches.
func WithUpsert(u bool) Option {
	return domain.WithUpsert(u)
}

// WithMulti makes query-scoped verbs affect every match.
func WithMulti(m bool) Option {
	return domain.WithMulti(m)
}

// WithNew selects whether [Driver.Update] returns documents as they are after
// the change (the default) or before it.
func WithNew(n bool) Option {
	return domain.WithNew(n)
}
