package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by errors.Is for every *[ErrEntityNotFound].
	ErrNotFound = errors.New("entity not found")
	// ErrAlreadyExists is matched by errors.Is for every *[ErrEntityExists].
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrNotConnected is returned by data operations issued while the
	// driver is not connected.
	ErrNotConnected = errors.New("driver is not connected")
	// ErrAlreadyConnected is returned by [Driver.Connect] unless the driver
	// is disconnected.
	ErrAlreadyConnected = errors.New("driver is already connected")
	// ErrNoConnector is returned when a driver is created without a
	// [Connector].
	ErrNoConnector = errors.New("no connector configured")
	// ErrNoDatabase is returned when a connection string does not name a
	// database and none was configured.
	ErrNoDatabase = errors.New("no database name given")
	// ErrNoSchema is returned by [Driver.BindSchema] when given a nil
	// schema.
	ErrNoSchema = errors.New("schema is nil")
	// ErrTargetNil is returned by [Decoder.Decode] when the target is nil.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned by [Decoder.Decode] when the target is not a
	// pointer.
	ErrNonPointer = errors.New("target must be a pointer")
	// ErrCannotModifyID is returned when an update would change the _id of
	// an existing document.
	ErrCannotModifyID = errors.New("the _id field cannot be changed")
	// ErrMixedUpdate is returned when an update mixes operators with plain
	// fields.
	ErrMixedUpdate = errors.New("cannot mix update operators and plain fields")
	// ErrMixedProjection is returned when a projection mixes included and
	// excluded fields.
	ErrMixedProjection = errors.New("cannot mix inclusion and exclusion in projection")
)

// ErrEntityNotFound is returned when a targeted entity or criteria set had no
// matching document at mutation time.
type ErrEntityNotFound struct {
	Model    string
	Entity   Entity
	Criteria Criteria
}

func (e *ErrEntityNotFound) Error() string {
	if e.Entity != nil {
		return fmt.Sprintf("%s: entity not found: %v", e.Model, e.Entity)
	}
	return fmt.Sprintf("%s: entity not found: %v", e.Model, e.Criteria)
}

// Is reports whether target is [ErrNotFound].
func (e *ErrEntityNotFound) Is(target error) bool { return target == ErrNotFound }

// ErrEntityExists is returned when a uniqueness constraint rejected an insert.
type ErrEntityExists struct {
	Model  string
	Entity Entity
	Err    error
}

func (e *ErrEntityExists) Error() string {
	return fmt.Sprintf("%s: entity already exists: %v", e.Model, e.Entity)
}

// Is reports whether target is [ErrAlreadyExists].
func (e *ErrEntityExists) Is(target error) bool { return target == ErrAlreadyExists }

func (e *ErrEntityExists) Unwrap() error { return e.Err }

// ErrBatch tags the error of a batch operation with the position and value of
// the entity that caused it. For the per-entity verbs, entities before Index
// have already taken effect. Insert writes nothing when an entity fails to
// convert.
type ErrBatch struct {
	Operation string
	Index     int
	Entity    Entity
	Err       error
}

func (e *ErrBatch) Error() string {
	return fmt.Sprintf("%s: entity %d: %s", e.Operation, e.Index, e.Err.Error())
}

func (e *ErrBatch) Unwrap() error { return e.Err }

// ErrDuplicateKey is the store signal for a uniqueness violation. Index is the
// position of the offending document in the inserted batch, or -1 if unknown.
type ErrDuplicateKey struct {
	Index int
	Err   error
}

func (e *ErrDuplicateKey) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("duplicate key at document %d", e.Index)
	}
	return fmt.Sprintf("duplicate key at document %d: %s", e.Index, e.Err.Error())
}

func (e *ErrDuplicateKey) Unwrap() error { return e.Err }

// ErrInvalidObjectID is returned by the identifier codec when a value cannot
// be converted into an object id.
type ErrInvalidObjectID struct {
	Value any
}

func (e *ErrInvalidObjectID) Error() string {
	return fmt.Sprintf("cannot convert %T(%v) to ObjectID", e.Value, e.Value)
}

// ErrInvalidTypeHandler is returned by [Schema.RegisterType] when called with
// an empty name or a nil handler.
type ErrInvalidTypeHandler struct {
	Name string
}

func (e *ErrInvalidTypeHandler) Error() string {
	return fmt.Sprintf("invalid type handler for %q", e.Name)
}

// ErrUnknownOperator is returned by the embedded store when a query or update
// uses an operator it does not implement.
type ErrUnknownOperator struct {
	Operator string
}

func (e *ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrDecode is returned by [Decoder.Decode] to easily wrap third party decoding
// errors.
type ErrDecode struct {
	Source any
	Target any
	Err    error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T: %s", e.Source, e.Target, e.Err.Error())
}

func (e ErrDecode) Unwrap() error { return e.Err }
