package domain

// DefaultPrimaryKey is used by [Model.PrimaryKey] when a model does not
// declare its own key fields.
const DefaultPrimaryKey = "_id"

// Entity is a single persisted value, mapping field names to values.
// Entities are passed in by the host and returned back, possibly with
// store-assigned fields set in place.
type Entity map[string]any

// Criteria maps field names to either a literal value (implicit equality) or
// an operator object such as {"$gt": 3}.
type Criteria map[string]any

// Projection maps field names to an inclusion flag (1 or 0).
type Projection map[string]int

// Update maps mutation operators ($set, $inc, ...) to their field/value
// mappings. An update without operators is a whole document replacement.
type Update map[string]any

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// Model describes an entity kind as configured by the host framework.
type Model struct {
	// Name identifies the model in errors and logs.
	Name string
	// Table is the collection name. Name is used when empty.
	Table string
	// PK is the ordered list of primary key fields.
	PK []string
	// Fields maps field names to the value type name registered in the
	// [Schema]. Fields without a registered type are stored as is.
	Fields map[string]string
}

// PrimaryKey returns the primary key fields, defaulting to _id.
func (m Model) PrimaryKey() []string {
	if len(m.PK) == 0 {
		return []string{DefaultPrimaryKey}
	}
	return m.PK
}

// Collection returns the collection name of the model.
func (m Model) Collection() string {
	if m.Table != "" {
		return m.Table
	}
	return m.Name
}

// Key builds a filter matching the entity by its primary key. The second
// return value is false if any key field is missing or nil.
func (m Model) Key(entity Entity) (Criteria, bool) {
	pk := m.PrimaryKey()
	key := make(Criteria, len(pk))
	for _, f := range pk {
		v, ok := entity[f]
		if !ok || v == nil {
			return nil, false
		}
		key[f] = v
	}
	return key, true
}

// Field identifies the entity field a [TypeHandler] is applied to.
type Field struct {
	Model string
	Name  string
	Type  string
}

// FindAndModifyResult is the raw outcome of [Collection.FindAndModify].
type FindAndModifyResult struct {
	// Document is the old or new document, depending on
	// FindAndModifyOptions.New. It is nil if nothing was returned.
	Document Entity
	// Matched reports whether an existing document matched the filter.
	Matched bool
}

// State is the connection state of a [Driver].
type State int

const (
	// StateDisconnected is the initial state.
	StateDisconnected State = iota
	// StateConnecting is set while the [Connector] is running.
	StateConnecting
	// StateConnected means a client is available.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
