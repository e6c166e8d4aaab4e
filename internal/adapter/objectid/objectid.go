// Package objectid contains the [domain.TypeHandler] for the store's native
// identifier type.
package objectid

import (
	"github.com/go-openapi/strfmt"
	"github.com/kolypto/missymongo/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TypeName is the name the handler is registered under.
const TypeName = "ObjectID"

// Handler implements domain.TypeHandler.
type Handler struct{}

// NewHandler returns a new implementation of domain.TypeHandler.
func NewHandler() domain.TypeHandler {
	return &Handler{}
}

// Norm implements domain.TypeHandler.
func (h *Handler) Norm(value any, _ domain.Field) (any, error) {
	return value, nil
}

// Load implements domain.TypeHandler.
func (h *Handler) Load(value any, _ domain.Field) (any, error) {
	return value, nil
}

// Save implements domain.TypeHandler. Nil and native identifiers are kept,
// anything else is converted to a primitive.ObjectID.
func (h *Handler) Save(value any, _ domain.Field) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case primitive.ObjectID:
		return v, nil
	case *primitive.ObjectID:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case strfmt.ObjectId:
		return primitive.ObjectID(v), nil
	case *strfmt.ObjectId:
		if v == nil {
			return nil, nil
		}
		return primitive.ObjectID(*v), nil
	case string:
		if !strfmt.IsBSONObjectID(v) {
			return nil, &domain.ErrInvalidObjectID{Value: value}
		}
		return primitive.ObjectIDFromHex(v)
	case [12]byte:
		return primitive.ObjectID(v), nil
	case []byte:
		if len(v) != 12 {
			return nil, &domain.ErrInvalidObjectID{Value: value}
		}
		return primitive.ObjectID([12]byte(v)), nil
	default:
		return nil, &domain.ErrInvalidObjectID{Value: value}
	}
}
