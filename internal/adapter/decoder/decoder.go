// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"reflect"

	goreflect "github.com/goccy/go-reflect"
	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TagName is the struct tag read by the decoder.
const TagName = "missy"

var objectIDType = reflect.TypeOf(primitive.ObjectID{})

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}
	if goreflect.ValueNoEscapeOf(target).Kind() != goreflect.Ptr {
		return domain.ErrNonPointer
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    TagName,
		Result:     target,
		DecodeHook: objectIDToString,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data.Clone(source)); err != nil {
		return domain.ErrDecode{Source: source, Target: target, Err: err}
	}
	return nil
}

func objectIDToString(from reflect.Type, to reflect.Type, v any) (any, error) {
	if from != objectIDType || to.Kind() != reflect.String {
		return v, nil
	}
	return v.(primitive.ObjectID).Hex(), nil
}
