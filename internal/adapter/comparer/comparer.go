// Package comparer contains the default [domain.Comparer] implementation.
package comparer

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"time"

	goreflect "github.com/goccy/go-reflect"
	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comparer implements domain.Comparer. Values of different kinds are ordered
// the way the store orders BSON types: null, numbers, strings, documents,
// arrays, binary data, object ids, booleans and dates. Values of any other
// type sort last, by type name and then by their printed form, so every pair
// of values has an order.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer.
func (c *Comparer) Comparable(a, b any) bool {
	a, b = c.deref(a), c.deref(b)
	ka, kb := c.kind(a), c.kind(b)
	if ka == kindOther && kb == kindOther {
		return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
	}
	return ka == kb
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	a, b = c.deref(a), c.deref(b)
	ka, kb := c.kind(a), c.kind(b)
	if ka != kb {
		return cmp.Compare(ka, kb), nil
	}

	switch ka {
	case kindNil:
		return 0, nil
	case kindNumber:
		na, _ := c.asNumber(a)
		nb, _ := c.asNumber(b)
		// big.Float avoids precision loss between float64 and int64
		return na.Cmp(nb), nil
	case kindString:
		return cmp.Compare(a.(string), b.(string)), nil
	case kindDoc:
		ma, _ := data.AsMap(a)
		mb, _ := data.AsMap(b)
		return c.compareDoc(ma, mb)
	case kindArray:
		la, _ := data.AsList(a)
		lb, _ := data.AsList(b)
		return c.compareArray(la, lb)
	case kindBinary:
		ba, _ := c.asBinary(a)
		bb, _ := c.asBinary(b)
		return c.compareBinary(ba, bb), nil
	case kindObjectID:
		oa, ob := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(oa[:], ob[:]), nil
	case kindBool:
		return c.compareBool(a.(bool), b.(bool)), nil
	case kindTime:
		return c.asTime(a).Compare(c.asTime(b)), nil
	default:
		return c.compareOther(a, b), nil
	}
}

type kind int

const (
	kindNil kind = iota
	kindNumber
	kindString
	kindDoc
	kindArray
	kindBinary
	kindObjectID
	kindBool
	kindTime
	kindOther
)

func (c *Comparer) kind(v any) kind {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return kindNil
	case string:
		return kindString
	case primitive.ObjectID:
		return kindObjectID
	case bool:
		return kindBool
	case time.Time, primitive.DateTime:
		return kindTime
	}
	if _, ok := c.asNumber(v); ok {
		return kindNumber
	}
	if _, ok := data.AsMap(v); ok {
		return kindDoc
	}
	if _, ok := c.asBinary(v); ok {
		return kindBinary
	}
	if _, ok := data.AsList(v); ok {
		return kindArray
	}
	return kindOther
}

// deref replaces non-nil pointers with the value they point to, and nil
// pointers with nil.
func (c *Comparer) deref(v any) any {
	for v != nil {
		r := goreflect.ValueNoEscapeOf(v)
		if r.Kind() != goreflect.Ptr {
			return v
		}
		if r.IsNil() {
			return nil
		}
		v = r.Elem().Interface()
	}
	return v
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

// compareBinary orders by length, then subtype, then content.
func (c *Comparer) compareBinary(a, b primitive.Binary) int {
	if comp := cmp.Compare(len(a.Data), len(b.Data)); comp != 0 {
		return comp
	}
	if comp := cmp.Compare(a.Subtype, b.Subtype); comp != 0 {
		return comp
	}
	return bytes.Compare(a.Data, b.Data)
}

func (c *Comparer) compareOther(a, b any) int {
	if comp := cmp.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); comp != 0 {
		return comp
	}
	return cmp.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func (c *Comparer) compareDoc(a, b map[string]any) (int, error) {
	aKeys := slices.Sorted(maps.Keys(a))
	bKeys := slices.Sorted(maps.Keys(b))

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := cmp.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(a[aKeys[i]], b[bKeys[i]])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}
	return cmp.Compare(len(aKeys), len(bKeys)), nil
}

func (c *Comparer) asTime(v any) time.Time {
	if dt, ok := v.(primitive.DateTime); ok {
		return dt.Time()
	}
	return v.(time.Time)
}

// asBinary accepts byte slices, [primitive.Binary] and byte arrays such as
// uuid.UUID. ObjectIDs have their own kind and are never binary.
func (c *Comparer) asBinary(v any) (primitive.Binary, bool) {
	switch b := v.(type) {
	case primitive.Binary:
		return b, true
	case []byte:
		return primitive.Binary{Data: b}, true
	case primitive.ObjectID:
		return primitive.Binary{}, false
	}
	r := goreflect.ValueNoEscapeOf(v)
	if r.Kind() != goreflect.Array || r.Type().Elem().Kind() != goreflect.Uint8 {
		return primitive.Binary{}, false
	}
	b := make([]byte, r.Len())
	for i := range b {
		b[i] = byte(r.Index(i).Uint())
	}
	return primitive.Binary{Data: b}, true
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case primitive.Decimal128:
		return c.decimal(n)
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}

func (c *Comparer) decimal(d primitive.Decimal128) (*big.Float, bool) {
	if d.IsNaN() {
		return nil, false
	}
	if sign := d.IsInf(); sign != 0 {
		return new(big.Float).SetInf(sign < 0), true
	}
	mant, exp, err := d.BigInt()
	if err != nil {
		return nil, false
	}
	r := new(big.Float).SetPrec(128).SetInt(mant)
	pow := new(big.Float).SetPrec(128).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(exp))), nil))
	if exp < 0 {
		return r.Quo(r, pow), true
	}
	return r.Mul(r, pow), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
