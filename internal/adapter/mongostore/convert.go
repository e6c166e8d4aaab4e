package mongostore

import (
	"github.com/kolypto/missymongo/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// document converts a nil filter or document to an empty one, which the
// driver accepts where it rejects a nil map.
func document[M ~map[string]any](m M) bson.M {
	if m == nil {
		return bson.M{}
	}
	return bson.M(m)
}

func projectionDoc(p domain.Projection) bson.M {
	res := make(bson.M, len(p))
	for k, v := range p {
		res[k] = v
	}
	return res
}

func sortDoc(sort domain.Sort) bson.D {
	res := make(bson.D, 0, len(sort))
	for _, s := range sort {
		order := 1
		if s.Order < 0 {
			order = -1
		}
		res = append(res, bson.E{Key: s.Key, Value: order})
	}
	return res
}

// entity converts a decoded document to an entity, replacing the driver's
// document and array types with plain maps and slices.
func entity(raw bson.M) domain.Entity {
	return domain.Entity(plainMap(raw))
}

func plainMap(m map[string]any) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = plain(v)
	}
	return res
}

func plain(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case primitive.D:
		res := make(map[string]any, len(t))
		for _, e := range t {
			res[e.Key] = plain(e.Value)
		}
		return res
	case primitive.A:
		res := make([]any, len(t))
		for n, e := range t {
			res[n] = plain(e)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, e := range t {
			res[n] = plain(e)
		}
		return res
	default:
		return v
	}
}
