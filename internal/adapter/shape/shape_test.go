package shape

import (
	"testing"

	"github.com/kolypto/missymongo/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

type ShapeTestSuite struct {
	suite.Suite
	a *Adapter
}

func (s *ShapeTestSuite) SetupTest() {
	s.a = NewAdapter().(*Adapter)
}

func (s *ShapeTestSuite) TestExplicitEquality() {
	criteria := domain.Criteria{
		"login": map[string]any{"$eq": "a"},
		"age":   bson.M{"$eq": 18},
		"_id":   domain.Criteria{"$eq": 1},
	}
	res := s.a.AdaptCriteria(criteria)
	s.Equal(domain.Criteria{"login": "a", "age": 18, "_id": 1}, res)

	// input is left untouched
	s.Equal(map[string]any{"$eq": "a"}, criteria["login"])
}

func (s *ShapeTestSuite) TestOtherShapesUnchanged() {
	criteria := domain.Criteria{
		"login": "a",
		"age":   map[string]any{"$gt": 3, "$lte": 10},
		"roles": map[string]any{"$in": []any{"x", "y"}},
		"tags":  []any{"a", "b"},
		"none":  nil,
	}
	s.Equal(criteria, s.a.AdaptCriteria(criteria))
	s.Nil(s.a.AdaptCriteria(nil))
	s.Equal(domain.Criteria{}, s.a.AdaptCriteria(domain.Criteria{}))
}

func (s *ShapeTestSuite) TestLogicalOperators() {
	criteria := domain.Criteria{
		"$or": []any{
			map[string]any{"a": map[string]any{"$eq": 1}},
			map[string]any{"b": 2},
		},
		"$and": "not a list",
	}
	s.Equal(domain.Criteria{
		"$or": []any{
			domain.Criteria{"a": 1},
			domain.Criteria{"b": 2},
		},
		"$and": "not a list",
	}, s.a.AdaptCriteria(criteria))
}

func (s *ShapeTestSuite) TestIdempotent() {
	inputs := []domain.Criteria{
		{"a": map[string]any{"$eq": 1}, "b": 2},
		{"a": map[string]any{"$gt": 1}},
		{"$nor": []any{map[string]any{"a": map[string]any{"$eq": "x"}}}},
		{},
	}
	for _, in := range inputs {
		once := s.a.AdaptCriteria(in)
		s.Equal(once, s.a.AdaptCriteria(once))
	}
}

func (s *ShapeTestSuite) TestIdentityAdapters() {
	p := domain.Projection{"a": 1, "b": 0}
	s.Equal(p, s.a.AdaptProjection(p))

	srt := domain.Sort{{Key: "a", Order: 1}, {Key: "b", Order: -1}}
	s.Equal(srt, s.a.AdaptSort(srt))

	u := domain.Update{"$set": map[string]any{"a": 1}}
	s.Equal(u, s.a.AdaptUpdate(u))
}

func TestShapeTestSuite(t *testing.T) {
	suite.Run(t, new(ShapeTestSuite))
}
