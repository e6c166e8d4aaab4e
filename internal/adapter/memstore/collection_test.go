package memstore

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kolypto/missymongo/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ctx = context.Background()

type M = map[string]any

type CollectionTestSuite struct {
	suite.Suite
	client *Client
	c      *Collection
}

func (s *CollectionTestSuite) SetupTest() {
	s.client = NewClient().(*Client)
	s.c = s.client.Collection("users").(*Collection)
}

func (s *CollectionTestSuite) insert(docs ...domain.Entity) {
	s.Require().NoError(s.c.Insert(ctx, docs))
}

func (s *CollectionTestSuite) TestClient() {
	s.Same(s.c, s.client.Collection("users"))
	s.Equal("users", s.c.Name())
	s.NoError(s.client.Ping(ctx))

	s.insert(domain.Entity{"_id": 1})
	s.NoError(s.client.Close(ctx))

	conn := NewConnector(s.client)
	cl, err := conn(ctx)
	s.NoError(err)
	n, err := cl.Collection("users").Count(ctx, domain.Criteria{}, domain.FindOptions{})
	s.NoError(err)
	s.Equal(int64(1), n)

	s.client.Drop("users")
	n, err = s.client.Collection("users").Count(ctx, domain.Criteria{}, domain.FindOptions{})
	s.NoError(err)
	s.Zero(n)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewConnector(nil)(cancelled)
	s.ErrorIs(err, context.Canceled)
}

func (s *CollectionTestSuite) TestInsert() {
	s.Run("AssignsID", func() {
		doc := domain.Entity{"login": "x"}
		s.insert(doc)
		s.IsType(primitive.ObjectID{}, doc["_id"])

		found, err := s.c.FindOne(ctx, domain.Criteria{"_id": doc["_id"]}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(domain.Entity{"_id": doc["_id"], "login": "x"}, found)
	})

	s.Run("StoresCopy", func() {
		doc := domain.Entity{"_id": 10, "tags": []any{"a"}}
		s.insert(doc)
		doc["tags"].([]any)[0] = "changed"

		found, err := s.c.FindOne(ctx, domain.Criteria{"_id": 10}, domain.FindOptions{})
		s.NoError(err)
		s.Equal([]any{"a"}, found["tags"])
	})

	s.Run("Duplicate", func() {
		s.insert(domain.Entity{"_id": 20, "login": "a"})
		err := s.c.Insert(ctx, []domain.Entity{{"_id": 21}, {"_id": 20, "login": "b"}, {"_id": 22}})
		var dup *domain.ErrDuplicateKey
		s.Require().ErrorAs(err, &dup)
		s.Equal(1, dup.Index)

		// ordered: documents before the duplicate are kept
		n, err := s.c.Count(ctx, domain.Criteria{"_id": M{"$in": []any{21, 22}}}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(1), n)

		found, err := s.c.FindOne(ctx, domain.Criteria{"_id": 20}, domain.FindOptions{})
		s.NoError(err)
		s.Equal("a", found["login"])
	})
}

func (s *CollectionTestSuite) TestFind() {
	s.insert(
		domain.Entity{"_id": 1, "login": "a", "age": 30, "roles": []any{"admin"}},
		domain.Entity{"_id": 2, "login": "b", "age": 20},
		domain.Entity{"_id": 3, "login": "c", "age": 40, "roles": []any{"user"}},
	)

	s.Run("NaturalOrder", func() {
		docs, err := s.c.Find(ctx, domain.Criteria{}, domain.FindOptions{})
		s.NoError(err)
		s.Len(docs, 3)
		s.Equal(1, docs[0]["_id"])
		s.Equal(3, docs[2]["_id"])
	})

	s.Run("SortSkipLimit", func() {
		docs, err := s.c.Find(ctx, nil, domain.FindOptions{
			Sort:  domain.Sort{{Key: "age", Order: -1}},
			Skip:  1,
			Limit: 1,
		})
		s.NoError(err)
		s.Equal([]domain.Entity{{"_id": 1, "login": "a", "age": 30, "roles": []any{"admin"}}}, docs)

		docs, err = s.c.Find(ctx, nil, domain.FindOptions{Skip: 5})
		s.NoError(err)
		s.Empty(docs)
	})

	s.Run("Projection", func() {
		docs, err := s.c.Find(ctx, domain.Criteria{"_id": 2}, domain.FindOptions{
			Projection: domain.Projection{"login": 1},
		})
		s.NoError(err)
		s.Equal([]domain.Entity{{"_id": 2, "login": "b"}}, docs)

		docs, err = s.c.Find(ctx, domain.Criteria{"_id": 2}, domain.FindOptions{
			Projection: domain.Projection{"login": 0, "_id": 0},
		})
		s.NoError(err)
		s.Equal([]domain.Entity{{"age": 20}}, docs)

		_, err = s.c.Find(ctx, nil, domain.FindOptions{
			Projection: domain.Projection{"login": 0, "age": 1},
		})
		s.ErrorIs(err, domain.ErrMixedProjection)
	})

	s.Run("Operators", func() {
		n, err := s.c.Count(ctx, domain.Criteria{"age": M{"$gte": 30}}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(2), n)

		n, err = s.c.Count(ctx, domain.Criteria{"roles": "admin"}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(1), n)

		n, err = s.c.Count(ctx, domain.Criteria{"roles": M{"$exists": false}}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(1), n)

		n, err = s.c.Count(ctx, domain.Criteria{"$or": []any{M{"login": "a"}, M{"login": "c"}}}, domain.FindOptions{Limit: 1})
		s.NoError(err)
		s.Equal(int64(1), n)

		_, err = s.c.Count(ctx, domain.Criteria{"age": M{"$near": 1}}, domain.FindOptions{})
		var unknown *domain.ErrUnknownOperator
		s.ErrorAs(err, &unknown)
		s.Equal("$near", unknown.Operator)
	})

	s.Run("FindOneMissing", func() {
		doc, err := s.c.FindOne(ctx, domain.Criteria{"_id": 99}, domain.FindOptions{})
		s.NoError(err)
		s.Nil(doc)
	})
}

func (s *CollectionTestSuite) TestUpdate() {
	s.insert(
		domain.Entity{"_id": 1, "group": "g", "n": 1},
		domain.Entity{"_id": 2, "group": "g", "n": 2},
	)

	s.Run("Single", func() {
		matched, err := s.c.Update(ctx, domain.Criteria{"group": "g"}, domain.Update{"$inc": M{"n": 10}}, domain.UpdateOptions{})
		s.NoError(err)
		s.Equal(int64(1), matched)

		docs, err := s.c.Find(ctx, domain.Criteria{"n": M{"$gt": 5}}, domain.FindOptions{})
		s.NoError(err)
		s.Len(docs, 1)
	})

	s.Run("Multi", func() {
		matched, err := s.c.Update(ctx, domain.Criteria{"group": "g"}, domain.Update{"$set": M{"flag": true}}, domain.UpdateOptions{Multi: true})
		s.NoError(err)
		s.Equal(int64(2), matched)

		n, err := s.c.Count(ctx, domain.Criteria{"flag": true}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(2), n)
	})

	s.Run("NoMatch", func() {
		matched, err := s.c.Update(ctx, domain.Criteria{"group": "x"}, domain.Update{"$set": M{"a": 1}}, domain.UpdateOptions{})
		s.NoError(err)
		s.Zero(matched)
	})

	s.Run("Upsert", func() {
		matched, err := s.c.Update(ctx,
			domain.Criteria{"_id": 5, "group": M{"$eq": "h"}, "n": M{"$gt": 1}},
			domain.Update{"$set": M{"x": 1}},
			domain.UpdateOptions{Upsert: true},
		)
		s.NoError(err)
		s.Zero(matched)

		doc, err := s.c.FindOne(ctx, domain.Criteria{"_id": 5}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(domain.Entity{"_id": 5, "group": "h", "x": 1}, doc)
	})

	s.Run("CannotChangeID", func() {
		_, err := s.c.Update(ctx, domain.Criteria{"_id": 1}, domain.Update{"$set": M{"_id": 100}}, domain.UpdateOptions{})
		s.ErrorIs(err, domain.ErrCannotModifyID)
	})
}

func (s *CollectionTestSuite) TestRemove() {
	s.insert(
		domain.Entity{"_id": 1, "group": "g"},
		domain.Entity{"_id": 2, "group": "g"},
		domain.Entity{"_id": 3, "group": "g"},
	)

	n, err := s.c.Remove(ctx, domain.Criteria{"group": "g"}, domain.RemoveOptions{})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = s.c.Remove(ctx, domain.Criteria{"group": "g"}, domain.RemoveOptions{Multi: true})
	s.NoError(err)
	s.Equal(int64(2), n)

	n, err = s.c.Count(ctx, nil, domain.FindOptions{})
	s.NoError(err)
	s.Zero(n)

	// removed ids can be reused
	s.insert(domain.Entity{"_id": 1})
}

func (s *CollectionTestSuite) TestFindAndModify() {
	s.insert(domain.Entity{"_id": 1, "login": "a", "roles": []any{"x"}})

	s.Run("Replace", func() {
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 1}, nil,
			domain.Entity{"_id": 1, "login": "b"}, domain.FindAndModifyOptions{New: true})
		s.NoError(err)
		s.True(res.Matched)
		s.Equal(domain.Entity{"_id": 1, "login": "b"}, res.Document)

		res, err = s.c.FindAndModify(ctx, domain.Criteria{"_id": 1}, nil,
			domain.Entity{"login": "c"}, domain.FindAndModifyOptions{})
		s.NoError(err)
		s.True(res.Matched)
		s.Equal(domain.Entity{"_id": 1, "login": "b"}, res.Document)

		doc, err := s.c.FindOne(ctx, domain.Criteria{"_id": 1}, domain.FindOptions{})
		s.NoError(err)
		s.Equal(domain.Entity{"_id": 1, "login": "c"}, doc)
	})

	s.Run("NoMatch", func() {
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 2}, nil,
			domain.Entity{"_id": 2}, domain.FindAndModifyOptions{New: true})
		s.NoError(err)
		s.False(res.Matched)
		s.Nil(res.Document)

		n, err := s.c.Count(ctx, domain.Criteria{"_id": 2}, domain.FindOptions{})
		s.NoError(err)
		s.Zero(n)
	})

	s.Run("Upsert", func() {
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 3}, nil,
			domain.Entity{"_id": 3, "login": "d"}, domain.FindAndModifyOptions{Upsert: true, New: true})
		s.NoError(err)
		s.False(res.Matched)
		s.Equal(domain.Entity{"_id": 3, "login": "d"}, res.Document)

		res, err = s.c.FindAndModify(ctx, domain.Criteria{"_id": 4}, nil,
			domain.Entity{"_id": 4}, domain.FindAndModifyOptions{Upsert: true})
		s.NoError(err)
		s.False(res.Matched)
		s.Nil(res.Document)
	})

	s.Run("Remove", func() {
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 3}, nil, nil,
			domain.FindAndModifyOptions{Remove: true})
		s.NoError(err)
		s.True(res.Matched)
		s.Equal(domain.Entity{"_id": 3, "login": "d"}, res.Document)

		res, err = s.c.FindAndModify(ctx, domain.Criteria{"_id": 3}, nil, nil,
			domain.FindAndModifyOptions{Remove: true, Upsert: true})
		s.NoError(err)
		s.False(res.Matched)
		s.Nil(res.Document)
	})

	s.Run("Sort", func() {
		s.insert(domain.Entity{"_id": 10, "k": "s", "n": 1}, domain.Entity{"_id": 11, "k": "s", "n": 2})
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"k": "s"}, domain.Sort{{Key: "n", Order: -1}},
			domain.Entity{"$set": M{"top": true}}, domain.FindAndModifyOptions{New: true})
		s.NoError(err)
		s.Equal(11, res.Document["_id"])
		s.Equal(true, res.Document["top"])
	})

	s.Run("ChangeID", func() {
		_, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 1}, nil,
			domain.Entity{"_id": 7}, domain.FindAndModifyOptions{})
		s.ErrorIs(err, domain.ErrCannotModifyID)
	})
}

func (s *CollectionTestSuite) TestOpaqueIDs() {
	dec1, err := primitive.ParseDecimal128("1.5")
	s.Require().NoError(err)
	dec2, err := primitive.ParseDecimal128("2.5")
	s.Require().NoError(err)
	oid1, oid2 := primitive.NewObjectID(), primitive.NewObjectID()

	testCases := []struct {
		name string
		a, b any
	}{
		{name: "UUID", a: uuid.New(), b: uuid.New()},
		{name: "Binary", a: primitive.Binary{Subtype: 4, Data: []byte{1}}, b: primitive.Binary{Subtype: 4, Data: []byte{2}}},
		{name: "Decimal128", a: dec1, b: dec2},
		{name: "ObjectIDPointer", a: &oid1, b: &oid2},
		{name: "Struct", a: struct{ N int }{1}, b: struct{ N int }{2}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.insert(domain.Entity{"_id": tc.a, "login": "a"})
			s.insert(domain.Entity{"_id": tc.b, "login": "b"})

			err := s.c.Insert(ctx, []domain.Entity{{"_id": tc.a}})
			s.ErrorAs(err, new(*domain.ErrDuplicateKey))

			found, err := s.c.FindOne(ctx, domain.Criteria{"_id": tc.b}, domain.FindOptions{})
			s.NoError(err)
			s.Equal("b", found["login"])

			res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": tc.b}, nil,
				domain.Entity{"_id": tc.b, "login": "c"}, domain.FindAndModifyOptions{New: true})
			s.NoError(err)
			s.True(res.Matched)
			s.Equal("c", res.Document["login"])

			found, err = s.c.FindOne(ctx, domain.Criteria{"_id": tc.a}, domain.FindOptions{})
			s.NoError(err)
			s.Equal("a", found["login"])

			s.client.Drop("users")
			s.c = s.client.Collection("users").(*Collection)
		})
	}

	s.Run("UpsertNewKey", func() {
		stored := uuid.New()
		s.insert(domain.Entity{"_id": stored, "login": "a"})

		key := uuid.New()
		res, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": key}, nil,
			domain.Entity{"_id": key, "login": "b"}, domain.FindAndModifyOptions{Upsert: true, New: true})
		s.NoError(err)
		s.False(res.Matched)
		s.Equal(domain.Entity{"_id": key, "login": "b"}, res.Document)

		n, err := s.c.Count(ctx, nil, domain.FindOptions{})
		s.NoError(err)
		s.Equal(int64(2), n)
	})
}

// Removing nodes with two children must keep every other key reachable
// through the _id index.
func (s *CollectionTestSuite) TestIndexAfterRemove() {
	keys := []int{50, 30, 80, 20, 40, 70, 90, 10, 35, 45, 85}
	for _, k := range keys {
		s.insert(domain.Entity{"_id": k})
	}

	removed := []int{30, 50, 80}
	for _, k := range removed {
		n, err := s.c.Remove(ctx, domain.Criteria{"_id": k}, domain.RemoveOptions{})
		s.NoError(err)
		s.Equal(int64(1), n)
	}
	_, err := s.c.FindAndModify(ctx, domain.Criteria{"_id": 20}, nil, nil, domain.FindAndModifyOptions{Remove: true})
	s.NoError(err)
	removed = append(removed, 20)

	for _, k := range keys {
		found, err := s.c.FindOne(ctx, domain.Criteria{"_id": k}, domain.FindOptions{})
		s.NoError(err)
		if slices.Contains(removed, k) {
			s.Nil(found, "%d", k)
			continue
		}
		s.Equal(domain.Entity{"_id": k}, found, "%d", k)
		s.ErrorAs(s.c.Insert(ctx, []domain.Entity{{"_id": k}}), new(*domain.ErrDuplicateKey), "%d", k)
	}
}

func (s *CollectionTestSuite) TestCancelledWhileLocked() {
	s.Require().NoError(s.c.executor.lock(ctx))
	defer s.c.executor.unlock()

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err := s.c.Find(timeout, nil, domain.FindOptions{})
	s.ErrorIs(err, context.DeadlineExceeded)
}

func TestCollectionTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionTestSuite))
}
