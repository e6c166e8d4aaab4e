package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kolypto/missymongo/domain"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestOptions() {
	var opts domain.Options
	o := []domain.Option{
		domain.WithProjection(domain.Projection{"a": 1}),
		domain.WithSkip(2),
		domain.WithLimit(3),
		domain.WithSort(domain.Sort{{Key: "a", Order: -1}}),
		domain.WithUpsert(true),
		domain.WithMulti(true),
		domain.WithNew(true),
	}
	for _, opt := range o {
		opt(&opts)
	}
	s.Equal(domain.Options{
		Projection: domain.Projection{"a": 1},
		Skip:       2,
		Limit:      3,
		Sort:       domain.Sort{{Key: "a", Order: -1}},
		Upsert:     true,
		Multi:      true,
		New:        true,
	}, opts)

	var copied domain.Options
	domain.WithOptions(opts)(&copied)
	s.Equal(opts, copied)
}

func (s *DomainTestSuite) TestReconcileOptions() {
	var ro domain.ReconcileOptions
	sort := domain.Sort{{Key: "b", Order: 1}}
	for _, opt := range []domain.ReconcileOption{
		domain.WithReconcileOperation("save"),
		domain.WithReconcileFindAndModify(domain.FindAndModifyOptions{Upsert: true, New: true}),
		domain.WithReconcileSort(sort),
		domain.WithReconcileClassifier(nil),
		domain.WithReconcileMissingKey(nil),
		domain.WithReconcilePrepare(func(e domain.Entity) (domain.Entity, error) { return e, nil }),
	} {
		opt(&ro)
	}
	s.Equal("save", ro.Operation)
	s.Equal(domain.FindAndModifyOptions{Upsert: true, New: true}, ro.FindAndModify)
	s.Equal(sort, ro.Sort)
	s.Nil(ro.Classifier)
	s.Nil(ro.MissingKey)
	s.NotNil(ro.Prepare)
}

func (s *DomainTestSuite) TestDriverAndMongoOptions() {
	l := zap.NewNop()
	var do domain.DriverOptions
	domain.WithLogger(l)(&do)
	s.Same(l, do.Logger)

	var mo domain.MongoOptions
	for _, opt := range []domain.MongoOption{
		domain.WithMongoDatabase("db"),
		domain.WithMongoAppName("app"),
		domain.WithMongoConnectTimeout(time.Second),
		domain.WithMongoServerSelectionTimeout(2 * time.Second),
	} {
		opt(&mo)
	}
	s.Equal(domain.MongoOptions{
		Database:               "db",
		AppName:                "app",
		ConnectTimeout:         time.Second,
		ServerSelectionTimeout: 2 * time.Second,
	}, mo)
}

func (s *DomainTestSuite) TestModel() {
	s.Run("DefaultKey", func() {
		m := domain.Model{Name: "users"}
		s.Equal([]string{"_id"}, m.PrimaryKey())
		s.Equal("users", m.Collection())

		key, ok := m.Key(domain.Entity{"_id": 1, "login": "a"})
		s.True(ok)
		s.Equal(domain.Criteria{"_id": 1}, key)

		_, ok = m.Key(domain.Entity{"login": "a"})
		s.False(ok)

		_, ok = m.Key(domain.Entity{"_id": nil})
		s.False(ok)
	})

	s.Run("CompositeKey", func() {
		m := domain.Model{Name: "User", Table: "users", PK: []string{"a", "b"}}
		s.Equal("users", m.Collection())

		key, ok := m.Key(domain.Entity{"a": 1, "b": 2, "c": 3})
		s.True(ok)
		s.Equal(domain.Criteria{"a": 1, "b": 2}, key)

		_, ok = m.Key(domain.Entity{"a": 1})
		s.False(ok)
	})
}

func (s *DomainTestSuite) TestErrors() {
	nf := &domain.ErrEntityNotFound{Model: "users", Entity: domain.Entity{"_id": 4}}
	s.ErrorIs(nf, domain.ErrNotFound)
	s.NotErrorIs(nf, domain.ErrAlreadyExists)
	s.Equal("users: entity not found: map[_id:4]", nf.Error())

	nf = &domain.ErrEntityNotFound{Model: "users", Criteria: domain.Criteria{"a": 1}}
	s.Equal("users: entity not found: map[a:1]", nf.Error())

	dup := &domain.ErrDuplicateKey{Index: 1, Err: errors.New("E11000")}
	s.Equal("duplicate key at document 1: E11000", dup.Error())
	s.Equal("duplicate key at document -1", (&domain.ErrDuplicateKey{Index: -1}).Error())

	ex := &domain.ErrEntityExists{Model: "users", Entity: domain.Entity{"_id": 2}, Err: dup}
	s.ErrorIs(ex, domain.ErrAlreadyExists)
	var d *domain.ErrDuplicateKey
	s.ErrorAs(ex, &d)
	s.Equal(1, d.Index)

	batch := &domain.ErrBatch{Operation: "update", Index: 1, Entity: domain.Entity{"_id": 4}, Err: nf}
	s.ErrorIs(batch, domain.ErrNotFound)
	var target *domain.ErrEntityNotFound
	s.ErrorAs(batch, &target)
	s.Same(nf, target)
	s.Equal("update: entity 1: users: entity not found: map[a:1]", batch.Error())

	s.Equal("cannot convert int(5) to ObjectID", (&domain.ErrInvalidObjectID{Value: 5}).Error())
	s.Equal(`invalid type handler for "x"`, (&domain.ErrInvalidTypeHandler{Name: "x"}).Error())

	e := domain.ErrDecode{Source: 123, Target: "a", Err: errors.New("bad")}
	s.Equal("cannot decode int into string: bad", e.Error())
	s.ErrorIs(e, e.Err)
}

func (s *DomainTestSuite) TestState() {
	s.Equal("disconnected", domain.StateDisconnected.String())
	s.Equal("connecting", domain.StateConnecting.String())
	s.Equal("connected", domain.StateConnected.String())
	s.Equal("unknown", domain.State(42).String())
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
