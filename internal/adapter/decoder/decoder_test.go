package decoder

import (
	"testing"

	"github.com/kolypto/missymongo/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type M = map[string]any

type DecoderTestSuite struct {
	suite.Suite
	d *Decoder
}

func (s *DecoderTestSuite) SetupTest() {
	s.d = NewDecoder().(*Decoder)
}

func (s *DecoderTestSuite) TestOptions() {
	var opts domain.Options
	err := s.d.Decode(M{
		"skip":       2,
		"limit":      10,
		"upsert":     true,
		"multi":      true,
		"new":        true,
		"projection": M{"login": 1},
		"unknown":    "ignored",
	}, &opts)
	s.NoError(err)
	s.Equal(domain.Options{
		Skip:       2,
		Limit:      10,
		Upsert:     true,
		Multi:      true,
		New:        true,
		Projection: domain.Projection{"login": 1},
	}, opts)
}

func (s *DecoderTestSuite) TestEntity() {
	type User struct {
		ID    string   `missy:"_id"`
		Login string   `missy:"login"`
		Roles []string `missy:"roles"`
		Age   int
	}

	id := primitive.NewObjectID()
	var u User
	err := s.d.Decode(domain.Entity{
		"_id":   id,
		"login": "a",
		"roles": []any{"x", "y"},
		"age":   18,
	}, &u)
	s.NoError(err)
	s.Equal(User{ID: id.Hex(), Login: "a", Roles: []string{"x", "y"}, Age: 18}, u)
}

func (s *DecoderTestSuite) TestObjectIDKept() {
	type Doc struct {
		ID primitive.ObjectID `missy:"_id"`
	}
	id := primitive.NewObjectID()
	var d Doc
	s.NoError(s.d.Decode(M{"_id": id}, &d))
	s.Equal(id, d.ID)
}

func (s *DecoderTestSuite) TestIncompatible() {
	type Incompatible struct {
		Number  uint
		Boolean bool
		Text    string
	}

	var tgt Incompatible
	s.ErrorAs(s.d.Decode(M{"number": -1}, &tgt), &domain.ErrDecode{})
	s.ErrorAs(s.d.Decode(M{"boolean": 1}, &tgt), &domain.ErrDecode{})
	s.ErrorAs(s.d.Decode(M{"text": 123}, &tgt), &domain.ErrDecode{})
}

func (s *DecoderTestSuite) TestInvalidTarget() {
	type Target struct{}

	var tgt Target
	s.ErrorIs(s.d.Decode(M{}, tgt), domain.ErrNonPointer)
	s.ErrorIs(s.d.Decode(M{}, nil), domain.ErrTargetNil)
}

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}
