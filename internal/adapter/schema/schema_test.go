package schema

import (
	"sync"
	"testing"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/objectid"
	"github.com/stretchr/testify/suite"
)

type SchemaTestSuite struct {
	suite.Suite
	s *Schema
}

func (s *SchemaTestSuite) SetupTest() {
	s.s = NewSchema().(*Schema)
}

func (s *SchemaTestSuite) TestRegister() {
	h := objectid.NewHandler()
	s.NoError(s.s.RegisterType("ObjectID", h))

	got, ok := s.s.Type("ObjectID")
	s.True(ok)
	s.Same(h, got)

	_, ok = s.s.Type("Date")
	s.False(ok)

	// replaced
	h2 := objectid.NewHandler()
	s.NoError(s.s.RegisterType("ObjectID", h2))
	got, _ = s.s.Type("ObjectID")
	s.Same(h2, got)

	s.NoError(s.s.RegisterType("Alias", h))
	s.Equal([]string{"Alias", "ObjectID"}, s.s.Types())
}

func (s *SchemaTestSuite) TestInvalid() {
	var target *domain.ErrInvalidTypeHandler
	s.ErrorAs(s.s.RegisterType("", objectid.NewHandler()), &target)
	s.ErrorAs(s.s.RegisterType("X", nil), &target)
	s.Equal("X", target.Name)
	s.Empty(s.s.Types())
}

func (s *SchemaTestSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.s.RegisterType("ObjectID", objectid.NewHandler())
		}()
		go func() {
			defer wg.Done()
			s.s.Type("ObjectID")
		}()
	}
	wg.Wait()
	s.Equal([]string{"ObjectID"}, s.s.Types())
}

func TestSchemaTestSuite(t *testing.T) {
	suite.Run(t, new(SchemaTestSuite))
}
