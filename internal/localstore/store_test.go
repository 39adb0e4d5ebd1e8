package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StoreSuite runs the same contract against every backend. open is called
// once per test.
type StoreSuite struct {
	suite.Suite
	open  func(t *testing.T) Store
	store Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) TestMissingKey() {
	_, err := s.store.Get(s.ctx, "missing")
	s.Require().ErrorIs(err, ErrNotFound)

	found, err := GetJSON(s.ctx, s.store, "missing", &record{})
	s.Require().NoError(err)
	s.False(found)
}

func (s *StoreSuite) TestPutOverwrites() {
	s.Require().NoError(PutJSON(s.ctx, s.store, "rec", record{Name: "kopi", Count: 2}))
	s.Require().NoError(PutJSON(s.ctx, s.store, "rec", record{Name: "teh", Count: 3}))

	var got record
	found, err := GetJSON(s.ctx, s.store, "rec", &got)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(record{Name: "teh", Count: 3}, got)
}

func (s *StoreSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, "rec", []byte(`{}`)))
	s.Require().NoError(s.store.Delete(s.ctx, "rec"))
	s.Require().NoError(s.store.Delete(s.ctx, "rec"), "deleting a missing key is not an error")

	_, err := s.store.Get(s.ctx, "rec")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestUndecodableValue() {
	s.Require().NoError(s.store.Put(s.ctx, "rec", []byte("not json")))
	_, err := GetJSON(s.ctx, s.store, "rec", &record{})
	s.Error(err)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(*testing.T) Store { return NewMemory() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) Store {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
		if err != nil {
			t.Fatal(err)
		}
		return store
	}})
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("POS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("POS_TEST_REDIS_URL not set")
	}
	suite.Run(t, &StoreSuite{open: func(t *testing.T) Store {
		store, err := OpenRedis(url)
		if err != nil {
			t.Fatal(err)
		}
		return store
	}})
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := PutJSON(ctx, store, "queue", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	var got []string
	found, err := GetJSON(ctx, reopened, "queue", &got)
	if err != nil || !found {
		t.Fatalf("reopen: found=%v err=%v", found, err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}
