package store

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type sampleRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	raw, err := s.Load(ctx, Customers)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))

	items := []sampleRecord{{ID: "1", Name: "Sri Lakshmi Traders"}, {ID: "2", Name: "Balaji Agencies"}}
	require.NoError(t, SaveList(ctx, s, Customers, items))

	loaded, err := LoadList[sampleRecord](ctx, s, Customers)
	require.NoError(t, err)
	require.Equal(t, items, loaded)

	require.NoError(t, SaveList(ctx, s, Customers, items[:1]))
	loaded, err = LoadList[sampleRecord](ctx, s, Customers)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	_, err = s.Load(ctx, "purchases")
	require.ErrorIs(t, err, ErrUnknownCollection)
	require.ErrorIs(t, s.Save(ctx, Customers, []byte(`{"id":"x"}`)), ErrNotArray)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ricemill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	exerciseStore(t, NewRedisStore(client))
	require.True(t, mr.Exists(redisKeyPrefix+Customers))
}

func TestSaveListNilWritesEmptyArray(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, SaveList[sampleRecord](context.Background(), s, Sales, nil))
	raw, err := s.Load(context.Background(), Sales)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestOpenMemoryAndUnknownDriver(t *testing.T) {
	s, closer, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, closer())

	_, closer, err = Open(context.Background(), Options{Driver: "floppy"})
	require.Error(t, err)
	require.NotNil(t, closer)
}

func TestCollectionsCoverBackupKeys(t *testing.T) {
	require.Len(t, Collections, 18)
	require.True(t, IsCollection(GunnyDispatches))
	require.False(t, IsCollection("purchases"))
}
