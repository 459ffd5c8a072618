package docstore

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) Store {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "test:")
}

func TestRedisStore(t *testing.T) {
	testStoreContract(t, newMiniredisStore)
}

func TestRedisNamespacesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, "club:")
	require.NoError(t, s.Replace(t.Context(), "board/courts/1", []byte(`{"id":1}`)))

	got, err := mr.Get("club:doc:board/courts/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, got)
}
