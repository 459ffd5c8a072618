package docstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `json:"n"`
}

// testStoreContract runs the behaviour every backend must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("read missing document", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Read(ctx, "polls/none")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transact creates and updates", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			_, err := Update(ctx, s, "counters/a", func(c *counter, _ bool) error {
				c.N++
				return nil
			})
			require.NoError(t, err)
		}
		got, err := Get[counter](ctx, s, "counters/a")
		require.NoError(t, err)
		assert.Equal(t, 3, got.N)
	})

	t.Run("mutate error aborts without writing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Put(ctx, s, "counters/b", counter{N: 1}))
		boom := errors.New("precondition failed")
		calls := 0
		_, err := Update(ctx, s, "counters/b", func(c *counter, _ bool) error {
			calls++
			c.N = 100
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
		got, err := Get[counter](ctx, s, "counters/b")
		require.NoError(t, err)
		assert.Equal(t, 1, got.N)
	})

	t.Run("unchanged returns current value", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Put(ctx, s, "counters/c", counter{N: 7}))
		got, err := Update(ctx, s, "counters/c", func(c *counter, _ bool) error {
			return ErrUnchanged
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got.N)
	})

	t.Run("conflicting write re-runs the mutation", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Put(ctx, s, "counters/d", counter{N: 0}))
		calls := 0
		got, err := Update(ctx, s, "counters/d", func(c *counter, _ bool) error {
			calls++
			if calls == 1 {
				// Another writer commits while this attempt is in flight.
				require.NoError(t, Put(ctx, s, "counters/d", counter{N: 10}))
			}
			c.N++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 11, got.N)
	})

	t.Run("delete and keys", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Put(ctx, s, "polls/1", counter{}))
		require.NoError(t, Put(ctx, s, "polls/2", counter{}))
		require.NoError(t, Put(ctx, s, "board/players", counter{}))

		keys, err := s.Keys(ctx, "polls/")
		require.NoError(t, err)
		assert.Equal(t, []string{"polls/1", "polls/2"}, keys)

		require.NoError(t, s.Delete(ctx, "polls/1"))
		keys, err = s.Keys(ctx, "polls/")
		require.NoError(t, err)
		assert.Equal(t, []string{"polls/2"}, keys)
	})

	t.Run("collections keep insertion order", func(t *testing.T) {
		s := newStore(t)
		var ids []string
		for i := 1; i <= 3; i++ {
			id, err := AppendJSON(ctx, s, "templates", counter{N: i})
			require.NoError(t, err)
			ids = append(ids, id)
			time.Sleep(2 * time.Millisecond)
		}
		items, gotIDs, err := QueryJSON[counter](ctx, s, "templates", func(c counter) bool { return c.N != 2 })
		require.NoError(t, err)
		assert.Equal(t, []counter{{N: 1}, {N: 3}}, items)
		assert.Equal(t, []string{ids[0], ids[2]}, gotIDs)

		require.NoError(t, s.DeleteRecord(ctx, "templates", ids[0]))
		assert.ErrorIs(t, s.DeleteRecord(ctx, "templates", ids[0]), ErrNotFound)
	})

	t.Run("subscribers see committed changes", func(t *testing.T) {
		s := newStore(t)
		var (
			mu   sync.Mutex
			seen []Change
		)
		stop, err := s.Subscribe(ctx, "board/", func(c Change) {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
		})
		require.NoError(t, err)
		defer stop()

		require.NoError(t, Put(ctx, s, "polls/x", counter{N: 1}))
		_, err = Update(ctx, s, "board/waiting", func(c *counter, _ bool) error {
			c.N = 4
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "board/waiting"))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) == 2
		}, 2*time.Second, 10*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "board/waiting", seen[0].Key)
		assert.JSONEq(t, `{"n":4}`, string(seen[0].Value))
		assert.True(t, seen[1].Deleted)
	})

	t.Run("invalid keys are rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Read(ctx, "polls//1")
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = s.Transact(ctx, "", func([]byte) ([]byte, error) { return nil, nil })
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemoryConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithMaxRetries(1000))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, s, "counters/shared", func(c *counter, _ bool) error {
				c.N++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := Get[counter](ctx, s, "counters/shared")
	require.NoError(t, err)
	assert.Equal(t, workers, got.N)
}

func TestMemoryGivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(WithMaxRetries(3))
	var calls int32
	_, err := s.Transact(ctx, "counters/hot", func(cur []byte) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, s.Replace(ctx, "counters/hot", []byte(`{"n":1}`)))
		return []byte(`{"n":2}`), nil
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMemorySubscriptionStopsWithContext(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	var hits int32
	_, err := s.Subscribe(ctx, "", func(Change) { atomic.AddInt32(&hits, 1) })
	require.NoError(t, err)

	require.NoError(t, s.Replace(context.Background(), "a/b", []byte(`{}`)))
	cancel()
	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.subs) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Replace(context.Background(), "a/b", []byte(`{}`)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
