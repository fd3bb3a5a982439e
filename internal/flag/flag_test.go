package flag

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store, scope string) {
	ctx := context.Background()

	t.Run("starts at nothing new", func(t *testing.T) {
		v, err := s.Peek(ctx, scope+"-fresh")
		require.NoError(t, err)
		assert.Equal(t, NothingNew, v)
	})

	t.Run("raise never lowers", func(t *testing.T) {
		key := scope + "-max"
		require.NoError(t, s.Raise(ctx, key, NewCall))
		require.NoError(t, s.Raise(ctx, key, NewData))

		v, err := s.Peek(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, NewCall, v)

		v, err = s.ReadAndClear(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, NewCall, v)

		v, err = s.Peek(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, NothingNew, v)
	})

	t.Run("scopes are independent", func(t *testing.T) {
		require.NoError(t, s.Raise(ctx, scope+"-a", NewData))

		v, err := s.ReadAndClear(ctx, scope+"-b")
		require.NoError(t, err)
		assert.Equal(t, NothingNew, v)

		v, err = s.ReadAndClear(ctx, scope+"-a")
		require.NoError(t, err)
		assert.Equal(t, NewData, v)
	})

	t.Run("one consumer per raise", func(t *testing.T) {
		key := scope + "-race"
		require.NoError(t, s.Raise(ctx, key, NewData))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := s.ReadAndClear(ctx, key)
				assert.NoError(t, err)
				if v != NothingNew {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(), "tenant")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := fmt.Sprintf("sqm-test-%d", time.Now().UnixNano())
	runStoreContract(t, NewRedisStore(client, prefix), "tenant")
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "new_call", NewCall.String())
	assert.Equal(t, "severity(7)", Severity(7).String())
}
