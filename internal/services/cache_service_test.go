package services_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vongdev/E-learning--sub001/internal/services"
)

func TestCacheService(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		c := services.NewCacheService(time.Minute, time.Minute)
		c.Set("bucket-a", "key-1", []byte("payload"), time.Minute)

		data, ok := c.Get("key-1")
		assert.True(t, ok)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("bucket invalidation removes all bucket keys", func(t *testing.T) {
		c := services.NewCacheService(time.Minute, time.Minute)
		c.Set("bucket-a", "key-1", []byte("one"), time.Minute)
		c.Set("bucket-a", "key-2", []byte("two"), time.Minute)
		c.Set("bucket-b", "key-3", []byte("three"), time.Minute)

		c.InvalidateBucket("bucket-a")

		_, ok := c.Get("key-1")
		assert.False(t, ok)
		_, ok = c.Get("key-2")
		assert.False(t, ok)
		_, ok = c.Get("key-3")
		assert.True(t, ok)
	})

	t.Run("concurrent set and invalidate leave no stale keys", func(t *testing.T) {
		c := services.NewCacheService(time.Minute, time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			key := fmt.Sprintf("key-%d", i)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.Set("bucket-a", key, []byte("data"), time.Minute)
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.InvalidateBucket("bucket-a")
				}
			}()
		}
		wg.Wait()

		// Каждый записанный ключ учтен в бакете, финальный сброс убирает все
		c.InvalidateBucket("bucket-a")
		for i := 0; i < 8; i++ {
			_, ok := c.Get(fmt.Sprintf("key-%d", i))
			assert.False(t, ok)
		}
	})

	t.Run("flush clears everything", func(t *testing.T) {
		c := services.NewCacheService(time.Minute, time.Minute)
		c.Set("bucket-a", "key-1", []byte("one"), time.Minute)

		c.Flush()

		_, ok := c.Get("key-1")
		assert.False(t, ok)
	})
}
