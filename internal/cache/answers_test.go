package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withClock installs a fake clock so TTL behavior is deterministic.
func withClock(c *AnswerCache) *time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return &now
}

func TestGetReturnsFreshEntry(t *testing.T) {
	c := New(4, 120*time.Second)
	c.Put(Key("Solve 2x+3=7 ", "math"), "x = 2")

	got, ok := c.Get("solve 2x+3=7:math")
	require.True(t, ok)
	assert.Equal(t, "x = 2", got)
}

func TestTTLExpiryIsStrictAndLazy(t *testing.T) {
	c := New(4, 120*time.Second)
	clock := withClock(c)

	c.Put("q:general", "answer")

	*clock = clock.Add(119 * time.Second)
	_, ok := c.Get("q:general")
	assert.True(t, ok, "entry inside TTL")

	// A hit must not refresh the timestamp.
	*clock = clock.Add(2 * time.Second)
	_, ok = c.Get("q:general")
	assert.False(t, ok, "entry past TTL")
	assert.Equal(t, 0, c.Len(), "expired entry released on read")
}

func TestEvictionDropsOldestOnly(t *testing.T) {
	const capacity = 5
	c := New(capacity, time.Hour)
	clock := withClock(c)

	for i := 0; i < capacity; i++ {
		c.Put(fmt.Sprintf("q%d:general", i), fmt.Sprintf("a%d", i))
		*clock = clock.Add(time.Second)
	}
	c.Put("overflow:general", "a-new")

	assert.Equal(t, capacity, c.Len())
	_, ok := c.Get("q0:general")
	assert.False(t, ok, "oldest entry evicted")
	for i := 1; i < capacity; i++ {
		_, ok := c.Get(fmt.Sprintf("q%d:general", i))
		assert.True(t, ok, "entry q%d survives", i)
	}
	_, ok = c.Get("overflow:general")
	assert.True(t, ok)
}

func TestPutOverwriteDoesNotEvict(t *testing.T) {
	c := New(2, time.Hour)
	c.Put("a:math", "1")
	c.Put("b:math", "2")
	c.Put("a:math", "3")

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a:math")
	require.True(t, ok)
	assert.Equal(t, "3", got)
	_, ok = c.Get("b:math")
	assert.True(t, ok)
}

func TestConcurrentAccessKeepsCapacityInvariant(t *testing.T) {
	const capacity = 8
	c := New(capacity, time.Hour)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("q%d-%d:general", g, i)
				c.Put(key, "v")
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), capacity)
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, "what is rust?:code", Key("  What is Rust? ", "code"))
}
