package filament

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDStrictlyIncreasing(t *testing.T) {
	UseRandomIDs(false)

	prev := NextID()
	for i := 0; i < 1000; i++ {
		next := NextID()
		require.Equal(t, prev.Hi, next.Hi, "epoch word must stay latched")
		require.Greater(t, next.Lo, prev.Lo)
		prev = next
	}
}

func TestNextIDConcurrentUnique(t *testing.T) {
	UseRandomIDs(false)

	const goroutines, per = 8, 500
	var mu sync.Mutex
	seen := make(map[ID]bool, goroutines*per)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]ID, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, NextID())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*per)
}

func TestRandomIDs(t *testing.T) {
	UseRandomIDs(true)
	defer UseRandomIDs(false)

	a, b := NextID(), NextID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.Len(t, a.String(), 32)
}

func TestBufferPoolSizeClasses(t *testing.T) {
	p := NewBufferPool()

	small := p.Get(100)
	require.Len(t, *small, 100)
	assert.Equal(t, BufSmall, cap(*small))
	p.Put(small)

	big := p.Get(BufLarge + 1)
	require.Len(t, *big, BufLarge+1)
	p.Put(big) // oversized: silently dropped

	medium := p.Get(BufSmall + 1)
	assert.Equal(t, BufMedium, cap(*medium))
	p.Put(medium)
}
