package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	var counterA, counterB int
	counters := map[string]*int{"a": &counterA, "b": &counterB}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for key := range counters {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := km.Lock(key)
				defer unlock()
				*counters[key]++
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, counterA)
	assert.Equal(t, 50, counterB)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	unlock := km.Lock("post-1")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released keys must not accumulate")
}
