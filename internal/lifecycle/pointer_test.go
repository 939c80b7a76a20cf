package lifecycle

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveVersion_StartsUnset(t *testing.T) {
	active := NewActiveVersion()

	id, ok := active.Get()
	assert.False(t, ok, "a fresh pointer must be unset, not defaulted")
	assert.Empty(t, id)
}

func TestActiveVersion_SetAndGet(t *testing.T) {
	active := NewActiveVersion()

	previous, changed := active.Set("v1")
	assert.Empty(t, previous)
	assert.True(t, changed)

	id, ok := active.Get()
	assert.True(t, ok)
	assert.Equal(t, "v1", id)
}

func TestActiveVersion_SetReturnsPrevious(t *testing.T) {
	active := NewActiveVersion()
	active.Set("v1")

	previous, changed := active.Set("v2")
	assert.Equal(t, "v1", previous)
	assert.True(t, changed)

	id, _ := active.Get()
	assert.Equal(t, "v2", id)
}

func TestActiveVersion_ReapplyIsNoop(t *testing.T) {
	active := NewActiveVersion()
	active.Set("v1")

	previous, changed := active.Set("v1")
	assert.Equal(t, "v1", previous)
	assert.False(t, changed, "re-applying the active version must report no change")
}

func TestActiveVersion_ConcurrentReadersSeeWholeValues(t *testing.T) {
	active := NewActiveVersion()
	active.Set("v-0")

	valid := make(map[string]bool, 101)
	valid["v-0"] = true
	for i := 1; i <= 100; i++ {
		valid[fmt.Sprintf("v-%d", i)] = true
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			active.Set(fmt.Sprintf("v-%d", i))
		}
	}()

	var torn bool
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			id, ok := active.Get()
			if !ok || !valid[id] {
				torn = true
				return
			}
		}
	}()

	wg.Wait()
	assert.False(t, torn, "readers must only ever observe values that were actually set")

	id, _ := active.Get()
	assert.Equal(t, "v-100", id)
}
