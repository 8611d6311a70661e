package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/change-order-api/models"
)

type handle struct {
	name string
}

func (h *handle) Deliver(models.Event) bool { return true }

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := New()
	h1 := &handle{name: "h1"}
	h2 := &handle{name: "h2"}

	prev, replaced := r.Register("rita", h1)
	assert.Nil(t, prev)
	assert.False(t, replaced)

	prev, replaced = r.Register("rita", h2)
	assert.True(t, replaced)
	assert.Same(t, h1, prev)

	got, ok := r.Lookup("rita")
	assert.True(t, ok)
	assert.Same(t, h2, got)
}

func TestRegistry_RegisterSameHandleTwice(t *testing.T) {
	r := New()
	h1 := &handle{}
	r.Register("rita", h1)

	_, replaced := r.Register("rita", h1)
	assert.False(t, replaced)
}

func TestRegistry_UnregisterIfIgnoresSuperseded(t *testing.T) {
	r := New()
	old := &handle{name: "old"}
	fresh := &handle{name: "fresh"}

	r.Register("rita", old)
	r.Register("rita", fresh)

	assert.False(t, r.UnregisterIf("rita", old))
	got, ok := r.Lookup("rita")
	assert.True(t, ok)
	assert.Same(t, fresh, got)

	assert.True(t, r.UnregisterIf("rita", fresh))
	_, ok = r.Lookup("rita")
	assert.False(t, ok)
}

func TestRegistry_UnregisterMissingIsNoop(t *testing.T) {
	r := New()
	r.Unregister("nobody")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SnapshotIsDetached(t *testing.T) {
	r := New()
	r.Register("a", &handle{})
	snap := r.Snapshot()
	r.Register("b", &handle{})

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)
		id := fmt.Sprintf("user-%d", i%10)
		h := &handle{}
		go func() {
			defer wg.Done()
			r.Register(id, h)
		}()
		go func() {
			defer wg.Done()
			r.Lookup(id)
			r.Snapshot()
		}()
		go func() {
			defer wg.Done()
			r.UnregisterIf(id, h)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 10)
}
