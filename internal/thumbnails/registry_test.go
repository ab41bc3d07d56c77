package thumbnails

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetOverwrite(t *testing.T) {
	r := NewRegistry(0)
	r.Set("v1", Thumbnail{Data: []byte("a"), MediaType: "image/png"})
	r.Set("v1", Thumbnail{Data: []byte("bb"), MediaType: "image/jpeg"})

	got, ok := r.Get("v1")
	require.True(t, ok)
	assert.Equal(t, []byte("bb"), got.Data)
	assert.Equal(t, "image/jpeg", got.MediaType)
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(2)
	var evicted []string
	r.OnEvict(func(id string) { evicted = append(evicted, id) })

	r.Set("a", Thumbnail{MediaType: "image/png"})
	r.Set("b", Thumbnail{MediaType: "image/png"})
	_, _ = r.Get("a") // b is now the oldest
	r.Set("c", Thumbnail{MediaType: "image/png"})

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("b")
	assert.False(t, ok)
	_, ok = r.Get("a")
	assert.True(t, ok)
}

func TestUnboundedNeverEvicts(t *testing.T) {
	r := NewRegistry(0)
	for i := 0; i < 500; i++ {
		r.Set(fmt.Sprint(i), Thumbnail{})
	}
	assert.Equal(t, 500, r.Len())
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	r := NewRegistry(1)
	var evicted []string
	r.OnEvict(func(id string) { evicted = append(evicted, id) })

	r.Set("a", Thumbnail{Data: []byte("1")})
	r.Set("a", Thumbnail{Data: []byte("2")})
	assert.Empty(t, evicted)

	r.Set("b", Thumbnail{})
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry(64)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := fmt.Sprintf("%d-%d", i, j%10)
				r.Set(id, Thumbnail{Data: []byte{byte(j)}})
				r.Get(id)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 64)
}
