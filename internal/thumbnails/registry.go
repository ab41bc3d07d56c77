// Package thumbnails keeps uploaded thumbnail bytes in process memory.
//
// Entries live only as long as the process. Every replica has its own
// registry, so a thumbnail URL only resolves on the instance that took the
// upload.
package thumbnails

import (
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Thumbnail struct {
	Data      []byte
	MediaType string
}

// Registry maps video id to thumbnail. When capacity is positive the least
// recently used entry is evicted to make room; zero means unbounded.
type Registry struct {
	cache   *lru.Cache[string, Thumbnail]
	onEvict atomic.Pointer[func(videoID string)]
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = math.MaxInt32
	}
	r := &Registry{}
	// only errors on a non-positive size
	r.cache, _ = lru.NewWithEvict[string, Thumbnail](capacity, r.evicted)
	return r
}

func (r *Registry) evicted(videoID string, _ Thumbnail) {
	if fn := r.onEvict.Load(); fn != nil {
		(*fn)(videoID)
	}
}

// OnEvict registers a callback run for every id dropped to respect the capacity.
func (r *Registry) OnEvict(fn func(videoID string)) {
	r.onEvict.Store(&fn)
}

// Set stores t for videoID, replacing any previous entry.
func (r *Registry) Set(videoID string, t Thumbnail) {
	r.cache.Add(videoID, t)
}

// Get returns the thumbnail for videoID. The returned Data must not be modified.
func (r *Registry) Get(videoID string) (Thumbnail, bool) {
	return r.cache.Get(videoID)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}
