package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fathima-sithara/video-service/internal/models"
	"github.com/fathima-sithara/video-service/internal/repository"
	"github.com/fathima-sithara/video-service/internal/storage"
)

type memRepo struct {
	mu      sync.Mutex
	videos  map[string]models.Video
	gets    int
	updates int
}

func newMemRepo(vs ...models.Video) *memRepo {
	r := &memRepo{videos: map[string]models.Video{}}
	for _, v := range vs {
		r.videos[v.ID] = v
	}
	return r
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	v, ok := r.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r *memRepo) Update(ctx context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if _, ok := r.videos[v.ID]; !ok {
		return repository.ErrNotFound
	}
	r.videos[v.ID] = *v
	return nil
}

func (r *memRepo) Insert(ctx context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = *v
	return nil
}

func (r *memRepo) Close(ctx context.Context) error { return nil }

func (r *memRepo) get(id string) models.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videos[id]
}

// fakeStore captures uploads. It records whether the staged file was on
// disk while Put ran.
type fakeStore struct {
	mu          sync.Mutex
	err         error
	puts        int
	objects     map[string][]byte
	types       map[string]string
	stagedPath  string
	stagedExist bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if f, ok := body.(*os.File); ok {
		s.stagedPath = f.Name()
		_, err := os.Stat(f.Name())
		s.stagedExist = err == nil
	}
	if s.err != nil {
		return s.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = b
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) ObjectURL(key string) string {
	return storage.PublicURL("tubely-test", "us-east-2", "", key)
}

func (s *fakeStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	return fmt.Sprintf("%s?X-Amz-Expires=%d", s.ObjectURL(key), int(ttl.Seconds())), nil
}
