package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/video-service/internal/utils"
)

func TestAssetKey(t *testing.T) {
	a := AssetKey("video/mp4")
	b := AssetKey("video/mp4")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".mp4"))
	assert.True(t, strings.HasSuffix(AssetKey("garbage"), ".bin"))
}

func TestStagingPathStaysUnderRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/assets", "x.mp4"), StagingPath("/tmp/assets", "x.mp4"))
	assert.Equal(t, filepath.Join("/tmp/assets", "passwd"), StagingPath("/tmp/assets", "../../etc/passwd"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://tubely.s3.us-east-1.amazonaws.com/k.mp4", PublicURL("tubely", "us-east-1", "", "k.mp4"))
	assert.Equal(t, "http://localhost:9000/tubely/k.mp4", PublicURL("tubely", "us-east-1", "http://localhost:9000/", "k.mp4"))
}

type failingStore struct {
	calls int
	err   error
}

func (f *failingStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	f.calls++
	return f.err
}
func (f *failingStore) ObjectURL(key string) string { return key }
func (f *failingStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return key, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingStore{err: errors.New("boom")}
	b := NewBreakerStore(inner, BreakerConfig{MaxFailures: 2, Timeout: time.Hour}, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		err := b.Put(context.Background(), "k", "video/mp4", strings.NewReader("x"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, utils.ErrStorageUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Put(context.Background(), "k", "video/mp4", strings.NewReader("x"))
	assert.ErrorIs(t, err, utils.ErrStorageUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerIgnoresCanceledContext(t *testing.T) {
	inner := &failingStore{err: context.Canceled}
	b := NewBreakerStore(inner, BreakerConfig{MaxFailures: 1, Timeout: time.Hour}, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		_ = b.Put(context.Background(), "k", "video/mp4", strings.NewReader("x"))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, inner.calls)
}
