package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fathima-sithara/video-service/internal/models"
)

var ErrNotFound = errors.New("video not found")

// VideoRepository is the relational/document store holding video records.
// GetByID returns ErrNotFound when no record has the id.
type VideoRepository interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	Update(ctx context.Context, v *models.Video) error
	Insert(ctx context.Context, v *models.Video) error
	Close(ctx context.Context) error
}

// pingWithRetry calls ping with exponential backoff until it succeeds,
// maxElapsed passes, or ctx is done.
func pingWithRetry(ctx context.Context, maxElapsed time.Duration, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = maxElapsed
	op := func() error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return ping(pctx)
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	return nil
}
