package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fathima-sithara/video-service/internal/utils"
)

type BreakerConfig struct {
	MaxFailures int
	Interval    time.Duration
	Timeout     time.Duration
}

// BreakerStore fails uploads fast once the wrapped store has failed
// MaxFailures times in a row.
type BreakerStore struct {
	ObjectStore
	cb *gobreaker.CircuitBreaker
}

func NewBreakerStore(inner ObjectStore, cfg BreakerConfig, logger *zap.SugaredLogger) *BreakerStore {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		// a client hanging up says nothing about the store
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerStore{ObjectStore: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.ObjectStore.Put(ctx, key, contentType, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return utils.NewError(utils.ErrStorageUnavailable, "object store unavailable", err)
	}
	return err
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}
