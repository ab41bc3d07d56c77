package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisLimitedApp(t *testing.T, limit int) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisRateLimiter(rdb, "test:ratelimit", limit, time.Minute, zap.NewNop().Sugar())
	app := fiber.New()
	app.Post("/up", l.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	return app, mr
}

func post(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/up", nil), -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRedisRateLimiterWindow(t *testing.T) {
	app, mr := newRedisLimitedApp(t, 2)

	codes := []int{post(t, app), post(t, app), post(t, app)}
	assert.Equal(t, []int{fiber.StatusCreated, fiber.StatusCreated, fiber.StatusTooManyRequests}, codes)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	mr.FastForward(time.Minute)
	assert.Equal(t, fiber.StatusCreated, post(t, app))
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	app, mr := newRedisLimitedApp(t, 1)
	assert.Equal(t, fiber.StatusCreated, post(t, app))

	mr.SetError("LOADING redis is loading the dataset")
	assert.Equal(t, fiber.StatusCreated, post(t, app))
}
