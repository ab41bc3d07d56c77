package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fathima-sithara/video-service/internal/utils"
)

func TestIPRateLimiterBurstThenReject(t *testing.T) {
	l := NewIPRateLimiter(60, 2, zap.NewNop().Sugar())
	app := fiber.New()
	app.Post("/up", l.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/up", nil), -1)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusCreated, fiber.StatusCreated, fiber.StatusTooManyRequests}, codes)
}

func TestIPRateLimiterSeparatesClients(t *testing.T) {
	l := NewIPRateLimiter(60, 1, zap.NewNop().Sugar())
	now := time.Now()
	assert.True(t, l.allow("10.0.0.1", now))
	assert.False(t, l.allow("10.0.0.1", now))
	assert.True(t, l.allow("10.0.0.2", now))
}

func TestIPRateLimiterSweep(t *testing.T) {
	l := NewIPRateLimiter(60, 1, zap.NewNop().Sugar())
	old := time.Now().Add(-time.Hour)
	l.allow("10.0.0.1", old)
	l.allow("10.0.0.2", time.Now())

	l.Sweep(time.Now().Add(-5 * time.Minute))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestRequestLoggerRecordsFinalStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(zap.NewNop().Sugar())})
	app.Use(RequestLogger(logger))
	app.Get("/forbidden", func(c *fiber.Ctx) error { return utils.Forbidden("no") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/forbidden", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.EqualValues(t, fiber.StatusForbidden, entries[0].ContextMap()["status"])
	assert.EqualValues(t, fiber.StatusInternalServerError, entries[1].ContextMap()["status"])
}
