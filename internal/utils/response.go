package utils

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func JSONSuccess(c *fiber.Ctx, status int, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "data": payload})
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

// ErrorHandler renders every error returned by a handler as a JSONError
// envelope. 5xx causes are logged in full.
func ErrorHandler(logger *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.Errorw("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		} else {
			logger.Debugw("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		}
		return JSONError(c, status, PublicMessage(err))
	}
}
