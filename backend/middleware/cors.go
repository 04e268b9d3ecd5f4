package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/countrycache/countrycache/backend/utils"
)

// CustomErrorHandler turns anything a handler returns into the {error} JSON body.
// Unknown errors never leak their text to the client.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		slog.Error("Unhandled request error",
			slog.String("type", "error"),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}

	return utils.SendError(c, code, message, nil)
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
		return c.Next()
	}
}
