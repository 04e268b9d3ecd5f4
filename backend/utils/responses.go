package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/countrycache/countrycache/backend/models"
)

// SendJSON sends a JSON response using Fiber
func SendJSON(c *fiber.Ctx, statusCode int, data any) error {
	return c.Status(statusCode).JSON(data)
}

// SendError sends an {error, details?} body
func SendError(c *fiber.Ctx, statusCode int, message string, details any) error {
	return SendJSON(c, statusCode, models.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func SendBadRequest(c *fiber.Ctx, message string, details any) error {
	return SendError(c, http.StatusBadRequest, message, details)
}

func SendNotFound(c *fiber.Ctx, message string, details any) error {
	return SendError(c, http.StatusNotFound, message, details)
}

func SendConflict(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusConflict, message, nil)
}

func SendServiceUnavailable(c *fiber.Ctx, message string, details any) error {
	return SendError(c, http.StatusServiceUnavailable, message, details)
}

func SendInternalServerError(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusInternalServerError, message, nil)
}

// SendNoContent sends a no content response
func SendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// GetIPAddress returns the client address. Forwarding headers are only read when the
// app is configured with a proxy header and the peer is a trusted proxy.
func GetIPAddress(c *fiber.Ctx) string {
	return c.IP()
}

func GetUserAgent(c *fiber.Ctx) string {
	return c.Get("User-Agent")
}
