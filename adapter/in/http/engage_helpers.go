// Package http implements the inbound HTTP adapter.
package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"engage_server/pkg/apperr"
)

// GetUserID extracts the authenticated user ID set by the auth middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return uuid.Nil, apperr.Unauthorized("user not authenticated")
	}
	return userID, nil
}
