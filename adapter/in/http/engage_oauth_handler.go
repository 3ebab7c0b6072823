package http

import (
	"github.com/gofiber/fiber/v2"

	"engage_server/core/port/in"
	"engage_server/pkg/apperr"
	"engage_server/pkg/response"
)

// OAuthHandler serves the mailbox connect flow.
type OAuthHandler struct {
	svc in.CredentialService
}

func NewOAuthHandler(svc in.CredentialService) *OAuthHandler {
	return &OAuthHandler{svc: svc}
}

// Connect handles GET /api/gmail/connect. Returns the consent URL instead of
// redirecting so SPA clients can open it themselves.
func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	session, err := h.svc.BeginAuthorization(c.Context(), userID)
	if err != nil {
		return err
	}

	return response.OK(c, session)
}

// Callback handles GET /api/gmail/callback. This endpoint is hit by the
// provider redirect, so it is unauthenticated; the state parameter binds the
// tokens to the user who started the flow.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		return apperr.OAuthFailed("authorization denied: " + errParam)
	}

	userID, err := h.svc.CompleteAuthorization(c.Context(), in.Exchange{
		State: c.Query("state"),
		Code:  c.Query("code"),
	})
	if err != nil {
		return err
	}

	return response.OK(c, fiber.Map{
		"connected": true,
		"user_id":   userID,
	})
}

// Status handles GET /api/gmail/status.
func (h *OAuthHandler) Status(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	connected, err := h.svc.Status(c.Context(), userID)
	if err != nil {
		return err
	}

	return response.OK(c, fiber.Map{"connected": connected})
}
