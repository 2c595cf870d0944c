// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
)

// AdminAuth guards the operator endpoints with a static bearer token. The
// token comes from configuration; there are no customer sessions because
// end users talk to the bot, never to this API.
type AdminAuth struct {
	token string
}

// NewAdminAuth creates the admin auth middleware
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

// Authenticate validates the Authorization header against the configured token
func (m *AdminAuth) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.token == "" {
			return unauthorized(c, "Admin API is disabled: no token configured", "ADMIN_API_DISABLED")
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			return unauthorized(c, "Invalid admin token", "INVALID_ADMIN_TOKEN")
		}

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}
