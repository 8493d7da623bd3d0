package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const subjectKey = "subject"

// authMiddleware accepts HS256 bearer tokens signed with the configured
// secret. Without a secret every protected route is closed.
func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.config.Security.JWTSecret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "message api disabled"})
		}

		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.config.Security.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		if sub, err := token.Claims.GetSubject(); err == nil {
			c.Locals(subjectKey, sub)
		}
		return c.Next()
	}
}
