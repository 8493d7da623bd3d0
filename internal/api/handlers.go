package api

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenTTL bounds tokens issued by /api/auth/login
const tokenTTL = 7 * 24 * time.Hour

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "bot": "ledgerbot " + s.version})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.version,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
		Subject  string `json:"subject"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	want := s.config.Security.AdminPassword
	if want == "" || s.config.Security.JWTSecret == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "login disabled"})
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(req.Password)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "api"
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

// MessageRequest is the body of POST /api/messages
type MessageRequest struct {
	ID       string `json:"id"`
	Channel  string `json:"channel"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// MessageResponse carries the router's reply; Silent replies have no text
type MessageResponse struct {
	Reply  string `json:"reply,omitempty"`
	Silent bool   `json:"silent"`
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}

	subject, _ := c.Locals(subjectKey).(string)
	if req.UserID == "" {
		req.UserID = subject
	}
	if req.Channel == "" {
		req.Channel = "api:" + req.UserID
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	reply := s.handler.Handle(c.UserContext(), commands.Message{
		ID:       req.ID,
		Channel:  req.Channel,
		UserID:   req.UserID,
		UserName: req.UserName,
		Text:     req.Text,
		Source:   "api",
	})

	s.logger.Debug("API message handled",
		zap.String("channel", req.Channel),
		zap.Bool("silent", reply.Silent),
	)
	return c.JSON(MessageResponse{Reply: reply.Text, Silent: reply.Silent})
}
