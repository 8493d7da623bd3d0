package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/gmsas95/ledgerbot/internal/config"
	"github.com/gmsas95/ledgerbot/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type echo struct {
	last commands.Message
}

func (e *echo) Handle(_ context.Context, msg commands.Message) commands.Reply {
	e.last = msg
	if msg.Text == "hello" {
		return commands.Reply{Silent: true}
	}
	return commands.Reply{Text: "got " + msg.Text}
}

func newServer(t *testing.T, mutate func(*config.Config), opts Options) (*Server, *echo) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.ReadTimeout = 5
	cfg.Server.WriteTimeout = 5
	cfg.Security.JWTSecret = testSecret
	cfg.Security.AdminPassword = "hunter2"
	cfg.Security.AllowOrigins = []string{"*"}
	if mutate != nil {
		mutate(cfg)
	}
	h := &echo{}
	opts.Version = "test"
	return New(cfg, h, opts, zap.NewNop()), h
}

func bearer(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func postJSON(path, body, auth string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRootAndHealth(t *testing.T) {
	s, _ := newServer(t, nil, Options{})

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	var root map[string]string
	decode(t, resp, &root)
	assert.Equal(t, "ok", root["status"])

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	var health map[string]any
	decode(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.RecordMessage(metrics.OutcomeReplied)
	s, _ := newServer(t, nil, Options{Metrics: m.Handler()})

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ledgerbot_messages_total")
}

func TestSlackRouteOptional(t *testing.T) {
	s, _ := newServer(t, nil, Options{})
	resp, err := s.app.Test(postJSON("/slack/events", `{}`, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	called := false
	s, _ = newServer(t, nil, Options{Slack: func(c *fiber.Ctx) error {
		called = true
		return c.SendStatus(http.StatusOK)
	}})
	resp, err = s.app.Test(postJSON("/slack/events", `{}`, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, called)
}

func TestMessage_RequiresToken(t *testing.T) {
	s, h := newServer(t, nil, Options{})

	resp, err := s.app.Test(postJSON("/api/messages", `{"text":"gas 150K"}`, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = s.app.Test(postJSON("/api/messages", `{"text":"gas 150K"}`, bearer(t, "other", "x")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, h.last.Text)
}

func TestMessage_DisabledWithoutSecret(t *testing.T) {
	s, _ := newServer(t, func(c *config.Config) { c.Security.JWTSecret = "" }, Options{})

	resp, err := s.app.Test(postJSON("/api/messages", `{"text":"gas 150K"}`, bearer(t, "unused", "x")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMessage_RoutesToHandler(t *testing.T) {
	s, h := newServer(t, nil, Options{})

	resp, err := s.app.Test(postJSON("/api/messages", `{"text":"gas 150K","user_name":"Naomi"}`, bearer(t, testSecret, "naomi-phone")))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out MessageResponse
	decode(t, resp, &out)
	assert.Equal(t, "got gas 150K", out.Reply)
	assert.False(t, out.Silent)

	assert.Equal(t, "naomi-phone", h.last.UserID)
	assert.Equal(t, "api:naomi-phone", h.last.Channel)
	assert.Equal(t, "api", h.last.Source)
	assert.NotEmpty(t, h.last.ID)

	resp, err = s.app.Test(postJSON("/api/messages", `{"text":"hello"}`, bearer(t, testSecret, "x")))
	require.NoError(t, err)
	decode(t, resp, &out)
	assert.True(t, out.Silent)
	assert.Empty(t, out.Reply)

	resp, err = s.app.Test(postJSON("/api/messages", `{"text":"  "}`, bearer(t, testSecret, "x")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	s, _ := newServer(t, nil, Options{})

	resp, err := s.app.Test(postJSON("/api/auth/login", `{"password":"wrong"}`, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = s.app.Test(postJSON("/api/auth/login", `{"password":"hunter2","subject":"jacob"}`, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	decode(t, resp, &out)
	require.NotEmpty(t, out["token"])

	resp, err = s.app.Test(postJSON("/api/messages", `{"text":"lunch 12k"}`, "Bearer "+out["token"]))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
