// Package slack receives Slack Events API callbacks and replies through the
// Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gmsas95/ledgerbot/internal/channels"
	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/gmsas95/ledgerbot/internal/security"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DefaultAPIBase is the Slack Web API root
const DefaultAPIBase = "https://slack.com/api"

// Config holds Slack app configuration
type Config struct {
	BotToken      string
	SigningSecret string
	APIBase       string
}

// Adapter turns Slack message events into router messages
type Adapter struct {
	config  Config
	handler channels.Handler
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	names map[string]string

	wg sync.WaitGroup
}

// NewAdapter creates a Slack adapter. An empty signing secret disables
// signature checks, which is only meant for local testing.
func NewAdapter(cfg Config, handler channels.Handler, logger *zap.Logger) *Adapter {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return &Adapter{
		config:  cfg,
		handler: handler,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		now:     time.Now,
		names:   make(map[string]string),
	}
}

type envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	Event     event  `json:"event"`
}

type event struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	BotID   string `json:"bot_id"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
}

// Events is the fiber handler for POST /slack/events. Slack expects an answer
// within three seconds, so messages are handled after the acknowledgement.
func (a *Adapter) Events(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	if a.config.SigningSecret != "" {
		err := security.VerifySlackSignature(a.config.SigningSecret,
			c.Get("X-Slack-Request-Timestamp"), c.Get("X-Slack-Signature"), body, a.now())
		if err != nil {
			a.logger.Warn("Rejected Slack request", zap.Error(err))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid request"})
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	if env.Type == "url_verification" {
		return c.JSON(fiber.Map{"challenge": env.Challenge})
	}

	if msg, ok := toMessage(env); ok {
		a.wg.Add(1)
		go a.dispatch(msg)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Wait blocks until in-flight messages are handled
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func toMessage(env envelope) (commands.Message, bool) {
	ev := env.Event
	if ev.Type != "message" || ev.BotID != "" || ev.Subtype != "" {
		return commands.Message{}, false
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" || ev.Channel == "" {
		return commands.Message{}, false
	}

	id := env.EventID
	if id == "" && ev.TS != "" {
		id = ev.Channel + ":" + ev.TS
	}
	return commands.Message{
		ID:      id,
		Channel: "slack:" + ev.Channel,
		UserID:  ev.User,
		Text:    text,
		Source:  "slack",
	}, true
}

func (a *Adapter) dispatch(msg commands.Message) {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), channels.DefaultTimeout)
	defer cancel()

	msg.UserName = a.userName(ctx, msg.UserID)
	reply := a.handler.Handle(ctx, msg)
	if reply.Silent {
		return
	}

	channel := strings.TrimPrefix(msg.Channel, "slack:")
	if err := a.postMessage(ctx, channel, reply.Text); err != nil {
		a.logger.Error("Failed to post Slack reply", zap.String("channel", channel), zap.Error(err))
	}
}

// userName returns the first word of the user's real name, cached per user
func (a *Adapter) userName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	a.mu.RLock()
	name, ok := a.names[userID]
	a.mu.RUnlock()
	if ok {
		return name
	}

	var resp struct {
		apiResponse
		User struct {
			Name     string `json:"name"`
			RealName string `json:"real_name"`
		} `json:"user"`
	}
	if err := a.call(ctx, http.MethodGet, "users.info?user="+url.QueryEscape(userID), nil, &resp); err != nil {
		a.logger.Warn("Slack user lookup failed", zap.String("user", userID), zap.Error(err))
		return ""
	}

	name = resp.User.RealName
	if name == "" {
		name = resp.User.Name
	}
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	}

	a.mu.Lock()
	a.names[userID] = name
	a.mu.Unlock()
	return name
}

func (a *Adapter) postMessage(ctx context.Context, channel, text string) error {
	payload := map[string]string{"channel": channel, "text": text}
	var resp apiResponse
	return a.call(ctx, http.MethodPost, "chat.postMessage", payload, &resp)
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (r apiResponse) err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("slack api error: %s", r.Error)
}

func (a *Adapter) call(ctx context.Context, method, path string, payload any, out interface{ err() error }) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.config.APIBase, "/")+"/"+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.config.BotToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}
	return out.err()
}
