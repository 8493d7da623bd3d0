package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/gmsas95/ledgerbot/internal/security"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "8f742231b10e8888abcd99yyyzzz85a5"

type recorder struct {
	mu       sync.Mutex
	messages []commands.Message
	reply    commands.Reply
}

func (r *recorder) Handle(_ context.Context, msg commands.Message) commands.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.reply
}

type slackAPI struct {
	mu     sync.Mutex
	posts  []map[string]string
	lookup int
}

func (s *slackAPI) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.URL.Path {
		case "/users.info":
			s.lookup++
			_, _ = io.WriteString(w, `{"ok":true,"user":{"name":"nhuynh","real_name":"Naomi Huynh"}}`)
		case "/chat.postMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.posts = append(s.posts, body)
			_, _ = io.WriteString(w, `{"ok":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, reply commands.Reply) (*fiber.App, *Adapter, *recorder, *slackAPI) {
	api := &slackAPI{}
	srv := api.server(t)
	rec := &recorder{reply: reply}

	a := NewAdapter(Config{BotToken: "xoxb-test", SigningSecret: secret, APIBase: srv.URL}, rec, zap.NewNop())
	now := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return now }

	app := fiber.New()
	app.Post("/slack/events", a.Events)
	return app, a, rec, api
}

func signed(t *testing.T, body string, ts int64) *http.Request {
	stamp := strconv.FormatInt(ts, 10)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", security.SignSlack(secret, stamp, []byte(body)))
	return req
}

func messageEvent(id, text string) string {
	return `{"type":"event_callback","event_id":"` + id + `","event":{"type":"message","channel":"C1","user":"U9","text":"` + text + `","ts":"1.2"}}`
}

func TestEvents_URLVerification(t *testing.T) {
	app, _, _, _ := setup(t, commands.Reply{})

	resp, err := app.Test(signed(t, `{"type":"url_verification","challenge":"abc123"}`, 1_700_000_000))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "abc123", out["challenge"])
}

func TestEvents_RejectsBadSignature(t *testing.T) {
	app, _, rec, _ := setup(t, commands.Reply{})

	req := signed(t, messageEvent("Ev1", "gas 150K"), 1_700_000_000)
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(signed(t, messageEvent("Ev1", "gas 150K"), 1_700_000_000-3600))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, rec.messages)
}

func TestEvents_MessageIsHandledAndReplied(t *testing.T) {
	app, a, rec, api := setup(t, commands.Reply{Text: "✅ Logged"})

	resp, err := app.Test(signed(t, messageEvent("Ev1", "gas 150K"), 1_700_000_000))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	a.Wait()

	require.Len(t, rec.messages, 1)
	msg := rec.messages[0]
	assert.Equal(t, "Ev1", msg.ID)
	assert.Equal(t, "slack:C1", msg.Channel)
	assert.Equal(t, "U9", msg.UserID)
	assert.Equal(t, "Naomi", msg.UserName)
	assert.Equal(t, "gas 150K", msg.Text)
	assert.Equal(t, "slack", msg.Source)

	require.Len(t, api.posts, 1)
	assert.Equal(t, "C1", api.posts[0]["channel"])
	assert.Equal(t, "✅ Logged", api.posts[0]["text"])

	_, err = app.Test(signed(t, messageEvent("Ev2", "lunch 12k"), 1_700_000_000))
	require.NoError(t, err)
	a.Wait()
	assert.Equal(t, 1, api.lookup, "user names are cached")
}

func TestEvents_SilentReplyPostsNothing(t *testing.T) {
	app, a, rec, api := setup(t, commands.Reply{Silent: true})

	_, err := app.Test(signed(t, messageEvent("Ev1", "good morning"), 1_700_000_000))
	require.NoError(t, err)
	a.Wait()

	assert.Len(t, rec.messages, 1)
	assert.Empty(t, api.posts)
}

func TestToMessage_SkipsBotsAndSubtypes(t *testing.T) {
	tests := []struct {
		name string
		ev   event
		ok   bool
	}{
		{"plain", event{Type: "message", Channel: "C1", Text: "gas 150K"}, true},
		{"bot", event{Type: "message", Channel: "C1", Text: "✅ Logged", BotID: "B1"}, false},
		{"edited", event{Type: "message", Channel: "C1", Text: "gas", Subtype: "message_changed"}, false},
		{"reaction", event{Type: "reaction_added", Channel: "C1"}, false},
		{"blank", event{Type: "message", Channel: "C1", Text: "  "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := toMessage(envelope{EventID: "Ev1", Event: tt.ev})
			assert.Equal(t, tt.ok, ok)
		})
	}
}
