package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gmsas95/ledgerbot/internal/channels"
	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const replChannel = "cli:local"

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Session feeds lines to a handler as one local chat channel
type Session struct {
	handler channels.Handler
	user    string
	out     io.Writer
	styled  bool
}

// NewSession creates a session speaking as user. Styling is applied only
// when styled is set, so piped output stays plain.
func NewSession(handler channels.Handler, user string, out io.Writer, styled bool) *Session {
	return &Session{handler: handler, user: user, out: out, styled: styled}
}

func (s *Session) render(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return style.Render(text)
}

// Send handles one line and prints the reply. Silent replies print a muted
// marker so the user can tell the line was not a transaction.
func (s *Session) Send(ctx context.Context, text string) {
	reply := s.handler.Handle(ctx, commands.Message{
		ID:       uuid.NewString(),
		Channel:  replChannel,
		UserID:   "local",
		UserName: s.user,
		Text:     text,
		Source:   "cli",
	})
	if reply.Silent {
		fmt.Fprintln(s.out, s.render(mutedStyle, "(no reply)"))
		return
	}
	fmt.Fprintln(s.out, s.render(replyStyle, reply.Text))
}

// Run reads lines until EOF or "exit"
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, s.render(mutedStyle, "ledgerbot chat: type 'help' for commands, 'exit' to quit"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, s.render(promptStyle, s.user+"> "))
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "q":
			return nil
		}

		s.Send(ctx, line)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// RunCLI sends message once, or starts an interactive session when it is empty
func (app *App) RunCLI(message, as string) error {
	if as == "" {
		as = app.Config.Household.DefaultPerson
	}
	styled := term.IsTerminal(int(os.Stdout.Fd()))
	session := NewSession(app.Router, as, os.Stdout, styled)

	ctx, cancel := context.WithTimeout(context.Background(), channels.DefaultTimeout)
	if message != "" {
		defer cancel()
		session.Send(ctx, message)
		return nil
	}
	cancel()

	return session.Run(context.Background(), os.Stdin)
}
