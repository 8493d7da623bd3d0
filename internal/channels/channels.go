// Package channels holds what the chat adapters share.
package channels

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/gmsas95/ledgerbot/internal/commands"
)

// Handler processes one message; *commands.Router implements it
type Handler interface {
	Handle(ctx context.Context, msg commands.Message) commands.Reply
}

// DefaultTimeout bounds the handling of one inbound message
const DefaultTimeout = 30 * time.Second

// Split cuts text into chunks of at most maxLen bytes, on line breaks when possible
func Split(text string, maxLen int) []string {
	var parts []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			cut := runeBoundary(line, maxLen)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if current.Len() > 0 && current.Len()+len(line)+1 > maxLen {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// runeBoundary backs n off so that s[:n] does not split a UTF-8 sequence
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return n
}

var slackBold = regexp.MustCompile(`(^|[^*])\*([^*\n]+)\*([^*]|$)`)

// DoubleBold rewrites Slack-style *bold* into **bold** for Markdown dialects
// where a single asterisk means italics.
func DoubleBold(text string) string {
	return slackBold.ReplaceAllString(text, "$1**$2**$3")
}
