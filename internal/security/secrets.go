package security

import (
	"regexp"
)

// SecretMatch is one credential-shaped token found in a message
type SecretMatch struct {
	Type     string
	Start    int
	End      int
	Redacted string
}

// SecretScanner finds bot tokens and keys pasted into chat by mistake
type SecretScanner struct {
	patterns []*secretPattern
}

type secretPattern struct {
	name       string
	regex      *regexp.Regexp
	redactWith string
}

var defaultSecretPatterns = []struct {
	name       string
	pattern    string
	redactWith string
}{
	{"Slack Token", `xox[baprs]-[0-9]{10,13}-[0-9]{10,13}-[a-zA-Z0-9]{24}`, "xox*-****"},
	{"Slack Webhook", `https://hooks.slack.com/services/T[0-9A-Z]{8,12}/B[0-9A-Z]{8,12}/[0-9a-zA-Z]{24}`, "https://hooks.slack.com/****"},
	{"Telegram Bot Token", `[0-9]{8,10}:[a-zA-Z0-9_-]{35}`, "****:****"},
	{"Discord Token", `[MN][a-zA-Z\d]{23}\.[\w-]{6}\.[\w-]{27}`, "DISCORD_TOKEN****"},
	{"Google API Key", `AIza[0-9A-Za-z\-_]{35}`, "AIza****"},
	{"Service Account Key", `-----BEGIN (?:RSA )?PRIVATE KEY-----`, "PRIVATE_KEY****"},
	{"JWT Token", `eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+`, "eyJ****"},
	{"Generic Secret", `(?i)(secret|password|passwd|token)['\"]?\s*[:=]\s*['\"]?[^\s'\"]{8,}['\"]?`, "SECRET****"},
}

func NewSecretScanner() *SecretScanner {
	s := &SecretScanner{patterns: make([]*secretPattern, 0, len(defaultSecretPatterns))}
	for _, p := range defaultSecretPatterns {
		s.patterns = append(s.patterns, &secretPattern{
			name:       p.name,
			regex:      regexp.MustCompile(p.pattern),
			redactWith: p.redactWith,
		})
	}
	return s
}

func (s *SecretScanner) Scan(input string) []SecretMatch {
	var matches []SecretMatch
	for _, p := range s.patterns {
		for _, loc := range p.regex.FindAllStringIndex(input, -1) {
			matches = append(matches, SecretMatch{
				Type:     p.name,
				Start:    loc[0],
				End:      loc[1],
				Redacted: p.redactWith,
			})
		}
	}
	return matches
}

func (s *SecretScanner) HasSecrets(input string) bool {
	for _, p := range s.patterns {
		if p.regex.MatchString(input) {
			return true
		}
	}
	return false
}

// Redact replaces every match so the text is safe to log
func (s *SecretScanner) Redact(input string) string {
	for _, p := range s.patterns {
		input = p.regex.ReplaceAllString(input, p.redactWith)
	}
	return input
}

func RedactSecrets(input string) string {
	return NewSecretScanner().Redact(input)
}
