package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFiles reads .env files into the process environment without
// overriding variables that are already set
func LoadEnvFiles() error {
	envPaths := []string{
		"./.env",
	}

	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths,
			filepath.Join(home, ".ledgerbot", ".env"),
			filepath.Join(home, ".config", "ledgerbot", ".env"),
		)
	}

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := loadEnvFile(path); err != nil {
				return err
			}
		}
	}

	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = strings.Trim(value, `"`)
		} else if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
			value = strings.Trim(value, `'`)
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// GetEnvWithFallback returns the first non-empty variable
func GetEnvWithFallback(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

var envAliases = map[string][]string{
	"LEDGERBOT_SLACK_BOT_TOKEN":             {"SLACK_BOT_TOKEN"},
	"LEDGERBOT_SLACK_SIGNING_SECRET":        {"SLACK_SIGNING_SECRET"},
	"LEDGERBOT_STORAGE_SHEET_ID":            {"GOOGLE_SHEET_ID", "SHEET_ID"},
	"LEDGERBOT_STORAGE_CREDENTIALS":         {"GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS_JSON"},
	"LEDGERBOT_SERVER_PORT":                 {"PORT"},
	"LEDGERBOT_CHANNELS_TELEGRAM_BOT_TOKEN": {"TELEGRAM_BOT_TOKEN"},
	"LEDGERBOT_CHANNELS_DISCORD_TOKEN":      {"DISCORD_BOT_TOKEN", "DISCORD_TOKEN"},
	"LEDGERBOT_SECURITY_JWT_SECRET":         {"JWT_SECRET"},
	"LEDGERBOT_SECURITY_ADMIN_PASSWORD":     {"ADMIN_PASSWORD"},
}

// ResolveEnvWithAliases reads the canonical key, then its legacy names
func ResolveEnvWithAliases(canonicalKey string) string {
	if val := os.Getenv(canonicalKey); val != "" {
		return val
	}

	if aliases, ok := envAliases[canonicalKey]; ok {
		for _, alias := range aliases {
			if val := os.Getenv(alias); val != "" {
				return val
			}
		}
	}

	return ""
}
