package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/spf13/viper"
)

// Config holds all configuration for ledgerbot
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Slack     SlackConfig      `mapstructure:"slack"`
	Channels  ChannelsConfig   `mapstructure:"channels"`
	Storage   StorageConfig    `mapstructure:"storage"`
	State     StateConfig      `mapstructure:"state"`
	Household HouseholdConfig  `mapstructure:"household"`
	Budgets   map[string]int64 `mapstructure:"budgets"`
	Funds     FundsConfig      `mapstructure:"funds"`
	Bills     []BillConfig     `mapstructure:"bills"`
	Taxonomy  TaxonomyConfig   `mapstructure:"taxonomy"`
	Security  SecurityConfig   `mapstructure:"security"`
	Log       LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// SlackConfig holds Slack app credentials
type SlackConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BotToken      string `mapstructure:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret"`
}

// ChannelsConfig holds chat integration settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	BotToken  string  `mapstructure:"bot_token"`
	AllowList []int64 `mapstructure:"allow_list"`
}

// DiscordConfig holds Discord bot settings
type DiscordConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Token    string   `mapstructure:"token"`
	GuildID  string   `mapstructure:"guild_id"`
	Channels []string `mapstructure:"channels"`
	AllowDM  bool     `mapstructure:"allow_dm"`
}

// StorageConfig selects and configures the ledger backend
type StorageConfig struct {
	Backend           string `mapstructure:"backend"`
	SheetID           string `mapstructure:"sheet_id"`
	Credentials       string `mapstructure:"credentials"`
	TransactionTab    string `mapstructure:"transaction_tab"`
	BillsTab          string `mapstructure:"bills_tab"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	DataDir           string `mapstructure:"data_dir"`
	SQLitePath        string `mapstructure:"sqlite_path"`
	Timezone          string `mapstructure:"timezone"`
}

// StateConfig configures per-channel conversation state
type StateConfig struct {
	Backend       string `mapstructure:"backend"`
	DedupCapacity int    `mapstructure:"dedup_capacity"`
}

// HouseholdConfig maps chat users to members
type HouseholdConfig struct {
	DefaultPerson string            `mapstructure:"default_person"`
	Users         map[string]string `mapstructure:"users"`
}

// FundsConfig configures savings funds
type FundsConfig struct {
	Default         string        `mapstructure:"default"`
	Emergency       string        `mapstructure:"emergency"`
	EmergencyTarget int64         `mapstructure:"emergency_target"`
	Shares          []ShareConfig `mapstructure:"shares"`
}

// ShareConfig is one fund's share of the monthly surplus
type ShareConfig struct {
	Name    string `mapstructure:"name"`
	Percent int    `mapstructure:"percent"`
}

// BillConfig is a fixed bill used when the backend has no bills table
type BillConfig struct {
	Category    string `mapstructure:"category"`
	Amount      int64  `mapstructure:"amount"`
	Person      string `mapstructure:"person"`
	AutoInclude bool   `mapstructure:"auto_include"`
}

// TaxonomyConfig points at an optional category file
type TaxonomyConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	v.SetDefault("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "ledger.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "ledgerbot.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (LEDGERBOT_SERVER_PORT, LEDGERBOT_STORAGE_SHEET_ID, etc.)
	v.SetEnvPrefix("LEDGERBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("slack.enabled", true)

	v.SetDefault("storage.backend", "sheets")
	v.SetDefault("storage.transaction_tab", "Transaction")
	v.SetDefault("storage.bills_tab", "Fixed Bills")
	v.SetDefault("storage.requests_per_minute", 60)
	v.SetDefault("storage.timezone", "Asia/Seoul")

	v.SetDefault("state.backend", "memory")
	v.SetDefault("state.dedup_capacity", 1000)

	v.SetDefault("household.default_person", "Jacob")

	v.SetDefault("funds.default", "Emergency Fund")
	v.SetDefault("funds.emergency", "Emergency Fund")
	v.SetDefault("funds.emergency_target", 15_000_000)

	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ledgerbot")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "ledgerbot")
}

// loadEnvOverrides applies the deployment variable names the bot has always
// been run with on top of the canonical LEDGERBOT_* keys
func loadEnvOverrides(cfg *Config) {
	override := func(dst *string, canonical string) {
		if val := ResolveEnvWithAliases(canonical); val != "" {
			*dst = val
		}
	}

	override(&cfg.Slack.BotToken, "LEDGERBOT_SLACK_BOT_TOKEN")
	override(&cfg.Slack.SigningSecret, "LEDGERBOT_SLACK_SIGNING_SECRET")
	override(&cfg.Storage.SheetID, "LEDGERBOT_STORAGE_SHEET_ID")
	override(&cfg.Storage.Credentials, "LEDGERBOT_STORAGE_CREDENTIALS")
	override(&cfg.Channels.Telegram.BotToken, "LEDGERBOT_CHANNELS_TELEGRAM_BOT_TOKEN")
	override(&cfg.Channels.Discord.Token, "LEDGERBOT_CHANNELS_DISCORD_TOKEN")
	override(&cfg.Security.JWTSecret, "LEDGERBOT_SECURITY_JWT_SECRET")
	override(&cfg.Security.AdminPassword, "LEDGERBOT_SECURITY_ADMIN_PASSWORD")

	if port := ResolveEnvWithAliases("LEDGERBOT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// A token in the environment switches the channel on
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
		cfg.Channels.Telegram.Enabled = true
	}
	if GetEnvWithFallback("DISCORD_BOT_TOKEN", "DISCORD_TOKEN") != "" {
		cfg.Channels.Discord.Enabled = true
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "sheets", "sqlite", "memory":
	default:
		return apperrors.From(apperrors.ErrConfigInvalid,
			fmt.Errorf("storage.backend must be sheets, sqlite or memory, got %q", cfg.Storage.Backend))
	}

	switch cfg.State.Backend {
	case "memory", "badger":
	default:
		return apperrors.From(apperrors.ErrConfigInvalid,
			fmt.Errorf("state.backend must be memory or badger, got %q", cfg.State.Backend))
	}

	total := 0
	for _, s := range cfg.Funds.Shares {
		if s.Name == "" || s.Percent <= 0 {
			return apperrors.From(apperrors.ErrConfigInvalid, fmt.Errorf("fund share %q needs a name and a positive percent", s.Name))
		}
		total += s.Percent
	}
	if total > 100 {
		return apperrors.From(apperrors.ErrConfigInvalid, fmt.Errorf("fund shares add up to %d%%", total))
	}

	for category, limit := range cfg.Budgets {
		if limit <= 0 {
			return apperrors.From(apperrors.ErrConfigInvalid, fmt.Errorf("budget for %s must be positive", category))
		}
	}

	if cfg.Storage.Timezone != "" {
		if _, err := cfg.Location(); err != nil {
			return apperrors.From(apperrors.ErrConfigInvalid, err)
		}
	}

	return nil
}
