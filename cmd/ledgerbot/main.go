package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gmsas95/ledgerbot/internal/app"
	"github.com/gmsas95/ledgerbot/internal/config"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "chat":
		runChat(args)
	case "version", "--version", "-v":
		fmt.Printf("ledgerbot version %s\n", version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printHelp()
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Println(`ledgerbot - household finance bot

Usage:
  ledgerbot [serve] [flags]     Run the HTTP server and enabled chat channels
  ledgerbot chat [flags]        Chat with the bot from the terminal
  ledgerbot version             Print the version
  ledgerbot help                Show this help

Flags:
  -config string   Path to config file
  -data string     Path to data directory

Chat flags:
  -m string        Send one message and exit
  -as string       Member to speak as (default household.default_person)
  -dry-run         Use an in-memory ledger instead of the configured one

Environment:
  SLACK_BOT_TOKEN, SLACK_SIGNING_SECRET, GOOGLE_SHEET_ID, GOOGLE_CREDENTIALS,
  PORT, TELEGRAM_BOT_TOKEN, DISCORD_BOT_TOKEN and LEDGERBOT_* keys`)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	fs.Parse(args)

	application := initApp(*configPath, *dataDir, nil)
	defer application.Close()
	application.RunServer()
}

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	message := fs.String("m", "", "Message to send")
	as := fs.String("as", "", "Member to speak as")
	dryRun := fs.Bool("dry-run", false, "Use an in-memory ledger")
	fs.Parse(args)

	application := initApp(*configPath, *dataDir, func(cfg *config.Config) {
		if *dryRun {
			cfg.Storage.Backend = "memory"
		}
		// Keep the terminal readable
		if cfg.Log.Level == "" || cfg.Log.Level == "info" {
			cfg.Log.Level = "warn"
		}
	})
	defer application.Close()

	if err := application.RunCLI(*message, *as); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func initApp(configPath, dataDir string, adjust func(*config.Config)) *app.App {
	if err := config.LoadEnvFiles(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if adjust != nil {
		adjust(cfg)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting ledgerbot",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("state", cfg.State.Backend),
	)

	application, err := app.New(context.Background(), cfg, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize app", zap.Error(err))
	}
	return application
}
