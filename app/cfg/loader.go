package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	DBPath string `long:"db-path" env:"DB_PATH" default:"data/state.db" description:"Path to the SQLite state database"`

	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for mutation endpoints (optional)"`

	WorkerCount   int `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of concurrent movie checks"`
	CheckInterval int `long:"check-interval" env:"CHECK_INTERVAL" default:"120" description:"Check interval in seconds"`
	CheckTimeout  int `long:"check-timeout" env:"CHECK_TIMEOUT" default:"300" description:"Per-check timeout in seconds"`

	TelegramToken       string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (empty disables notifications and commands)"`
	TelegramChatID      string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat ID for alerts"`
	CommandPollInterval int    `long:"command-poll-interval" env:"COMMAND_POLL_INTERVAL" default:"3" description:"Telegram command poll interval in seconds"`

	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for page fetches"`
	RequestTimeout   int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"60" description:"Page fetch timeout in seconds"`
	BreakerThreshold int    `long:"breaker-threshold" env:"CIRCUIT_BREAKER_THRESHOLD" default:"5" description:"Consecutive fetch failures before the circuit breaker opens"`
	BreakerCooldown  int    `long:"breaker-cooldown" env:"CIRCUIT_BREAKER_TIMEOUT" default:"300" description:"Circuit breaker cool-off in seconds"`

	DefaultTheatres string `long:"default-theatres" env:"DEFAULT_THEATERS" description:"Default theatres as NAME:TIER:keyword,keyword triples separated by ';'"`
	TheatresFile    string `long:"theatres-file" env:"THEATRES_FILE" description:"Optional YAML file with the default theatre list"`

	Timezone string `long:"timezone" env:"TZ" default:"Asia/Kolkata" description:"Timezone for timestamps"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Optional .env in the working directory
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	defaults, err := ParseTheatreList(raw.DefaultTheatres)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_THEATERS: %w", err)
	}

	if raw.TheatresFile != "" {
		fromFile, err := LoadTheatresFile(raw.TheatresFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load theatres file: %w", err)
		}
		defaults = append(defaults, fromFile...)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		WorkerCount:         raw.WorkerCount,
		CheckInterval:       raw.CheckInterval,
		CheckTimeout:        raw.CheckTimeout,
		TelegramToken:       raw.TelegramToken,
		TelegramChatID:      raw.TelegramChatID,
		CommandPollInterval: raw.CommandPollInterval,
		UserAgent:           raw.UserAgent,
		RequestTimeout:      raw.RequestTimeout,
		BreakerThreshold:    raw.BreakerThreshold,
		BreakerCooldown:     raw.BreakerCooldown,
		DefaultTheatres:     defaults,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	if c.CheckInterval < 30 {
		return fmt.Errorf("check interval must be at least 30 seconds, got %d", c.CheckInterval)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	// An abandoned check must be able to outlive the tick that spawned it.
	if c.CheckTimeout <= c.CheckInterval {
		c.CheckTimeout = c.CheckInterval * 2
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
