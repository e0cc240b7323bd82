package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultChannelsFile = "news-source/tele_channels.txt"
	defaultTwitterFile  = "news-source/twitter_channels.txt"
	defaultSessionPath  = "sessions/news_bot_user_session.json"
)

// Config captures runtime configuration for the news bot.
type Config struct {
	// Telegram Bot API token used for publishing.
	BotToken string
	// MTProto application credentials for the user session.
	APIID   int
	APIHash string

	// OpenRouter gateway.
	OpenRouterAPIKey string
	OpenRouterModel  string

	// twitterapi.io key. Optional: with no key the social fetch is skipped.
	TwitterAPIKey string

	SourceChannels  []string
	TwitterAccounts []string
	TargetChannelID string

	SummaryHour   int
	SummaryMinute int

	Window      time.Duration
	FetchCount  int
	SessionPath string
}

// Load creates a configuration instance sourced from environment variables
// and the flat channel list files.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIHash:          os.Getenv("TELEGRAM_API_HASH"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "openai/gpt-4o"),
		TwitterAPIKey:    os.Getenv("TWITTER_API_KEY"),
		TargetChannelID:  os.Getenv("TARGET_CHANNEL_ID"),
		SummaryHour:      9,
		SummaryMinute:    0,
		Window:           24 * time.Hour,
		FetchCount:       50,
		SessionPath:      getEnv("TELEGRAM_SESSION_FILE", defaultSessionPath),
	}

	if apiID := os.Getenv("TELEGRAM_API_ID"); apiID != "" {
		if _, err := fmt.Sscanf(apiID, "%d", &cfg.APIID); err != nil {
			return Config{}, fmt.Errorf("parse TELEGRAM_API_ID: %w", err)
		}
	}

	if hour := os.Getenv("SUMMARY_HOUR"); hour != "" {
		if _, err := fmt.Sscanf(hour, "%d", &cfg.SummaryHour); err != nil {
			return Config{}, fmt.Errorf("parse SUMMARY_HOUR: %w", err)
		}
	}

	if minute := os.Getenv("SUMMARY_MINUTE"); minute != "" {
		if _, err := fmt.Sscanf(minute, "%d", &cfg.SummaryMinute); err != nil {
			return Config{}, fmt.Errorf("parse SUMMARY_MINUTE: %w", err)
		}
	}

	if window := os.Getenv("SUMMARY_WINDOW_H"); window != "" {
		var hours int
		if _, err := fmt.Sscanf(window, "%d", &hours); err != nil {
			return Config{}, fmt.Errorf("parse SUMMARY_WINDOW_H: %w", err)
		}
		cfg.Window = time.Duration(hours) * time.Hour
	}

	cfg.SourceChannels = loadChannels(getEnv("CHANNELS_FILE", defaultChannelsFile))
	if len(cfg.SourceChannels) == 0 {
		cfg.SourceChannels = splitList(getEnv("SOURCE_CHANNELS", "infinityhedge,overheardonct"))
	}

	cfg.TwitterAccounts = loadChannels(getEnv("TWITTER_ACCOUNTS_FILE", defaultTwitterFile))

	return cfg, nil
}

// Missing reports which required settings are absent. An empty result means
// the configuration is complete enough to start.
func (c Config) Missing() []string {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.APIID == 0 {
		missing = append(missing, "TELEGRAM_API_ID")
	}
	if c.APIHash == "" {
		missing = append(missing, "TELEGRAM_API_HASH")
	}
	if c.OpenRouterAPIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if c.TargetChannelID == "" {
		missing = append(missing, "TARGET_CHANNEL_ID")
	}
	return missing
}

// loadChannels reads one identifier per line, skipping blank lines and
// #-comments and stripping a leading @. A missing file yields an empty list.
func loadChannels(path string) []string {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil
	}
	defer f.Close()

	var channels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		channels = append(channels, strings.TrimPrefix(line, "@"))
	}
	return channels
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
