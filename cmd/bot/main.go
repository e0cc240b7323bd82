package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Hieutrinh123/telegram-bot-news/internal/config"
	"github.com/Hieutrinh123/telegram-bot-news/internal/digest"
	"github.com/Hieutrinh123/telegram-bot-news/internal/llm"
	"github.com/Hieutrinh123/telegram-bot-news/internal/schedule"
	"github.com/Hieutrinh123/telegram-bot-news/internal/telegram"
	"github.com/Hieutrinh123/telegram-bot-news/internal/twitter"
)

var runNow bool

var rootCmd = &cobra.Command{
	Use:   "news-bot",
	Short: "Daily Telegram news digest bot",
	Long: `Crawls messages from configured Telegram channels and Twitter accounts,
generates an AI-powered digest, and posts it daily to a target channel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if missing := cfg.Missing(); len(missing) > 0 {
			return fmt.Errorf("configuration errors:\n  - %s", strings.Join(missing, "\n  - "))
		}

		printBanner(cfg)

		pipeline := buildPipeline(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runNow {
			logrus.Info("running summary immediately")
			_, err := pipeline.Run(ctx)
			return err
		}

		daily := &schedule.Daily{
			Hour:   cfg.SummaryHour,
			Minute: cfg.SummaryMinute,
			Job: func(ctx context.Context) {
				if _, err := pipeline.Run(ctx); err != nil {
					logrus.WithError(err).Error("daily summary run failed")
				}
			},
		}
		if err := daily.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func buildPipeline(cfg config.Config) *digest.Pipeline {
	log := logrus.StandardLogger()
	llmClient := llm.NewClient(cfg.OpenRouterAPIKey)

	channels := telegram.NewCrawler(
		cfg.APIID,
		cfg.APIHash,
		cfg.SessionPath,
		cfg.SourceChannels,
		logrus.NewEntry(log).WithField("component", "telegram"),
	)

	pipeline := &digest.Pipeline{
		Channels: channels,
		Analyzer: &digest.MovementAnalyzer{
			Client: llmClient,
			Model:  cfg.OpenRouterModel,
			Log:    logrus.NewEntry(log).WithField("component", "onchain"),
		},
		Composer: &digest.Composer{
			Client: llmClient,
			Model:  cfg.OpenRouterModel,
			Log:    logrus.NewEntry(log).WithField("component", "summarizer"),
		},
		Publisher:    telegram.NewPublisher(cfg.BotToken, cfg.TargetChannelID, logrus.NewEntry(log).WithField("component", "publisher")),
		ChannelOrder: cfg.SourceChannels,
		AccountOrder: cfg.TwitterAccounts,
		Window:       cfg.Window,
		Log:          logrus.NewEntry(log).WithField("component", "pipeline"),
	}

	if cfg.TwitterAPIKey != "" && len(cfg.TwitterAccounts) > 0 {
		pipeline.Tweets = twitter.NewCrawler(
			cfg.TwitterAPIKey,
			cfg.TwitterAccounts,
			cfg.FetchCount,
			logrus.NewEntry(log).WithField("component", "twitter"),
		)
	} else {
		logrus.Warn("twitter crawling disabled: no TWITTER_API_KEY or no accounts configured")
	}

	return pipeline
}

func printBanner(cfg config.Config) {
	channels := make([]string, len(cfg.SourceChannels))
	for i, ch := range cfg.SourceChannels {
		channels[i] = "@" + ch
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("  TELEGRAM NEWS BOT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("  Source channels: %s\n", strings.Join(channels, ", "))
	fmt.Printf("  Twitter accounts: %d\n", len(cfg.TwitterAccounts))
	fmt.Printf("  Target channel: %s\n", cfg.TargetChannelID)
	fmt.Printf("  Schedule: daily at %02d:%02d ICT (UTC+7)\n", cfg.SummaryHour, cfg.SummaryMinute)
	fmt.Println(strings.Repeat("=", 60))
}

func init() {
	rootCmd.Flags().BoolVar(&runNow, "now", false, "run the summary immediately and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
