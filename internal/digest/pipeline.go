package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChannelFetcher pulls recent posts for every configured source channel.
type ChannelFetcher interface {
	Crawl(ctx context.Context, window time.Duration) (map[string][]Post, error)
}

// TweetFetcher pulls recent tweets for every configured account.
type TweetFetcher interface {
	Crawl(ctx context.Context, window time.Duration) (map[string][]Tweet, error)
}

// Publisher delivers the digest to the destination channel.
type Publisher interface {
	Send(ctx context.Context, text string) error
}

// Pipeline runs one end-to-end digest: crawl both sources, extract movements,
// compose and publish. Runs are independent; no state survives between them.
type Pipeline struct {
	Channels  ChannelFetcher
	Tweets    TweetFetcher
	Analyzer  *MovementAnalyzer
	Composer  *Composer
	Publisher Publisher

	// ChannelOrder and AccountOrder fix the presentation order of the
	// digest sections to the configuration order.
	ChannelOrder []string
	AccountOrder []string

	Window time.Duration
	Log    *logrus.Entry
}

// Report summarises one run for the operator and for tests.
type Report struct {
	RunID     string
	Posts     int
	Tweets    int
	Movements int
	Digest    string
	Published bool
}

// Run executes the fixed sequence once. Fetch failures are logged and
// replaced with empty data so the remaining stages still run; only a compose
// or publish problem makes the run itself fail. The caller decides what a
// failed run means (the scheduler just logs it and waits for the next firing).
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := p.logger().WithField("run_id", report.RunID)

	window := p.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	if p.Composer == nil {
		return report, errors.New("pipeline requires a composer")
	}
	if p.Publisher == nil {
		return report, errors.New("pipeline requires a publisher")
	}

	log.WithField("window", window).Info("daily summary run started")

	posts := map[string][]Post{}
	if p.Channels != nil {
		crawled, err := p.Channels.Crawl(ctx, window)
		if err != nil {
			log.WithError(err).Error("telegram crawl failed")
		}
		if crawled != nil {
			posts = crawled
		}
	}
	for _, channelPosts := range posts {
		report.Posts += len(channelPosts)
	}

	tweets := map[string][]Tweet{}
	if p.Tweets != nil {
		crawled, err := p.Tweets.Crawl(ctx, window)
		if err != nil {
			log.WithError(err).Error("twitter crawl failed")
		}
		if crawled != nil {
			tweets = crawled
		}
	}
	for _, accountTweets := range tweets {
		report.Tweets += len(accountTweets)
	}

	var movements []Movement
	if p.Analyzer != nil {
		movements = p.Analyzer.TopMovements(ctx, p.AccountOrder, tweets)
	}
	report.Movements = len(movements)

	report.Digest = p.Composer.Compose(ctx, p.ChannelOrder, posts, movements)

	if err := p.Publisher.Send(ctx, report.Digest); err != nil {
		return report, fmt.Errorf("publish digest: %w", err)
	}
	report.Published = true

	log.WithFields(logrus.Fields{
		"posts":     report.Posts,
		"tweets":    report.Tweets,
		"movements": report.Movements,
	}).Info("daily summary run completed")

	return report, nil
}

func (p *Pipeline) logger() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
