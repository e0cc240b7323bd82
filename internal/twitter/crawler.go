package twitter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/Hieutrinh123/telegram-bot-news/internal/digest"
)

const defaultBaseURL = "https://api.twitterapi.io"

// requestDelay is the fixed pause between account requests; the free API
// tier allows one request per 5 seconds.
const requestDelay = 6 * time.Second

// Crawler fetches recent tweets from monitored accounts via twitterapi.io.
type Crawler struct {
	client   *resty.Client
	accounts []string
	count    int
	log      *logrus.Entry

	// pace runs between successive account requests. Overridable so tests
	// run with zero delay.
	pace func(ctx context.Context)

	// now supplies the cutoff reference; defaults to time.Now.
	now func() time.Time
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithBaseURL overrides the API base URL (useful for tests).
func WithBaseURL(url string) Option {
	return func(c *Crawler) {
		if url != "" {
			c.client.SetBaseURL(url)
		}
	}
}

// WithPace overrides the inter-request pacing policy.
func WithPace(pace func(ctx context.Context)) Option {
	return func(c *Crawler) {
		c.pace = pace
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// NewCrawler constructs a crawler for the given accounts. The count caps how
// many tweets are requested per account before filtering.
func NewCrawler(apiKey string, accounts []string, count int, log *logrus.Entry, opts ...Option) *Crawler {
	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("X-API-Key", apiKey)

	if count <= 0 {
		count = 50
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Crawler{
		client:   client,
		accounts: accounts,
		count:    count,
		log:      log,
		now:      time.Now,
	}
	c.pace = func(ctx context.Context) {
		select {
		case <-time.After(requestDelay):
		case <-ctx.Done():
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tweetsResponse struct {
	Data struct {
		Tweets []rawTweet `json:"tweets"`
	} `json:"data"`
}

type rawTweet struct {
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	ID           string `json:"id"`
	IsReply      bool   `json:"isReply"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
	URL          string `json:"url"`
}

// Crawl fetches recent tweets for every configured account, dropping replies
// and tweets older than the window. A failing account contributes an empty
// list; the crawl continues with the rest. The pacing pause applies after
// every request regardless of its outcome.
func (c *Crawler) Crawl(ctx context.Context, window time.Duration) (map[string][]digest.Tweet, error) {
	c.log.WithField("accounts", len(c.accounts)).Info("crawling twitter accounts")

	cutoff := c.now().UTC().Add(-window)
	all := make(map[string][]digest.Tweet, len(c.accounts))

	for _, account := range c.accounts {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		tweets, err := c.crawlAccount(ctx, account, cutoff)
		if err != nil {
			c.log.WithField("account", account).WithError(err).Error("account crawl failed")
			all[account] = nil
		} else {
			all[account] = tweets
			c.log.WithFields(logrus.Fields{"account": account, "tweets": len(tweets)}).Info("account crawled")
		}
		c.pace(ctx)
	}

	return all, nil
}

func (c *Crawler) crawlAccount(ctx context.Context, account string, cutoff time.Time) ([]digest.Tweet, error) {
	var body tweetsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"userName": account,
			"count":    strconv.Itoa(c.count),
		}).
		SetResult(&body).
		Get("/twitter/user/last_tweets")
	if err != nil {
		return nil, fmt.Errorf("request last tweets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("last tweets: unexpected status %s", resp.Status())
	}

	var tweets []digest.Tweet
	for _, raw := range body.Data.Tweets {
		if raw.IsReply {
			continue
		}
		createdAt, err := parseCreatedAt(raw.CreatedAt)
		if err != nil {
			c.log.WithFields(logrus.Fields{"account": account, "tweet": raw.ID}).WithError(err).Warn("skipping tweet with unparsable date")
			continue
		}
		if createdAt.Before(cutoff) {
			continue
		}
		url := raw.URL
		if url == "" {
			url = fmt.Sprintf("https://twitter.com/%s/status/%s", account, raw.ID)
		}
		tweets = append(tweets, digest.Tweet{
			Text:      raw.Text,
			CreatedAt: createdAt,
			ID:        raw.ID,
			Username:  account,
			Likes:     raw.LikeCount,
			Retweets:  raw.RetweetCount,
			URL:       url,
		})
	}
	return tweets, nil
}

// createdAtLayouts covers the formats twitterapi.io has been seen returning.
var createdAtLayouts = []string{
	time.RubyDate,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
}

// parseCreatedAt normalizes a tweet timestamp to UTC. Timestamps without
// zone information are assumed to already be UTC.
func parseCreatedAt(value string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
