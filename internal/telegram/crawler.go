package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/sirupsen/logrus"

	"github.com/Hieutrinh123/telegram-bot-news/internal/digest"
)

// ErrNotAuthorized signals that the user session file is missing or revoked
// and the operator needs to rerun the interactive authentication.
var ErrNotAuthorized = errors.New("telegram: session not authorized")

const historyPageSize = 100

// Crawler reads recent channel history through an MTProto user session.
// Bots cannot read channel history, hence the user session.
type Crawler struct {
	apiID       int
	apiHash     string
	sessionPath string
	channels    []string
	log         *logrus.Entry

	now func() time.Time
}

// NewCrawler constructs a crawler over the given channels. The session file
// must have been created beforehand by the authsession command.
func NewCrawler(apiID int, apiHash, sessionPath string, channels []string, log *logrus.Entry) *Crawler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Crawler{
		apiID:       apiID,
		apiHash:     apiHash,
		sessionPath: sessionPath,
		channels:    channels,
		log:         log,
		now:         time.Now,
	}
}

// Crawl connects, walks every configured channel newest-first until the first
// message older than the window, and disconnects. An unauthorized session
// aborts the whole crawl with an empty result set; a failing channel only
// empties its own entry.
func (c *Crawler) Crawl(ctx context.Context, window time.Duration) (map[string][]digest.Post, error) {
	c.log.WithField("window", window).Info("crawling telegram channels")

	client := tdclient.NewClient(c.apiID, c.apiHash, tdclient.Options{
		SessionStorage: &session.FileStorage{Path: c.sessionPath},
	})

	result := make(map[string][]digest.Post, len(c.channels))
	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}

		api := client.API()
		cutoff := c.now().Add(-window)

		for _, channel := range c.channels {
			posts, err := c.crawlChannel(ctx, api, channel, cutoff)
			if err != nil {
				c.log.WithField("channel", channel).WithError(err).Error("channel crawl failed")
				result[channel] = nil
				continue
			}
			result[channel] = posts
			c.log.WithFields(logrus.Fields{"channel": channel, "messages": len(posts)}).Info("channel crawled")
		}
		return nil
	})
	if err != nil {
		return map[string][]digest.Post{}, err
	}

	return result, nil
}

// crawlChannel pages through the history newest-first and stops at the first
// stale message; the feed is delivered in strictly decreasing order, so one
// stale message means everything beyond it is stale too.
func (c *Crawler) crawlChannel(ctx context.Context, api *tg.Client, channel string, cutoff time.Time) ([]digest.Post, error) {
	peer, err := resolveChannel(ctx, api, channel)
	if err != nil {
		return nil, err
	}

	var posts []digest.Post
	offsetID := 0
	for {
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    historyPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}

		messages := historyMessages(history)
		if len(messages) == 0 {
			return posts, nil
		}

		var stale bool
		posts, offsetID, stale = collectPosts(posts, messages, channel, cutoff)
		if stale || len(messages) < historyPageSize {
			return posts, nil
		}
	}
}

// collectPosts appends text-bearing messages until the first stale one. It
// reports the last seen message ID for paging and whether the stale boundary
// was reached.
func collectPosts(posts []digest.Post, messages []tg.MessageClass, channel string, cutoff time.Time) ([]digest.Post, int, bool) {
	offsetID := 0
	for _, raw := range messages {
		offsetID = raw.GetID()
		msg, ok := raw.(*tg.Message)
		if !ok {
			continue
		}
		date := time.Unix(int64(msg.Date), 0)
		if date.Before(cutoff) {
			return posts, offsetID, true
		}
		if msg.Message == "" {
			continue
		}
		posts = append(posts, digest.Post{
			Text:    msg.Message,
			Date:    date,
			ID:      msg.ID,
			Channel: channel,
		})
	}
	return posts, offsetID, false
}

func resolveChannel(ctx context.Context, api *tg.Client, username string) (tg.InputPeerClass, error) {
	resolved, err := api.ContactsResolveUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolve @%s: %w", username, err)
	}
	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
		}
	}
	return nil, fmt.Errorf("@%s did not resolve to a channel", username)
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}
