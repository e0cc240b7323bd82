package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const botAPIBaseURL = "https://api.telegram.org"

// Publisher posts digests to the target channel through the Bot API.
type Publisher struct {
	client *resty.Client
	chatID string
	log    *logrus.Entry
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithBotBaseURL overrides the Bot API base URL (useful for tests).
func WithBotBaseURL(url string) PublisherOption {
	return func(p *Publisher) {
		if url != "" {
			p.client.SetBaseURL(url)
		}
	}
}

// NewPublisher constructs a publisher for the given bot token and channel.
// The channel may be a numeric -100... ID or an @username.
func NewPublisher(token, chatID string, log *logrus.Entry, opts ...PublisherOption) *Publisher {
	client := resty.New()
	client.SetBaseURL(botAPIBaseURL)
	client.SetTimeout(30 * time.Second)

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &Publisher{client: client, chatID: chatID, log: log}
	p.client.SetPathParam("token", "bot"+token)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int `json:"message_id"`
	} `json:"result"`
}

// Send escapes the text for the MarkdownV2 dialect and delivers it to the
// target channel. No retry: a failed send is the run's outcome.
func (p *Publisher) Send(ctx context.Context, text string) error {
	p.log.WithField("chat_id", p.chatID).Info("sending summary to channel")

	var body sendMessageResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    p.chatID,
			"text":       EscapeMarkdownV2(text),
			"parse_mode": "MarkdownV2",
		}).
		SetResult(&body).
		SetError(&body).
		Post("/{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !body.OK {
		if body.Description != "" {
			return fmt.Errorf("send message: %s", body.Description)
		}
		return fmt.Errorf("send message: unexpected status %s", resp.Status())
	}

	p.log.WithField("message_id", body.Result.MessageID).Info("summary posted")
	return nil
}
