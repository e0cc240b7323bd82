package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hieutrinh123/telegram-bot-news/internal/llm"
)

const newsPromptLimit = 8000

const emptyNewsLine = "- No significant news found in the last 24 hours."

// Composer turns crawled channel posts and ranked movements into the final
// digest text.
type Composer struct {
	Client    llm.ChatClient
	Model     string
	MaxTokens int
	Log       *logrus.Entry

	// Now supplies the date stamp; defaults to time.Now.
	Now func() time.Time
}

// Compose summarizes every channel that has posts, formats the movements and
// assembles the digest. Channels are processed in the given order; channels
// with no posts are skipped without an LLM call.
func (c *Composer) Compose(ctx context.Context, channels []string, posts map[string][]Post, movements []Movement) string {
	bullets := c.newsBullets(ctx, channels, posts)
	return c.assemble(bullets, FormatMovements(movements))
}

func (c *Composer) newsBullets(ctx context.Context, channels []string, posts map[string][]Post) []string {
	log := c.logger()
	log.Info("generating news summary")

	var allBullets []string
	for _, channel := range channels {
		messages := posts[channel]
		if len(messages) == 0 {
			continue
		}

		texts := make([]string, 0, len(messages))
		for _, msg := range messages {
			texts = append(texts, msg.Text)
		}
		combined := clampRunes(strings.Join(texts, "\n\n---\n\n"), newsPromptLimit)

		maxTokens := c.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 500
		}

		req := llm.ChatCompletionRequest{
			Model:     c.Model,
			Messages:  []llm.Message{{Role: "user", Content: newsPrompt(channel, combined)}},
			MaxTokens: maxTokens,
		}

		resp, err := c.Client.ChatCompletion(ctx, req)
		if err != nil {
			log.WithField("channel", channel).WithError(err).Error("channel summary failed")
			continue
		}
		if len(resp.Choices) == 0 {
			log.WithField("channel", channel).Error("channel summary response missing choices")
			continue
		}

		allBullets = append(allBullets, parseBullets(resp.Choices[0].Message.Content)...)
		log.WithFields(logrus.Fields{"channel": channel, "messages": len(messages)}).Info("channel summarized")
	}

	if len(allBullets) == 0 {
		return []string{emptyNewsLine}
	}
	return allBullets
}

func (c *Composer) logger() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func newsPrompt(channel, messages string) string {
	return fmt.Sprintf(`You are a news summarization bot. Analyze the following messages from the Telegram channel @%s and extract the main bullet points.

Requirements:
1. Create 2-3 CONCISE bullet points highlighting ONLY the most important information
2. Each bullet point should be ONE sentence maximum
3. Focus on key events, major announcements, or significant updates only
4. Remove all redundant, minor, or trivial information
5. Be extremely concise and to-the-point
6. Use professional language

Messages from @%s:
%s

Provide ONLY the bullet points, no introduction or conclusion.`, channel, channel, messages)
}

// parseBullets normalizes the model's bullet markers to a uniform "- " prefix.
// Non-empty lines without a marker are treated as implicit bullets, except
// emphasis lines starting with "*".
func parseBullets(summary string) []string {
	var bullets []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			clean := strings.TrimSpace(strings.TrimLeft(line, "-•"))
			bullets = append(bullets, "- "+clean)
		} else if !strings.HasPrefix(line, "*") {
			bullets = append(bullets, "- "+line)
		}
	}
	return bullets
}

// assemble produces the digest: date header, news section, onchain section.
// The section titles are part of the published output contract.
func (c *Composer) assemble(newsBullets []string, onchainText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Summary %s\n\n", c.now().Format("02-01-2006"))
	b.WriteString("🔥 Daily News\n\n")
	b.WriteString(strings.Join(newsBullets, "\n\n"))
	b.WriteString("\n\n🤓 Onchain actions\n\n")
	b.WriteString(onchainText)
	return b.String()
}
