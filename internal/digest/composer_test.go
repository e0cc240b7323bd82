package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Hieutrinh123/telegram-bot-news/internal/llm"
)

func fixedClock() time.Time {
	return time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)
}

func postsFixture() map[string][]Post {
	return map[string][]Post{
		"infinityhedge": {
			{Text: "Bitcoin reaches new all-time high at $95,000", ID: 3, Channel: "infinityhedge"},
			{Text: "Ethereum upgrade scheduled for next month", ID: 2, Channel: "infinityhedge"},
			{Text: "Major fund announces BTC allocation", ID: 1, Channel: "infinityhedge"},
		},
		"overheardonct": {},
	}
}

func TestComposeSkipsEmptyChannels(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "- Bitcoin hits $95,000\n- Ethereum upgrade next month", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	digest := composer.Compose(context.Background(), []string{"infinityhedge", "overheardonct"}, postsFixture(), nil)

	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 LLM call (empty channel skipped), got %d", len(fake.requests))
	}
	if !strings.Contains(fake.requests[0].Messages[0].Content, "@infinityhedge") {
		t.Errorf("prompt should address the channel with posts")
	}
	if !strings.Contains(digest, "- Bitcoin hits $95,000") {
		t.Errorf("digest missing bullet:\n%s", digest)
	}
	if strings.Contains(digest, "overheardonct") {
		t.Errorf("digest should not mention the empty channel:\n%s", digest)
	}
}

func TestComposeJoinsPostsNewestFirst(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "- ok", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	composer.Compose(context.Background(), []string{"infinityhedge"}, postsFixture(), nil)

	prompt := fake.requests[0].Messages[0].Content
	want := "Bitcoin reaches new all-time high at $95,000\n\n---\n\nEthereum upgrade scheduled for next month\n\n---\n\nMajor fund announces BTC allocation"
	if !strings.Contains(prompt, want) {
		t.Errorf("prompt should join posts with the separator in crawl order:\n%s", prompt)
	}
}

func TestComposeClampsOversizedPrompt(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "- ok", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	posts := map[string][]Post{
		"infinityhedge": {
			{Text: strings.Repeat("a", newsPromptLimit), ID: 2, Channel: "infinityhedge"},
			{Text: "TAIL-MARKER never reaches the model", ID: 1, Channel: "infinityhedge"},
		},
	}
	composer.Compose(context.Background(), []string{"infinityhedge"}, posts, nil)

	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(fake.requests))
	}
	prompt := fake.requests[0].Messages[0].Content
	if strings.Contains(prompt, "TAIL-MARKER") {
		t.Error("post text beyond the clamp should not reach the prompt")
	}
	if !strings.Contains(prompt, strings.Repeat("a", 100)) {
		t.Error("clamped head should survive")
	}
}

func TestComposeNormalizesBulletMarkers(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "• First point\n- Second point\nThird point without marker\n*emphasis noise*\n\n", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	digest := composer.Compose(context.Background(), []string{"infinityhedge"}, postsFixture(), nil)

	for _, want := range []string{"- First point", "- Second point", "- Third point without marker"} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
	if strings.Contains(digest, "emphasis noise") {
		t.Errorf("emphasis line should be dropped:\n%s", digest)
	}
}

func TestComposePlaceholderWhenNoBullets(t *testing.T) {
	composer := &Composer{Client: &fakeChatClient{}, Model: "openai/gpt-4o", Now: fixedClock}

	digest := composer.Compose(context.Background(), []string{"overheardonct"}, map[string][]Post{"overheardonct": nil}, nil)

	if !strings.Contains(digest, "- No significant news found in the last 24 hours.") {
		t.Errorf("expected news placeholder:\n%s", digest)
	}
}

func TestComposeChannelFailureIsolated(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "@broken") {
			return "", errors.New("boom")
		}
		return "- Healthy channel bullet", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	posts := map[string][]Post{
		"broken":        {{Text: "a", Channel: "broken"}},
		"infinityhedge": {{Text: "b", Channel: "infinityhedge"}},
	}
	digest := composer.Compose(context.Background(), []string{"broken", "infinityhedge"}, posts, nil)

	if !strings.Contains(digest, "- Healthy channel bullet") {
		t.Errorf("surviving channel should contribute:\n%s", digest)
	}
	if len(fake.requests) != 2 {
		t.Errorf("both channels should be attempted, got %d calls", len(fake.requests))
	}
}

func TestComposeSectionLayout(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "- Bullet", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	movements := []Movement{{Description: "Whale bought $5M $ETH", VolumeUSD: 5000000, Link: "https://t.co/abc"}}
	digest := composer.Compose(context.Background(), []string{"infinityhedge"}, postsFixture(), movements)

	want := "🗓 Summary 03-12-2025\n\n" +
		"🔥 Daily News\n\n" +
		"- Bullet\n\n" +
		"🤓 Onchain actions\n\n" +
		"- Whale bought $5M $ETH ([link](https://t.co/abc))"
	if digest != want {
		t.Errorf("unexpected digest:\n got: %q\nwant: %q", digest, want)
	}
}

func TestComposeIsIdempotent(t *testing.T) {
	fake := &fakeChatClient{respond: func(req llm.ChatCompletionRequest) (string, error) {
		return "- Stable bullet", nil
	}}
	composer := &Composer{Client: fake, Model: "openai/gpt-4o", Now: fixedClock}

	movements := []Movement{{Description: "Move", VolumeUSD: 10}}
	first := composer.Compose(context.Background(), []string{"infinityhedge"}, postsFixture(), movements)
	second := composer.Compose(context.Background(), []string{"infinityhedge"}, postsFixture(), movements)

	if first != second {
		t.Errorf("identical inputs should compose identically:\n%q\n%q", first, second)
	}
}
