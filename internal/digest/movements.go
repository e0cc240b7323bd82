package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Hieutrinh123/telegram-bot-news/internal/llm"
)

const (
	movementPromptLimit = 12000
	topMovements        = 5
)

const emptyMovementsLine = "- No significant onchain movements detected."

// MovementAnalyzer extracts ranked onchain movements from tweets via the LLM.
type MovementAnalyzer struct {
	Client    llm.ChatClient
	Model     string
	MaxTokens int
	Log       *logrus.Entry
}

// TopMovements analyzes tweets grouped by account and returns at most five
// movements sorted by descending USD volume. Accounts are flattened in the
// given order. Any failure, model non-compliance included, yields an empty
// list rather than an error.
func (a *MovementAnalyzer) TopMovements(ctx context.Context, accounts []string, tweetsByAccount map[string][]Tweet) []Movement {
	log := a.logger()

	lines := flattenTweets(accounts, tweetsByAccount)
	if len(lines) == 0 {
		log.Info("no tweets to analyze")
		return nil
	}

	combined := clampRunes(strings.Join(lines, "\n\n"), movementPromptLimit)

	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}

	req := llm.ChatCompletionRequest{
		Model:          a.Model,
		Messages:       []llm.Message{{Role: "user", Content: movementPrompt(combined)}},
		MaxTokens:      maxTokens,
		ResponseFormat: llm.JSONObject(),
	}

	log.WithField("tweets", len(lines)).Info("analyzing onchain movements")

	resp, err := a.Client.ChatCompletion(ctx, req)
	if err != nil {
		log.WithError(err).Error("onchain analysis request failed")
		return nil
	}
	if len(resp.Choices) == 0 {
		log.Error("onchain analysis response missing choices")
		return nil
	}

	movements, err := parseMovements(resp.Choices[0].Message.Content)
	if err != nil {
		log.WithError(err).Error("onchain analysis response unparsable")
		return nil
	}

	ranked := rankMovements(movements)
	log.WithFields(logrus.Fields{"identified": len(movements), "selected": len(ranked)}).Info("onchain movements ranked")
	return ranked
}

func (a *MovementAnalyzer) logger() *logrus.Entry {
	if a.Log != nil {
		return a.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// flattenTweets renders every tweet as "[account] text (Link: url)" so the
// model can associate each movement with its reference URL.
func flattenTweets(accounts []string, tweetsByAccount map[string][]Tweet) []string {
	var lines []string
	for _, account := range accounts {
		for _, tweet := range tweetsByAccount[account] {
			lines = append(lines, fmt.Sprintf("[%s] %s (Link: %s)", account, tweet.Text, tweet.URL))
		}
	}
	return lines
}

func movementPrompt(tweets string) string {
	return fmt.Sprintf(`You are an expert onchain analyst. Analyze the following tweets and extract onchain movements.

Tweets:
%s

Requirements:
1. Process EVERY single tweet provided in the input.
2. For EACH tweet, extract the USD volume. If no volume is mentioned, use 0.
3. IMPORTANT: Extract the FIRST https://t.co/... link found INSIDE the tweet text itself.
   - DO NOT use the tweet URL that appears after "(Link: ...)" at the end
   - ONLY extract the t.co link that is part of the actual tweet content
   - These t.co links are shortened URLs that point to blockchain explorers
   - If no t.co link is found in the tweet text, leave the "link" field empty
4. Return a JSON object with a "movements" key containing an array of objects with these fields:
   - "description": A concise 1-sentence description of the movement (e.g., "Whale 0x123 bought $5M $ETH"). Ensure all tickers have $ prefix.
   - "volume_usd": The numeric value in USD (e.g., 5000000). Use 0 if unknown.
   - "source": The Twitter account name (e.g., "lookonchain")
   - "link": The FIRST t.co link found IN the tweet text. Empty string if none found.

5. Sort the array by "volume_usd" in descending order.
6. Return the top 5 movements with the highest volume.
7. Format: {"movements": [...]}`, tweets)
}

type rawMovement struct {
	Description string          `json:"description"`
	VolumeUSD   json.RawMessage `json:"volume_usd"`
	Source      string          `json:"source"`
	Link        string          `json:"link"`
}

// parseMovements decodes the model output, tolerating the common shapes of
// non-compliance. The extraction rules apply in a fixed order: the strict
// {"movements": [...]} envelope, a bare array, a single movement object, and
// finally the first array-typed value found in the object (keys scanned in
// sorted order, so the result is deterministic).
func parseMovements(content string) ([]Movement, error) {
	payload := strings.TrimSpace(extractJSON(content))
	if payload == "" {
		return nil, errors.New("response missing json payload")
	}
	data := []byte(payload)

	var envelope struct {
		Movements []rawMovement `json:"movements"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Movements != nil {
		return convertMovements(envelope.Movements), nil
	}

	var list []rawMovement
	if err := json.Unmarshal(data, &list); err == nil {
		return convertMovements(list), nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if _, ok := object["volume_usd"]; ok {
		var single rawMovement
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("decode movement object: %w", err)
		}
		return convertMovements([]rawMovement{single}), nil
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var inner []rawMovement
		if err := json.Unmarshal(object[key], &inner); err == nil {
			return convertMovements(inner), nil
		}
	}

	return nil, errors.New("no movement list found in response")
}

func convertMovements(raws []rawMovement) []Movement {
	movements := make([]Movement, 0, len(raws))
	for _, r := range raws {
		movements = append(movements, Movement{
			Description: r.Description,
			VolumeUSD:   volumeUSD(r.VolumeUSD),
			Source:      r.Source,
			Link:        r.Link,
		})
	}
	return movements
}

// volumeUSD reads a volume that the model may emit as a number or a decorated
// string such as "$5,000,000". Anything unreadable or negative counts as 0.
func volumeUSD(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		if number < 0 {
			return 0
		}
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(text), "$"), ",", "")
		if value, err := strconv.ParseFloat(text, 64); err == nil && value > 0 {
			return value
		}
	}
	return 0
}

// rankMovements re-sorts descending by volume and truncates to the top five.
// The prompt asks the model to do this, but its compliance is not guaranteed,
// so this local step is the authoritative one.
func rankMovements(movements []Movement) []Movement {
	ranked := make([]Movement, len(movements))
	copy(ranked, movements)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VolumeUSD > ranked[j].VolumeUSD
	})
	if len(ranked) > topMovements {
		ranked = ranked[:topMovements]
	}
	return ranked
}

// FormatMovements renders movements as markdown bullets with clickable links.
func FormatMovements(movements []Movement) string {
	if len(movements) == 0 {
		return emptyMovementsLine
	}
	bullets := make([]string, 0, len(movements))
	for _, mov := range movements {
		desc := strings.TrimSuffix(mov.Description, ".")
		if mov.Link != "" {
			bullets = append(bullets, fmt.Sprintf("- %s ([link](%s))", desc, mov.Link))
		} else {
			bullets = append(bullets, fmt.Sprintf("- %s", desc))
		}
	}
	return strings.Join(bullets, "\n\n")
}

// extractJSON trims any prose or code fences around the first JSON value.
func extractJSON(content string) string {
	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		end := strings.LastIndex(content, "]")
		if end > arrStart {
			return content[arrStart : end+1]
		}
		return ""
	}
	if objStart == -1 {
		return ""
	}
	end := strings.LastIndex(content, "}")
	if end <= objStart {
		return ""
	}
	return content[objStart : end+1]
}

func clampRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
