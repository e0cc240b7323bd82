package digest

import "time"

// Post represents a single text-bearing message collected from a source
// Telegram channel.
type Post struct {
	Text    string
	Date    time.Time
	ID      int
	Channel string
}

// Tweet represents a social post collected from a monitored account.
// Replies are excluded by the fetcher.
type Tweet struct {
	Text      string
	CreatedAt time.Time
	ID        string
	Username  string
	Likes     int
	Retweets  int
	URL       string
}

// Movement is a notable onchain fund transfer extracted from tweets by the
// model. VolumeUSD is never negative.
type Movement struct {
	Description string  `json:"description"`
	VolumeUSD   float64 `json:"volume_usd"`
	Source      string  `json:"source"`
	Link        string  `json:"link"`
}
