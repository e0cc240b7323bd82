package telegram

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "special characters",
			in:   "Summary 03-12-2025: Bitcoin reaches $95,000 (new ATH)!",
			want: `Summary 03\-12\-2025: Bitcoin reaches $95,000 \(new ATH\)\!`,
		},
		{
			name: "link preserved",
			in:   "- Whale bought $5M $ETH ([link](https://t.co/abc123))",
			want: `\- Whale bought $5M $ETH \([link](https://t.co/abc123)\)`,
		},
		{
			name: "brackets braces hashes",
			in:   "Test (parentheses), [brackets], {braces}, and #hashtags! Also . - + = | symbols",
			want: `Test \(parentheses\), \[brackets\], \{braces\}, and \#hashtags\! Also \. \- \+ \= \| symbols`,
		},
		{
			name: "plain text untouched",
			in:   "🔥 Daily News",
			want: "🔥 Daily News",
		},
		{
			name: "link label escaped",
			in:   "[see $5M move!](https://t.co/x)",
			want: `[see $5M move\!](https://t.co/x)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeMarkdownV2(tt.in); got != tt.want {
				t.Errorf("EscapeMarkdownV2(%q):\n got: %q\nwant: %q", tt.in, got, tt.want)
			}
		})
	}
}
