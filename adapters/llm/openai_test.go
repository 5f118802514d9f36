package llm

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "<h1>Note</h1>", "<h1>Note</h1>"},
		{"fenced with language tag", "```html\n<h1>Note</h1>\n```", "<h1>Note</h1>"},
		{"fenced without language tag", "```\n<h1>Note</h1>\n```", "<h1>Note</h1>"},
		{"surrounding whitespace", "  \n```html\n<p>hi</p>\n```\n ", "<p>hi</p>"},
		{"empty input", "", ""},
		{"backticks inside body survive", "use `code` here", "use `code` here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFence(tc.in); got != tc.want {
				t.Fatalf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
