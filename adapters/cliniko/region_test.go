package cliniko

import "testing"

func TestShardFromAPIKey(t *testing.T) {
	cases := []struct {
		name   string
		apiKey string
		want   string
	}{
		{"three char shard", "MS0xLXRlc3RrZXktau2", "au2"},
		{"uk shard", "somekeymaterial-uk3", "uk3"},
		{"eu shard", "somekeymaterial-eu1", "eu1"},
		{"canada shard", "somekeymaterial-ca1", "ca1"},
		{"unknown suffix falls back", "somekeymaterial-zz9", "au1"},
		{"no shard suffix falls back", "plainkeymaterial", "au1"},
		{"short key falls back", "ab", "au1"},
		{"empty key falls back", "", "au1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShardFromAPIKey(tc.apiKey); got != tc.want {
				t.Fatalf("ShardFromAPIKey(%q) = %q, want %q", tc.apiKey, got, tc.want)
			}
		})
	}
}
