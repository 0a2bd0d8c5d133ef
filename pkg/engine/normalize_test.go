package engine

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercases scheme host and path",
			raw:  "HTTPS://Example.COM/Secret/File.ENV",
			want: "https://example.com/secret/file.env",
		},
		{
			name: "strips default https port",
			raw:  "https://example.com:443/a",
			want: "https://example.com/a",
		},
		{
			name: "strips default http port",
			raw:  "http://example.com:80/a",
			want: "http://example.com/a",
		},
		{
			name: "keeps non-default port",
			raw:  "https://example.com:8443/a",
			want: "https://example.com:8443/a",
		},
		{
			name: "strips fragment",
			raw:  "https://example.com/a#section",
			want: "https://example.com/a",
		},
		{
			name: "strips tracking parameters",
			raw:  "https://example.com/a?utm_source=x&utm_medium=y&gclid=123&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "sorts surviving parameters",
			raw:  "https://example.com/a?b=2&a=1",
			want: "https://example.com/a?a=1&b=2",
		},
		{
			name: "removes trailing slash",
			raw:  "https://example.com/dir/",
			want: "https://example.com/dir",
		},
		{
			name: "root path collapses to bare host",
			raw:  "https://example.com/",
			want: "https://example.com",
		},
		{
			name: "all stripped query disappears",
			raw:  "https://example.com/a?utm_source=news",
			want: "https://example.com/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLEquivalenceClasses(t *testing.T) {
	variants := []string{
		"https://Example.com/Data/backup.SQL?utm_campaign=x",
		"https://example.com:443/data/backup.sql",
		"https://example.com/data/backup.sql/",
		"https://example.com/data/backup.sql#top",
	}

	first, err := NormalizeURL(variants[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range variants[1:] {
		got, err := NormalizeURL(v)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", v, err)
		}
		if got != first {
			t.Errorf("%q normalized to %q, want %q", v, got, first)
		}
	}
}

func TestNormalizeURLInvalid(t *testing.T) {
	if _, err := NormalizeURL("https://example.com/%zz"); err == nil {
		t.Error("expected error for invalid URL escape")
	}
}
