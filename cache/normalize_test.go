package cache

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{"plain", "https://a.com/x", "", "https://a.com/x"},
		{"trailing slash", "https://a.com/x/", "", "https://a.com/x"},
		{"query and fragment", "https://a.com/x/?q=1#top", "", "https://a.com/x"},
		{"root kept", "https://a.com/", "", "https://a.com/"},
		{"empty path", "https://a.com", "", "https://a.com/"},
		{"case folded host", "HTTPS://Example.COM/Path", "", "https://example.com/Path"},
		{"port kept", "http://localhost:8080/app/", "", "http://localhost:8080/app"},
		{"userinfo dropped", "https://user:pw@a.com/x", "", "https://a.com/x"},
		{"relative", "../y/?z=1", "https://a.com/docs/x/", "https://a.com/docs/y"},
		{"absolute path", "/other", "https://a.com/docs/x", "https://a.com/other"},
		{"only one slash trimmed", "https://a.com/x//", "", "https://a.com/x/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.raw, tt.base); got != tt.want {
				t.Errorf("NormalizeURL(%q, %q) = %q, want %q", tt.raw, tt.base, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_TrailingSlashEquivalence(t *testing.T) {
	if NormalizeURL("https://a.com/x/", "") != NormalizeURL("https://a.com/x", "") {
		t.Error("URLs differing only by a trailing slash should normalize equally")
	}
}

func TestNormalizeURL_Fallback(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"a.com/page/?x=1", "a.com/page"},
		{"no-scheme#frag", "no-scheme"},
		{"http://[::1/broken?x", "http://[::1/broken"},
		{"/", "/"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.raw, ""); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeURL_NeverPanics(t *testing.T) {
	inputs := []string{"%", "%zz", "http://%41:8080/", "::::", "\x00\x01", "https://a.com/%zz?"}
	for _, in := range inputs {
		_ = NormalizeURL(in, "")
		_ = NormalizeURL(in, "https://base.example/")
		_ = NormalizeURL("x", in)
	}
}
