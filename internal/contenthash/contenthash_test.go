package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestNormalize_Equivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"case and trailing slash", "HTTP://Example.com/Path/", "http://example.com/path"},
		{"tracking param", "http://example.com/path?utm_source=x", "http://example.com/path"},
		{"fragment", "http://example.com/path#frag", "http://example.com/path"},
		{"whitespace", "  https://example.com/post  ", "https://example.com/post"},
		{"all tracking params", "https://example.com/a?utm_medium=m&utm_campaign=c&utm_term=t&utm_content=x&ref=r&source=s&fbclid=f&gclid=g", "https://example.com/a"},
		{"tracking mixed with real params", "https://example.com/a?id=7&utm_source=x&page=2", "https://example.com/a?id=7&page=2"},
		{"bare host", "https://Example.com/", "https://example.com"},
		{"not a url", "Example.com/Post/#top", "example.com/post"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Normalize(tt.a), Normalize(tt.b))
		})
	}
}

func TestNormalize_Distinct(t *testing.T) {
	assert.NotEqual(t, Normalize("http://example.com/path?id=1"), Normalize("http://example.com/path?id=2"))
	assert.NotEqual(t, Normalize("http://example.com/a"), Normalize("http://example.com/b"))
	assert.NotEqual(t, Normalize("https://example.com/a?b=1&c=2"), Normalize("https://example.com/a?c=2&b=1"))
}

func TestNormalize_Format(t *testing.T) {
	got := Normalize("https://example.com/post")

	assert.Regexp(t, hexDigest, got)

	sum := sha256.Sum256([]byte("https://example.com/post"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "http://example.com/path", Canonical("HTTP://Example.com/Path/?utm_source=x#frag"))
	assert.Equal(t, "https://example.com/a?id=1", Canonical("https://example.com/a?id=1&fbclid=abc"))
	assert.Equal(t, "https://example.com/a", Canonical("https://example.com/a?"))
}
