// Package contenthash reduces submitted URLs to a digest used to spot
// independent claims over the same content.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// trackingParams are dropped before hashing
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"ref":          {},
	"source":       {},
	"fbclid":       {},
	"gclid":        {},
}

// Normalize returns the lowercase hex SHA-256 of the canonical form of rawURL
func Normalize(rawURL string) string {
	sum := sha256.Sum256([]byte(Canonical(rawURL)))
	return hex.EncodeToString(sum[:])
}

// Canonical returns the string that Normalize hashes.
// Casing, fragments, tracking parameters and one trailing slash are ignored.
func Canonical(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	// Strings that are not absolute URLs are hashed as they are.
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		u.RawQuery = stripTracking(u.RawQuery)
		u.ForceQuery = false
		s = u.String()
	}

	return strings.TrimSuffix(s, "/")
}

// stripTracking removes tracking parameters and keeps the order of the rest
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, drop := trackingParams[key]; drop {
			continue
		}
		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}
