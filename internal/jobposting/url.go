// Package jobposting implements posting identity: URL and title
// normalization, tiered duplicate resolution, and the merge policy
// applied when a duplicate is folded into its canonical record.
package jobposting

import (
	"crypto/sha256"
	"net/url"
	"sort"
	"strings"
)

// trackingQueryKeys are query parameters that carry no posting
// identity. Any parameter with a utm_ prefix is stripped as well.
var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"igshid":  {},
	"yclid":   {},
	"s":       {},
	"spm":     {},
}

func isTrackingKey(key string) bool {
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingQueryKeys[key]
	return ok
}

// NormalizeURL canonicalizes a posting URL: lowercased, scheme forced
// to https, default ports and fragments dropped, tracking parameters
// removed, remaining query keys sorted, and the trailing slash trimmed
// from non-root paths. Normalizing an already normalized URL returns it
// unchanged. Unparsable input falls back to the trimmed lowercase raw
// string so that ingestion never fails on a bad URL.
func NormalizeURL(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}

	candidate := cleaned
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return cleaned
	}

	parsed.Scheme = "https"
	parsed.Fragment = ""
	parsed.User = nil

	host := parsed.Host
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	parsed.Host = host

	if values, err := url.ParseQuery(parsed.RawQuery); err == nil {
		keys := make([]string, 0, len(values))
		for key := range values {
			if isTrackingKey(key) {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var query strings.Builder
		for _, key := range keys {
			sorted := append([]string(nil), values[key]...)
			sort.Strings(sorted)
			for _, value := range sorted {
				if query.Len() > 0 {
					query.WriteByte('&')
				}
				query.WriteString(url.QueryEscape(key))
				query.WriteByte('=')
				query.WriteString(url.QueryEscape(value))
			}
		}
		parsed.RawQuery = query.String()
	}

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	if parsed.Path == "/" && parsed.RawQuery == "" {
		parsed.Path = ""
	}

	return parsed.String()
}

// HashURL returns the SHA-256 digest of the normalized form of a URL.
// Two URLs that normalize identically always hash identically.
func HashURL(raw string) []byte {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return sum[:]
}
