// Package urlutil implements URL canonicalization, hashing and the SSRF
// guard shared by every fetcher strategy (spec component C3). It
// generalizes the validateURL/makeAbsoluteURL helpers the teacher wrote
// per-scraper (internal/infra/scraper/webflow.go) into one place every
// strategy calls.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// blacklistedPrefixes and blacklistedExact list the query params stripped
// during canonicalization: the first by key prefix (utm_), the second by
// exact key.
var blacklistedPrefixes = []string{"utm_"}
var blacklistedExact = map[string]bool{
	"spm": true, "from": true, "ref": true, "ref_src": true, "spm_id_from": true,
}

// Canonicalize implements spec §4.3: lowercase scheme/host, case-sensitive
// path, blacklisted query params stripped, remaining params sorted,
// trailing slash dropped except on root, fragment preserved verbatim
// (critical: the snapshot strategy encodes a content hash into the
// fragment and relies on it surviving canonicalization unchanged).
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if blacklistedExact[lk] {
			q.Del(key)
			continue
		}
		for _, p := range blacklistedPrefixes {
			if strings.HasPrefix(lk, p) {
				q.Del(key)
				break
			}
		}
	}
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := url.Values{}
		for _, k := range keys {
			for _, v := range q[k] {
				vals.Add(k, v)
			}
		}
		u.RawQuery = vals.Encode()
	} else {
		u.RawQuery = ""
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// URLHash returns SHA-256(canonicalize(url)) as lowercase hex. If
// canonicalization fails (malformed URL), the raw input is hashed instead
// so callers always get a stable key rather than an error.
func URLHash(rawURL string) string {
	canon, err := Canonicalize(rawURL)
	if err != nil {
		canon = rawURL
	}
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace folds any run of whitespace to a single space and
// trims the result, the normalization ContentHash is defined over.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ContentHash returns SHA-256(whitespace_collapsed(text)) as lowercase hex,
// or "" if text is empty after collapsing (content_hash is null iff content
// is empty, per spec §3).
func ContentHash(text string) string {
	collapsed := CollapseWhitespace(text)
	if collapsed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(collapsed))
	return hex.EncodeToString(sum[:])
}

// ShortHash truncates a hex content hash to 12 characters, used by the
// snapshot strategy to build #snapshot-<contentHash12> fragments.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// NormalizeBaseURL appends a trailing slash when missing so relative-link
// resolution treats the base as a directory, not a file (spec §4.3: a base
// of https://x/a/b must not silently resolve sibling c to https://x/a/c).
func NormalizeBaseURL(base string) string {
	if base == "" {
		return base
	}
	if !strings.HasSuffix(base, "/") {
		return base + "/"
	}
	return base
}

// MakeAbsolute resolves a possibly-relative link against a normalized base
// URL, mirroring net/url.URL.ResolveReference usage in the teacher's
// webflow scraper.
func MakeAbsolute(base, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("empty link")
	}
	parsedLink, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	if parsedLink.IsAbs() {
		return parsedLink.String(), nil
	}
	baseURL, err := url.Parse(NormalizeBaseURL(base))
	if err != nil {
		return "", fmt.Errorf("parse base: %w", err)
	}
	return baseURL.ResolveReference(parsedLink).String(), nil
}

// ValidateURL enforces the scheme whitelist, host presence and SSRF
// private-IP guard shared by C1 and C4, generalizing the teacher's
// per-scraper validateURL into one function every fetch path calls.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}

	host := u.Hostname()
	ips, err := net.LookupIP(host)
	if err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return fmt.Errorf("url resolves to a private network address")
			}
		}
	}
	return nil
}

// isPrivateIP blocks loopback, link-local (including the cloud metadata
// address 169.254.169.254) and RFC1918/RFC4193 private ranges.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	privateRanges := []string{
		"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
		"fc00::/7", "100.64.0.0/10",
	}
	for _, cidr := range privateRanges {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return true
		}
	}
	return false
}
