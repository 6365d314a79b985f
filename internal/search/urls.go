package search

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jonathan/pitch-agent/internal/types"
)

var trackingParams = map[string]bool{
	"ref":      true,
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
	"_hsenc":   true,
	"_hsmi":    true,
	"ocid":     true,
	"cmpid":    true,
	"sr_share": true,
}

// NormalizeURL returns the canonical form used for de-duplication: lower-cased
// host without "www.", no fragment, no trailing slash, no tracking parameters,
// remaining query parameters sorted. Unparseable input is lower-cased and trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") || trackingParams[strings.ToLower(key)] {
			q.Del(key)
		}
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	out := host + path
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			for _, v := range q[k] {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		out += "?" + strings.Join(parts, "&")
	}
	return out
}

// Dedupe drops results whose normalized URL was already seen and re-numbers ranks from 1.
func Dedupe(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		r.Rank = len(out) + 1
		out = append(out, r)
	}
	return out
}

// Domain extracts the host of a URL without "www.".
func Domain(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// lowValueHosts are job boards and social sites; they rarely state facts
// directly. Subdomains match too.
var lowValueHosts = []string{
	"linkedin.com", "glassdoor.com", "indeed.com", "facebook.com",
	"twitter.com", "x.com", "instagram.com", "youtube.com", "pinterest.com",
}

// isLowValueHost reports whether host is one of lowValueHosts or a subdomain
// of one.
func isLowValueHost(host string) bool {
	for _, h := range lowValueHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// SourcePriority scores how useful a URL is likely to be as evidence.
func SourcePriority(urlStr string) float64 {
	if isLowValueHost(Domain(urlStr)) {
		return 0.2
	}

	urlLower := strings.ToLower(urlStr)

	// Filings and investor material
	for _, pattern := range []string{"investor", "annual-report", "10-k", "sec.gov", "earnings"} {
		if strings.Contains(urlLower, pattern) {
			return 0.95
		}
	}

	for _, pattern := range []string{"press", "news", "newsroom", "announcement", "blog"} {
		if strings.Contains(urlLower, pattern) {
			return 0.8
		}
	}

	for _, pattern := range []string{"about", "company", "who-we-are", "leadership", "partners"} {
		if strings.Contains(urlLower, pattern) {
			return 0.7
		}
	}

	return 0.5
}

// SortByPriority orders results by SourcePriority, keeping engine rank for ties.
func SortByPriority(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return SourcePriority(results[i].URL) > SourcePriority(results[j].URL)
	})
}
