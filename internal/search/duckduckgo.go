package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/pitch-agent/internal/types"
)

const (
	duckDuckGoName    = "duckduckgo"
	duckDuckGoBaseURL = "https://html.duckduckgo.com/html/"
	minSnippetLength  = 20
	defaultUserAgent  = "Mozilla/5.0 (compatible; PitchAgent/1.0)"
)

// DuckDuckGoEngine scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGoEngine struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

// NewDuckDuckGoEngine returns an engine using client, or http.DefaultClient when nil.
func NewDuckDuckGoEngine(client *http.Client) *DuckDuckGoEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGoEngine{
		BaseURL:   duckDuckGoBaseURL,
		Client:    client,
		UserAgent: defaultUserAgent,
	}
}

// Name implements Engine.
func (e *DuckDuckGoEngine) Name() string { return duckDuckGoName }

// Search implements Engine.
func (e *DuckDuckGoEngine) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	form := url.Values{"q": {query}, "kl": {"us-en"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"?"+form.Encode(), nil)
	if err != nil {
		return nil, &EngineError{Engine: duckDuckGoName, Kind: InvalidResponse, Cause: err}
	}
	req.Header.Set("User-Agent", e.UserAgent)

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, transportError(duckDuckGoName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// DuckDuckGo answers throttled clients with 202 and a challenge page
	if resp.StatusCode == http.StatusAccepted {
		return nil, &EngineError{Engine: duckDuckGoName, Kind: RateLimited, Cause: fmt.Errorf("HTTP 202 challenge")}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(duckDuckGoName, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &EngineError{Engine: duckDuckGoName, Kind: InvalidResponse, Cause: err}
	}
	if doc.Find("#links, .results, .no-results").Length() == 0 {
		if strings.Contains(strings.ToLower(doc.Text()), "anomaly") {
			return nil, &EngineError{Engine: duckDuckGoName, Kind: RateLimited, Cause: fmt.Errorf("anomaly challenge")}
		}
		return nil, &EngineError{Engine: duckDuckGoName, Kind: InvalidResponse, Cause: fmt.Errorf("unrecognized result page")}
	}

	var results []types.SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		target := resolveDuckDuckGoLink(href)
		snippet := strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " ")
		if title == "" || target == "" || len(snippet) < minSnippetLength {
			return true
		}
		results = append(results, types.SearchResult{
			Query:   query,
			Title:   title,
			URL:     target,
			Snippet: snippet,
			Rank:    len(results) + 1,
		})
		return len(results) < maxResults
	})
	return results, nil
}

// resolveDuckDuckGoLink unwraps DuckDuckGo redirect links ("//duckduckgo.com/l/?uddg=...").
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
