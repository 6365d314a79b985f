package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/pitch-agent/internal/types"
)

const (
	serpAPIName    = "serpapi"
	serpAPIBaseURL = "https://serpapi.com/search"
	serpAPIMaxNum  = 10
)

// SerpAPIEngine queries Google results through SerpAPI.
type SerpAPIEngine struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewSerpAPIEngine returns an engine using client, or http.DefaultClient when nil.
func NewSerpAPIEngine(apiKey string, client *http.Client) *SerpAPIEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &SerpAPIEngine{BaseURL: serpAPIBaseURL, APIKey: apiKey, Client: client}
}

// Name implements Engine.
func (e *SerpAPIEngine) Name() string { return serpAPIName }

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic_results"`
}

// Search implements Engine.
func (e *SerpAPIEngine) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"q":       {query},
		"api_key": {e.APIKey},
		"engine":  {"google"},
		"num":     {strconv.Itoa(min(maxResults, serpAPIMaxNum))},
		"gl":      {"us"},
		"hl":      {"en"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &EngineError{Engine: serpAPIName, Kind: InvalidResponse, Cause: err}
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, transportError(serpAPIName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(serpAPIName, resp.StatusCode)
	}

	var body serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &EngineError{Engine: serpAPIName, Kind: InvalidResponse, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if body.Error != "" {
		// An empty result page is reported as an error string
		if strings.Contains(strings.ToLower(body.Error), "hasn't returned any results") {
			return nil, nil
		}
		kind := InvalidResponse
		if strings.Contains(strings.ToLower(body.Error), "run out of searches") {
			kind = RateLimited
		}
		return nil, &EngineError{Engine: serpAPIName, Kind: kind, Cause: fmt.Errorf("%s", body.Error)}
	}

	results := make([]types.SearchResult, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		title := strings.TrimSpace(r.Title)
		link := strings.TrimSpace(r.Link)
		snippet := strings.TrimSpace(r.Snippet)
		if title == "" || link == "" || len(snippet) <= 10 {
			continue
		}
		results = append(results, types.SearchResult{
			Query:       query,
			Title:       title,
			URL:         link,
			Snippet:     snippet,
			Rank:        len(results) + 1,
			PublishedAt: ParseDate(r.Date),
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
