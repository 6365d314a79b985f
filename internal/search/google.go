package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/pitch-agent/internal/types"
)

const (
	googleName   = "google"
	googleMaxNum = 10
)

// GoogleEngine queries a Google Programmable Search Engine.
type GoogleEngine struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleEngine creates the engine. Extra client options are appended after
// the API key, which lets tests point the service at a local endpoint.
func NewGoogleEngine(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleEngine, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and a search engine id")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleEngine{svc: svc, cx: cx}, nil
}

// Name implements Engine.
func (e *GoogleEngine) Name() string { return googleName }

// Search implements Engine.
func (e *GoogleEngine) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	resp, err := e.svc.Cse.List().
		Cx(e.cx).
		Q(query).
		Num(int64(min(maxResults, googleMaxNum))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, googleError(err)
	}

	results := make([]types.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Link == "" || item.Title == "" {
			continue
		}
		results = append(results, types.SearchResult{
			Query:       query,
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Snippet:     strings.Join(strings.Fields(item.Snippet), " "),
			Rank:        len(results) + 1,
			PublishedAt: publishedFromPagemap(item.Pagemap),
		})
	}
	return results, nil
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return transportError(googleName, err)
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if strings.Contains(item.Reason, "RateLimit") || strings.Contains(item.Reason, "rateLimit") ||
				strings.Contains(item.Reason, "dailyLimit") || strings.Contains(item.Reason, "quota") {
				return &EngineError{Engine: googleName, Kind: RateLimited, Cause: err}
			}
		}
	}
	ee := statusError(googleName, gerr.Code)
	ee.Cause = err
	return ee
}

var publishedMetaKeys = []string{"article:published_time", "og:updated_time", "date", "pubdate", "dc.date"}

// publishedFromPagemap reads a publication date from the page's meta tags.
func publishedFromPagemap(raw googleapi.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var pm struct {
		Metatags []map[string]string `json:"metatags"`
	}
	if err := json.Unmarshal(raw, &pm); err != nil {
		return nil
	}
	for _, tags := range pm.Metatags {
		for _, key := range publishedMetaKeys {
			if t := ParseDate(tags[key]); t != nil {
				return t
			}
		}
	}
	return nil
}
