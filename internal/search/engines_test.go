package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const ddgPage = `<html><body><div id="links" class="results">
<div class="result result--ad"><a class="result__a" href="https://ads.example/">Ad</a>
  <a class="result__snippet">Sponsored result that should never be returned</a></div>
<div class="result"><h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2Fabout&rut=abc">About Acme</a></h2>
  <a class="result__snippet">Acme Robotics builds industrial automation systems for factories.</a></div>
<div class="result"><a class="result__a" href="https://news.example/acme">Acme news</a>
  <a class="result__snippet">short</a></div>
<div class="result"><a class="result__a" href="https://news.example/acme-2">Acme raises funding</a>
  <a class="result__snippet">Acme Robotics raised a $40M Series C round in 2024 to expand.</a></div>
</div></body></html>`

func TestDuckDuckGoEngine_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme robotics", r.URL.Query().Get("q"))
		_, _ = fmt.Fprint(w, ddgPage)
	}))
	defer srv.Close()

	e := NewDuckDuckGoEngine(srv.Client())
	e.BaseURL = srv.URL

	results, err := e.Search(context.Background(), "acme robotics", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://acme.com/about", results[0].URL)
	assert.Equal(t, "About Acme", results[0].Title)
	assert.Equal(t, 2, results[1].Rank)
}

func TestDuckDuckGoEngine_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"challenge", http.StatusAccepted, "", RateLimited},
		{"too many", http.StatusTooManyRequests, "", RateLimited},
		{"server error", http.StatusBadGateway, "", Unreachable},
		{"anomaly page", http.StatusOK, "<html><body>anomaly detected</body></html>", RateLimited},
		{"unknown page", http.StatusOK, "<html><body>hello</body></html>", InvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			e := NewDuckDuckGoEngine(srv.Client())
			e.BaseURL = srv.URL
			_, err := e.Search(context.Background(), "q", 5)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestResolveDuckDuckGoLink(t *testing.T) {
	assert.Equal(t, "https://acme.com/x", resolveDuckDuckGoLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2Fx"))
	assert.Equal(t, "https://acme.com", resolveDuckDuckGoLink("https://acme.com"))
	assert.Equal(t, "", resolveDuckDuckGoLink("javascript:void(0)"))
	assert.Equal(t, "", resolveDuckDuckGoLink(""))
}

func TestSerpAPIEngine_ParsesOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "10", q.Get("num"))
		_, _ = fmt.Fprint(w, `{"organic_results":[
			{"title":"Acme 10-K","link":"https://sec.gov/acme","snippet":"Acme reported revenue of $2.1B.","date":"Mar 5, 2024"},
			{"title":"","link":"https://x.example","snippet":"missing title is skipped"},
			{"title":"Tiny","link":"https://y.example","snippet":"too short"}
		]}`)
	}))
	defer srv.Close()

	e := NewSerpAPIEngine("secret", srv.Client())
	e.BaseURL = srv.URL

	results, err := e.Search(context.Background(), "acme revenue", 25)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://sec.gov/acme", results[0].URL)
	require.NotNil(t, results[0].PublishedAt)
	assert.Equal(t, 2024, results[0].PublishedAt.Year())
}

func TestSerpAPIEngine_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		noError bool
	}{
		{name: "rate limited", status: 429, kind: RateLimited},
		{name: "unauthorized", status: 401, kind: Unreachable},
		{name: "bad json", status: 200, body: "{", kind: InvalidResponse},
		{name: "quota message", status: 200, body: `{"error":"Your account has run out of searches."}`, kind: RateLimited},
		{name: "api error", status: 200, body: `{"error":"Invalid parameter"}`, kind: InvalidResponse},
		{name: "no results", status: 200, body: `{"error":"Google hasn't returned any results for this query."}`, noError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			e := NewSerpAPIEngine("k", srv.Client())
			e.BaseURL = srv.URL
			results, err := e.Search(context.Background(), "q", 5)
			if tt.noError {
				require.NoError(t, err)
				assert.Empty(t, results)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestGoogleEngine_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cx-1", r.URL.Query().Get("cx"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"items":[
			{"title":"Acme Robotics","link":"https://acme.com","snippet":"Acme builds robots.",
			 "pagemap":{"metatags":[{"article:published_time":"2024-06-01T10:00:00Z"}]}},
			{"title":"","link":"https://skip.example"}
		]}`)
	}))
	defer srv.Close()

	e, err := NewGoogleEngine(context.Background(), "key", "cx-1",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	assert.Equal(t, "google", e.Name())

	results, err := e.Search(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.com", results[0].URL)
	require.NotNil(t, results[0].PublishedAt)
	assert.Equal(t, 6, int(results[0].PublishedAt.Month()))
}

func TestGoogleEngine_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"error":{"code":429,"message":"quota"}}`)
	}))
	defer srv.Close()

	e, err := NewGoogleEngine(context.Background(), "key", "cx", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = e.Search(context.Background(), "acme", 5)
	require.Error(t, err)
	assert.Equal(t, RateLimited, KindOf(err))
}

func TestNewGoogleEngine_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleEngine(context.Background(), "", "cx")
	assert.Error(t, err)
}
