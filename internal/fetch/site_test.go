package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSiteScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<html><head><title>Acme</title></head><body><main>Acme home page text.</main></body></html>`))
		case "/investors":
			_, _ = w.Write([]byte(`<html><head><title>Investors</title></head><body><main>FY2024 revenue was $2.1B.</main></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	s := NewSiteScraper(nil, zaptest.NewLogger(t))
	results := s.Scrape(context.Background(), server.URL+"/some/deep/link")

	require.Len(t, results, 2)
	assert.Equal(t, server.URL+"/", results[0].URL)
	assert.Equal(t, "Acme", results[0].Title)
	assert.Equal(t, SiteEngineName, results[0].EngineUsed)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, server.URL+"/investors", results[1].URL)
	assert.Contains(t, results[1].Snippet, "$2.1B")
	assert.Equal(t, 2, results[1].Rank)
}

func TestSiteScraper_BrowserFallbackForThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	var rendered []string
	render := func(_ context.Context, url string) (string, error) {
		rendered = append(rendered, url)
		return `<html><head><title>Rendered</title></head><body><main>` + strings.Repeat("rendered text ", 40) + `</main></body></html>`, nil
	}
	s := NewSiteScraper(render, nil)
	s.Paths = []string{"/about"}

	results := s.Scrape(context.Background(), server.URL)
	require.Len(t, results, 1)
	assert.Equal(t, "Rendered", results[0].Title)
	assert.Equal(t, []string{server.URL + "/about"}, rendered)
}

func TestSiteScraper_InvalidWebsite(t *testing.T) {
	s := NewSiteScraper(nil, nil)
	results := s.Scrape(context.Background(), "https://")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSiteRoot(t *testing.T) {
	u, err := siteRoot("acme.com/about")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", u.String())
}
