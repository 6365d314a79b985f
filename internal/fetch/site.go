package fetch

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/types"
)

// SiteEngineName marks search results that came from the company's own site.
const SiteEngineName = "website"

// maxSnippetChars bounds the text kept per page.
const maxSnippetChars = 1500

// DefaultSitePaths are the pages scraped from a company website.
var DefaultSitePaths = []string{"/", "/about", "/about-us", "/investors", "/news"}

// SiteScraper collects evidence snippets from a company's own website.
type SiteScraper struct {
	Options *Options
	Paths   []string
	// Render, when set, is used for pages whose plain HTML has too little text.
	Render RenderFunc
	Logger *zap.Logger
}

// NewSiteScraper returns a scraper with default paths and options.
func NewSiteScraper(render RenderFunc, logger *zap.Logger) *SiteScraper {
	return &SiteScraper{
		Options: DefaultOptions(),
		Paths:   DefaultSitePaths,
		Render:  render,
		Logger:  logging.OrNop(logger),
	}
}

// Scrape fetches the configured paths under website concurrently. Failed pages
// are skipped; the result is ordered by path and never nil.
func (s *SiteScraper) Scrape(ctx context.Context, website string) []types.SearchResult {
	base, err := siteRoot(website)
	if err != nil {
		logging.OrNop(s.Logger).Debug("invalid website", zap.String("website", website), zap.Error(err))
		return []types.SearchResult{}
	}

	pages := make([]*types.SearchResult, len(s.Paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, path := range s.Paths {
		pageURL := base.ResolveReference(&url.URL{Path: path}).String()
		g.Go(func() error {
			pages[i] = s.scrapePage(gctx, pageURL)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.SearchResult, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		p.Rank = len(out) + 1
		out = append(out, *p)
	}
	return out
}

func (s *SiteScraper) scrapePage(ctx context.Context, pageURL string) *types.SearchResult {
	logger := logging.OrNop(s.Logger)
	res, err := URL(ctx, pageURL, s.Options)
	var page *Page
	if err == nil {
		page = &Page{Title: res.Title, Description: res.Description, Text: res.Text}
	} else {
		logger.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
	}

	if s.Render != nil && (page == nil || ShouldUseBrowser(page.Text)) && ctx.Err() == nil {
		html, rerr := s.Render(ctx, pageURL)
		if rerr == nil {
			if rendered, perr := ParsePage(html, CompanyPageSelectors()); perr == nil {
				page = rendered
			}
		} else {
			logger.Debug("browser render failed", zap.String("url", pageURL), zap.Error(rerr))
		}
	}
	if page == nil || strings.TrimSpace(page.Text) == "" {
		return nil
	}

	snippet := page.Text
	if page.Description != "" {
		snippet = page.Description + "\n" + snippet
	}
	if len(snippet) > maxSnippetChars {
		snippet = strings.ToValidUTF8(snippet[:maxSnippetChars], "")
	}
	title := page.Title
	if title == "" {
		title = pageURL
	}
	return &types.SearchResult{
		Query:      "company website",
		EngineUsed: SiteEngineName,
		Title:      title,
		URL:        pageURL,
		Snippet:    snippet,
	}
}

// siteRoot normalizes a website to its scheme and host.
func siteRoot(website string) (*url.URL, error) {
	website = strings.TrimSpace(website)
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, &Error{URL: website, Message: "missing host"}
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
