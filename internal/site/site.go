package site

import (
	"context"

	"sitewatch/internal/domain"
)

// Fetch modes shared by all adapters.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Adapter turns a search keyword into candidate results for one site, and a
// result into its detail content. An adapter is constructed once per domain
// and reused for every row targeting it.
type Adapter interface {
	// Search performs one search round trip and parses the results page.
	Search(ctx context.Context, keyword string) ([]domain.SearchResult, error)
	// FetchDetailInfo loads the page behind a result and enumerates its
	// attachments. An empty DetailInfo.HTML means the result is itself a
	// downloadable file.
	FetchDetailInfo(ctx context.Context, result domain.SearchResult) (*domain.DetailInfo, error)
}

// Fetcher is the plain-HTTP page loader used by adapters.
type Fetcher interface {
	GetHTML(ctx context.Context, url string) (string, error)
}

// Renderer loads a page in a headless browser, optionally waiting for a
// selector before reading the rendered markup.
type Renderer interface {
	Render(ctx context.Context, url, waitFor string) (string, error)
}
