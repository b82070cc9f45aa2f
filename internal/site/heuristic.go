package site

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
)

// HeuristicAdapter handles sites with no configured extraction rules. It
// treats every hyperlink on the search page as a candidate and relies on
// keyword matching plus date-shaped text in the link neighborhood.
type HeuristicAdapter struct {
	baseURL           string
	searchURLTemplate string
	rules             config.SiteRules
	http              Fetcher
	browser           Renderer
}

func NewHeuristicAdapter(baseURL string, rules config.SiteRules, httpClient Fetcher, browser Renderer) *HeuristicAdapter {
	return &HeuristicAdapter{
		baseURL:           baseURL,
		searchURLTemplate: rules.SearchURL,
		rules:             rules,
		http:              httpClient,
		browser:           browser,
	}
}

func (a *HeuristicAdapter) buildURL(keyword string) string {
	template := a.searchURLTemplate
	if template == "" && strings.Contains(a.baseURL, "{query}") {
		template = a.baseURL
	}
	if template == "" {
		return a.baseURL
	}
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(keyword))
}

// Search issues one GET against the query URL and keeps every hyperlink
// whose text (or its parent's text) contains the keyword. The publish time
// is the latest date found in the combined link text and href.
func (a *HeuristicAdapter) Search(ctx context.Context, keyword string) ([]domain.SearchResult, error) {
	searchURL := a.buildURL(keyword)
	htmlContent, err := a.http.GetHTML(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	base, err := url.Parse(searchURL)
	if err != nil {
		base = nil
	}

	var results []domain.SearchResult
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		linkText := squashText(s.Text())
		parentText := ""
		if parent := s.Parent(); parent.Length() > 0 {
			parentText = squashText(parent.Text())
		}
		combined := linkText + " " + parentText
		if !matchesKeyword(combined, keyword) {
			return
		}

		href := s.AttrOr("href", "")
		title := linkText
		if title == "" {
			title = keyword
		}
		results = append(results, domain.SearchResult{
			Title:       title,
			URL:         resolveURL(base, href),
			PublishTime: bestDate(combined + " " + href),
		})
	})
	return results, nil
}

// FetchDetailInfo loads the page behind a result, unless its URL already
// looks like a file. Fetch mode (plain HTTP or headless browser) follows the
// detail-page rules.
func (a *HeuristicAdapter) FetchDetailInfo(ctx context.Context, result domain.SearchResult) (*domain.DetailInfo, error) {
	info, _, err := fetchDetail(ctx, result, a.rules.DetailPage, a.http, a.browser, FetchModeHTTP)
	return info, err
}
