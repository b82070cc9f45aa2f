package site

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
)

var defaultAttachmentExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "zip", "rar", "7z", "csv", "ppt", "pptx",
}

var defaultTitleSelectors = []string{"h1", "title"}

var defaultAttachmentSelectors = []string{"a[href]"}

// Leading "附件1：" style labels on attachment anchors.
var attachmentLabelRe = regexp.MustCompile(`^\s*附件\s*\d*\s*[:：]?\s*`)

// squashText collapses runs of whitespace into single spaces and trims.
func squashText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeSelectors(values, fallback []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func normalizeExtensions(values []string) map[string]struct{} {
	if len(values) == 0 {
		values = defaultAttachmentExtensions
	}
	exts := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(v)), ".")
		if v != "" {
			exts[v] = struct{}{}
		}
	}
	return exts
}

func normalizeTextKeywords(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// isAttachmentURL reports whether a link points at a downloadable file,
// either by path extension or by a ".ext" occurring anywhere in the URL
// (download endpoints often bury the real name in a query parameter).
func isAttachmentURL(raw string, exts map[string]struct{}) bool {
	if raw == "" {
		return false
	}
	lowered := strings.ToLower(raw)
	for _, prefix := range []string{"javascript:", "mailto:", "#"} {
		if strings.HasPrefix(lowered, prefix) {
			return false
		}
	}
	if u, err := url.Parse(lowered); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
			if _, ok := exts[ext]; ok {
				return true
			}
		}
	}
	for ext := range exts {
		if strings.Contains(lowered, "."+ext) {
			return true
		}
	}
	return false
}

func cleanAttachmentName(text string) string {
	return strings.TrimSpace(attachmentLabelRe.ReplaceAllString(strings.TrimSpace(text), ""))
}

// resolveURL makes href absolute against base. Unparsable hrefs come back
// unchanged.
func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// nodeText extracts the visible text of a node, using the content attribute
// for meta tags.
func nodeText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		return strings.TrimSpace(s.AttrOr("content", ""))
	}
	return squashText(s.Text())
}

// extractTitle tries the configured selectors in order, then OpenGraph, then
// the document title.
func extractTitle(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := nodeText(node); text != "" {
			return text
		}
	}
	if content, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if text := strings.TrimSpace(content); text != "" {
			return text
		}
	}
	return squashText(doc.Find("title").First().Text())
}

// extractAttachments enumerates attachment links on a detail page, in
// document order, deduplicated by resolved URL. When textKeywords is
// non-empty an anchor is kept only if its own or its parent's text mentions
// one of them.
func extractAttachments(doc *goquery.Document, baseURL string, selectors []string, exts map[string]struct{}, textKeywords []string) []domain.Attachment {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	keywords := normalizeTextKeywords(textKeywords)

	var attachments []domain.Attachment
	seen := make(map[string]struct{})
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			if href == "" {
				return
			}
			fullURL := resolveURL(base, href)
			if !isAttachmentURL(fullURL, exts) {
				return
			}
			if len(keywords) > 0 {
				parentText := ""
				if parent := s.Parent(); parent.Length() > 0 {
					parentText = squashText(parent.Text())
				}
				combined := strings.ToLower(squashText(s.Text()) + " " + parentText)
				matched := false
				for _, kw := range keywords {
					if strings.Contains(combined, kw) {
						matched = true
						break
					}
				}
				if !matched {
					return
				}
			}
			if _, dup := seen[fullURL]; dup {
				return
			}
			seen[fullURL] = struct{}{}

			name := squashText(s.Text())
			if name == "" {
				name = s.AttrOr("title", "")
			}
			if name == "" {
				name = s.AttrOr("aria-label", "")
			}
			attachments = append(attachments, domain.Attachment{
				URL:  fullURL,
				Name: cleanAttachmentName(name),
			})
		})
	}
	return attachments
}

// fetchDetail is the detail-page flow shared by both adapter variants: gate
// on direct-file URLs, load the page in the configured mode, then pull the
// title and attachment list out of it. The returned raw HTML is the fetched
// page; rule-driven content trimming happens in the caller.
func fetchDetail(
	ctx context.Context,
	result domain.SearchResult,
	rules config.DetailPageRules,
	httpClient Fetcher,
	browser Renderer,
	defaultFetchMode string,
) (*domain.DetailInfo, *goquery.Document, error) {
	direct := &domain.DetailInfo{Title: result.Title}
	if !rules.IsEnabled() {
		return direct, nil, nil
	}

	exts := normalizeExtensions(rules.AttachmentExtensions)
	if isAttachmentURL(result.URL, exts) {
		return direct, nil, nil
	}

	mode := rules.FetchMode
	if mode == "" {
		mode = defaultFetchMode
	}
	htmlContent, err := fetchPage(ctx, result.URL, mode, httpClient, browser, "")
	if err != nil {
		return nil, nil, err
	}
	if htmlContent == "" {
		return direct, nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	title := extractTitle(doc, normalizeSelectors(rules.TitleSelectors, defaultTitleSelectors))
	if title == "" {
		title = result.Title
	}
	attachments := extractAttachments(
		doc,
		result.URL,
		normalizeSelectors(rules.AttachmentSelectors, defaultAttachmentSelectors),
		exts,
		rules.AttachmentTextKeywords,
	)
	return &domain.DetailInfo{Title: title, HTML: htmlContent, Attachments: attachments}, doc, nil
}

// fetchPage loads a URL through either the plain HTTP client or the headless
// browser.
func fetchPage(ctx context.Context, pageURL, mode string, httpClient Fetcher, browser Renderer, waitFor string) (string, error) {
	if mode == FetchModeBrowser {
		if browser == nil {
			return "", fmt.Errorf("browser fetch requested but no renderer is configured")
		}
		return browser.Render(ctx, pageURL, waitFor)
	}
	return httpClient.GetHTML(ctx, pageURL)
}
