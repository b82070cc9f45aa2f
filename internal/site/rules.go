package site

import (
	"context"
	stdhtml "html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
)

// Detail-page date regexes used when the rules configure none, matching
// labeled dates like "发布日期：2024-01-01".
var defaultDetailDateRegexes = []string{
	`(?:发布日期|发布时间|日期)[：:\s]*([0-9]{4}[./-][0-9]{1,2}[./-][0-9]{1,2})`,
	`(?:发布日期|发布时间|日期)[：:\s]*([0-9]{4}年[0-9]{1,2}月[0-9]{1,2}日)`,
}

// Substrings that mark a text node as date-bearing during the fallback scan.
var dateLabels = []string{"日期", "发布时间", "发布日期"}

// RuleAdapter handles sites whose listings need structural selectors or JS
// rendering. Everything about it is driven by the per-domain rule block:
// query encoding, fetch mode, item/title/date selectors, keyword matching
// scope, detail-date backfill and content trimming.
type RuleAdapter struct {
	baseURL           string
	searchURLTemplate string
	rules             config.SiteRules
	http              Fetcher
	browser           Renderer
}

func NewRuleAdapter(baseURL string, rules config.SiteRules, httpClient Fetcher, browser Renderer) *RuleAdapter {
	return &RuleAdapter{
		baseURL:           baseURL,
		searchURLTemplate: rules.SearchURL,
		rules:             rules,
		http:              httpClient,
		browser:           browser,
	}
}

func encodeQuery(value, mode string) string {
	switch mode {
	case "none":
		return value
	case "double":
		return url.QueryEscape(url.QueryEscape(value))
	default:
		return url.QueryEscape(value)
	}
}

func compileRegexes(values []string) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, v := range values {
		re, err := regexp.Compile(v)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

func (a *RuleAdapter) buildURL(keyword string) string {
	template := a.searchURLTemplate
	if template == "" {
		template = a.baseURL
	}
	if !strings.Contains(template, "{query}") {
		return template
	}
	return strings.ReplaceAll(template, "{query}", encodeQuery(keyword, a.rules.QueryEncoding))
}

func (a *RuleAdapter) searchFetchMode() string {
	if a.rules.FetchMode != "" {
		return a.rules.FetchMode
	}
	return FetchModeBrowser
}

// Search fetches the listing (waiting for the configured selector when
// rendering in the browser), extracts results via the item selectors, and
// backfills missing publish dates from detail pages where enabled.
func (a *RuleAdapter) Search(ctx context.Context, keyword string) ([]domain.SearchResult, error) {
	searchURL := a.buildURL(keyword)
	waitFor := a.rules.Selectors.WaitFor
	if waitFor == "" {
		waitFor = a.rules.Selectors.Item
	}
	htmlContent, err := fetchPage(ctx, searchURL, a.searchFetchMode(), a.http, a.browser, waitFor)
	if err != nil {
		return nil, err
	}

	results, err := a.parseResults(htmlContent, keyword, searchURL)
	if err != nil {
		return nil, err
	}
	for i := range results {
		// Backfill failures leave the result dateless; the freshness
		// filter drops it downstream.
		a.fillDetailDate(ctx, &results[i])
	}
	return results, nil
}

func (a *RuleAdapter) parseResults(htmlContent, keyword, searchURL string) ([]domain.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(searchURL)
	if err != nil {
		base = nil
	}

	titleSelector := a.rules.Selectors.Title
	if titleSelector == "" {
		titleSelector = "a"
	}
	dateSelector := a.rules.Selectors.Date

	items := doc.Find("a[href]")
	if a.rules.Selectors.Item != "" {
		items = doc.Find(a.rules.Selectors.Item)
	}

	var results []domain.SearchResult
	items.Each(func(_ int, item *goquery.Selection) {
		link := item
		if goquery.NodeName(item) != "a" {
			link = item.Find(titleSelector).First()
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		if a.rules.LinkHrefContains != "" && !strings.Contains(href, a.rules.LinkHrefContains) {
			return
		}

		title := strings.TrimSpace(link.AttrOr("title", ""))
		if title == "" {
			title = squashText(link.Text())
		}
		if title == "" {
			title = keyword
		}
		combined := squashText(item.Text())
		matchText := combined
		if a.rules.MatchInTitleOnly {
			matchText = title
		}
		if a.rules.ShouldMatchKeyword() && !matchesKeyword(matchText, keyword) {
			return
		}

		var publishTime *time.Time
		if dateSelector != "" {
			if dateText := squashText(item.Find(dateSelector).First().Text()); dateText != "" {
				publishTime = bestDate(dateText)
			}
		}
		if publishTime == nil && a.rules.DateFromItem {
			publishTime = bestDate(combined)
		}

		results = append(results, domain.SearchResult{
			Title:       title,
			URL:         resolveURL(base, href),
			PublishTime: publishTime,
		})
	})
	return results, nil
}

// fillDetailDate visits the result's detail page to recover a publish date
// the listing did not carry. Fetch or parse failures are swallowed since a
// missing date only narrows the result set.
func (a *RuleAdapter) fillDetailDate(ctx context.Context, result *domain.SearchResult) {
	if result.PublishTime != nil || !a.rules.DetailDate.Enabled {
		return
	}
	if strings.HasSuffix(strings.ToLower(result.URL), ".pdf") {
		return
	}
	mode := a.rules.DetailDate.FetchMode
	if mode == "" {
		mode = FetchModeHTTP
	}
	htmlContent, err := fetchPage(ctx, result.URL, mode, a.http, a.browser, "")
	if err != nil || htmlContent == "" {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return
	}

	for _, sel := range a.rules.DetailDate.Selectors {
		text := squashText(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if t := bestDate(text); t != nil {
			result.PublishTime = t
			return
		}
	}

	regexes := a.rules.DetailDate.Regexes
	if len(regexes) == 0 {
		regexes = defaultDetailDateRegexes
	}
	// Regexes run over the raw markup so dates carried in attributes
	// still match.
	for _, re := range compileRegexes(regexes) {
		m := re.FindStringSubmatch(htmlContent)
		if len(m) < 2 {
			continue
		}
		if t := parseLooseDate(m[1]); t != nil {
			result.PublishTime = t
			return
		}
	}

	if t := firstLabeledDate(doc); t != nil {
		result.PublishTime = t
	}
}

// firstLabeledDate walks the document's text nodes in order and returns the
// date of the first label-bearing node whose own text yields one. Later
// labeled nodes are ignored even when they carry newer dates.
func firstLabeledDate(doc *goquery.Document) *time.Time {
	var candidates []string
	for _, node := range doc.Selection.Nodes {
		collectLabeledText(node, &candidates)
	}
	for _, text := range candidates {
		if t := bestDate(text); t != nil {
			return t
		}
	}
	return nil
}

func collectLabeledText(node *html.Node, out *[]string) {
	if node.Type == html.TextNode {
		for _, label := range dateLabels {
			if strings.Contains(node.Data, label) {
				*out = append(*out, node.Data)
				break
			}
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectLabeledText(child, out)
	}
}

// FetchDetailInfo downloads the detail page and, when content extraction is
// configured, trims it down to a synthetic document holding just the title,
// date and body blocks.
func (a *RuleAdapter) FetchDetailInfo(ctx context.Context, result domain.SearchResult) (*domain.DetailInfo, error) {
	info, doc, err := fetchDetail(ctx, result, a.rules.DetailPage, a.http, a.browser, a.searchFetchMode())
	if err != nil {
		return nil, err
	}
	if info.HTML != "" && doc != nil && a.rules.DetailPage.ContentExtract.Enabled {
		info.HTML = a.trimContent(doc, info.HTML, info.Title)
	}
	return info, nil
}

func (a *RuleAdapter) trimContent(doc *goquery.Document, original, title string) string {
	extract := a.rules.DetailPage.ContentExtract

	if len(extract.TitleSelectors) > 0 {
		if t := extractTitle(doc, extract.TitleSelectors); t != "" {
			title = t
		}
	}

	var dateText string
	for _, sel := range extract.DateSelectors {
		if text := squashText(doc.Find(sel).First().Text()); text != "" {
			dateText = text
			break
		}
	}

	var blocks []string
	for _, sel := range extract.BodySelectors {
		matches := doc.Find(sel)
		if matches.Length() == 0 {
			continue
		}
		matches.Each(func(_ int, sel *goquery.Selection) {
			raw, err := goquery.OuterHtml(sel)
			if err != nil || strings.TrimSpace(raw) == "" {
				return
			}
			cleaned := removeFromFragment(raw, extract.RemoveSelectors)
			if strings.TrimSpace(cleaned) != "" {
				blocks = append(blocks, cleaned)
			}
		})
		break
	}

	if len(blocks) == 0 {
		if extract.FallbackToOriginal() {
			return original
		}
		return ""
	}

	var b strings.Builder
	b.WriteString("<html><head><meta charset='utf-8'/></head><body>")
	if title != "" {
		b.WriteString("<h1>" + stdhtml.EscapeString(title) + "</h1>")
	}
	if dateText != "" {
		b.WriteString(`<div class="publish-date">` + stdhtml.EscapeString(dateText) + "</div>")
	}
	b.WriteString(`<div class="content">`)
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("</div></body></html>")
	return b.String()
}

// removeFromFragment re-parses a block fragment and strips the configured
// selectors before it is stitched into the trimmed document.
func removeFromFragment(fragment string, removeSelectors []string) string {
	if len(removeSelectors) == 0 {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	for _, sel := range removeSelectors {
		doc.Find(sel).Remove()
	}
	cleaned, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return cleaned
}
