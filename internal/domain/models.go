package domain

import "time"

// RowItem is one crawl target from the manifest: a keyword to search for,
// the site to search on, and the reference time used for freshness filtering.
// Rows with a missing or unparsable reference time never reach the pipeline.
type RowItem struct {
	FileName      string
	URL           string
	ReferenceTime time.Time
}

// SearchResult is one candidate found on a search results page. PublishTime
// is nil when no date could be extracted; a rule-driven adapter may backfill
// it from the detail page before the result is returned.
type SearchResult struct {
	Title       string
	URL         string
	PublishTime *time.Time
}

// Attachment is a downloadable file linked from a detail page. Name may be
// empty, in which case a filename is derived from the URL.
type Attachment struct {
	URL  string
	Name string
}

// DetailInfo holds the parsed detail page for a search result. An empty HTML
// means the result URL itself is a direct downloadable file, not a page.
type DetailInfo struct {
	Title       string
	HTML        string
	Attachments []Attachment
}
