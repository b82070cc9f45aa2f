// Package index keeps the on-disk record of everything downloaded so far.
// It answers two dedup questions: has this URL been fetched before, and has
// this exact content (by SHA-256) been stored before.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Entry kinds, one per artifact class written by a run.
const (
	KindDetailHTML     = "detail_html"
	KindDetailMarkdown = "detail_markdown"
	KindDirectFile     = "direct_file"
	KindAttachment     = "attachment"
)

// Entry is one downloaded artifact.
type Entry struct {
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	PublishTime  *time.Time `json:"publish_time"`
	Path         string     `json:"path"`
	SHA256       string     `json:"sha256"`
	DownloadedAt time.Time  `json:"downloaded_at"`
	Kind         string     `json:"kind"`
}

type document struct {
	Items []Entry `json:"items"`
}

// Index is the in-memory view of the dedup index. It is loaded once at
// startup, mutated during the run, and written back wholesale at the end.
type Index struct {
	fs      afero.Fs
	path    string
	entries []Entry
	urls    map[string]struct{}
	hashes  map[string]struct{}
}

// Load reads the index file at path, or starts an empty index when the file
// does not exist yet. A present but unreadable or malformed file is an
// error; silently discarding it would re-download everything.
func Load(fs afero.Fs, path string) (*Index, error) {
	idx := &Index{
		fs:     fs,
		path:   path,
		urls:   make(map[string]struct{}),
		hashes: make(map[string]struct{}),
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	idx.entries = doc.Items
	for _, entry := range doc.Items {
		idx.urls[entry.URL] = struct{}{}
		idx.hashes[entry.SHA256] = struct{}{}
	}
	return idx, nil
}

func (i *Index) ContainsURL(url string) bool {
	_, ok := i.urls[url]
	return ok
}

func (i *Index) ContainsHash(hash string) bool {
	_, ok := i.hashes[hash]
	return ok
}

// Record appends an entry and marks its URL and hash as seen.
func (i *Index) Record(entry Entry) {
	i.entries = append(i.entries, entry)
	i.urls[entry.URL] = struct{}{}
	i.hashes[entry.SHA256] = struct{}{}
}

func (i *Index) Len() int {
	return len(i.entries)
}

// Save writes the full index back to disk in one shot.
func (i *Index) Save() error {
	doc := document{Items: i.entries}
	if doc.Items == nil {
		doc.Items = []Entry{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := afero.WriteFile(i.fs, i.path, data, 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", i.path, err)
	}
	return nil
}
