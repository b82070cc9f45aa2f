package index

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(url, hash string) Entry {
	return Entry{
		Title:        "t",
		URL:          url,
		Path:         "/downloads/x",
		SHA256:       hash,
		DownloadedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Kind:         KindDetailHTML,
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx, err := Load(fs, "/data/index.json")
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.ContainsURL("http://x.org/a"))
}

func TestLoadMalformedFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/index.json", []byte("{not json"), 0o644))
	_, err := Load(fs, "/data/index.json")
	assert.Error(t, err)
}

func TestRecordUpdatesDedupSets(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx, err := Load(fs, "/data/index.json")
	require.NoError(t, err)

	idx.Record(entry("http://x.org/a", "hash-a"))
	assert.True(t, idx.ContainsURL("http://x.org/a"))
	assert.True(t, idx.ContainsHash("hash-a"))
	assert.False(t, idx.ContainsURL("http://x.org/b"))
	assert.False(t, idx.ContainsHash("hash-b"))
	assert.Equal(t, 1, idx.Len())
}

func TestSaveAndReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx, err := Load(fs, "/data/index.json")
	require.NoError(t, err)
	idx.Record(entry("http://x.org/a", "hash-a"))
	idx.Record(entry("http://x.org/b", "hash-b"))
	require.NoError(t, idx.Save())

	reloaded, err := Load(fs, "/data/index.json")
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.ContainsURL("http://x.org/a"))
	assert.True(t, reloaded.ContainsHash("hash-b"))
}

func TestSaveEmptyIndexWritesItemsArray(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx, err := Load(fs, "/data/index.json")
	require.NoError(t, err)
	require.NoError(t, idx.Save())

	data, err := afero.ReadFile(fs, "/data/index.json")
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, "[]", string(doc["items"]))
}

func TestEntryJSONFieldNames(t *testing.T) {
	publishTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := entry("http://x.org/a", "hash-a")
	e.PublishTime = &publishTime

	data, err := json.Marshal(e)
	require.NoError(t, err)
	for _, field := range []string{"title", "url", "publish_time", "path", "sha256", "downloaded_at", "kind"} {
		assert.Contains(t, string(data), `"`+field+`"`)
	}
}
