package pipeline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "ab", safeFilename(`a\/:*?"<>|b`))
	assert.Equal(t, "report 2024", safeFilename("  report 2024  "))
	assert.Equal(t, "file", safeFilename(`\/:*?"<>|`))
	assert.Equal(t, "file", safeFilename("   "))
	assert.Equal(t, "年度报告", safeFilename("年度报告"))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "report.pdf", filenameFromURL("http://x.org/files/report.pdf?v=2"))
	assert.Equal(t, "", filenameFromURL("http://x.org/"))
	assert.Equal(t, "", filenameFromURL("http://x.org"))
}

func TestEnsureUniquePathDisambiguates(t *testing.T) {
	fs := afero.NewMemMapFs()

	p, err := ensureUniquePath(fs, "/dl/detail.html")
	require.NoError(t, err)
	assert.Equal(t, "/dl/detail.html", p)

	require.NoError(t, afero.WriteFile(fs, "/dl/detail.html", []byte("x"), 0o644))
	p, err = ensureUniquePath(fs, "/dl/detail.html")
	require.NoError(t, err)
	assert.Equal(t, "/dl/detail_1.html", p, "suffix goes before the extension")

	require.NoError(t, afero.WriteFile(fs, "/dl/detail_1.html", []byte("x"), 0o644))
	p, err = ensureUniquePath(fs, "/dl/detail.html")
	require.NoError(t, err)
	assert.Equal(t, "/dl/detail_2.html", p)
}

func TestEnsureUniquePathWithoutExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dl/data", []byte("x"), 0o644))

	p, err := ensureUniquePath(fs, "/dl/data")
	require.NoError(t, err)
	assert.Equal(t, "/dl/data_1", p)
}

func TestAttachmentFileName(t *testing.T) {
	assert.Equal(t, "统计表.xlsx", attachmentFileName("http://x.org/f/abc.xlsx", "统计表", 1), "declared name without extension borrows the URL's")
	assert.Equal(t, "统计表.zip", attachmentFileName("http://x.org/f/abc.xlsx", "统计表.zip", 1), "declared extension wins")
	assert.Equal(t, "abc.xlsx", attachmentFileName("http://x.org/f/abc.xlsx", "", 2))
	assert.Equal(t, "attachment_3", attachmentFileName("http://x.org/", "", 3))
}

func TestHashFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/c", []byte("other"), 0o644))

	ha, err := hashFile(fs, "/a")
	require.NoError(t, err)
	hb, err := hashFile(fs, "/b")
	require.NoError(t, err)
	hc, err := hashFile(fs, "/c")
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
	assert.Len(t, ha, 64)
}
