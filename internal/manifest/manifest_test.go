package manifest

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeManifest(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/manifest.csv", []byte(content), 0o644))
	return fs
}

func TestReadChineseHeaders(t *testing.T) {
	fs := writeManifest(t, "文件名,网址,发布时间\nNotice-7,http://example.org,2024-02-01\n")

	rows, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Notice-7", rows[0].FileName)
	assert.Equal(t, "http://example.org", rows[0].URL)
	assert.Equal(t, 2024, rows[0].ReferenceTime.Year())
	assert.Equal(t, time.February, rows[0].ReferenceTime.Month())
}

func TestReadEnglishHeadersBySubstring(t *testing.T) {
	fs := writeManifest(t, "Document Name,Site URL,Publish Date\ndoc,http://x.org,2023-12-31\n")

	rows, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "doc", rows[0].FileName)
}

func TestReadMissingColumnIsFatal(t *testing.T) {
	fs := writeManifest(t, "文件名,发布时间\na,2024-01-01\n")
	_, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	assert.Error(t, err)
}

func TestReadSkipsBadRows(t *testing.T) {
	content := "文件名,网址,发布时间\n" +
		"good,http://x.org,2024-01-01\n" +
		",http://x.org,2024-01-01\n" +
		"no-time,http://x.org,\n" +
		"bad-time,http://x.org,not a date\n" +
		"short-row\n" +
		"also good,http://y.org,2024-02-02\n"
	fs := writeManifest(t, content)

	rows, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "good", rows[0].FileName)
	assert.Equal(t, "also good", rows[1].FileName)
}

func TestReadEmptyFileFails(t *testing.T) {
	fs := writeManifest(t, "")
	_, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	assert.Error(t, err)
}

func TestReadMissingFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Read(fs, "/in/manifest.csv", zap.NewNop())
	assert.Error(t, err)
}
