package report

import (
	"encoding/csv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, fs afero.Fs, path string) [][]string {
	t.Helper()
	file, err := fs.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestWriter(fs afero.Fs) *Writer {
	w := NewWriter(fs, "/out/success.csv", "/out/failures.csv")
	w.now = func() time.Time { return time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC) }
	return w
}

func TestAppendSuccessWritesHeaderOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := newTestWriter(fs)
	publishTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, w.AppendSuccess(Success{
		FileName:    "Notice-7",
		URL:         "http://x.org/a",
		Path:        "/dl/a.md",
		FolderPath:  "/dl",
		MainPath:    "/dl/a.md",
		PublishTime: &publishTime,
	}))
	require.NoError(t, w.AppendSuccess(Success{FileName: "Notice-8", URL: "http://x.org/b"}))

	rows := readCSV(t, fs, "/out/success.csv")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"file_name", "url", "path", "folder_path", "main_path", "publish_time", "time"}, rows[0])
	assert.Equal(t, "Notice-7", rows[1][0])
	assert.Equal(t, "2024-03-01T00:00:00Z", rows[1][5])
	assert.Equal(t, "2024-03-02T10:30:00Z", rows[1][6])
	assert.Equal(t, "", rows[2][5], "missing publish time stays blank")
}

func TestAppendFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := newTestWriter(fs)

	require.NoError(t, w.AppendFailure(Failure{
		FileName: "Notice-7",
		URL:      "http://x.org/a",
		Reason:   "search_error: connection refused",
	}))

	rows := readCSV(t, fs, "/out/failures.csv")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"file_name", "url", "reason", "time"}, rows[0])
	assert.Equal(t, "search_error: connection refused", rows[1][2])
}

func TestSuccessAndFailureFilesAreSeparate(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := newTestWriter(fs)

	require.NoError(t, w.AppendSuccess(Success{FileName: "a"}))
	require.NoError(t, w.AppendFailure(Failure{FileName: "b"}))

	assert.Len(t, readCSV(t, fs, "/out/success.csv"), 2)
	assert.Len(t, readCSV(t, fs, "/out/failures.csv"), 2)
}
