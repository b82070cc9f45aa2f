// Package report appends run outcomes to two CSV audit files: one row per
// successful download and one row per failed search or download.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

const appendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

var successHeader = []string{"file_name", "url", "path", "folder_path", "main_path", "publish_time", "time"}
var failureHeader = []string{"file_name", "url", "reason", "time"}

// Success describes one completed download.
type Success struct {
	FileName    string
	URL         string
	Path        string
	FolderPath  string
	MainPath    string
	PublishTime *time.Time
}

// Failure describes one search or download error. Reason carries a
// "search_error: " or "download_error: " prefix naming the failed stage.
type Failure struct {
	FileName string
	URL      string
	Reason   string
}

// Writer appends audit rows. Each append opens, writes and closes the file
// so a crash mid-run loses at most the row being written.
type Writer struct {
	fs           afero.Fs
	successPath  string
	failuresPath string
	now          func() time.Time
}

func NewWriter(fs afero.Fs, successPath, failuresPath string) *Writer {
	return &Writer{
		fs:           fs,
		successPath:  successPath,
		failuresPath: failuresPath,
		now:          time.Now,
	}
}

func (w *Writer) AppendSuccess(s Success) error {
	publishTime := ""
	if s.PublishTime != nil {
		publishTime = s.PublishTime.Format(time.RFC3339)
	}
	row := []string{
		s.FileName, s.URL, s.Path, s.FolderPath, s.MainPath,
		publishTime, w.now().Format(time.RFC3339),
	}
	return w.append(w.successPath, successHeader, row)
}

func (w *Writer) AppendFailure(f Failure) error {
	row := []string{f.FileName, f.URL, f.Reason, w.now().Format(time.RFC3339)}
	return w.append(w.failuresPath, failureHeader, row)
}

func (w *Writer) append(path string, header, row []string) error {
	exists, err := afero.Exists(w.fs, path)
	if err != nil {
		return fmt.Errorf("stat report %s: %w", path, err)
	}

	file, err := w.fs.OpenFile(path, appendFlags, 0o644)
	if err != nil {
		return fmt.Errorf("open report %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if !exists {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
