// Package manifest reads the CSV worklist: one row per watched document,
// holding a search keyword, a site URL and a reference publish time.
package manifest

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
)

// Header matching is by substring so the manifest can use whatever exact
// column wording its author prefers, in Chinese or English.
var (
	nameMarkers = []string{"文件名", "name", "keyword"}
	urlMarkers  = []string{"网址", "网站", "链接", "url", "link"}
	timeMarkers = []string{"发布", "时间", "time", "date"}
)

func findColumn(header []string, markers []string) int {
	for i, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, marker := range markers {
			if strings.Contains(normalized, marker) {
				return i
			}
		}
	}
	return -1
}

// Read parses the manifest at path. A missing required column is fatal;
// rows with blank cells or unparseable times are skipped with a warning.
func Read(fs afero.Fs, path string, logger *zap.Logger) ([]domain.RowItem, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}

	header := records[0]
	nameCol := findColumn(header, nameMarkers)
	urlCol := findColumn(header, urlMarkers)
	timeCol := findColumn(header, timeMarkers)
	if nameCol < 0 || urlCol < 0 || timeCol < 0 {
		return nil, fmt.Errorf("manifest %s is missing a name, url or publish time column", path)
	}

	var rows []domain.RowItem
	for _, record := range records[1:] {
		if nameCol >= len(record) || urlCol >= len(record) || timeCol >= len(record) {
			logger.Warn("skipping short manifest row", zap.Strings("row", record))
			continue
		}
		fileName := strings.TrimSpace(record[nameCol])
		rawURL := strings.TrimSpace(record[urlCol])
		rawTime := strings.TrimSpace(record[timeCol])
		if fileName == "" || rawURL == "" || rawTime == "" {
			logger.Warn("skipping incomplete manifest row", zap.Strings("row", record))
			continue
		}
		referenceTime, err := dateparse.ParseAny(rawTime)
		if err != nil {
			logger.Warn("skipping manifest row with unparseable time",
				zap.String("file_name", fileName),
				zap.String("publish_time", rawTime),
				zap.Error(err))
			continue
		}
		rows = append(rows, domain.RowItem{
			FileName:      fileName,
			URL:           rawURL,
			ReferenceTime: referenceTime,
		})
	}
	return rows, nil
}
