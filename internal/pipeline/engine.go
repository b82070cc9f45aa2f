// Package pipeline drives a full run: search each manifest row, keep the
// results published after the row's reference time, download what is new
// and record every outcome.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/index"
	"sitewatch/internal/markdown"
	"sitewatch/internal/monitoring"
	"sitewatch/internal/report"
	"sitewatch/internal/site"
)

// AdapterSource resolves the adapter responsible for a site URL.
type AdapterSource interface {
	For(rawURL string) (site.Adapter, error)
}

// Downloader streams the body of a URL.
type Downloader interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Engine wires the run together. It processes rows strictly in order; the
// index is flushed once, after the last row.
type Engine struct {
	cfg      *config.Config
	adapters AdapterSource
	idx      *index.Index
	fs       afero.Fs
	http     Downloader
	reports  *report.Writer
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(
	cfg *config.Config,
	adapters AdapterSource,
	idx *index.Index,
	fs afero.Fs,
	downloader Downloader,
	reports *report.Writer,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:      cfg,
		adapters: adapters,
		idx:      idx,
		fs:       fs,
		http:     downloader,
		reports:  reports,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run walks every row and then persists the index. Row failures are
// recorded and skipped; only context cancellation or the final index write
// can fail the run.
func (e *Engine) Run(ctx context.Context, rows []domain.RowItem) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.metrics.IncRows()
		e.processRow(ctx, row)
	}
	if err := e.idx.Save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

func (e *Engine) processRow(ctx context.Context, row domain.RowItem) {
	adapter, err := e.adapters.For(row.URL)
	if err != nil {
		e.recordSearchFailure(row, err)
		return
	}

	results, err := adapter.Search(ctx, row.FileName)
	if err != nil {
		e.recordSearchFailure(row, err)
		return
	}

	var latest *time.Time
	for _, result := range results {
		e.metrics.IncResults()
		if result.PublishTime != nil && (latest == nil || result.PublishTime.After(*latest)) {
			latest = result.PublishTime
		}
	}
	e.logger.Info("search finished",
		zap.String("file_name", row.FileName),
		zap.Int("results", len(results)),
		zap.Time("reference_time", row.ReferenceTime),
		zap.Timep("latest_publish_time", latest))

	newer := filterNewer(results, row.ReferenceTime)
	if len(newer) == 0 {
		e.logger.Info("no newer results", zap.String("file_name", row.FileName))
		return
	}

	for _, result := range newer {
		if e.cfg.DryRun {
			e.logger.Info("dry run match",
				zap.String("title", result.Title),
				zap.String("url", result.URL))
			continue
		}

		outcome, err := e.downloadResult(ctx, row, result, adapter)
		if err != nil {
			e.metrics.IncErrors("download_failed")
			e.logger.Error("download failed",
				zap.String("url", result.URL),
				zap.Error(err))
			e.appendFailure(report.Failure{
				FileName: row.FileName,
				URL:      result.URL,
				Reason:   "download_error: " + err.Error(),
			})
			continue
		}
		if outcome == nil {
			continue
		}
		e.logger.Info("download finished", zap.String("dir", outcome.Dir))
		if err := e.reports.AppendSuccess(report.Success{
			FileName:    row.FileName,
			URL:         result.URL,
			Path:        outcome.MainPath,
			FolderPath:  outcome.Dir,
			MainPath:    outcome.MainPath,
			PublishTime: result.PublishTime,
		}); err != nil {
			e.logger.Error("failed to append success record", zap.Error(err))
		}
	}
}

func (e *Engine) recordSearchFailure(row domain.RowItem, err error) {
	e.metrics.IncErrors("search_failed")
	e.logger.Error("search failed",
		zap.String("url", row.URL),
		zap.Error(err))
	e.appendFailure(report.Failure{
		FileName: row.FileName,
		URL:      row.URL,
		Reason:   "search_error: " + err.Error(),
	})
}

func (e *Engine) appendFailure(f report.Failure) {
	if err := e.reports.AppendFailure(f); err != nil {
		e.logger.Error("failed to append failure record", zap.Error(err))
	}
}

// filterNewer keeps results published strictly after since. Dateless
// results are dropped.
func filterNewer(results []domain.SearchResult, since time.Time) []domain.SearchResult {
	var newer []domain.SearchResult
	for _, result := range results {
		if result.PublishTime == nil {
			continue
		}
		if result.PublishTime.After(since) {
			newer = append(newer, result)
		}
	}
	return newer
}

// outcome names what a download produced: the result folder and the primary
// artifact inside it (markdown when available, else the page or file).
type outcome struct {
	Dir      string
	MainPath string
}

func (e *Engine) downloadResult(
	ctx context.Context,
	row domain.RowItem,
	result domain.SearchResult,
	adapter site.Adapter,
) (*outcome, error) {
	if e.idx.ContainsURL(result.URL) {
		e.metrics.IncSkips("url_seen")
		e.logger.Info("url already downloaded", zap.String("url", result.URL))
		return nil, nil
	}

	info, err := adapter.FetchDetailInfo(ctx, result)
	if err != nil {
		return nil, err
	}

	host := hostOf(row.URL)
	publishDate := "unknown_date"
	if result.PublishTime != nil {
		publishDate = result.PublishTime.Format("20060102")
	}
	entryTitle := info.Title
	if entryTitle == "" {
		entryTitle = result.Title
	}
	folderTitle := safeFilename(entryTitle)
	targetDir := filepath.Join(e.cfg.DownloadRoot, host, publishDate, folderTitle)
	if err := e.fs.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create target dir %s: %w", targetDir, err)
	}

	record := func(entryURL, path, hash, kind string) {
		e.idx.Record(index.Entry{
			Title:        entryTitle,
			URL:          entryURL,
			PublishTime:  result.PublishTime,
			Path:         path,
			SHA256:       hash,
			DownloadedAt: e.now(),
			Kind:         kind,
		})
		e.metrics.IncDownloads(kind)
	}

	downloadedAny := false
	mainPath := ""

	if info.HTML != "" {
		htmlPath, err := e.writeDetailHTML(info.HTML, targetDir, folderTitle, result.URL, record)
		if err != nil {
			return nil, err
		}
		if htmlPath != "" {
			mdPath, err := e.writeDetailMarkdown(info.HTML, htmlPath, result.URL, record)
			if err != nil {
				return nil, err
			}
			downloadedAny = true
			mainPath = htmlPath
			if mdPath != "" {
				mainPath = mdPath
			}
		}
	} else {
		fileName := filenameFromURL(result.URL)
		if fileName == "" {
			fileName = result.Title
		}
		targetPath := filepath.Join(targetDir, safeFilename(fileName))
		savedPath, err := e.downloadURL(ctx, result.URL, targetPath, index.KindDirectFile, record)
		if err != nil {
			return nil, err
		}
		if savedPath != "" {
			downloadedAny = true
			mainPath = savedPath
		}
	}

	for i, attachment := range info.Attachments {
		if attachment.URL == "" {
			continue
		}
		fileName := attachmentFileName(attachment.URL, attachment.Name, i+1)
		targetPath := filepath.Join(targetDir, fileName)
		savedPath, err := e.downloadURL(ctx, attachment.URL, targetPath, index.KindAttachment, record)
		if err != nil {
			e.metrics.IncErrors("attachment_failed")
			e.logger.Error("attachment download failed",
				zap.String("url", attachment.URL),
				zap.Error(err))
			continue
		}
		if savedPath != "" {
			downloadedAny = true
		}
	}

	if !downloadedAny {
		return nil, nil
	}
	return &outcome{Dir: targetDir, MainPath: mainPath}, nil
}

type recordFunc func(url, path, hash, kind string)

func (e *Engine) writeDetailHTML(htmlContent, targetDir, folderTitle, pageURL string, record recordFunc) (string, error) {
	targetPath, err := ensureUniquePath(e.fs, filepath.Join(targetDir, "detail"+folderTitle+".html"))
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(e.fs, targetPath, []byte(htmlContent), 0o644); err != nil {
		return "", fmt.Errorf("write detail html: %w", err)
	}
	return e.dedupOrKeep(targetPath, pageURL, index.KindDetailHTML, record)
}

func (e *Engine) writeDetailMarkdown(htmlContent, htmlPath, pageURL string, record recordFunc) (string, error) {
	rendered := markdown.Convert(htmlContent)
	if rendered == "" {
		e.metrics.IncSkips("empty_markdown")
		return "", nil
	}
	base := htmlPath[:len(htmlPath)-len(filepath.Ext(htmlPath))]
	targetPath, err := ensureUniquePath(e.fs, base+".md")
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(e.fs, targetPath, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return e.dedupOrKeep(targetPath, pageURL, index.KindDetailMarkdown, record)
}

func (e *Engine) downloadURL(ctx context.Context, fileURL, targetPath, kind string, record recordFunc) (string, error) {
	if e.idx.ContainsURL(fileURL) {
		e.metrics.IncSkips("url_seen")
		e.logger.Info("url already downloaded", zap.String("url", fileURL))
		return "", nil
	}
	targetPath, err := ensureUniquePath(e.fs, targetPath)
	if err != nil {
		return "", err
	}
	body, err := e.http.Open(ctx, fileURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	file, err := e.fs.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", targetPath, err)
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return "", fmt.Errorf("download %s: %w", fileURL, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return e.dedupOrKeep(targetPath, fileURL, kind, record)
}

// dedupOrKeep hashes a freshly written file. A hash already in the index
// means identical content was stored before, so the new file is removed.
func (e *Engine) dedupOrKeep(targetPath, entryURL, kind string, record recordFunc) (string, error) {
	hash, err := hashFile(e.fs, targetPath)
	if err != nil {
		return "", err
	}
	if e.idx.ContainsHash(hash) {
		if err := e.fs.Remove(targetPath); err != nil {
			return "", err
		}
		e.metrics.IncSkips("hash_seen")
		e.logger.Info("duplicate content hash, removed",
			zap.String("path", targetPath),
			zap.String("url", entryURL))
		return "", nil
	}
	record(entryURL, targetPath, hash, kind)
	return targetPath, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
