package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const unsafeFilenameChars = `\/:*?"<>|`

// safeFilename strips characters that are invalid in file names on common
// filesystems. An input that strips down to nothing becomes "file".
func safeFilename(value string) string {
	var b strings.Builder
	for _, ch := range value {
		if !strings.ContainsRune(unsafeFilenameChars, ch) {
			b.WriteRune(ch)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// filenameFromURL returns the last path segment of a URL, or "" when the
// path has none.
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ensureUniquePath returns p unchanged when nothing exists there, otherwise
// inserts _1, _2, ... before the extension until the path is free.
func ensureUniquePath(fs afero.Fs, p string) (string, error) {
	exists, err := afero.Exists(fs, p)
	if err != nil {
		return "", err
	}
	if !exists {
		return p, nil
	}
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for counter := 1; ; counter++ {
		candidate := base + "_" + strconv.Itoa(counter) + ext
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// fileNameFromURLOrIndex names a file after its URL basename, falling back
// to prefix_index with the URL's extension when the URL has no usable name.
func fileNameFromURLOrIndex(rawURL, prefix string, idx int) string {
	if name := filenameFromURL(rawURL); name != "" {
		return safeFilename(name)
	}
	ext := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	return safeFilename(fmt.Sprintf("%s_%d%s", prefix, idx, ext))
}

// attachmentFileName picks the on-disk name for an attachment: the declared
// name (with the URL's extension appended when it has none), else a name
// derived from the URL.
func attachmentFileName(attachmentURL, declaredName string, idx int) string {
	if declaredName != "" {
		name := safeFilename(declaredName)
		if filepath.Ext(name) == "" {
			if parsed, err := url.Parse(attachmentURL); err == nil {
				if ext := path.Ext(parsed.Path); ext != "" {
					name += ext
				}
			}
		}
		return name
	}
	return fileNameFromURLOrIndex(attachmentURL, "attachment", idx)
}

// hashFile computes the SHA-256 of a stored file.
func hashFile(fs afero.Fs, p string) (string, error) {
	file, err := fs.Open(p)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
