package playground

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errNotDataURL = errors.New("not a base64 data URL")

// FileStore keeps generated images in a temporary directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory files are written to.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// SaveDataURL decodes a base64 data URL and writes it under a fresh name.
// The extension follows the MIME type, or fallbackExt when it is unknown.
func (fs *FileStore) SaveDataURL(dataURL, fallbackExt string) (string, error) {
	mime, payload, err := splitDataURL(dataURL)
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	ext := extensionFor(mime)
	if ext == "" {
		ext = fallbackExt
	}
	name := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(fs.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return name, nil
}

// Path returns the full path of a stored file. Names that could escape the
// directory are rejected.
func (fs *FileStore) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return filepath.Join(fs.dir, name), true
}

// Cleanup removes regular files older than maxAge and returns how many were removed.
func (fs *FileStore) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(fs.dir, e.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func isDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

func splitDataURL(s string) (mime, payload string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", errNotDataURL
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", errNotDataURL
	}
	return mime, payload, nil
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	}
	return ""
}
