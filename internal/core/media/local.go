// Package media stores uploaded profile pictures.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes files below a root directory served under a URL prefix.
type LocalStore struct {
	root      string
	urlPrefix string
	subdir    string
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	const subdir = "profile_images"
	if err := os.MkdirAll(filepath.Join(root, subdir), 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStore{root: root, urlPrefix: urlPrefix, subdir: subdir}, nil
}

// Save copies r into a new uniquely named file and returns its key.
func (s *LocalStore) Save(_ context.Context, filename, _ string, r io.Reader) (string, error) {
	key := path.Join(s.subdir, objectName(filename))

	f, err := os.OpenFile(filepath.Join(s.root, filepath.FromSlash(key)), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	return key, nil
}

// URL returns the public URL of key.
func (s *LocalStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.urlPrefix + key
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// objectName keeps the upload's extension and replaces the rest with a UUID.
func objectName(filename string) string {
	ext := strings.ToLower(path.Ext(filepath.Base(filename)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.NewString() + ext
}
