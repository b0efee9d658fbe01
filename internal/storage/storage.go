// Package storage keeps uploaded registration files on private local
// disk.  Files are never web-addressable: downloads go through the
// authenticated endpoint, which asks this package to open the stored
// path.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Logical buckets under the storage root.
const (
	BucketPhotos  = "photos"
	BucketVideos  = "videos"
	BucketQRCodes = "qr_codes"
)

// LocalStore stores files beneath a single root directory.
type LocalStore struct{ root string }

// NewLocalStore returns a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

// Save streams a multipart upload into the bucket under a generated
// uuid filename, preserving the original extension, and returns the
// relative path to persist on the registration record.
func (s *LocalStore) Save(bucket string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	rel := filepath.Join(bucket, uuid.NewString()+safeExt(fh.Filename))
	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}
	dst, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(abs)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(abs)
		return "", err
	}
	return rel, nil
}

// Open returns a reader over a previously stored relative path.
// os.ErrNotExist surfaces when the path is unknown.
func (s *LocalStore) Open(rel string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.Clean(rel)))
}

// Remove deletes a stored file.  Used to roll back uploads when the
// submit transaction fails; a missing file is not an error.
func (s *LocalStore) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Clean(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// safeExt extracts a lowercase extension from the client-supplied
// filename, dropping anything that is not a short alphanumeric
// suffix.  The stored name never depends on untrusted input beyond
// this extension.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
