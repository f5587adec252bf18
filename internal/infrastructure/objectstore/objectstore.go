// Package objectstore abstracts where uploaded attachment binaries land. The
// chat layer only needs a key/URL back; swapping in a cloud-backed adapter is a
// matter of satisfying Store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists an uploaded binary and returns the public URL it is served
// under.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (url string, err error)
}

// DiskStore writes uploads under a base directory and returns URLs below a
// base path, e.g. /static/uploads/<key>.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStoreFromEnv reads UPLOAD_DIR (default "./uploads") and
// UPLOAD_BASE_URL (default "/static/uploads") and ensures the directory exists.
func NewDiskStoreFromEnv() (*DiskStore, error) {
	dir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if dir == "" {
		dir = "./uploads"
	}
	baseURL := strings.TrimSpace(os.Getenv("UPLOAD_BASE_URL"))
	if baseURL == "" {
		baseURL = "/static/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: mkdir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

var _ Store = (*DiskStore)(nil)

func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	if len(ext) > 10 {
		return "", errors.New("objectstore: suspicious file extension")
	}
	key := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("objectstore: create: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("objectstore: write: %w", err)
	}
	return path.Join(s.baseURL, key), nil
}
