// Package files exposes the upload, listing, download, delete, and share
// operations over whichever storage backend was selected at startup.
package files

import (
	"context"
	"fmt"
	"io"

	"github.com/filedrop/service/internal/storage"
)

// Service contains file-management logic on top of a storage backend.
type Service struct {
	backend storage.Backend
}

// NewService creates a new file Service bound to the given backend.
func NewService(backend storage.Backend) *Service {
	return &Service{backend: backend}
}

// Upload stores the content of r under a fresh unique key.
func (s *Service) Upload(ctx context.Context, r io.Reader, originalName string, size int64) (*storage.StoredObject, error) {
	obj, err := s.backend.Put(ctx, r, originalName, size)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", originalName, err)
	}
	return obj, nil
}

// List returns all stored objects, newest first.
func (s *Service) List(ctx context.Context) ([]storage.StoredObject, error) {
	objects, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return objects, nil
}

// Delete removes the object at key. Missing keys succeed.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// DownloadURL returns a fresh short-lived URL for one download.
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	url, err := s.backend.DownloadURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("download link for %q: %w", key, err)
	}
	return url, nil
}

// Share returns a link valid for the configured share window.
func (s *Service) Share(ctx context.Context, key string) (*storage.ShareLink, error) {
	link, err := s.backend.ShareURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("share link for %q: %w", key, err)
	}
	return link, nil
}
