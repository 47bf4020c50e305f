// Package storage defines the uniform contract for file storage backends.
// Swap implementations by changing the concrete type injected at startup —
// Select picks the S3-compatible remote backend when credentials are
// configured and reachable, and the local filesystem backend otherwise.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxUploadSize is the upload ceiling enforced identically by both backends.
const MaxUploadSize = 100 << 20 // 100 MiB

// Sentinel errors for the storage contract. Callers match with errors.Is;
// any other error from a backend indicates an I/O, network, or timeout
// failure of the store itself.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("object not found")
	ErrExpiredOrInvalid = errors.New("link expired or invalid")
)

// allowedExtensions is the upload allow-list checked on every Put.
var allowedExtensions = map[string]bool{
	".txt": true, ".pdf": true,
	".doc": true, ".docx": true,
	".xls": true, ".xlsx": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".zip": true, ".rar": true,
}

// StoredObject describes one stored file as reported by the backend.
type StoredObject struct {
	Key          string    `json:"key"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType"`
}

// ShareLink is a stateless, time-limited grant for one object. Validity is
// re-verified from the signed URL itself at access time; nothing is kept
// server-side, so links survive restarts and cannot be revoked before expiry.
type ShareLink struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Backend is the interface both storage variants implement. Operations are
// safe for concurrent use; the backing store is the sole arbiter of
// consistency and no additional locking is layered on top.
type Backend interface {
	// Put streams content to the store under a freshly generated unique
	// key. The extension allow-list and size ceiling are checked before
	// any byte is written.
	Put(ctx context.Context, r io.Reader, originalName string, size int64) (*StoredObject, error)

	// List returns every stored object, newest first. An empty store
	// yields an empty slice, not an error.
	List(ctx context.Context) ([]StoredObject, error)

	// Delete removes an object. Deleting a key that does not exist is
	// not an error.
	Delete(ctx context.Context, key string) error

	// DownloadURL returns a fresh short-lived URL for a single
	// browser-driven download. Returns ErrNotFound if the key is absent.
	DownloadURL(ctx context.Context, key string) (string, error)

	// ShareURL returns a link valid for the configured share window.
	// Returns ErrNotFound if the key is absent.
	ShareURL(ctx context.Context, key string) (*ShareLink, error)
}

// validateUpload enforces the public upload contract shared by all backends.
func validateUpload(originalName string, size int64) error {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: file type %q not allowed", ErrValidation, ext)
	}
	if size < 0 {
		return fmt.Errorf("%w: file size unknown", ErrValidation)
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%w: file exceeds the %d MiB limit", ErrValidation, MaxUploadSize>>20)
	}
	return nil
}

// contentTypeFor infers a content type from the file extension.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// sortNewestFirst orders objects by LastModified descending, key as a
// tiebreaker so listings are deterministic.
func sortNewestFirst(objects []StoredObject) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return objects[i].Key < objects[j].Key
	})
}
