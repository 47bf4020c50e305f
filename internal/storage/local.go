package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores files under a single managed directory, mirroring the remote
// backend's contract. Download and share links carry an HMAC-signed token
// (see Signer) that the application's own /local endpoint re-verifies
// before streaming the file, so the trust model matches presigned URLs.
type Local struct {
	root        string
	publicBase  string
	signer      *Signer
	downloadTTL time.Duration
	shareTTL    time.Duration
	now         func() time.Time
}

// NewLocal binds a local backend to root, creating the directory if absent.
func NewLocal(root, publicBase string, signer *Signer, downloadTTL, shareTTL time.Duration) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", root, err)
	}

	return &Local{
		root:        root,
		publicBase:  strings.TrimRight(publicBase, "/"),
		signer:      signer,
		downloadTTL: downloadTTL,
		shareTTL:    shareTTL,
		now:         time.Now,
	}, nil
}

// Put streams reader into the managed directory. Content lands in a hidden
// temp file first and is renamed into place, so a concurrent List never
// observes a partial upload.
func (l *Local) Put(_ context.Context, r io.Reader, originalName string, size int64) (*StoredObject, error) {
	if err := validateUpload(originalName, size); err != nil {
		return nil, err
	}

	key := newKey(originalName, l.now())

	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("flush %q: %w", key, err)
	}

	dst := filepath.Join(l.root, key)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("rename %q into place: %w", key, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", key, err)
	}

	return &StoredObject{
		Key:          key,
		OriginalName: originalNameFromKey(key),
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  contentTypeFor(key),
	}, nil
}

// List returns all visible files in the managed directory, newest first.
// Dot-prefixed entries (in-flight temp files) are skipped.
func (l *Local) List(_ context.Context) ([]StoredObject, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	objects := []StoredObject{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Deleted between ReadDir and stat.
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", name, err)
		}
		objects = append(objects, StoredObject{
			Key:          name,
			OriginalName: originalNameFromKey(name),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
			ContentType:  contentTypeFor(name),
		})
	}

	sortNewestFirst(objects)
	return objects, nil
}

// Delete removes the file at key. A missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return nil // malformed keys cannot exist, so deletion is a no-op
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// DownloadURL returns a short-lived signed link served by /local.
func (l *Local) DownloadURL(_ context.Context, key string) (string, error) {
	if _, err := l.stat(key); err != nil {
		return "", err
	}

	token, _, err := l.signer.Sign(key, l.downloadTTL)
	if err != nil {
		return "", err
	}
	return l.linkFor(token), nil
}

// ShareURL returns a signed link valid for the share window.
func (l *Local) ShareURL(_ context.Context, key string) (*ShareLink, error) {
	if _, err := l.stat(key); err != nil {
		return nil, err
	}

	token, expiresAt, err := l.signer.Sign(key, l.shareTTL)
	if err != nil {
		return nil, err
	}
	return &ShareLink{Key: key, URL: l.linkFor(token), ExpiresAt: expiresAt}, nil
}

// Resolve verifies a link token and opens the file it grants. It backs the
// /local serving endpoint; token verification failures surface as
// ErrExpiredOrInvalid without revealing whether the key exists.
func (l *Local) Resolve(token string) (io.ReadCloser, *StoredObject, error) {
	key, err := l.signer.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	obj, err := l.stat(key)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(l.root, key))
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", key, err)
	}
	return f, obj, nil
}

func (l *Local) linkFor(token string) string {
	return l.publicBase + "/local/" + token
}

// path rejects keys that could escape the managed directory. Generated
// keys never contain separators or a leading dot, so anything else cannot
// refer to a stored object.
func (l *Local) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return filepath.Join(l.root, key), nil
}

func (l *Local) stat(key string) (*StoredObject, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("stat %q: %w", key, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return &StoredObject{
		Key:          key,
		OriginalName: originalNameFromKey(key),
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  contentTypeFor(key),
	}, nil
}

var _ Backend = (*Local)(nil)
