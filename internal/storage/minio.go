package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Remote stores objects in an S3-compatible bucket (AWS S3, MinIO, or any
// compatible provider). Download and share links are presigned URLs: the
// provider's own HMAC scheme embeds method, resource, and expiry, and the
// provider's edge verifies them — no link state is kept here.
type Remote struct {
	client      *minio.Client
	bucket      string
	downloadTTL time.Duration
	shareTTL    time.Duration
	now         func() time.Time
}

// NewRemote creates the S3 client and binds it to one bucket. No network
// call is made here; use Ping to verify credentials and reachability.
func NewRemote(endpoint, accessKey, secretKey, region, bucket string, useSSL bool, downloadTTL, shareTTL time.Duration) (*Remote, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Remote{
		client:      client,
		bucket:      bucket,
		downloadTTL: downloadTTL,
		shareTTL:    shareTTL,
		now:         time.Now,
	}, nil
}

// Ping verifies that the credentials work and the bucket exists.
func (s *Remote) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// Put streams reader to the bucket under a fresh unique key. size must be
// the exact byte count so the client can stream without buffering.
func (s *Remote) Put(ctx context.Context, r io.Reader, originalName string, size int64) (*StoredObject, error) {
	if err := validateUpload(originalName, size); err != nil {
		return nil, err
	}

	key := newKey(originalName, s.now())
	contentType := contentTypeFor(key)

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	lastModified := info.LastModified
	if lastModified.IsZero() {
		// Not every provider echoes the write time on upload.
		lastModified = s.now().UTC()
	}

	return &StoredObject{
		Key:          key,
		OriginalName: originalNameFromKey(key),
		Size:         info.Size,
		LastModified: lastModified,
		ContentType:  contentType,
	}, nil
}

// List returns all objects in the bucket, newest first. The client merges
// paginated results transparently; any page error aborts the whole listing
// so callers never see a partial view.
func (s *Remote) List(ctx context.Context) ([]StoredObject, error) {
	objects := []StoredObject{}

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list bucket %q: %w", s.bucket, obj.Err)
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			OriginalName: originalNameFromKey(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  contentTypeFor(obj.Key),
		})
	}

	sortNewestFirst(objects)
	return objects, nil
}

// Delete removes the object at key. S3 DeleteObject succeeds for missing
// keys, which matches the idempotent contract.
func (s *Remote) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// DownloadURL returns a fresh presigned GET URL with an attachment
// disposition carrying the original filename.
func (s *Remote) DownloadURL(ctx context.Context, key string) (string, error) {
	if _, err := s.stat(ctx, key); err != nil {
		return "", err
	}

	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", originalNameFromKey(key)))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.downloadTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign download for %q: %w", key, err)
	}
	return u.String(), nil
}

// ShareURL returns a presigned GET URL valid for the share window.
func (s *Remote) ShareURL(ctx context.Context, key string) (*ShareLink, error) {
	if _, err := s.stat(ctx, key); err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.shareTTL)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.shareTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("presign share for %q: %w", key, err)
	}

	return &ShareLink{Key: key, URL: u.String(), ExpiresAt: expiresAt}, nil
}

// stat maps a missing key onto ErrNotFound and wraps everything else as a
// storage failure.
func (s *Remote) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return info, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return info, fmt.Errorf("stat object %q: %w", key, err)
	}
	return info, nil
}

var _ Backend = (*Remote)(nil)
