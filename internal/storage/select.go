package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/filedrop/service/internal/config"
)

// errRemoteNotConfigured marks remote selection skipped without even
// attempting a connection.
var errRemoteNotConfigured = errors.New("remote storage not fully configured")

// pingTimeout bounds the startup connectivity check against the remote store.
const pingTimeout = 5 * time.Second

// Select chooses the storage backend for the process lifetime. The remote
// backend wins when credentials, region, and bucket are all configured and
// the bucket answers a connectivity check; every remote failure is logged
// and absorbed by falling back to local filesystem storage. Only a failure
// to create the local upload directory is returned (and fatal to startup).
func Select(cfg *config.Config) (Backend, error) {
	remote, err := selectRemote(cfg)
	if err == nil {
		log.Printf("storage: using remote backend (bucket %q, region %q)", cfg.S3Bucket, cfg.AWSRegion)
		return remote, nil
	}
	log.Printf("storage: remote backend unavailable (%v), falling back to local storage", err)

	local, err := NewLocal(cfg.LocalUploadDir, cfg.PublicBaseURL, NewSigner(cfg.AppSecret), cfg.DownloadURLTTL, cfg.ShareURLTTL)
	if err != nil {
		return nil, err
	}
	log.Printf("storage: using local backend (dir %q)", cfg.LocalUploadDir)
	return local, nil
}

func selectRemote(cfg *config.Config) (*Remote, error) {
	if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" || cfg.AWSRegion == "" || cfg.S3Bucket == "" {
		return nil, errRemoteNotConfigured
	}

	remote, err := NewRemote(
		cfg.S3Endpoint,
		cfg.AWSAccessKeyID,
		cfg.AWSSecretAccessKey,
		cfg.AWSRegion,
		cfg.S3Bucket,
		cfg.S3UseSSL,
		cfg.DownloadURLTTL,
		cfg.ShareURLTTL,
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := remote.Ping(ctx); err != nil {
		return nil, err
	}

	return remote, nil
}
