package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filedrop/service/internal/config"
)

func testConfig(uploadDir string) *config.Config {
	return &config.Config{
		AWSRegion:      "us-east-1",
		S3Endpoint:     "s3.amazonaws.com",
		AppSecret:      "test-secret",
		PublicBaseURL:  "http://localhost:8080",
		LocalUploadDir: uploadDir,
		DownloadURLTTL: 15 * time.Minute,
		ShareURLTTL:    7 * 24 * time.Hour,
	}
}

func TestSelectFallsBackWhenUnconfigured(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "uploads")

	backend, err := Select(testConfig(dir))
	require.NoError(t, err)
	require.IsType(t, &Local{}, backend)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir(), "fallback must create the upload dir")
}

func TestSelectAbsorbsRemoteCheckFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(filepath.Join(t.TempDir(), "uploads"))
	cfg.AWSAccessKeyID = "AKIAEXAMPLE"
	cfg.AWSSecretAccessKey = "secret"
	cfg.S3Bucket = "missing-bucket"
	// Nothing listens here; the connectivity check fails fast and the
	// selector must fall back instead of surfacing the error.
	cfg.S3Endpoint = "127.0.0.1:1"
	cfg.S3UseSSL = false

	backend, err := Select(cfg)
	require.NoError(t, err)
	require.IsType(t, &Local{}, backend)
}

func TestSelectFailsWhenUploadDirUncreatable(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Select(testConfig(filepath.Join(blocker, "uploads")))
	require.Error(t, err)
}
