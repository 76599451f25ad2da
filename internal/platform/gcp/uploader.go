package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
)

type UploaderConfig struct {
	Bucket       string
	Prefix       string
	EmulatorHost string
}

func (c UploaderConfig) Enabled() bool { return strings.TrimSpace(c.Bucket) != "" }

func (c UploaderConfig) IsEmulatorMode() bool { return strings.TrimSpace(c.EmulatorHost) != "" }

// Uploader copies finished artifacts into a bucket under prefix/run_id/.
type Uploader interface {
	Upload(ctx context.Context, runID string, localPath string) (string, error)
	Close() error
}

type uploader struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

func NewUploader(ctx context.Context, log *logger.Logger, cfg UploaderConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing gcs bucket")
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "ArtifactUploader")
	serviceLog.Info("Artifact uploader ready",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"emulator_host", cfg.EmulatorHost,
	)
	return &uploader{
		log:    serviceLog,
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func newStorageClient(ctx context.Context, cfg UploaderConfig) (*storage.Client, error) {
	if cfg.IsEmulatorMode() {
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

// ObjectKey is prefix/runID/base(file), with an empty prefix dropped.
func ObjectKey(prefix, runID, file string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	base := filepath.Base(file)
	if prefix == "" {
		return path.Join(runID, base)
	}
	return path.Join(prefix, runID, base)
}

func (u *uploader) Upload(ctx context.Context, runID string, localPath string) (string, error) {
	if u == nil || u.client == nil {
		return "", fmt.Errorf("uploader not initialized")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	key := ObjectKey(u.prefix, runID, localPath)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	uri := fmt.Sprintf("gs://%s/%s", u.bucket, key)
	u.log.Debug("Uploaded artifact", "object", uri)
	return uri, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".csv"):
		return "text/csv"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func (u *uploader) Close() error {
	if u == nil || u.client == nil {
		return nil
	}
	return u.client.Close()
}
