// Package r2 publishes generated videos to a Cloudflare R2 bucket through
// the S3-compatible API.
package r2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Opt func(c *uploaderConfig)

type uploaderConfig struct {
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
	useSSL    bool
}

func WithEndpoint(endpoint string) Opt {
	return func(c *uploaderConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) Opt {
	return func(c *uploaderConfig) {
		c.bucket = bucket
	}
}

func WithCredentials(accessKey, secretKey string) Opt {
	return func(c *uploaderConfig) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

func WithSSL(useSSL bool) Opt {
	return func(c *uploaderConfig) {
		c.useSSL = useSSL
	}
}

type Uploader struct {
	cfg    *uploaderConfig
	client *minio.Client
}

func NewUploader(opts ...Opt) (*Uploader, error) {
	cfg := &uploaderConfig{useSSL: true}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.endpoint == "" {
		return nil, fmt.Errorf("r2 uploader requires an endpoint")
	}
	if cfg.bucket == "" {
		return nil, fmt.Errorf("r2 uploader requires a bucket")
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create r2 client: %w", err)
	}
	return &Uploader{cfg: cfg, client: client}, nil
}

func (u *Uploader) Bucket() string {
	return u.cfg.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.cfg.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.cfg.bucket, err)
	}
	return nil
}

// UploadFile pushes one local file to the bucket under key.
func (u *Uploader) UploadFile(ctx context.Context, localPath, key string) error {
	_, err := u.client.FPutObject(ctx, u.cfg.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", localPath, u.cfg.bucket, key, err)
	}
	return nil
}

// FileUpload reports one file's outcome within a batch upload.
type FileUpload struct {
	File string `json:"file"`
	Key  string `json:"key"`
	Err  string `json:"error,omitempty"`
}

type UploadSummary struct {
	Uploaded int          `json:"uploaded"`
	Failed   int          `json:"failed"`
	Files    []FileUpload `json:"files"`
}

// VideoKey is the bucket key for a video file name.
func VideoKey(name string) string {
	return "videos/" + name
}

// UploadVideos pushes every .mp4 under videosDir to videos/<name> keys.
// Per-file failures are reported in the summary, not returned as an error;
// the batch keeps going.
func (u *Uploader) UploadVideos(ctx context.Context, videosDir string) (UploadSummary, error) {
	entries, err := os.ReadDir(videosDir)
	if err != nil {
		return UploadSummary{}, fmt.Errorf("read videos directory %s: %w", videosDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp4") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	summary := UploadSummary{Files: make([]FileUpload, 0, len(names))}
	for _, name := range names {
		upload := FileUpload{File: name, Key: VideoKey(name)}
		if err := u.UploadFile(ctx, filepath.Join(videosDir, name), upload.Key); err != nil {
			upload.Err = err.Error()
			summary.Failed++
		} else {
			summary.Uploaded++
		}
		summary.Files = append(summary.Files, upload)
	}
	return summary, nil
}
