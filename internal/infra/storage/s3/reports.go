package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"depositrent/internal/app/handlers/reports"
)

var (
	ErrEndpointRequired = errors.New("s3: endpoint is required")
	ErrBucketRequired   = errors.New("s3: bucket is required")
	ErrKeyRequired      = errors.New("s3: object key is required")
)

type Options struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	// LinkTTL is how long a returned report link stays valid.
	LinkTTL time.Duration
	Logger  *slog.Logger
}

// ReportStore keeps generated reports in a private bucket and hands out
// presigned download links.
type ReportStore struct {
	bucket   string
	linkTTL  time.Duration
	client   *minio.Client
	logger   *slog.Logger
	initOnce sync.Once
	initErr  error
}

func NewReportStore(opts Options) (*ReportStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	client, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	ttl := opts.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStore{bucket: bucket, linkTTL: ttl, client: client, logger: logger}, nil
}

func (s *ReportStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = cleanKey(key)
	if key == "" {
		return "", ErrKeyRequired
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	link, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.linkTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3: presign %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "report stored", "bucket", s.bucket, "key", key, "size", info.Size)
	return link.String(), nil
}

// Ping checks that the bucket is reachable.
func (s *ReportStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("s3: ping: %w", err)
	}
	return nil
}

func (s *ReportStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.initErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.initErr
}

func cleanKey(key string) string {
	return strings.Trim(strings.TrimSpace(key), "/")
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ reports.Uploader = (*ReportStore)(nil)
