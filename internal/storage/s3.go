package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

// S3ImageStore stores photos in an S3-compatible bucket (MinIO, AWS, R2).
// References are returned as s3://bucket/key.
type S3ImageStore struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	now      func() time.Time
	initOnce sync.Once
	initErr  error
}

// NewS3ImageStore creates the store from the storage.s3 config section.
// The bucket is checked (and created) on first use.
func NewS3ImageStore(cfg config.S3Config, prefix string) (*S3ImageStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3ImageStore{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}, nil
}

func (s *S3ImageStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3ImageStore) Store(ctx context.Context, data []byte, ext string, osmID *int64, coords *model.Coordinates) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", apperr.LocalResource("OpenStreetMap gateway cannot prepare the uploads directory", err)
	}

	key := imageName(osmID, coords, ext, s.now())
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	contentType := mime.TypeByExtension("." + strings.TrimPrefix(ext, "."))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
