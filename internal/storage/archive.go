package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// XLSXContentType is the MIME type of archived result workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Archiver stores finished result workbooks.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ObjectName builds a filesystem and bucket safe object name.
func ObjectName(examType, resultID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, examType)
	return fmt.Sprintf("%s/%s.xlsx", clean, resultID)
}

// DirArchiver writes objects under a local directory.
type DirArchiver struct {
	dir string
}

func NewDirArchiver(dir string) *DirArchiver {
	return &DirArchiver{dir: dir}
}

func (a *DirArchiver) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	dst := filepath.Join(a.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return dst, nil
}

// MinioArchiver uploads objects to an S3-compatible bucket.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

// NewMinioArchiver connects and ensures the bucket exists.
func NewMinioArchiver(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log zerolog.Logger) (*MinioArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Info().Str("bucket", bucket).Msg("Archive bucket created")
	}

	log.Info().Str("endpoint", endpoint).Str("bucket", bucket).Msg("MinIO archive connected")
	return &MinioArchiver{client: client, bucket: bucket}, nil
}

func (a *MinioArchiver) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	info, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return a.bucket + "/" + info.Key, nil
}
