// Package minioctrl archives generated report artifacts in object storage.
package minioctrl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultReportBucket = "evaluation-reports"

var contentTypes = map[string]string{
	"md":   "text/markdown",
	"csv":  "text/csv",
	"json": "application/json",
}

type MinioService struct {
	client *minio.Client
	bucket string
}

func NewMinioService(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if bucket == "" {
		bucket = DefaultReportBucket
	}

	return &MinioService{client: client, bucket: bucket}, nil
}

func (s *MinioService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PutReport archives one report artifact and returns its object name.
// format selects the extension and content type: md, csv or json.
func (s *MinioService) PutReport(ctx context.Context, runName, format string, data []byte) (string, error) {
	if err := s.EnsureBucketExists(ctx); err != nil {
		return "", err
	}

	contentType, ok := contentTypes[format]
	if !ok {
		return "", fmt.Errorf("unknown report format %q", format)
	}

	objectName := fmt.Sprintf("%s/%s/report.%s", runName, time.Now().UTC().Format("20060102-150405"), format)
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive report: %w", err)
	}

	return objectName, nil
}

// GetReport fetches an archived report artifact.
func (s *MinioService) GetReport(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read report data: %w", err)
	}
	return data, nil
}

// ListReports lists the archived artifacts for one run.
func (s *MinioService) ListReports(ctx context.Context, runName string) ([]string, error) {
	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    runName + "/",
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", info.Err)
		}
		names = append(names, info.Key)
	}
	return names, nil
}
