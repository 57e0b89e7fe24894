package minio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"parcelscope/internal/config"
	"parcelscope/internal/domain"
	"parcelscope/internal/port"
)

type minioClient struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioClient creates an ObjectStorage backed by a MinIO (or other
// S3-compatible) server. cfg.Endpoint is host:port without a scheme.
func NewMinioClient(cfg *config.S3Config) (port.ObjectStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &minioClient{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, storage port.ObjectStorage) error {
	c, ok := storage.(*minioClient)
	if !ok {
		return nil
	}
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf("minio make bucket %s: %w", c.bucket, err)
	}
	log.Printf("minio.EnsureBucket: created bucket %s", c.bucket)
	return nil
}

func (c *minioClient) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	size := input.Size
	if size <= 0 {
		size = -1
	}
	info, err := c.client.PutObject(ctx, input.Bucket, input.Key, input.Body, size, minio.PutObjectOptions{
		ContentType:  input.ContentType,
		UserMetadata: input.Metadata,
		Expires:      input.Expires,
	})
	if err != nil {
		return nil, fmt.Errorf("minio upload: %w", err)
	}
	return &port.UploadOutput{
		Location: fmt.Sprintf("%s/%s/%s", c.client.EndpointURL(), info.Bucket, info.Key),
		ETag:     info.ETag,
	}, nil
}

func (c *minioClient) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio download: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: minio object %s/%s", domain.ErrDocumentNotFound, bucket, key)
		}
		return nil, fmt.Errorf("minio download read: %w", err)
	}
	return data, nil
}

func (c *minioClient) Delete(ctx context.Context, bucket, key string) error {
	if err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete: %w", err)
	}
	return nil
}

func (c *minioClient) Ping(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists %s: %w", c.bucket, err)
	}
	if !exists {
		return fmt.Errorf("minio bucket %s does not exist", c.bucket)
	}
	return nil
}
