package port

import (
	"context"
	"io"
	"time"
)

// UploadInput encapsulates the parameters needed to upload an object.
// Metadata keys are lower-case ASCII; backends store them as object user
// metadata. A non-zero Expires is recorded on the object as a hint for
// bucket lifecycle rules.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
	Expires     time.Time
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts blob storage for uploaded documents. Download
// reports a missing object as domain.ErrDocumentNotFound.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	Ping(ctx context.Context) error
}
