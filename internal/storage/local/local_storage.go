package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"parcelscope/internal/domain"
	"parcelscope/internal/port"
)

type localStorage struct {
	root string
}

// NewLocalStorage creates an ObjectStorage that keeps blobs under root,
// one directory per bucket.
func NewLocalStorage(root string) (port.ObjectStorage, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &localStorage{root: root}, nil
}

// path resolves bucket/key below root, refusing keys that escape it.
func (s *localStorage) path(bucket, key string) (string, error) {
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (s *localStorage) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(input.Bucket, input.Key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("local upload: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("local upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, input.Body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("local upload write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("local upload close: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, fmt.Errorf("local upload rename: %w", err)
	}
	return &port.UploadOutput{Location: "file://" + filepath.ToSlash(p)}, nil
}

func (s *localStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: local object %s/%s: %w", domain.ErrDocumentNotFound, bucket, key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("local download: %w", err)
	}
	return data, nil
}

func (s *localStorage) Delete(_ context.Context, bucket, key string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local delete: %w", err)
	}
	// uploads/<id>/ holds a single file; drop the directory with it
	_ = os.Remove(filepath.Dir(p))
	return nil
}

func (s *localStorage) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("local storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local storage root %s is not a directory", s.root)
	}
	return nil
}
