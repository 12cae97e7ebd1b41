package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/campus-nfc/card-service/internal/config"
)

var (
	// ErrObjectNotFound is returned by Get when the key does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrDisabled is returned by every operation when STORAGE_DRIVER is none.
	ErrDisabled = errors.New("storage: disabled")
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New selects the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Driver {
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	case "", "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Disabled is the backend used when no object store is configured.
type Disabled struct{}

func (Disabled) EnsureBucket(context.Context) error { return nil }

func (Disabled) Put(context.Context, string, io.Reader, int64, string) error { return ErrDisabled }

func (Disabled) Get(context.Context, string) (io.ReadCloser, error) { return nil, ErrDisabled }

func (Disabled) Delete(context.Context, string) error { return ErrDisabled }

func (Disabled) Bucket() string { return "" }
