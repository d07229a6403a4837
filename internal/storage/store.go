package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an artifact does not exist in the store.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore gives read access to model artifacts by file name.
type ArtifactStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Location() string
}
