// Package registry holds model artifacts that are loaded lazily, at most once
// per process, and shared read-only across requests.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/storage"
)

// ErrArtifactMissing is returned when the store has no such artifact.
var ErrArtifactMissing = errors.New("model artifact missing")

type entry struct {
	mu     sync.Mutex
	loaded atomic.Pointer[any]
}

// ModelRegistry caches loaded models keyed by artifact name. A successful
// load is kept for the life of the registry; a missing artifact or a failed
// load is not cached, so a later request retries.
type ModelRegistry struct {
	store   storage.ArtifactStore
	entries sync.Map // artifact name -> *entry
	loads   atomic.Int64
}

// New creates a registry over an artifact store.
func New(store storage.ArtifactStore) *ModelRegistry {
	return &ModelRegistry{store: store}
}

// Store returns the underlying artifact store.
func (r *ModelRegistry) Store() storage.ArtifactStore {
	return r.store
}

// Loads reports how many loader invocations have completed successfully.
func (r *ModelRegistry) Loads() int64 {
	return r.loads.Load()
}

// Present reports whether an artifact exists, without loading it.
func (r *ModelRegistry) Present(ctx context.Context, artifact string) (bool, error) {
	if r.loaded(artifact) != nil {
		return true, nil
	}
	return r.store.Exists(ctx, artifact)
}

func (r *ModelRegistry) entryFor(artifact string) *entry {
	if e, ok := r.entries.Load(artifact); ok {
		return e.(*entry)
	}
	e, _ := r.entries.LoadOrStore(artifact, &entry{})
	return e.(*entry)
}

func (r *ModelRegistry) loaded(artifact string) *any {
	e, ok := r.entries.Load(artifact)
	if !ok {
		return nil
	}
	return e.(*entry).loaded.Load()
}

// Resolve returns the model stored under artifact, loading it with load on
// first use. Once loaded, callers read it without taking a lock. Concurrent
// first callers block on a per-artifact lock and only one of them runs load.
func Resolve[T any](ctx context.Context, r *ModelRegistry, artifact string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	e := r.entryFor(artifact)

	if v := e.loaded.Load(); v != nil {
		return typed[T](*v, artifact)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if v := e.loaded.Load(); v != nil {
		return typed[T](*v, artifact)
	}

	start := time.Now()
	rc, err := r.store.Open(ctx, artifact)
	if errors.Is(err, storage.ErrNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrArtifactMissing, artifact)
	}
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", artifact, err)
	}
	defer rc.Close()

	model, err := load(rc)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", artifact, err)
	}

	var boxed any = model
	e.loaded.Store(&boxed)
	r.loads.Add(1)

	logger.WithFields(logrus.Fields{
		"artifact":    artifact,
		"location":    r.store.Location(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Model artifact loaded")
	return model, nil
}

func typed[T any](v any, artifact string) (T, error) {
	model, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("artifact %s was loaded as %T", artifact, v)
	}
	return model, nil
}
