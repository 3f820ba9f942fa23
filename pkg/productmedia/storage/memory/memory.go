// Package memory provides an in-memory implementation of the
// productmedia.BlobStore interface for development and testing.
package memory

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/storekit/product-media/pkg/productmedia"
)

// Backend is an in-memory implementation of the productmedia.BlobStore
// interface.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	params  map[string]productmedia.UploadParams
	stored  map[string]time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		params:  make(map[string]productmedia.UploadParams),
		stored:  make(map[string]time.Time),
	}
}

// Upload stores the object bytes and remembers the upload parameters.
func (b *Backend) Upload(ctx context.Context, reader io.Reader, size int64, params productmedia.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return &productmedia.StorageError{Backend: "memory", Key: params.ObjectKey, Op: "upload", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.params[params.ObjectKey] = params
	b.stored[params.ObjectKey] = time.Now().UTC()
	return nil
}

// Delete removes the object. Deleting a missing key is not an error,
// matching S3 semantics.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, objectKey)
	delete(b.params, objectKey)
	delete(b.stored, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a stored object.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*productmedia.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, productmedia.ErrObjectNotFound
	}
	params := b.params[objectKey]

	return &productmedia.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: params.ContentType,
		Metadata:    params.Metadata,
		UpdatedAt:   b.stored[objectKey],
	}, nil
}

// ObjectCount returns the number of stored objects.
func (b *Backend) ObjectCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Params returns the upload parameters recorded for a key.
func (b *Backend) Params(objectKey string) (productmedia.UploadParams, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.params[objectKey]
	return p, ok
}

// Keys returns all stored object keys.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}
