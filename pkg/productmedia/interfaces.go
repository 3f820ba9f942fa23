package productmedia

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the object store operations the pipeline consumes. Put
// and delete are single-object and synchronous per call; deleting a missing
// key is not an error the pipeline cares about.
type BlobStore interface {
	// Upload writes one object with its content metadata.
	Upload(ctx context.Context, reader io.Reader, size int64, params UploadParams) error

	// Delete removes one object by key.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// UploadParams contains the key and content metadata for one put.
type UploadParams struct {
	ObjectKey          string
	ContentType        string
	CacheControl       string
	ContentDisposition string
	Metadata           map[string]string
}

// ObjectMeta contains metadata about an object in storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}

// Repository defines persistence for image asset rows. Implementations may
// run inside an ambient transaction supplied by the caller; object store
// operations are never part of that transaction.
type Repository interface {
	CreateImageAssets(ctx context.Context, assets []*ImageAsset) error
	ListImageAssetsByProduct(ctx context.Context, productID uuid.UUID) ([]*ImageAsset, error)
	DeleteImageAssets(ctx context.Context, ids []uuid.UUID) error
}

// ProductStore is the narrow slice of the product table the create path
// needs: inserting the row the key scheme depends on, and removing it again
// when the pipeline fails after the insert.
type ProductStore interface {
	CreateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// KeyAllocator assigns storage keys and public URLs to derivatives, and maps
// public URLs back to keys for the delete path.
type KeyAllocator interface {
	// AllocateKey returns a new collision-resistant key for one derivative.
	AllocateKey(productID uuid.UUID, size string, ordinal int, ext string) string

	// PublicURL returns the public URL serving the given key.
	PublicURL(objectKey string) string

	// KeyFromURL translates a public URL back into its storage key. The
	// second return is false when the URL was not produced by this
	// allocator.
	KeyFromURL(url string) (string, bool)
}
