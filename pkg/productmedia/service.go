package productmedia

import (
	"context"

	"github.com/google/uuid"
)

// Service is the product media pipeline's interface to the CRUD/API layer.
type Service interface {
	// ValidateImageUpload checks an upload batch against the configured
	// limits. A non-nil error is a *ValidationError whose message can be
	// shown to the end user verbatim.
	ValidateImageUpload(images []SourceImage) error

	// ProcessAndUploadImages runs each source image through derivative
	// generation and upload, preserving input order. It does not touch
	// the relational store.
	ProcessAndUploadImages(ctx context.Context, images []SourceImage, productID uuid.UUID) ([]ImageURLSet, error)

	// CreateProductImages runs the pipeline and inserts the resulting
	// image asset rows.
	CreateProductImages(ctx context.Context, productID uuid.UUID, images []SourceImage) ([]*ImageAsset, error)

	// ListProductImages returns a product's image asset rows.
	ListProductImages(ctx context.Context, productID uuid.UUID) ([]*ImageAsset, error)

	// ReconcileProductImages makes the product's persisted image rows
	// match the desired list: unreferenced rows are deleted (their blobs
	// best-effort), new uploads are processed and inserted.
	ReconcileProductImages(ctx context.Context, productID uuid.UUID, desired []DesiredImage) error

	// CreateProductWithImages inserts the product row, runs the pipeline
	// for its images, and removes the product row again if the pipeline
	// fails. Blobs uploaded before the failing step are left behind.
	CreateProductWithImages(ctx context.Context, product *Product, images []SourceImage) (*Product, error)

	// DeleteProductImages removes all of a product's image rows and
	// best-effort deletes their blobs.
	DeleteProductImages(ctx context.Context, productID uuid.UUID) error
}
