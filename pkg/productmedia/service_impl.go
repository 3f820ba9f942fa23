package productmedia

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache metadata applied to every uploaded derivative. Keys are
// content-addressed in practice (a re-upload gets a new key), so objects can
// be cached forever.
const (
	cacheControlImmutable = "public, max-age=31536000, immutable"
	dispositionInline     = "inline"

	metaVariantKey    = "size-variant"
	metaSourceNameKey = "source-filename"
)

// service implements the Service interface
type service struct {
	repository Repository
	products   ProductStore
	store      BlobStore
	keys       KeyAllocator
	validator  *Validator
	generator  *Generator
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the image asset repository.
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repository = repo }
}

// WithProductStore sets the product row store used by the create path.
func WithProductStore(store ProductStore) Option {
	return func(s *service) { s.products = store }
}

// WithBlobStore sets the object store backend.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) { s.store = store }
}

// WithKeyAllocator sets the key allocator.
func WithKeyAllocator(keys KeyAllocator) Option {
	return func(s *service) { s.keys = keys }
}

// WithValidator overrides the default upload validator.
func WithValidator(v *Validator) Option {
	return func(s *service) { s.validator = v }
}

// WithGenerator overrides the default derivative generator.
func WithGenerator(g *Generator) Option {
	return func(s *service) { s.generator = g }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// New creates a new service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.keys == nil {
		return nil, fmt.Errorf("key allocator is required")
	}
	if s.validator == nil {
		s.validator = NewValidator(DefaultUploadLimits())
	}
	if s.generator == nil {
		s.generator = NewGenerator(DefaultDerivativeSpecs(), EncodingWebP)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) ValidateImageUpload(images []SourceImage) error {
	return s.validator.Validate(images)
}

// ProcessAndUploadImages is deliberately sequential everywhere: image N+1's
// work does not start until image N's uploads have completed, and within one
// image the derivatives are generated and uploaded in thumbnail, medium,
// large, original order. Only one decoded source is resident at a time.
func (s *service) ProcessAndUploadImages(ctx context.Context, images []SourceImage, productID uuid.UUID) ([]ImageURLSet, error) {
	results := make([]ImageURLSet, 0, len(images))

	for i, src := range images {
		derivatives, err := s.generator.GenerateAll(src, i)
		if err != nil {
			return nil, err
		}

		set, err := s.uploadDerivatives(ctx, productID, i, src, derivatives)
		if err != nil {
			return nil, err
		}
		results = append(results, set)
	}

	return results, nil
}

// uploadDerivatives puts one image's derivatives sequentially. The first
// failure aborts the remaining uploads; already-stored derivatives are not
// cleaned up here.
func (s *service) uploadDerivatives(ctx context.Context, productID uuid.UUID, ordinal int, src SourceImage, derivatives []Derivative) (ImageURLSet, error) {
	var set ImageURLSet

	for _, d := range derivatives {
		key := s.keys.AllocateKey(productID, string(d.Size), ordinal, extensionForContentType(d.ContentType))

		params := UploadParams{
			ObjectKey:          key,
			ContentType:        d.ContentType,
			CacheControl:       cacheControlImmutable,
			ContentDisposition: dispositionInline,
			Metadata: map[string]string{
				metaVariantKey:    string(d.Size),
				metaSourceNameKey: src.FileName,
			},
		}

		if err := s.store.Upload(ctx, bytes.NewReader(d.Data), d.ByteSize(), params); err != nil {
			return ImageURLSet{}, &PipelineError{FileName: src.FileName, Stage: StageUpload, Err: err}
		}

		set.set(d.Size, s.keys.PublicURL(key))
	}

	return set, nil
}

func (s *service) CreateProductImages(ctx context.Context, productID uuid.UUID, images []SourceImage) ([]*ImageAsset, error) {
	urlSets, err := s.ProcessAndUploadImages(ctx, images, productID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assets := make([]*ImageAsset, 0, len(urlSets))
	for i, set := range urlSets {
		assets = append(assets, &ImageAsset{
			ID:        uuid.New(),
			ProductID: productID,
			URL:       set.Original,
			URLs:      set.Map(),
			AltText:   images[i].AltText,
			CreatedAt: now,
		})
	}

	if err := s.repository.CreateImageAssets(ctx, assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *service) ListProductImages(ctx context.Context, productID uuid.UUID) ([]*ImageAsset, error) {
	return s.repository.ListImageAssetsByProduct(ctx, productID)
}

// ReconcileProductImages applies the caller's final image list. Row mutations
// are exact: once this returns nil, the relational rows match the desired
// list. Blob deletes for removed rows are best-effort only; a failed delete
// leaves an orphaned object and never fails the edit.
func (s *service) ReconcileProductImages(ctx context.Context, productID uuid.UUID, desired []DesiredImage) error {
	current, err := s.repository.ListImageAssetsByProduct(ctx, productID)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*ImageAsset, len(current))
	byURL := make(map[string]*ImageAsset, len(current))
	for _, asset := range current {
		byID[asset.ID] = asset
		if asset.URL != "" {
			byURL[asset.URL] = asset
		}
	}

	kept := make(map[uuid.UUID]bool, len(desired))
	var uploads []SourceImage

	for _, entry := range desired {
		if entry.IsUpload() {
			uploads = append(uploads, *entry.Upload)
			continue
		}
		if entry.ExistingID != nil {
			if asset, ok := byID[*entry.ExistingID]; ok {
				kept[asset.ID] = true
				continue
			}
		}
		if entry.ExistingURL != "" {
			if asset, ok := byURL[entry.ExistingURL]; ok {
				kept[asset.ID] = true
				continue
			}
		}
		// A reference that resolves to nothing is a stale id/URL from a
		// client that raced another edit. Last write wins: drop it.
		s.logger.Debug("dropping unresolvable image reference",
			"product_id", productID, "existing_url", entry.ExistingURL)
	}

	var removed []*ImageAsset
	var removedIDs []uuid.UUID
	for _, asset := range current {
		if !kept[asset.ID] {
			removed = append(removed, asset)
			removedIDs = append(removedIDs, asset.ID)
		}
	}

	if len(removedIDs) > 0 {
		if err := s.repository.DeleteImageAssets(ctx, removedIDs); err != nil {
			return err
		}
		s.deleteBlobs(ctx, removed)
	}

	if len(uploads) > 0 {
		if _, err := s.CreateProductImages(ctx, productID, uploads); err != nil {
			return err
		}
	}

	return nil
}

// deleteBlobs removes every derivative object of the given rows. Deletes run
// concurrently and independently; failures are logged, never surfaced and
// never retried. The rows are already gone, so an object that survives here
// is an orphan, which is preferable to failing the edit.
func (s *service) deleteBlobs(ctx context.Context, assets []*ImageAsset) {
	var wg sync.WaitGroup

	for _, asset := range assets {
		for size, url := range asset.URLs {
			if url == "" {
				continue
			}
			key, ok := s.keys.KeyFromURL(url)
			if !ok {
				s.logger.Error("cannot map image URL to storage key",
					"url", url, "asset_id", asset.ID)
				continue
			}

			wg.Add(1)
			go func(key string, size SizeName, assetID uuid.UUID) {
				defer wg.Done()
				if err := s.store.Delete(ctx, key); err != nil {
					s.logger.Error("best-effort blob delete failed",
						"key", key, "variant", size, "asset_id", assetID, "error", err)
				}
			}(key, size, asset.ID)
		}
	}

	wg.Wait()
}

// CreateProductWithImages inserts the product row before running the
// pipeline, because the key scheme needs the product id. If the pipeline
// fails afterwards, the row is deleted again and the original error
// re-raised. Derivatives uploaded before the failing step stay behind as
// orphans; compensation is one-sided on purpose.
func (s *service) CreateProductWithImages(ctx context.Context, product *Product, images []SourceImage) (*Product, error) {
	if s.products == nil {
		return nil, fmt.Errorf("product store is required for the create path")
	}

	if err := s.ValidateImageUpload(images); err != nil {
		return nil, err
	}

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if _, err := s.CreateProductImages(ctx, product.ID, images); err != nil {
			if derr := s.products.DeleteProduct(ctx, product.ID); derr != nil {
				s.logger.Error("failed to remove product row after media failure",
					"product_id", product.ID, "error", derr)
			}
			return nil, err
		}
	}

	return product, nil
}

func (s *service) DeleteProductImages(ctx context.Context, productID uuid.UUID) error {
	assets, err := s.repository.ListImageAssetsByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(assets))
	for _, asset := range assets {
		ids = append(ids, asset.ID)
	}

	if err := s.repository.DeleteImageAssets(ctx, ids); err != nil {
		return err
	}
	s.deleteBlobs(ctx, assets)
	return nil
}
