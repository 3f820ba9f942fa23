package productmedia_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/product-media/pkg/productmedia"
	"github.com/storekit/product-media/pkg/productmedia/objectkey"
	repomemory "github.com/storekit/product-media/pkg/productmedia/repo/memory"
	memorystorage "github.com/storekit/product-media/pkg/productmedia/storage/memory"
)

const (
	testEndpoint = "https://cdn.example.com"
	testBucket   = "product-media"
)

// spyStore wraps a BlobStore, recording calls and optionally injecting
// failures per key.
type spyStore struct {
	inner productmedia.BlobStore

	mu      sync.Mutex
	uploads []productmedia.UploadParams
	deletes []string

	failUpload func(key string) error
	failDelete func(key string) error
}

func newSpyStore() *spyStore {
	return &spyStore{inner: memorystorage.New()}
}

func (s *spyStore) Upload(ctx context.Context, reader io.Reader, size int64, params productmedia.UploadParams) error {
	s.mu.Lock()
	s.uploads = append(s.uploads, params)
	fail := s.failUpload
	s.mu.Unlock()

	if fail != nil {
		if err := fail(params.ObjectKey); err != nil {
			return err
		}
	}
	return s.inner.Upload(ctx, reader, size, params)
}

func (s *spyStore) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, objectKey)
	fail := s.failDelete
	s.mu.Unlock()

	if fail != nil {
		if err := fail(objectKey); err != nil {
			return err
		}
	}
	return s.inner.Delete(ctx, objectKey)
}

func (s *spyStore) GetObjectMeta(ctx context.Context, objectKey string) (*productmedia.ObjectMeta, error) {
	return s.inner.GetObjectMeta(ctx, objectKey)
}

func (s *spyStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *spyStore) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func newTestService(t *testing.T, store productmedia.BlobStore) (productmedia.Service, *repomemory.Repository) {
	t.Helper()

	repo := repomemory.New()
	svc, err := productmedia.New(
		productmedia.WithRepository(repo),
		productmedia.WithProductStore(repo),
		productmedia.WithBlobStore(store),
		productmedia.WithKeyAllocator(objectkey.NewAllocator(testEndpoint, testBucket)),
		productmedia.WithGenerator(productmedia.NewGenerator(productmedia.DefaultDerivativeSpecs(), productmedia.EncodingJPEG)),
		productmedia.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return svc, repo
}

func TestServiceCreation(t *testing.T) {
	repo := repomemory.New()
	store := memorystorage.New()
	keys := objectkey.NewAllocator(testEndpoint, testBucket)

	tests := []struct {
		name        string
		options     []productmedia.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []productmedia.Option{},
			expectError: true,
		},
		{
			name: "missing blob store should fail",
			options: []productmedia.Option{
				productmedia.WithRepository(repo),
				productmedia.WithKeyAllocator(keys),
			},
			expectError: true,
		},
		{
			name: "missing key allocator should fail",
			options: []productmedia.Option{
				productmedia.WithRepository(repo),
				productmedia.WithBlobStore(store),
			},
			expectError: true,
		},
		{
			name: "repository, store and allocator should succeed",
			options: []productmedia.Option{
				productmedia.WithRepository(repo),
				productmedia.WithBlobStore(store),
				productmedia.WithKeyAllocator(keys),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := productmedia.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestProcessAndUploadSingleImage(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	svc, _ := newTestService(t, store)

	product := productmedia.Product{Name: "chair"}
	created, err := svc.CreateProductWithImages(ctx, &product, nil)
	require.NoError(t, err)

	sets, err := svc.ProcessAndUploadImages(ctx, []productmedia.SourceImage{pngSource(t, "chair.png", 800, 600)}, created.ID)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	keys := objectkey.NewAllocator(testEndpoint, testBucket)
	urls := sets[0].Map()
	require.Len(t, urls, 4)

	for size, url := range urls {
		require.NotEmpty(t, url)

		key, ok := keys.KeyFromURL(url)
		require.True(t, ok, "url %s should map back to a key", url)
		assert.Contains(t, key, "/"+string(size)+"/")

		meta, err := store.GetObjectMeta(ctx, key)
		require.NoError(t, err, "object for %s must exist in the store", size)
		assert.Greater(t, meta.Size, int64(0))
	}

	// Every put carries the immutable cache policy and provenance headers.
	for _, params := range store.uploads {
		assert.Equal(t, "public, max-age=31536000, immutable", params.CacheControl)
		assert.Equal(t, "inline", params.ContentDisposition)
		assert.Equal(t, "chair.png", params.Metadata["source-filename"])
		assert.NotEmpty(t, params.Metadata["size-variant"])
	}
}

func TestValidationRejectsBeforeAnyWork(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	svc, repo := newTestService(t, store)

	var batch []productmedia.SourceImage
	for i := 0; i < 7; i++ {
		batch = append(batch, pngSource(t, "img.png", 50, 50))
	}

	product := productmedia.Product{Name: "lamp"}
	_, err := svc.CreateProductWithImages(ctx, &product, batch)
	require.Error(t, err)
	assert.Equal(t, "Maximum of 6 images allowed per request.", err.Error())

	// Fail-fast: no transform, no upload, no product row.
	assert.Equal(t, 0, store.uploadCount())
	_, exists := repo.GetProduct(product.ID)
	assert.False(t, exists)
}

func TestUploadFailureAbortsRemainderOfBatch(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	store.failUpload = func(key string) error {
		// Fail the large derivative of the second image (ordinal 1).
		if strings.Contains(key, "/large/") && strings.Contains(key, "-1-") {
			return assert.AnError
		}
		return nil
	}
	svc, _ := newTestService(t, store)

	product := productmedia.Product{Name: "table"}
	created, err := svc.CreateProductWithImages(ctx, &product, nil)
	require.NoError(t, err)

	batch := []productmedia.SourceImage{
		pngSource(t, "first.png", 400, 300),
		pngSource(t, "second.png", 400, 300),
		pngSource(t, "third.png", 400, 300),
	}

	_, err = svc.ProcessAndUploadImages(ctx, batch, created.ID)
	require.Error(t, err)

	var pipelineErr *productmedia.PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, "second.png", pipelineErr.FileName)
	assert.Equal(t, productmedia.StageUpload, pipelineErr.Stage)

	// Four puts for the first image, then thumbnail, medium and the
	// failing large for the second. Nothing for the third.
	assert.Equal(t, 7, store.uploadCount())
	for _, params := range store.uploads {
		assert.NotContains(t, params.ObjectKey, "-2-", "third image must not be touched")
	}
}

func TestCreatePathCompensation(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	store.failUpload = func(key string) error {
		if strings.Contains(key, "/original/") {
			return assert.AnError
		}
		return nil
	}
	svc, repo := newTestService(t, store)

	product := productmedia.Product{Name: "sofa"}
	_, err := svc.CreateProductWithImages(ctx, &product, []productmedia.SourceImage{
		pngSource(t, "sofa.png", 400, 300),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sofa.png")

	// The product row is compensated away; the three derivatives that
	// made it to the store before the failure stay behind as orphans.
	_, exists := repo.GetProduct(product.ID)
	assert.False(t, exists)
	assert.Equal(t, 4, store.uploadCount())
}

func TestCreateProductWithImagesSuccess(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	svc, repo := newTestService(t, store)

	product := productmedia.Product{Name: "desk"}
	created, err := svc.CreateProductWithImages(ctx, &product, []productmedia.SourceImage{
		pngSource(t, "desk.png", 800, 600),
	})
	require.NoError(t, err)

	_, exists := repo.GetProduct(created.ID)
	assert.True(t, exists)

	assets, err := svc.ListProductImages(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, assets, 1)

	asset := assets[0]
	assert.Equal(t, created.ID, asset.ProductID)
	assert.Len(t, asset.URLs, 4)
	assert.Equal(t, asset.URLs[productmedia.SizeOriginal], asset.URL)
}

func TestDeleteProductImages(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	svc, _ := newTestService(t, store)

	product := productmedia.Product{Name: "shelf"}
	created, err := svc.CreateProductWithImages(ctx, &product, []productmedia.SourceImage{
		pngSource(t, "a.png", 400, 300),
		pngSource(t, "b.png", 400, 300),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProductImages(ctx, created.ID))

	assets, err := svc.ListProductImages(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, assets)
	assert.Len(t, store.deletedKeys(), 8)
}
