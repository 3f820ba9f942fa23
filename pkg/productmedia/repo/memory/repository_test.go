package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/product-media/pkg/productmedia"
	"github.com/storekit/product-media/pkg/productmedia/repo/memory"
)

func asset(productID uuid.UUID, createdAt time.Time) *productmedia.ImageAsset {
	return &productmedia.ImageAsset{
		ID:        uuid.New(),
		ProductID: productID,
		URL:       "https://cdn.example.com/b/original.webp",
		URLs: map[productmedia.SizeName]string{
			productmedia.SizeOriginal: "https://cdn.example.com/b/original.webp",
		},
		CreatedAt: createdAt,
	}
}

func TestImageAssetLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	productID := uuid.New()

	now := time.Now().UTC()
	first := asset(productID, now)
	second := asset(productID, now.Add(time.Second))
	other := asset(uuid.New(), now)

	require.NoError(t, repo.CreateImageAssets(ctx, []*productmedia.ImageAsset{first, second, other}))

	listed, err := repo.ListImageAssetsByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID, "rows come back in creation order")
	assert.Equal(t, second.ID, listed[1].ID)

	require.NoError(t, repo.DeleteImageAssets(ctx, []uuid.UUID{first.ID}))

	listed, err = repo.ListImageAssetsByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, second.ID, listed[0].ID)
}

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	product := &productmedia.Product{ID: uuid.New(), Name: "bench", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateProduct(ctx, product))

	_, ok := repo.GetProduct(product.ID)
	assert.True(t, ok)

	require.NoError(t, repo.DeleteProduct(ctx, product.ID))
	_, ok = repo.GetProduct(product.ID)
	assert.False(t, ok)

	err := repo.DeleteProduct(ctx, product.ID)
	assert.ErrorIs(t, err, productmedia.ErrProductNotFound)
}
