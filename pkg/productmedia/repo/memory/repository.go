// Package memory implements the productmedia repositories in process memory
// for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/storekit/product-media/pkg/productmedia"
)

// Repository implements productmedia.Repository and productmedia.ProductStore
// using in-memory maps.
type Repository struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]*productmedia.ImageAsset
	products map[uuid.UUID]*productmedia.Product
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:   make(map[uuid.UUID]*productmedia.ImageAsset),
		products: make(map[uuid.UUID]*productmedia.Product),
	}
}

func (r *Repository) CreateImageAssets(ctx context.Context, assets []*productmedia.ImageAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, asset := range assets {
		copied := *asset
		r.assets[asset.ID] = &copied
	}
	return nil
}

func (r *Repository) ListImageAssetsByProduct(ctx context.Context, productID uuid.UUID) ([]*productmedia.ImageAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*productmedia.ImageAsset
	for _, asset := range r.assets {
		if asset.ProductID == productID {
			copied := *asset
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) DeleteImageAssets(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.assets, id)
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *productmedia.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *product
	r.products[product.ID] = &copied
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return productmedia.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// GetProduct returns a product row, for tests.
func (r *Repository) GetProduct(id uuid.UUID) (*productmedia.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}
