// Package objectkey assigns storage keys and public URLs to product image
// derivatives.
package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Allocator produces keys of the form
//
//	products/{productID}/{size}/{unixMillis}-{ordinal}-{suffix}.{ext}
//
// The millisecond timestamp, the ordinal of the image within its batch and a
// random suffix together make collisions practically impossible, even for
// concurrent uploads against the same product. Keys are never derived from
// content, so re-uploading identical bytes yields a new, distinct object.
type Allocator struct {
	endpoint string
	bucket   string

	now    func() time.Time
	suffix func() string
}

// NewAllocator creates an Allocator serving public URLs from the given
// endpoint and bucket.
func NewAllocator(endpoint, bucket string) *Allocator {
	return &Allocator{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		bucket:   bucket,
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

// AllocateKey returns a new key for one derivative of one product image.
func (a *Allocator) AllocateKey(productID uuid.UUID, size string, ordinal int, ext string) string {
	return fmt.Sprintf("products/%s/%s/%d-%d-%s.%s",
		productID, size, a.now().UnixMilli(), ordinal, a.suffix(), ext)
}

// PublicURL returns the public URL serving the given key.
func (a *Allocator) PublicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, objectKey)
}

// KeyFromURL translates a public URL back into its storage key. It returns
// false for URLs that were not produced by this allocator.
func (a *Allocator) KeyFromURL(url string) (string, bool) {
	prefix := a.endpoint + "/" + a.bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
