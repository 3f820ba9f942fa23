package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/product-media/pkg/productmedia"
	"github.com/storekit/product-media/pkg/productmedia/api"
	"github.com/storekit/product-media/pkg/productmedia/objectkey"
	repomemory "github.com/storekit/product-media/pkg/productmedia/repo/memory"
	memorystorage "github.com/storekit/product-media/pkg/productmedia/storage/memory"
)

func newTestRouter(t *testing.T) (http.Handler, productmedia.Service) {
	t.Helper()

	repo := repomemory.New()
	svc, err := productmedia.New(
		productmedia.WithRepository(repo),
		productmedia.WithProductStore(repo),
		productmedia.WithBlobStore(memorystorage.New()),
		productmedia.WithKeyAllocator(objectkey.NewAllocator("https://cdn.example.com", "product-media")),
		productmedia.WithGenerator(productmedia.NewGenerator(productmedia.DefaultDerivativeSpecs(), productmedia.EncodingJPEG)),
		productmedia.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/products/{product_id}/images", api.NewImagesHandler(svc).Routes())
	return r, svc
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 5 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// multipartBody builds a form with the given image files and optional keep
// list.
func multipartBody(t *testing.T, keep string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if keep != "" {
		require.NoError(t, writer.WriteField("keep", keep))
	}
	for name, data := range files {
		part, err := writer.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadImages(t *testing.T) {
	router, _ := newTestRouter(t)
	productID := uuid.New()

	body, contentType := multipartBody(t, "", map[string][]byte{
		"front.png": pngBytes(t, 400, 300),
	})

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/products/%s/images", productID), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var assets []*productmedia.ImageAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, productID, assets[0].ProductID)
	assert.Len(t, assets[0].URLs, 4)
	assert.NotEmpty(t, assets[0].URL)
}

func TestUploadImagesTooMany(t *testing.T) {
	router, _ := newTestRouter(t)
	productID := uuid.New()

	files := make(map[string][]byte)
	for i := 0; i < 7; i++ {
		files[fmt.Sprintf("img-%d.png", i)] = pngBytes(t, 50, 50)
	}
	body, contentType := multipartBody(t, "", files)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/products/%s/images", productID), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Maximum of 6 images allowed per request.", resp["error"])
}

func TestUploadImagesInvalidProductID(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "", map[string][]byte{"a.png": pngBytes(t, 50, 50)})
	req := httptest.NewRequest(http.MethodPost, "/products/not-a-uuid/images", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListImagesEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s/images", uuid.New()), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestReconcileImages(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()
	productID := uuid.New()

	seeded, err := svc.CreateProductImages(ctx, productID, []productmedia.SourceImage{
		{FileName: "keep.png", Size: 1, Data: pngBytes(t, 400, 300)},
		{FileName: "drop.png", Size: 1, Data: pngBytes(t, 400, 300)},
	})
	require.NoError(t, err)
	require.Len(t, seeded, 2)

	keep := fmt.Sprintf(`[{"id":%q}]`, seeded[0].ID)
	body, contentType := multipartBody(t, keep, map[string][]byte{
		"new.png": pngBytes(t, 400, 300),
	})

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/products/%s/images", productID), body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var after []*productmedia.ImageAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.Len(t, after, 2)

	ids := map[uuid.UUID]bool{}
	for _, asset := range after {
		ids[asset.ID] = true
	}
	assert.True(t, ids[seeded[0].ID])
	assert.False(t, ids[seeded[1].ID])
}

func TestDeleteImages(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()
	productID := uuid.New()

	_, err := svc.CreateProductImages(ctx, productID, []productmedia.SourceImage{
		{FileName: "x.png", Size: 1, Data: pngBytes(t, 200, 200)},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/products/%s/images", productID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	remaining, err := svc.ListProductImages(ctx, productID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
