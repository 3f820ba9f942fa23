// Package api exposes the product media pipeline over HTTP. It is a thin
// adapter: multipart forms in, service calls out. Authentication and rate
// limiting are handled by middleware upstream of this router.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/storekit/product-media/pkg/productmedia"
)

// maxMultipartMemory bounds how much of a parsed form stays in memory before
// spilling to disk; well above the 25 MiB batch cap the validator enforces.
const maxMultipartMemory = 32 << 20

// ImagesHandler handles product image endpoints.
type ImagesHandler struct {
	service productmedia.Service
}

// NewImagesHandler creates an ImagesHandler backed by the given service.
func NewImagesHandler(service productmedia.Service) *ImagesHandler {
	return &ImagesHandler{service: service}
}

// Routes returns the router for product image endpoints, to be mounted under
// /products/{product_id}/images.
func (h *ImagesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListImages)
	r.Post("/", h.UploadImages)
	r.Put("/", h.ReconcileImages)
	r.Delete("/", h.DeleteImages)
	return r
}

// keepEntry references an already-persisted image the client wants to keep.
type keepEntry struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

// UploadImages accepts a multipart form with one or more "images" files and
// appends them to the product's image set.
func (h *ImagesHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	sources, ok := h.parseSourceImages(w, r)
	if !ok {
		return
	}
	if len(sources) == 0 {
		respondError(w, r, http.StatusBadRequest, "no images provided")
		return
	}

	if err := h.service.ValidateImageUpload(sources); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assets, err := h.service.CreateProductImages(r.Context(), productID, sources)
	if err != nil {
		h.respondPipelineError(w, r, productID, err)
		return
	}

	slog.Info("Product images uploaded", "product_id", productID, "count", len(assets))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, assets)
}

// ListImages returns the product's image asset rows.
func (h *ImagesHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	assets, err := h.service.ListProductImages(r.Context(), productID)
	if err != nil {
		slog.Error("Failed to list product images", "product_id", productID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "failed to list images")
		return
	}
	if assets == nil {
		assets = []*productmedia.ImageAsset{}
	}

	render.JSON(w, r, assets)
}

// ReconcileImages accepts a multipart form with a "keep" JSON array of
// {id|url} references plus any number of new "images" files, and makes the
// product's image set match exactly that list.
func (h *ImagesHandler) ReconcileImages(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var keeps []keepEntry
	if raw := r.FormValue("keep"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &keeps); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid keep list")
			return
		}
	}

	desired := make([]productmedia.DesiredImage, 0, len(keeps))
	for _, k := range keeps {
		entry := productmedia.DesiredImage{ExistingURL: k.URL}
		if k.ID != "" {
			id, err := uuid.Parse(k.ID)
			if err != nil {
				respondError(w, r, http.StatusBadRequest, "invalid image id in keep list")
				return
			}
			entry.ExistingID = &id
		}
		desired = append(desired, entry)
	}

	sources, ok := h.parseSourceImages(w, r)
	if !ok {
		return
	}
	if err := h.service.ValidateImageUpload(sources); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	for i := range sources {
		desired = append(desired, productmedia.DesiredImage{Upload: &sources[i]})
	}

	if err := h.service.ReconcileProductImages(r.Context(), productID, desired); err != nil {
		h.respondPipelineError(w, r, productID, err)
		return
	}

	assets, err := h.service.ListProductImages(r.Context(), productID)
	if err != nil {
		slog.Error("Failed to list product images after reconcile", "product_id", productID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "failed to list images")
		return
	}

	render.JSON(w, r, assets)
}

// DeleteImages removes all of the product's images.
func (h *ImagesHandler) DeleteImages(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProductImages(r.Context(), productID); err != nil {
		slog.Error("Failed to delete product images", "product_id", productID, "error", err)
		respondError(w, r, http.StatusInternalServerError, "failed to delete images")
		return
	}

	render.NoContent(w, r)
}

func (h *ImagesHandler) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "product_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid product ID", "product_id", idStr, "error", err)
		respondError(w, r, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

// parseSourceImages reads the "images" files of an already- or not-yet-parsed
// multipart form. Alt texts come from parallel "alt_texts" form values.
func (h *ImagesHandler) parseSourceImages(w http.ResponseWriter, r *http.Request) ([]productmedia.SourceImage, bool) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid multipart form")
			return nil, false
		}
	}

	files := r.MultipartForm.File["images"]
	altTexts := r.MultipartForm.Value["alt_texts"]

	sources := make([]productmedia.SourceImage, 0, len(files))
	for i, header := range files {
		src, err := readSourceImage(header)
		if err != nil {
			slog.Error("Failed to read uploaded file", "file_name", header.Filename, "error", err)
			respondError(w, r, http.StatusBadRequest, "failed to read uploaded file")
			return nil, false
		}
		if i < len(altTexts) {
			src.AltText = altTexts[i]
		}
		sources = append(sources, src)
	}

	return sources, true
}

func readSourceImage(header *multipart.FileHeader) (productmedia.SourceImage, error) {
	file, err := header.Open()
	if err != nil {
		return productmedia.SourceImage{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return productmedia.SourceImage{}, err
	}

	return productmedia.SourceImage{
		FileName: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// respondPipelineError maps service errors onto HTTP statuses. Validation
// failures and pipeline failures carry user-actionable messages; everything
// else is opaque.
func (h *ImagesHandler) respondPipelineError(w http.ResponseWriter, r *http.Request, productID uuid.UUID, err error) {
	var validationErr *productmedia.ValidationError
	if errors.As(err, &validationErr) {
		respondError(w, r, http.StatusBadRequest, validationErr.Message)
		return
	}

	var pipelineErr *productmedia.PipelineError
	if errors.As(err, &pipelineErr) {
		slog.Error("Image pipeline failed", "product_id", productID,
			"file_name", pipelineErr.FileName, "stage", pipelineErr.Stage, "error", err)
		respondError(w, r, http.StatusUnprocessableEntity, pipelineErr.Error())
		return
	}

	slog.Error("Product image operation failed", "product_id", productID, "error", err)
	respondError(w, r, http.StatusInternalServerError, "internal error")
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}
