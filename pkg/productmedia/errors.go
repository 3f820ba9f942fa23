package productmedia

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrAssetNotFound indicates an image asset row was not found
	ErrAssetNotFound = errors.New("image asset not found")

	// ErrProductNotFound indicates a product row was not found
	ErrProductNotFound = errors.New("product not found")

	// ErrObjectNotFound indicates an object does not exist in the object store
	ErrObjectNotFound = errors.New("object not found")

	// ErrEmptyImage indicates a source image with no bytes
	ErrEmptyImage = errors.New("empty image data")

	// ErrMissingDimensions indicates a decoded image without usable bounds
	ErrMissingDimensions = errors.New("missing intrinsic dimensions")
)

// Pipeline stages used in PipelineError.Stage.
const (
	StageDecode = "decode"
	StageEncode = "encode"
	StageUpload = "upload"
)

// ValidationError carries a user-facing message for a rejected upload batch.
// It is returned before any transformation or upload work begins.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PipelineError wraps a failure in decode, encode or upload of one source
// image, keeping the originating filename so callers can act on it.
type PipelineError struct {
	FileName string
	Stage    string
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("image %s failed for %q: %v", e.Stage, e.FileName, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StorageError represents an error from an object store operation.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
