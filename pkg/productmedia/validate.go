package productmedia

import (
	"fmt"
	"path/filepath"
	"strings"
)

// UploadLimits is the static upload policy enforced before any pipeline work
// begins.
type UploadLimits struct {
	MaxImageCount int
	MaxFileBytes  int64
	MaxBatchBytes int64
	// AllowedExtensions are matched case-insensitively against the
	// uploaded filename's extension, dot included.
	AllowedExtensions []string
}

// DefaultUploadLimits returns the storefront defaults: at most 6 images of
// 5 MiB each, 25 MiB per batch, common web image formats only.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{
		MaxImageCount:     6,
		MaxFileBytes:      5 << 20,
		MaxBatchBytes:     25 << 20,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".webp"},
	}
}

// Validator checks an upload batch against UploadLimits. It is pure: no
// decoding, no I/O.
type Validator struct {
	limits UploadLimits
}

// NewValidator creates a Validator for the given limits.
func NewValidator(limits UploadLimits) *Validator {
	return &Validator{limits: limits}
}

// Validate returns the first violated rule as a *ValidationError whose
// message is safe to surface verbatim to the end user, or nil when the whole
// batch is acceptable.
func (v *Validator) Validate(batch []SourceImage) error {
	if len(batch) > v.limits.MaxImageCount {
		return &ValidationError{Message: fmt.Sprintf("Maximum of %d images allowed per request.", v.limits.MaxImageCount)}
	}

	var total int64
	for _, img := range batch {
		if img.FileName == "" || img.Size <= 0 {
			return &ValidationError{Message: "invalid file data"}
		}
		total += img.Size
	}

	if total > v.limits.MaxBatchBytes {
		return &ValidationError{Message: fmt.Sprintf("Total upload size exceeds the %dMB limit.", v.limits.MaxBatchBytes>>20)}
	}

	for _, img := range batch {
		if img.Size > v.limits.MaxFileBytes {
			return &ValidationError{Message: fmt.Sprintf("File %q exceeds the %dMB size limit.", img.FileName, v.limits.MaxFileBytes>>20)}
		}
	}

	for _, img := range batch {
		if !v.extensionAllowed(img.FileName) {
			return &ValidationError{Message: fmt.Sprintf("File %q has an unsupported format. Allowed formats: %s.",
				img.FileName, strings.Join(v.limits.AllowedExtensions, ", "))}
		}
	}

	return nil
}

func (v *Validator) extensionAllowed(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range v.limits.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
