package productmedia

import (
	"time"

	"github.com/google/uuid"
)

// SizeName identifies one of the fixed derivative sizes.
type SizeName string

// Derivative size constants (typed).
const (
	SizeThumbnail SizeName = "thumbnail"
	SizeMedium    SizeName = "medium"
	SizeLarge     SizeName = "large"
	SizeOriginal  SizeName = "original"
)

// SizeNames returns the fixed derivative sizes in processing order.
func SizeNames() []SizeName {
	return []SizeName{SizeThumbnail, SizeMedium, SizeLarge, SizeOriginal}
}

// FitMode controls how a source image is mapped onto a spec's bounds.
type FitMode string

const (
	// FitCover crops and scales so the output exactly fills the bounds.
	FitCover FitMode = "cover"
	// FitInside scales down to fit within the bounds; never pads, never
	// enlarges.
	FitInside FitMode = "inside"
)

// DerivativeSpec describes one named derivative size.
type DerivativeSpec struct {
	Name    SizeName
	Width   int
	Height  int
	Fit     FitMode
	Quality int
}

// DefaultDerivativeSpecs returns the four fixed specs. Thumbnail and medium
// are unconditionally resized with cover fit; large and original keep the
// source dimensions unless the source exceeds their bounds.
func DefaultDerivativeSpecs() []DerivativeSpec {
	return []DerivativeSpec{
		{Name: SizeThumbnail, Width: 200, Height: 200, Fit: FitCover, Quality: 70},
		{Name: SizeMedium, Width: 600, Height: 600, Fit: FitCover, Quality: 80},
		{Name: SizeLarge, Width: 1200, Height: 1200, Fit: FitInside, Quality: 82},
		{Name: SizeOriginal, Width: 2048, Height: 2048, Fit: FitInside, Quality: 90},
	}
}

// SourceImage is one uploaded file as received from the request layer. It is
// transient: consumed by the pipeline, never persisted.
type SourceImage struct {
	FileName string
	Size     int64
	MimeType string
	Data     []byte
	AltText  string
}

// Derivative is the result of rendering one SourceImage against one
// DerivativeSpec. It exists only between generation and upload.
type Derivative struct {
	SourceIndex int
	Size        SizeName
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// ByteSize returns the encoded length in bytes.
func (d Derivative) ByteSize() int64 { return int64(len(d.Data)) }

// ImageAsset is the durable relational record of one product image and the
// public URLs of its derivatives. URL mirrors the original derivative's URL
// for callers that predate the structured map.
type ImageAsset struct {
	ID        uuid.UUID           `json:"id"`
	ProductID uuid.UUID           `json:"product_id"`
	URL       string              `json:"url"`
	URLs      map[SizeName]string `json:"urls"`
	AltText   string              `json:"alt_text,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// ImageURLSet holds the four derivative URLs for one processed source image.
type ImageURLSet struct {
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
	Large     string `json:"large"`
	Original  string `json:"original"`
}

// Map returns the set keyed by size name, omitting empty entries.
func (s ImageURLSet) Map() map[SizeName]string {
	m := make(map[SizeName]string, 4)
	if s.Thumbnail != "" {
		m[SizeThumbnail] = s.Thumbnail
	}
	if s.Medium != "" {
		m[SizeMedium] = s.Medium
	}
	if s.Large != "" {
		m[SizeLarge] = s.Large
	}
	if s.Original != "" {
		m[SizeOriginal] = s.Original
	}
	return m
}

func (s *ImageURLSet) set(size SizeName, url string) {
	switch size {
	case SizeThumbnail:
		s.Thumbnail = url
	case SizeMedium:
		s.Medium = url
	case SizeLarge:
		s.Large = url
	case SizeOriginal:
		s.Original = url
	}
}

// DesiredImage is one entry of a client's final image list for a product:
// either a reference to an already-persisted asset (by id or by primary URL)
// or a new upload.
type DesiredImage struct {
	ExistingID  *uuid.UUID
	ExistingURL string
	Upload      *SourceImage
}

// IsUpload reports whether the entry carries new file data.
func (d DesiredImage) IsUpload() bool { return d.Upload != nil }

// Product is the minimal product row the pipeline touches. Product business
// logic lives elsewhere; the create path only needs the row to exist before
// keys can be allocated, and needs to remove it again when the pipeline
// fails.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
