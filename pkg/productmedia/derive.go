package productmedia

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	_ "golang.org/x/image/webp" // register webp decoder
)

// Encoding selects the normalized output format for all derivatives.
type Encoding string

const (
	EncodingWebP Encoding = "webp"
	EncodingJPEG Encoding = "jpeg"
)

// sharpenSigma is applied after a resize; scaling softens edges and a mild
// sharpen restores them. Unresized passthrough is never sharpened.
const sharpenSigma = 0.5

// Generator renders source images into the fixed set of derivatives.
type Generator struct {
	specs    []DerivativeSpec
	encoding Encoding
}

// NewGenerator creates a Generator for the given specs and output encoding.
func NewGenerator(specs []DerivativeSpec, encoding Encoding) *Generator {
	return &Generator{specs: specs, encoding: encoding}
}

// Specs returns the derivative specs in processing order.
func (g *Generator) Specs() []DerivativeSpec { return g.specs }

// GenerateAll decodes the source once and renders every spec in order. Any
// failure aborts the whole image and names the offending file.
func (g *Generator) GenerateAll(src SourceImage, sourceIndex int) ([]Derivative, error) {
	img, err := g.decode(src)
	if err != nil {
		return nil, err
	}

	out := make([]Derivative, 0, len(g.specs))
	for _, spec := range g.specs {
		d, err := g.render(img, spec, src, sourceIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Generate renders a single spec from the source.
func (g *Generator) Generate(src SourceImage, spec DerivativeSpec) (Derivative, error) {
	img, err := g.decode(src)
	if err != nil {
		return Derivative{}, err
	}
	return g.render(img, spec, src, 0)
}

func (g *Generator) decode(src SourceImage) (image.Image, error) {
	if len(src.Data) == 0 {
		return nil, &PipelineError{FileName: src.FileName, Stage: StageDecode, Err: ErrEmptyImage}
	}

	img, err := imaging.Decode(bytes.NewReader(src.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &PipelineError{FileName: src.FileName, Stage: StageDecode, Err: err}
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &PipelineError{FileName: src.FileName, Stage: StageDecode, Err: ErrMissingDimensions}
	}
	return img, nil
}

func (g *Generator) render(img image.Image, spec DerivativeSpec, src SourceImage, sourceIndex int) (Derivative, error) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	out := img
	resized := false

	switch spec.Fit {
	case FitCover:
		// Cover always resizes; the bounds are upper caps only, so a
		// source smaller than the spec is cropped to its own size
		// rather than enlarged.
		w := minInt(spec.Width, srcW)
		h := minInt(spec.Height, srcH)
		out = imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
		resized = true
	default:
		// Inside fit: scale down only when the source strictly exceeds
		// the bound on either axis.
		if srcW > spec.Width || srcH > spec.Height {
			out = imaging.Fit(img, spec.Width, spec.Height, imaging.Lanczos)
			resized = true
		}
	}

	if resized {
		out = imaging.Sharpen(out, sharpenSigma)
	}

	data, contentType, err := g.encode(out, spec.Quality)
	if err != nil {
		return Derivative{}, &PipelineError{FileName: src.FileName, Stage: StageEncode, Err: err}
	}

	return Derivative{
		SourceIndex: sourceIndex,
		Size:        spec.Name,
		Data:        data,
		ContentType: contentType,
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
	}, nil
}

// encode writes the derivative in the configured format. When the webp
// encoder is unavailable or rejects the image, encoding falls back to JPEG so
// a missing native encoder does not fail the batch.
func (g *Generator) encode(img image.Image, quality int) ([]byte, string, error) {
	if g.encoding == EncodingWebP {
		data, err := encodeWebP(img, quality)
		if err == nil {
			return data, "image/webp", nil
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extensionForContentType maps a derivative content type to the key's file
// extension.
func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/webp":
		return "webp"
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	default:
		return "bin"
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
