// Package imaging turns raw raster bytes into bounded, base64 data URL images.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spherical/docprompt/internal/domain"
)

const (
	// MaxDimension bounds the longer side of every normalized image
	MaxDimension = 512

	// DefaultJPEGQuality is used when no quality is configured
	DefaultJPEGQuality = 85
)

// Normalizer decodes, bounds and re-encodes images
type Normalizer struct {
	maxDimension int
	jpegQuality  int
}

// NewNormalizer creates a normalizer. Out-of-range quality falls back to the default.
func NewNormalizer(jpegQuality int) *Normalizer {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Normalizer{maxDimension: MaxDimension, jpegQuality: jpegQuality}
}

// Normalize decodes raw, shrinks it so the longer side is at most 512 pixels
// and encodes it as format. An empty format means JPEG.
func (n *Normalizer) Normalize(raw []byte, format domain.ImageFormat) (domain.EmbeddableImage, error) {
	if format == "" {
		format = domain.FormatJPEG
	}
	if format != domain.FormatJPEG && format != domain.FormatPNG {
		return domain.EmbeddableImage{}, domain.ValidationError(fmt.Sprintf("unsupported target format %q", format), nil)
	}
	if len(raw) == 0 {
		return domain.EmbeddableImage{}, domain.DecodeError("image data is empty", nil)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.EmbeddableImage{}, domain.DecodeError("failed to decode image", err)
	}

	img := n.bound(src)

	var buf bytes.Buffer
	switch format {
	case domain.FormatPNG:
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: n.jpegQuality})
	}
	if err != nil {
		return domain.EmbeddableImage{}, domain.DecodeError(fmt.Sprintf("failed to encode image as %s", format), err)
	}

	b := img.Bounds()
	return domain.EmbeddableImage{
		Format:  format,
		Payload: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// bound resizes img so that max(w, h) <= maxDimension. Smaller images are
// returned unchanged.
func (n *Normalizer) bound(img image.Image) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), n.maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// FitWithin returns the dimensions of a w x h box scaled down, aspect ratio
// preserved, so that neither side exceeds limit. It never scales up.
func FitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := (h*limit + w/2) / w
		return limit, max(nh, 1)
	}
	nw := (w*limit + h/2) / h
	return max(nw, 1), limit
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
